package config

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	flotillaerrors "github.com/flotilla-run/flotilla/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	taskIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("task_id", func(fl validator.FieldLevel) bool {
			return taskIDPattern.MatchString(fl.Field().String())
		})

		validateInst = v
	})

	return validateInst
}

// ValidateDefinition performs schema validation on a loaded task definition.
// Batch graph rules (duplicates, unknown dependencies, cycles) are enforced
// later when the engine builds the task set.
func ValidateDefinition(def *Definition) error {
	if def == nil {
		return flotillaerrors.NewValidationError("definition", "task definition is nil", nil)
	}

	v := validatorInstance()
	if err := v.Struct(def); err != nil {
		return convertValidationError(err)
	}

	switch def.Type {
	case "transfer":
		if def.Transfer == nil {
			return flotillaerrors.NewValidationError(def.ID, "transfer configuration is required", nil)
		}
		if err := v.Struct(def.Transfer); err != nil {
			return convertValidationError(err)
		}
	case "execution":
		if def.Execution == nil {
			return flotillaerrors.NewValidationError(def.ID, "execution configuration is required", nil)
		}
		if err := v.Struct(def.Execution); err != nil {
			return convertValidationError(err)
		}
	case "batch":
		if def.Batch == nil {
			return flotillaerrors.NewValidationError(def.ID, "batch configuration is required", nil)
		}
		if err := v.Struct(def.Batch); err != nil {
			return convertValidationError(err)
		}
		for i, entry := range def.Batch.Tasks {
			for _, dep := range entry.Dependencies {
				if dep <= 0 {
					return flotillaerrors.NewValidationError(
						fieldForEntry(i, "dependencies"),
						fmt.Sprintf("order id %d is not positive", dep), nil)
				}
			}
		}
	default:
		return flotillaerrors.NewValidationError(def.ID, fmt.Sprintf("unknown task type %q", def.Type), nil)
	}

	return nil
}

func convertValidationError(err error) error {
	if err == nil {
		return nil
	}

	if ves, ok := err.(validator.ValidationErrors); ok {
		ve := ves[0]
		field := yamlishFieldName(ve)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag())
		return flotillaerrors.NewValidationError(field, msg, err)
	}

	return flotillaerrors.NewValidationError("definition", err.Error(), err)
}

func yamlishFieldName(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	parts := strings.Split(ns, ".")
	var lowered []string
	for _, part := range parts {
		lowered = append(lowered, strings.ToLower(part))
	}
	return strings.Join(lowered, ".")
}

func fieldForEntry(index int, field string) string {
	return fmt.Sprintf("tasks[%d].%s", index, field)
}
