package config

import (
	"gopkg.in/yaml.v3"
)

// Definition is one task definition document. The type field selects which
// spec block is populated; the remaining top-level keys belong to that spec.
type Definition struct {
	ID        string            `yaml:"-"`
	Type      string            `yaml:"type" validate:"required,oneof=transfer execution batch"`
	Variables map[string]string `yaml:"variables,omitempty"`

	Transfer  *TransferSpec  `yaml:",inline,omitempty"`
	Execution *ExecutionSpec `yaml:",inline,omitempty"`
	Batch     *BatchSpec     `yaml:",inline,omitempty"`
}

// UnmarshalYAML customises definition decoding to populate the type-specific
// spec without key conflicts.
func (d *Definition) UnmarshalYAML(value *yaml.Node) error {
	type baseDefinition struct {
		Type      string            `yaml:"type"`
		Variables map[string]string `yaml:"variables"`
	}

	var base baseDefinition
	if err := value.Decode(&base); err != nil {
		return err
	}

	d.Type = base.Type
	d.Variables = base.Variables

	d.Transfer = nil
	d.Execution = nil
	d.Batch = nil

	switch base.Type {
	case "transfer":
		var spec TransferSpec
		if err := value.Decode(&spec); err != nil {
			return err
		}
		d.Transfer = &spec
	case "execution":
		var spec ExecutionSpec
		if err := value.Decode(&spec); err != nil {
			return err
		}
		d.Execution = &spec
	case "batch":
		var spec BatchSpec
		if err := value.Decode(&spec); err != nil {
			return err
		}
		d.Batch = &spec
	}

	return nil
}

// ExecutionSpec runs one command across a fleet of hosts.
type ExecutionSpec struct {
	Hosts     []string     `yaml:"hosts" validate:"required,min=1,dive,required"`
	Command   string       `yaml:"command" validate:"required,min=1"`
	Directory string       `yaml:"directory,omitempty"`
	Protocol  ProtocolSpec `yaml:"protocol"`
}

// TransferSpec moves files matched at one source to zero or more
// destinations.
type TransferSpec struct {
	Source       SourceSpec        `yaml:"source"`
	Destinations []DestinationSpec `yaml:"destination,omitempty" validate:"omitempty,dive"`
}

// SourceSpec selects the files a transfer picks up.
type SourceSpec struct {
	Hostname  string       `yaml:"hostname,omitempty"`
	Directory string       `yaml:"directory" validate:"required"`
	FileRegex string       `yaml:"fileRegex" validate:"required"`
	Protocol  ProtocolSpec `yaml:"protocol"`
}

// DestinationSpec is one delivery target. Recipients and Subject only apply
// to the email protocol.
type DestinationSpec struct {
	Hostname   string       `yaml:"hostname,omitempty"`
	Directory  string       `yaml:"directory,omitempty"`
	Protocol   ProtocolSpec `yaml:"protocol"`
	Recipients []string     `yaml:"recipients,omitempty"`
	Subject    string       `yaml:"subject,omitempty"`
}

// ProtocolSpec names the handler that talks to an endpoint, plus its
// connection material.
type ProtocolSpec struct {
	Name        string          `yaml:"name" validate:"required"`
	Port        int             `yaml:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	Credentials CredentialsSpec `yaml:"credentials,omitempty"`
	SMTP        *SMTPSpec       `yaml:"smtp,omitempty"`
}

// CredentialsSpec carries endpoint authentication material.
type CredentialsSpec struct {
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	KeyFile  string `yaml:"keyFile,omitempty"`
}

// SMTPSpec configures the relay used by the email protocol.
type SMTPSpec struct {
	Host     string `yaml:"host" validate:"required"`
	Port     int    `yaml:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	Sender   string `yaml:"sender,omitempty"`
}

// BatchSpec composes other tasks into a dependency-ordered run.
type BatchSpec struct {
	Tasks []BatchEntry `yaml:"tasks" validate:"required,min=1,dive"`
}

// BatchEntry is one row in a batch definition. Timeout is in seconds; zero
// falls back to the engine default.
type BatchEntry struct {
	OrderID        int    `yaml:"order_id" validate:"required,gt=0"`
	TaskID         string `yaml:"task_id" validate:"required,task_id"`
	Timeout        int    `yaml:"timeout,omitempty" validate:"omitempty,gt=0"`
	ContinueOnFail bool   `yaml:"continue_on_fail,omitempty"`
	RetryOnRerun   bool   `yaml:"retry_on_rerun,omitempty"`
	Dependencies   []int  `yaml:"dependencies,omitempty"`
}
