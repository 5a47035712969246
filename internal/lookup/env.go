package lookup

import (
	"context"
	"fmt"
	"os"
)

func init() {
	if err := Register("env", Env); err != nil {
		panic(err)
	}
}

// Env returns the value of the environment variable named by the name
// argument. An unset variable is an error rather than an empty string so a
// missing secret fails the load instead of producing a blank credential.
func Env(_ context.Context, args map[string]string) (string, error) {
	name := args["name"]
	if name == "" {
		return "", fmt.Errorf("env lookup requires a name argument")
	}

	value, ok := os.LookupEnv(name)
	if !ok {
		return "", fmt.Errorf("env lookup: %s is not set", name)
	}
	return value, nil
}
