package lookup

import (
	"context"
	"fmt"
	"os"
	"strings"
)

func init() {
	if err := Register("file", File); err != nil {
		panic(err)
	}
}

// File returns the trimmed contents of the file named by the path argument.
func File(_ context.Context, args map[string]string) (string, error) {
	path := args["path"]
	if path == "" {
		return "", fmt.Errorf("file lookup requires a path argument")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("file lookup: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
