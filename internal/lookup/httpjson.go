package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

func init() {
	if err := Register("http_json", HTTPJSON); err != nil {
		panic(err)
	}
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

// HTTPJSON fetches the url argument and extracts the value at the
// dot-separated jsonpath argument from the JSON response body.
func HTTPJSON(ctx context.Context, args map[string]string) (string, error) {
	url := args["url"]
	if url == "" {
		return "", fmt.Errorf("http_json lookup requires a url argument")
	}
	jsonPath := args["jsonpath"]
	if jsonPath == "" {
		return "", fmt.Errorf("http_json lookup requires a jsonpath argument")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("http_json lookup: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http_json lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http_json lookup: %s returned %s", url, resp.Status)
	}

	var payload any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("http_json lookup: decoding %s: %w", url, err)
	}

	value, err := walkJSONPath(payload, jsonPath)
	if err != nil {
		return "", fmt.Errorf("http_json lookup: %s: %w", url, err)
	}
	return value, nil
}

func walkJSONPath(payload any, path string) (string, error) {
	current := payload
	for _, segment := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return "", fmt.Errorf("segment %q does not address an object", segment)
		}
		next, ok := obj[segment]
		if !ok {
			return "", fmt.Errorf("key %q not found", segment)
		}
		current = next
	}

	switch v := current.(type) {
	case string:
		return v, nil
	case nil:
		return "", fmt.Errorf("path %q resolves to null", path)
	default:
		return fmt.Sprintf("%v", v), nil
	}
}
