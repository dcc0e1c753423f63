package token

import (
	"fmt"
	"os"
	"strings"
)

// Read loads the agent token from path. A missing or empty token is the one
// unrecoverable startup condition, so callers are expected to exit on error.
func Read(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading agent token from %s: %w", path, err)
	}
	t := strings.TrimSpace(string(b))
	if t == "" {
		return "", fmt.Errorf("agent token file %s is empty", path)
	}
	return t, nil
}

// Write stores a freshly registered agent token so later runs can reuse it.
func Write(path, tok string) error {
	if err := os.WriteFile(path, []byte(tok+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing agent token to %s: %w", path, err)
	}
	return nil
}
