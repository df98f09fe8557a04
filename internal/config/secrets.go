package config

import (
	"fmt"
	"os"
	"strings"
)

// ResolveSecret reads the credential named by envName, honoring the
// *_FILE convention used for container secret mounts: when
// envName+"_FILE" is set its file's trimmed contents win, otherwise the
// plain variable is used. An unset credential resolves to the empty
// string; only an unreadable secret file is an error.
func ResolveSecret(envName string) (string, error) {
	fileEnv := envName + "_FILE"
	if path := os.Getenv(fileEnv); path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading secret %s from %s: %w", envName, path, err)
		}
		return strings.TrimSpace(string(content)), nil
	}

	return os.Getenv(envName), nil
}

// MustResolveSecret is ResolveSecret for credentials required at
// startup: an unreadable secret file exits the process. The secret
// value itself never reaches the error output.
func MustResolveSecret(envName string) string {
	value, err := ResolveSecret(envName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	return value
}
