package secret

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Provider resolves secrets by reference string.
//
// Implementations must be safe for concurrent use and must not log secret
// values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
	Close() error
}

// EnvProvider resolves secretref:env:NAME from the process environment. An
// unset variable is an error; empty values pass through and are caught by
// the resolver's strict mode when enabled.
type EnvProvider struct{}

var _ Provider = EnvProvider{}

func (EnvProvider) Name() string { return "env" }

func (EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := os.LookupEnv(ref)
	if !ok {
		return "", fmt.Errorf("secret: environment variable %q is not set", ref)
	}
	return v, nil
}

func (EnvProvider) Close() error { return nil }

// FileProvider resolves secretref:file:/path by reading the file, trimming
// one trailing newline the way container secret mounts write them.
type FileProvider struct{}

var _ Provider = FileProvider{}

func (FileProvider) Name() string { return "file" }

func (FileProvider) Resolve(_ context.Context, ref string) (string, error) {
	b, err := os.ReadFile(ref)
	if err != nil {
		return "", fmt.Errorf("secret: read %q: %w", ref, err)
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

func (FileProvider) Close() error { return nil }
