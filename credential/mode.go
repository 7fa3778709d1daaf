package credential

import (
	"strings"

	"github.com/pkg/errors"
)

// AuthMode selects how the run credential is obtained.
type AuthMode int

const (
	// AuthNone performs no secret acquisition; key or agent auth only.
	AuthNone AuthMode = iota
	// AuthAsk prompts interactively, once per run.
	AuthAsk
	// AuthEnv reads a named environment variable.
	AuthEnv
	// AuthFile reads a secret file.
	AuthFile
	// AuthCommand runs an external helper that prints the secret.
	AuthCommand
)

func (m AuthMode) String() string {
	switch m {
	case AuthNone:
		return "none"
	case AuthAsk:
		return "ask"
	case AuthEnv:
		return "env"
	case AuthFile:
		return "file"
	case AuthCommand:
		return "cmd"
	default:
		return "unknown"
	}
}

// ParseAuthMode parses the --auth flag syntax: none, ask, env:NAME,
// file:PATH or cmd:HELPER. The second result is the mode's source argument.
func ParseAuthMode(s string) (AuthMode, string, error) {
	switch {
	case s == "" || s == "none":
		return AuthNone, "", nil
	case s == "ask":
		return AuthAsk, "", nil
	case strings.HasPrefix(s, "env:"):
		name := strings.TrimPrefix(s, "env:")
		if name == "" {
			return AuthNone, "", errors.New("auth mode env: requires a variable name")
		}
		return AuthEnv, name, nil
	case strings.HasPrefix(s, "file:"):
		path := strings.TrimPrefix(s, "file:")
		if path == "" {
			return AuthNone, "", errors.New("auth mode file: requires a path")
		}
		return AuthFile, path, nil
	case strings.HasPrefix(s, "cmd:"):
		helper := strings.TrimPrefix(s, "cmd:")
		if helper == "" {
			return AuthNone, "", errors.New("auth mode cmd: requires a helper command")
		}
		return AuthCommand, helper, nil
	default:
		return AuthNone, "", errors.Errorf("unknown auth mode %q", s)
	}
}
