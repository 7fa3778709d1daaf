package escalate

import (
	"context"
	"fmt"
	"strings"

	"github.com/fleetrun/fleetrun/common"
	"github.com/fleetrun/fleetrun/connector"
	"github.com/fleetrun/fleetrun/credential"
)

// reuseProbeCmd validates a candidate escalation secret with a no-op. sudo -S
// reads the secret from stdin and -p '' suppresses its own prompt.
const reuseProbeCmd = "sudo -S -p '' true"

// Wrap builds the escalation-wrapped form of cmd. The secret is fed through
// stdin (see SecretStdin); -E preserves the environment as the plain command
// would see it.
func Wrap(cmd string) string {
	return fmt.Sprintf("sudo -S -p '' -E /bin/bash -c %s", connector.EscapeShellArg(cmd))
}

// SecretStdin renders a secret as the stdin payload sudo -S expects.
func SecretStdin(secret []byte) []byte {
	out := make([]byte, 0, len(secret)+1)
	out = append(out, secret...)
	return append(out, '\n')
}

// LooksElevated reports whether cmd textually invokes sudo itself. Escalation
// is decided by the caller's explicit flag, never by this check; it only
// feeds an advisory warning when the flag is off but the command starts with
// sudo.
func LooksElevated(cmd string) bool {
	trimmed := strings.TrimSpace(cmd)
	return trimmed == "sudo" || strings.HasPrefix(trimmed, "sudo ")
}

// Negotiator resolves escalation secrets for hosts, consulting and updating
// the broker's per-host cache.
type Negotiator struct {
	Broker *credential.Broker
}

// Resolve returns the escalation secret for hostAddr. On a cache miss with
// tryReuse set, the run credential is validated against the host with a
// single no-op sudo invocation before falling back to a prompt.
func (n *Negotiator) Resolve(ctx context.Context, conn connector.Connection, hostAddr string, tryReuse bool) ([]byte, error) {
	probe := func(secret []byte) bool {
		probeCtx, cancel := context.WithTimeout(ctx, common.ProbeTimeout)
		defer cancel()

		_, _, exitCode, err := conn.ExecInput(probeCtx, reuseProbeCmd, SecretStdin(secret))
		return err == nil && exitCode == 0
	}
	return n.Broker.GetOrResolveEscalation(hostAddr, tryReuse, probe)
}
