package probe

import (
	"context"

	"github.com/fleetrun/fleetrun/common"
	"github.com/fleetrun/fleetrun/connector"
	"github.com/fleetrun/fleetrun/logger"
)

// Prober verifies a host is reachable and authenticable before anything else
// is attempted against it.
type Prober interface {
	Probe(ctx context.Context, cfg connector.Config) bool
}

type sshProber struct {
	dialer connector.Dialer
}

// NewProber returns a Prober that dials with a short timeout and runs a no-op
// command. Only the configured non-interactive auth methods are used; no
// secret is prompted for mid-probe.
func NewProber(dialer connector.Dialer) Prober {
	return &sshProber{dialer: dialer}
}

func (p *sshProber) Probe(ctx context.Context, cfg connector.Config) bool {
	cfg.Timeout = common.ProbeTimeout

	conn, err := p.dialer.Dial(cfg)
	if err != nil {
		logger.Log.WithHost(cfg.Address).Debugf("probe dial failed: %v", err)
		return false
	}
	defer conn.Close()

	probeCtx, cancel := context.WithTimeout(ctx, common.ProbeTimeout)
	defer cancel()

	_, _, exitCode, err := conn.Exec(probeCtx, "true")
	if err != nil || exitCode != 0 {
		logger.Log.WithHost(cfg.Address).Debugf("probe command failed (exit %d): %v", exitCode, err)
		return false
	}
	return true
}
