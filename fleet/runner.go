package fleet

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/fleetrun/fleetrun/common"
	"github.com/fleetrun/fleetrun/connector"
	"github.com/fleetrun/fleetrun/credential"
	"github.com/fleetrun/fleetrun/escalate"
	"github.com/fleetrun/fleetrun/hostlist"
	"github.com/fleetrun/fleetrun/logger"
	"github.com/fleetrun/fleetrun/probe"
)

// Opts configures one run.
type Opts struct {
	// Command is the shell command executed on every host. Ignored when
	// ScriptPath is set.
	Command string
	// ScriptPath, when set, is a local script uploaded to each host and
	// executed there.
	ScriptPath string
	// Sudo is the explicit escalation capability flag. Escalation is never
	// inferred from the command text.
	Sudo bool
	// TryReuseRunCredential allows validating the run credential as the
	// escalation secret before prompting separately.
	TryReuseRunCredential bool

	KeyFile     string
	AgentSocket string

	ConnectTimeout time.Duration
	ExecTimeout    time.Duration

	RunID string
}

// Runner drives the per-host pipeline: probe, negotiate, execute, record.
// Hosts are processed strictly sequentially; a failure on one host never
// affects the next.
type Runner struct {
	Dialer connector.Dialer
	Prober probe.Prober
	Broker *credential.Broker
	Opts   Opts
}

// Run executes the configured command across hosts and returns the report.
// The returned error is non-nil only when the run was externally cancelled;
// per-host failures are recorded in the report, never returned.
func (r *Runner) Run(ctx context.Context, hosts []hostlist.Host) (*Report, error) {
	if r.Opts.RunID == "" {
		r.Opts.RunID = uuid.New().String()
	}
	if r.Opts.ExecTimeout <= 0 {
		r.Opts.ExecTimeout = common.DefaultExecTimeout
	}

	if !r.Opts.Sudo && escalate.LooksElevated(r.Opts.Command) {
		logger.Log.WithRun(r.Opts.RunID).Warn("command invokes sudo but escalation is not enabled; it may hang on a password prompt")
	}

	report := NewReport(r.Opts.RunID)
	negotiator := &escalate.Negotiator{Broker: r.Broker}

	for _, host := range hosts {
		if err := ctx.Err(); err != nil {
			return report, errors.Wrap(err, "run cancelled")
		}

		log := logger.Log.WithRunHost(r.Opts.RunID, host.Address)
		log.Debugf("state %s", common.StateProbing)

		result := r.runHost(ctx, negotiator, host)
		report.Add(result)

		log.Infof("%s (%.1fs)", result.Outcome, result.Duration.Seconds())
	}

	return report, nil
}

func (r *Runner) runHost(ctx context.Context, negotiator *escalate.Negotiator, host hostlist.Host) HostResult {
	start := time.Now()
	result := HostResult{Host: host}
	log := logger.Log.WithRunHost(r.Opts.RunID, host.Address)

	finish := func(o Outcome) HostResult {
		result.Outcome = o
		result.Duration = time.Since(start)
		return result
	}

	cfg := r.hostConfig(host)

	if !r.Prober.Probe(ctx, cfg) {
		log.Debug("connectivity probe failed")
		return finish(ConnectionFailed())
	}
	log.Debugf("state %s", common.StateProbed)

	conn, err := r.Dialer.Dial(cfg)
	if err != nil {
		log.Debugf("dial after probe failed: %v", err)
		return finish(ConnectionFailed())
	}
	defer conn.Close()

	remoteCmd := r.Opts.Command
	if r.Opts.ScriptPath != "" {
		remotePath, stageErr := r.stageScript(ctx, conn)
		if stageErr != nil {
			log.Errorf("failed to stage script: %v", stageErr)
			return finish(ConnectionFailed())
		}
		defer r.unstageScript(conn, remotePath)
		remoteCmd = remotePath
	}

	var stdin []byte
	if r.Opts.Sudo {
		log.Debugf("state %s", common.StateResolvingSecret)
		secret, resolveErr := negotiator.Resolve(ctx, conn, host.Address, r.Opts.TryReuseRunCredential)
		if resolveErr != nil {
			log.Errorf("failed to resolve escalation secret: %v", resolveErr)
			return finish(Failed(-1))
		}
		remoteCmd = escalate.Wrap(remoteCmd)
		stdin = escalate.SecretStdin(secret)
	}

	log.Debugf("state %s", common.StateExecuting)
	execCtx, cancel := context.WithTimeout(ctx, r.Opts.ExecTimeout)
	defer cancel()

	stdout, stderr, exitCode, execErr := conn.ExecInput(execCtx, remoteCmd, stdin)
	result.Stdout = stdout
	result.Stderr = stderr

	switch {
	case errors.Is(execErr, context.DeadlineExceeded) && execCtx.Err() != nil && ctx.Err() == nil:
		return finish(Timeout())
	case execErr != nil:
		log.Debugf("execution error: %v", execErr)
		return finish(Failed(-1))
	case exitCode == 0:
		return finish(Success())
	default:
		return finish(Failed(exitCode))
	}
}

func (r *Runner) hostConfig(host hostlist.Host) connector.Config {
	cfg := connector.Config{
		Username:    host.User,
		Address:     host.Address,
		Port:        host.Port,
		KeyFile:     r.Opts.KeyFile,
		AgentSocket: r.Opts.AgentSocket,
		Timeout:     r.Opts.ConnectTimeout,
	}
	if r.Broker != nil && r.Broker.HasRunCredential() {
		cfg.Password = string(r.Broker.RunCredential())
	}
	return cfg
}

func (r *Runner) stageScript(ctx context.Context, conn connector.Connection) (string, error) {
	name := strings.TrimSuffix(path.Base(r.Opts.ScriptPath), path.Ext(r.Opts.ScriptPath))
	remotePath := path.Join(common.GetRemoteTmpDir(), name+"-"+uuid.New().String()+".sh")
	if err := conn.UploadScript(ctx, r.Opts.ScriptPath, remotePath, common.FileMode0700); err != nil {
		return "", err
	}
	return remotePath, nil
}

// unstageScript removes the staged script even when the run context is
// already cancelled or expired.
func (r *Runner) unstageScript(conn connector.Connection, remotePath string) {
	cleanupCtx, cancel := context.WithTimeout(context.Background(), common.ProbeTimeout)
	defer cancel()
	if err := conn.RemoveRemote(cleanupCtx, remotePath); err != nil {
		logger.Log.WithRun(r.Opts.RunID).Debugf("failed to remove staged script %s: %v", remotePath, err)
	}
}
