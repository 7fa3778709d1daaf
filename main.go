package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fleetrun/fleetrun/config"
	"github.com/fleetrun/fleetrun/connector"
	"github.com/fleetrun/fleetrun/credential"
	"github.com/fleetrun/fleetrun/fleet"
	"github.com/fleetrun/fleetrun/hostlist"
	"github.com/fleetrun/fleetrun/logger"
	"github.com/fleetrun/fleetrun/probe"
)

// errHostsFailed marks a completed run in which at least one host did not
// succeed. It maps to exit status 1; pre-run fatals map to 2.
var errHostsFailed = errors.New("one or more hosts failed")

type cliFlags struct {
	hostsFile      string
	user           string
	port           int
	keyFile        string
	authSpec       string
	sudo           bool
	scriptPath     string
	connectTimeout time.Duration
	execTimeout    time.Duration
	configPath     string
	logDir         string
	verbose        bool
}

func newRootCmd() *cobra.Command {
	f := &cliFlags{}

	cmd := &cobra.Command{
		Use:   "fleetrun --hosts FILE [flags] -- COMMAND",
		Short: "Run a shell command across a fleet of SSH hosts",
		Long: `fleetrun executes one shell command (or an uploaded script) on every host of
a fleet, sequentially, and reports a per-host outcome plus a summary.
Hosts that are unreachable, time out or exit nonzero never stop the run.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f, args)
		},
	}

	cmd.Flags().StringVar(&f.hostsFile, "hosts", "", "path to the host list file (required)")
	cmd.Flags().StringVarP(&f.user, "user", "u", "", "login user (default: current from config or $USER)")
	cmd.Flags().IntVar(&f.port, "port", 0, "default SSH port for hosts without an inline port")
	cmd.Flags().StringVarP(&f.keyFile, "key", "k", "", "path to the SSH private key")
	cmd.Flags().StringVar(&f.authSpec, "auth", "none", "auth mode: none, ask, env:NAME, file:PATH or cmd:HELPER")
	cmd.Flags().BoolVar(&f.sudo, "sudo", false, "run the command with privilege escalation")
	cmd.Flags().StringVar(&f.scriptPath, "script", "", "upload and run this local script instead of a command")
	cmd.Flags().DurationVar(&f.connectTimeout, "connect-timeout", 0, "SSH connect timeout")
	cmd.Flags().DurationVar(&f.execTimeout, "exec-timeout", 0, "wall-clock execution timeout per host")
	cmd.Flags().StringVar(&f.configPath, "config", "", "path to a YAML defaults file")
	cmd.Flags().StringVar(&f.logDir, "log-dir", "", "directory for rotated log files")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "enable debug logging")

	_ = cmd.MarkFlagRequired("hosts")

	return cmd
}

func run(cmd *cobra.Command, f *cliFlags, args []string) error {
	cfg, err := config.LoadOrDefault(f.configPath)
	if err != nil {
		return err
	}
	mergeConfig(cmd, f, cfg)

	if err := logger.InitGlobalLogger(f.logDir, f.verbose, logrus.InfoLevel); err != nil {
		return err
	}

	command := strings.Join(args, " ")
	if command == "" && f.scriptPath == "" {
		return errors.New("nothing to run: supply a command after -- or use --script")
	}
	if command != "" && f.scriptPath != "" {
		return errors.New("--script and a command are mutually exclusive")
	}
	if f.scriptPath != "" {
		if _, err := os.Stat(f.scriptPath); err != nil {
			return errors.Wrapf(err, "script %q", f.scriptPath)
		}
	}

	hosts, err := hostlist.Load(f.hostsFile, f.user, f.port)
	if err != nil {
		return err
	}
	if hosts.Len() == 0 {
		return errors.Errorf("host list %q contains no hosts", f.hostsFile)
	}

	mode, source, err := credential.ParseAuthMode(f.authSpec)
	if err != nil {
		return err
	}

	broker := credential.NewBroker()
	defer broker.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Acquired once, before any host: a configuration error aborts the whole
	// run instead of failing host by host.
	if err := broker.AcquireRunCredential(mode, source); err != nil {
		return err
	}

	runID := uuid.New().String()
	log := logger.Log.WithRun(runID)
	log.Infof("running against %d hosts", hosts.Len())

	runner := &fleet.Runner{
		Dialer: connector.NewDialer(),
		Prober: probe.NewProber(connector.NewDialer()),
		Broker: broker,
		Opts: fleet.Opts{
			Command:               command,
			ScriptPath:            f.scriptPath,
			Sudo:                  f.sudo,
			TryReuseRunCredential: broker.HasRunCredential(),
			KeyFile:               f.keyFile,
			AgentSocket:           agentSocket(f, broker),
			ConnectTimeout:        f.connectTimeout,
			ExecTimeout:           f.execTimeout,
			RunID:                 runID,
		},
	}

	report, runErr := runner.Run(ctx, hosts.Hosts())
	report.Render(os.Stdout)

	if runErr != nil {
		return runErr
	}
	if report.Failed() {
		return errHostsFailed
	}
	return nil
}

// mergeConfig fills flag values the user did not set from the config file.
func mergeConfig(cmd *cobra.Command, f *cliFlags, cfg *config.RunConfig) {
	if !cmd.Flags().Changed("user") {
		if cfg.User != "" {
			f.user = cfg.User
		} else {
			f.user = os.Getenv("USER")
		}
	}
	if !cmd.Flags().Changed("port") {
		f.port = cfg.Port
	}
	if !cmd.Flags().Changed("key") && cfg.KeyFile != "" {
		f.keyFile = cfg.KeyFile
	}
	if !cmd.Flags().Changed("connect-timeout") {
		f.connectTimeout = cfg.ConnectTimeout()
	}
	if !cmd.Flags().Changed("exec-timeout") {
		f.execTimeout = cfg.ExecTimeout()
	}
	if !cmd.Flags().Changed("log-dir") && cfg.LogDir != "" {
		f.logDir = cfg.LogDir
	}
}

// agentSocket falls back to the ssh-agent when no other auth material exists,
// so key-less, password-less invocations still have an auth method.
func agentSocket(f *cliFlags, broker *credential.Broker) string {
	if f.keyFile == "" && !broker.HasRunCredential() {
		return "env:SSH_AUTH_SOCK"
	}
	return ""
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, errHostsFailed) {
			os.Exit(1)
		}
		logger.Log.Errorf("%v", err)
		os.Exit(2)
	}
}
