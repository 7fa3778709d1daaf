package credential

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/fleetrun/fleetrun/cache"
	"github.com/fleetrun/fleetrun/logger"
)

// Pre-run error taxonomy. Either aborts the run before any host is touched.
var (
	// ErrMissingSecret indicates the selected secret source exists but is empty.
	ErrMissingSecret = errors.New("secret source is empty")
	// ErrMissingDependency indicates the selected auth mode needs an external
	// helper that is not installed.
	ErrMissingDependency = errors.New("secret helper not found")
)

// PromptFunc reads a secret without echoing it. Overridable for tests.
type PromptFunc func(prompt string) ([]byte, error)

// Broker owns the run-scoped login secret and the per-host escalation secret
// cache. It is the only mutable state shared across the host loop.
type Broker struct {
	mu            sync.Mutex
	runCredential []byte
	escalation    *cache.Cache[string, []byte]

	prompt   PromptFunc
	lookPath func(string) (string, error)
}

// Option configures a Broker.
type Option func(*Broker)

// WithPrompt replaces the interactive secret prompt.
func WithPrompt(p PromptFunc) Option {
	return func(b *Broker) { b.prompt = p }
}

// WithLookPath replaces helper binary resolution, for tests.
func WithLookPath(f func(string) (string, error)) Option {
	return func(b *Broker) { b.lookPath = f }
}

// NewBroker creates a Broker with an empty escalation cache.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		escalation: cache.NewCache[string, []byte](),
		prompt:     terminalPrompt,
		lookPath:   exec.LookPath,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func terminalPrompt(prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("interactive secret entry requires a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read secret from terminal")
	}
	return secret, nil
}

// AcquireRunCredential obtains the run-scoped login secret once, before any
// host is processed. AuthNone acquires nothing. The secret is held only in
// memory and is never logged.
func (b *Broker) AcquireRunCredential(mode AuthMode, source string) error {
	var secret []byte
	var err error

	switch mode {
	case AuthNone:
		return nil
	case AuthAsk:
		secret, err = b.prompt("SSH password: ")
		if err != nil {
			return err
		}
	case AuthEnv:
		v, ok := os.LookupEnv(source)
		if !ok || v == "" {
			return errors.Wrapf(ErrMissingSecret, "environment variable %q", source)
		}
		secret = []byte(v)
	case AuthFile:
		content, readErr := os.ReadFile(source)
		if readErr != nil {
			return errors.Wrapf(readErr, "failed to read secret file %q", source)
		}
		secret = []byte(strings.TrimRight(string(content), "\r\n"))
		if len(secret) == 0 {
			return errors.Wrapf(ErrMissingSecret, "secret file %q", source)
		}
	case AuthCommand:
		fields := strings.Fields(source)
		if len(fields) == 0 {
			return errors.Wrap(ErrMissingDependency, "empty helper command")
		}
		if _, lookErr := b.lookPath(fields[0]); lookErr != nil {
			return errors.Wrapf(ErrMissingDependency, "helper %q", fields[0])
		}
		out, runErr := exec.Command(fields[0], fields[1:]...).Output()
		if runErr != nil {
			return errors.Wrapf(runErr, "secret helper %q failed", fields[0])
		}
		secret = []byte(strings.TrimRight(string(out), "\r\n"))
		if len(secret) == 0 {
			return errors.Wrapf(ErrMissingSecret, "helper %q produced no output", fields[0])
		}
	default:
		return errors.Errorf("unknown auth mode %d", mode)
	}

	b.mu.Lock()
	b.runCredential = secret
	b.mu.Unlock()
	return nil
}

// HasRunCredential reports whether a run credential was acquired.
func (b *Broker) HasRunCredential() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.runCredential) > 0
}

// RunCredential returns the run credential, or nil if none was acquired.
// Callers must not retain or modify the slice.
func (b *Broker) RunCredential() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.runCredential
}

// GetOrResolveEscalation returns the escalation secret for hostAddr. A cached
// entry always wins and is never re-validated. On a miss, when tryReuse is
// set and a run credential exists, probe decides with a single side-effect
// check whether the run credential works for escalation on that host; if not,
// the operator is prompted once. Whatever was obtained is cached for the rest
// of the run.
func (b *Broker) GetOrResolveEscalation(hostAddr string, tryReuse bool, probe func(secret []byte) bool) ([]byte, error) {
	if secret, ok := b.escalation.Get(hostAddr); ok {
		logger.Log.WithHost(hostAddr).Debug("using cached escalation secret")
		return secret, nil
	}

	var secret []byte

	if tryReuse && b.HasRunCredential() && probe != nil {
		if probe(b.RunCredential()) {
			logger.Log.WithHost(hostAddr).Debug("run credential accepted for escalation")
			secret = append([]byte(nil), b.RunCredential()...)
		}
	}

	if secret == nil {
		s, err := b.prompt(fmt.Sprintf("[sudo] password for %s: ", hostAddr))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to obtain escalation secret for %s", hostAddr)
		}
		secret = s
	}

	b.escalation.Set(hostAddr, secret)
	return secret, nil
}

// EscalationCached reports whether an escalation secret is cached for hostAddr.
func (b *Broker) EscalationCached(hostAddr string) bool {
	_, ok := b.escalation.Get(hostAddr)
	return ok
}

// Close wipes every secret the broker holds. It is the release half of the
// scoped acquisition contract and runs on every exit path, interrupts
// included.
func (b *Broker) Close() {
	b.mu.Lock()
	wipe(b.runCredential)
	b.runCredential = nil
	b.mu.Unlock()

	b.escalation.Range(func(_ string, secret []byte) bool {
		wipe(secret)
		return true
	})
	b.escalation.Clean()
	b.escalation.Close()
}

func wipe(secret []byte) {
	for i := range secret {
		secret[i] = 0
	}
}
