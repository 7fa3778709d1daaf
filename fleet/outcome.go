package fleet

import "fmt"

// OutcomeKind is the terminal classification of one host's attempt.
type OutcomeKind int

const (
	// OutcomeSuccess means the remote command exited zero.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeConnectionFailed means the host never got as far as executing.
	OutcomeConnectionFailed
	// OutcomeTimeout means execution exceeded the wall-clock limit.
	OutcomeTimeout
	// OutcomeFailed means the remote command exited nonzero.
	OutcomeFailed
)

// Outcome pairs a kind with the remote exit code for OutcomeFailed.
type Outcome struct {
	Kind     OutcomeKind
	ExitCode int
}

// Success is the zero-exit outcome.
func Success() Outcome {
	return Outcome{Kind: OutcomeSuccess}
}

// ConnectionFailed marks a host that was unreachable or unauthenticable.
func ConnectionFailed() Outcome {
	return Outcome{Kind: OutcomeConnectionFailed}
}

// Timeout marks an execution that hit the wall-clock limit.
func Timeout() Outcome {
	return Outcome{Kind: OutcomeTimeout}
}

// Failed marks a nonzero remote exit.
func Failed(exitCode int) Outcome {
	return Outcome{Kind: OutcomeFailed, ExitCode: exitCode}
}

// OK reports whether the host counts as succeeded.
func (o Outcome) OK() bool {
	return o.Kind == OutcomeSuccess
}

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeSuccess:
		return "Success"
	case OutcomeConnectionFailed:
		return "ConnectionFailed"
	case OutcomeTimeout:
		return "Timeout"
	case OutcomeFailed:
		return fmt.Sprintf("Failed(%d)", o.ExitCode)
	default:
		return fmt.Sprintf("Unknown(%d)", int(o.Kind))
	}
}
