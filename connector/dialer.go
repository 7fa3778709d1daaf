package connector

// sshDialer is the default Dialer backed by NewConnection.
type sshDialer struct{}

// NewDialer returns the SSH dialer.
func NewDialer() Dialer {
	return &sshDialer{}
}

func (d *sshDialer) Dial(cfg Config) (Connection, error) {
	return NewConnection(cfg)
}

var _ Dialer = (*sshDialer)(nil)
