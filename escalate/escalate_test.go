package escalate

import (
	"context"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetrun/fleetrun/credential"
)

func TestWrap(t *testing.T) {
	assert.Equal(t,
		`sudo -S -p '' -E /bin/bash -c 'systemctl restart app'`,
		Wrap("systemctl restart app"))
}

func TestWrap_EscapesQuotes(t *testing.T) {
	assert.Equal(t,
		`sudo -S -p '' -E /bin/bash -c 'echo '\''hi'\'''`,
		Wrap("echo 'hi'"))
}

func TestSecretStdin(t *testing.T) {
	assert.Equal(t, []byte("abc\n"), SecretStdin([]byte("abc")))
}

func TestLooksElevated(t *testing.T) {
	assert.True(t, LooksElevated("sudo systemctl restart app"))
	assert.True(t, LooksElevated("  sudo uptime"))
	assert.True(t, LooksElevated("sudo"))
	assert.False(t, LooksElevated("uptime"))
	assert.False(t, LooksElevated("echo sudo"))
	assert.False(t, LooksElevated("sudoedit /etc/hosts"))
}

type scriptedConn struct {
	exitCodes map[string]int
	calls     []string
	stdin     [][]byte
}

func (s *scriptedConn) Exec(ctx context.Context, cmd string) ([]byte, []byte, int, error) {
	return s.ExecInput(ctx, cmd, nil)
}

func (s *scriptedConn) ExecInput(ctx context.Context, cmd string, stdin []byte) ([]byte, []byte, int, error) {
	s.calls = append(s.calls, cmd)
	s.stdin = append(s.stdin, stdin)
	code, ok := s.exitCodes[string(stdin)]
	if !ok {
		code = 1
	}
	return nil, nil, code, nil
}

func (s *scriptedConn) UploadScript(ctx context.Context, localPath, remotePath string, mode fs.FileMode) error {
	return nil
}

func (s *scriptedConn) RemoveRemote(ctx context.Context, remotePath string) error {
	return nil
}

func (s *scriptedConn) Close() error { return nil }

func TestResolve_RunCredentialAccepted(t *testing.T) {
	t.Setenv("FLEET_ESC_SECRET", "abc")
	prompts := 0
	broker := credential.NewBroker(credential.WithPrompt(func(string) ([]byte, error) {
		prompts++
		return []byte("extra"), nil
	}))
	require.NoError(t, broker.AcquireRunCredential(credential.AuthEnv, "FLEET_ESC_SECRET"))

	conn := &scriptedConn{exitCodes: map[string]int{"abc\n": 0}}
	n := &Negotiator{Broker: broker}

	secret, err := n.Resolve(context.Background(), conn, "h1", true)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), secret)
	assert.Equal(t, 0, prompts)
	require.Len(t, conn.calls, 1)
	assert.Equal(t, "sudo -S -p '' true", conn.calls[0])
}

func TestResolve_RunCredentialRejected(t *testing.T) {
	t.Setenv("FLEET_ESC_SECRET", "abc")
	prompts := 0
	broker := credential.NewBroker(credential.WithPrompt(func(string) ([]byte, error) {
		prompts++
		return []byte("dedicated"), nil
	}))
	require.NoError(t, broker.AcquireRunCredential(credential.AuthEnv, "FLEET_ESC_SECRET"))

	conn := &scriptedConn{exitCodes: map[string]int{}} // every probe fails
	n := &Negotiator{Broker: broker}

	secret, err := n.Resolve(context.Background(), conn, "h2", true)
	require.NoError(t, err)
	assert.Equal(t, []byte("dedicated"), secret)
	assert.Equal(t, 1, prompts)
}

func TestResolve_SecondCallUsesCacheWithoutProbing(t *testing.T) {
	broker := credential.NewBroker(credential.WithPrompt(func(string) ([]byte, error) {
		return []byte("s"), nil
	}))
	conn := &scriptedConn{exitCodes: map[string]int{}}
	n := &Negotiator{Broker: broker}

	_, err := n.Resolve(context.Background(), conn, "h1", false)
	require.NoError(t, err)
	callsAfterFirst := len(conn.calls)

	_, err = n.Resolve(context.Background(), conn, "h1", true)
	require.NoError(t, err)
	assert.Equal(t, callsAfterFirst, len(conn.calls), "cached secret must not trigger another probe")
}
