package connector

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/fleetrun/fleetrun/common"
	"github.com/fleetrun/fleetrun/logger"
)

// Config holds everything needed to reach one host.
type Config struct {
	Username    string
	Password    string
	Address     string
	Port        int
	PrivateKey  string
	KeyFile     string
	AgentSocket string
	Timeout     time.Duration
}

const socketEnvPrefix = "env:"

var _ Connection = (*connection)(nil)

type connection struct {
	mu         sync.Mutex
	sshclient  *ssh.Client
	sftpclient *sftp.Client
	config     Config

	agentSocketConn net.Conn
}

// NewConnection dials cfg.Address and returns an authenticated Connection.
// Host keys are not verified; the fleet is assumed to be operator-trusted.
func NewConnection(cfg Config) (Connection, error) {
	cfg, err := validateConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to validate ssh connection parameters")
	}

	authMethods := make([]ssh.AuthMethod, 0)
	conn := &connection{config: cfg}

	if len(cfg.Password) > 0 {
		authMethods = append(authMethods, ssh.Password(cfg.Password))
	}

	if len(cfg.PrivateKey) > 0 {
		signer, parseErr := ssh.ParsePrivateKey([]byte(cfg.PrivateKey))
		if parseErr != nil {
			return nil, errors.Wrap(parseErr, "the given SSH key could not be parsed")
		}
		authMethods = append(authMethods, ssh.PublicKeys(signer))
	}

	if len(cfg.AgentSocket) > 0 {
		addr := cfg.AgentSocket
		if strings.HasPrefix(cfg.AgentSocket, socketEnvPrefix) {
			envName := strings.TrimPrefix(cfg.AgentSocket, socketEnvPrefix)
			if envAddr := os.Getenv(envName); len(envAddr) > 0 {
				addr = envAddr
			} else {
				logger.Log.Warnf("SSH agent environment variable %s not found, using socket string %s", envName, addr)
			}
		}

		var dialErr error
		conn.agentSocketConn, dialErr = net.Dial("unix", addr)
		if dialErr != nil {
			return nil, errors.Wrapf(dialErr, "could not open SSH agent socket %q", addr)
		}

		agentClient := agent.NewClient(conn.agentSocketConn)
		signers, signersErr := agentClient.Signers()
		if signersErr != nil {
			conn.cleanupAgentSocket()
			return nil, errors.Wrap(signersErr, "error when creating signer for SSH agent")
		}
		authMethods = append(authMethods, ssh.PublicKeys(signers...))
	}

	sshClientConfig := &ssh.ClientConfig{
		User:            cfg.Username,
		Timeout:         cfg.Timeout,
		Auth:            authMethods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	endpoint := net.JoinHostPort(cfg.Address, strconv.Itoa(cfg.Port))
	client, err := ssh.Dial("tcp", endpoint, sshClientConfig)
	if err != nil {
		conn.cleanupAgentSocket()
		return nil, errors.Wrapf(err, "could not establish connection to %s", endpoint)
	}

	conn.sshclient = client
	return conn, nil
}

func (c *connection) cleanupAgentSocket() {
	if c.agentSocketConn != nil {
		_ = c.agentSocketConn.Close()
		c.agentSocketConn = nil
	}
}

func validateConfig(cfg Config) (Config, error) {
	if len(cfg.Username) == 0 {
		return cfg, errors.New("no username specified for SSH connection")
	}
	if len(cfg.Address) == 0 {
		return cfg, errors.New("no address specified for SSH connection")
	}
	if len(cfg.Password) == 0 && len(cfg.PrivateKey) == 0 && len(cfg.KeyFile) == 0 && len(cfg.AgentSocket) == 0 {
		return cfg, errors.New("must specify at least one of password, private key, keyfile or agent socket")
	}

	if len(cfg.PrivateKey) == 0 && len(cfg.KeyFile) > 0 {
		content, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return cfg, errors.Wrapf(err, "failed to read keyfile %q", cfg.KeyFile)
		}
		cfg.PrivateKey = string(content)
	}

	if cfg.Port <= 0 {
		cfg.Port = common.DefaultSSHPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = common.DefaultConnectTimeout
	}
	return cfg, nil
}

func (c *connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var combined []string
	if c.sftpclient != nil {
		if err := c.sftpclient.Close(); err != nil {
			combined = append(combined, "sftp close error: "+err.Error())
		}
		c.sftpclient = nil
	}
	if c.sshclient != nil {
		if err := c.sshclient.Close(); err != nil {
			combined = append(combined, "ssh close error: "+err.Error())
		}
		c.sshclient = nil
	}
	if c.agentSocketConn != nil {
		if err := c.agentSocketConn.Close(); err != nil {
			combined = append(combined, "agent socket close error: "+err.Error())
		}
		c.agentSocketConn = nil
	}
	if len(combined) > 0 {
		return errors.New(strings.Join(combined, "; "))
	}
	return nil
}

func (c *connection) newSession() (*ssh.Session, error) {
	c.mu.Lock()
	client := c.sshclient
	c.mu.Unlock()

	if client == nil {
		return nil, errors.New("ssh connection is closed or not initialized")
	}

	sess, err := client.NewSession()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create ssh session")
	}
	return sess, nil
}

// Exec runs cmd, capturing stdout and stderr separately.
func (c *connection) Exec(ctx context.Context, cmd string) ([]byte, []byte, int, error) {
	return c.ExecInput(ctx, cmd, nil)
}

// ExecInput runs cmd with stdin attached. On context expiry the remote
// process receives SIGINT and the session is torn down; the context error is
// returned so callers can distinguish timeout from remote failure.
func (c *connection) ExecInput(ctx context.Context, cmd string, stdin []byte) ([]byte, []byte, int, error) {
	sess, err := c.newSession()
	if err != nil {
		return nil, nil, -1, err
	}
	defer sess.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	sess.Stdout = &stdoutBuf
	sess.Stderr = &stderrBuf
	if stdin != nil {
		sess.Stdin = bytes.NewReader(stdin)
	}

	if err := sess.Start(strings.TrimSpace(cmd)); err != nil {
		return stdoutBuf.Bytes(), stderrBuf.Bytes(), -1, errors.Wrapf(err, "failed to start command: %s", cmd)
	}

	waitDone := make(chan error, 1)
	go func() {
		waitDone <- sess.Wait()
	}()

	select {
	case <-ctx.Done():
		_ = sess.Signal(ssh.SIGINT)
		select {
		case <-time.After(250 * time.Millisecond):
		case <-waitDone:
		}
		_ = sess.Close()
		return stdoutBuf.Bytes(), stderrBuf.Bytes(), -1, ctx.Err()

	case waitErr := <-waitDone:
		exitCode := -1
		if waitErr == nil {
			exitCode = 0
		} else if exitErr, ok := waitErr.(*ssh.ExitError); ok {
			exitCode = exitErr.ExitStatus()
			waitErr = nil
		}
		return stdoutBuf.Bytes(), stderrBuf.Bytes(), exitCode, waitErr
	}
}

func (c *connection) sftpClient() (*sftp.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sshclient == nil {
		return nil, errors.New("ssh connection is closed or not initialized")
	}
	if c.sftpclient == nil {
		client, err := sftp.NewClient(c.sshclient)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create SFTP client")
		}
		c.sftpclient = client
	}
	return c.sftpclient, nil
}

// UploadScript copies a local file to remotePath via SFTP and sets its mode.
func (c *connection) UploadScript(ctx context.Context, localPath, remotePath string, mode fs.FileMode) error {
	client, err := c.sftpClient()
	if err != nil {
		return err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return errors.Wrapf(err, "failed to open local file %s", localPath)
	}
	defer src.Close()

	if err := client.MkdirAll(sftpDir(remotePath)); err != nil {
		return errors.Wrapf(err, "failed to create remote directory for %s", remotePath)
	}

	dst, err := client.Create(remotePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create remote file %s via sftp", remotePath)
	}
	defer dst.Close()

	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		return errors.Wrapf(err, "sftp copy from %s to %s failed", localPath, remotePath)
	}
	if err := dst.Chmod(mode.Perm()); err != nil {
		return errors.Wrapf(err, "failed to chmod remote file %s", remotePath)
	}
	return nil
}

// RemoveRemote deletes remotePath via SFTP.
func (c *connection) RemoveRemote(ctx context.Context, remotePath string) error {
	client, err := c.sftpClient()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := client.Remove(remotePath); err != nil {
		return errors.Wrapf(err, "failed to remove remote file %s", remotePath)
	}
	return nil
}

func sftpDir(p string) string {
	idx := strings.LastIndex(p, "/")
	if idx <= 0 {
		return "/"
	}
	return p[:idx]
}

// EscapeShellArg single-quotes arg for safe interpolation into a shell line.
func EscapeShellArg(arg string) string {
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}
