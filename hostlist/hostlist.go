package hostlist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/fleetrun/fleetrun/common"
)

const commentMarker = "#"

// Host is one fleet target. Identity for caching is the Address.
type Host struct {
	Address string
	Port    int
	User    string
}

// Target returns the user@address form used in log lines and the report.
func (h Host) Target() string {
	return fmt.Sprintf("%s@%s", h.User, h.Address)
}

// List is an ordered, finite, re-iterable sequence of hosts.
type List struct {
	hosts []Host
}

// Load reads a host list file: one host per line, blank lines and lines
// starting with '#' ignored. Lines may carry inline overrides in the forms
// user@host and host:port. No further validation happens here; malformed
// entries simply fail at the connectivity probe.
func Load(path string, defaultUser string, defaultPort int) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open host list %q", path)
	}
	defer f.Close()

	l, err := Parse(f, defaultUser, defaultPort)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read host list %q", path)
	}
	return l, nil
}

// Parse reads a host list from r. See Load for the line format.
func Parse(r io.Reader, defaultUser string, defaultPort int) (*List, error) {
	if defaultPort <= 0 {
		defaultPort = common.DefaultSSHPort
	}

	l := &List{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, commentMarker) {
			continue
		}
		l.hosts = append(l.hosts, parseLine(line, defaultUser, defaultPort))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "error scanning host list")
	}
	return l, nil
}

func parseLine(line, defaultUser string, defaultPort int) Host {
	h := Host{User: defaultUser, Port: defaultPort}

	rest := line
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		if user := rest[:at]; user != "" {
			h.User = user
		}
		rest = rest[at+1:]
	}

	// host:port, but leave IPv6-ish multi-colon entries alone.
	if colon := strings.LastIndex(rest, ":"); colon >= 0 && strings.Count(rest, ":") == 1 {
		if port, err := strconv.Atoi(rest[colon+1:]); err == nil && port > 0 {
			h.Port = port
			rest = rest[:colon]
		}
	}

	h.Address = rest
	return h
}

// Hosts returns a fresh copy of the sequence; callers may iterate it any
// number of times without affecting the list.
func (l *List) Hosts() []Host {
	out := make([]Host, len(l.hosts))
	copy(out, l.hosts)
	return out
}

// Len returns the number of hosts after filtering.
func (l *List) Len() int {
	return len(l.hosts)
}
