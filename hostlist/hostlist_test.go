package hostlist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_FiltersCommentsAndBlanks(t *testing.T) {
	input := `
# fleet inventory
node1

  # indented comment
node2

node3
`
	l, err := Parse(strings.NewReader(input), "ops", 22)
	require.NoError(t, err)

	hosts := l.Hosts()
	require.Len(t, hosts, 3)
	assert.Equal(t, "node1", hosts[0].Address)
	assert.Equal(t, "node2", hosts[1].Address)
	assert.Equal(t, "node3", hosts[2].Address)
	for _, h := range hosts {
		assert.Equal(t, "ops", h.User)
		assert.Equal(t, 22, h.Port)
	}
}

func TestParse_InlineOverrides(t *testing.T) {
	input := "alice@node1\nnode2:2222\nbob@node3:2200\n"
	l, err := Parse(strings.NewReader(input), "ops", 22)
	require.NoError(t, err)

	hosts := l.Hosts()
	require.Len(t, hosts, 3)

	assert.Equal(t, "alice", hosts[0].User)
	assert.Equal(t, "node1", hosts[0].Address)
	assert.Equal(t, 22, hosts[0].Port)

	assert.Equal(t, "ops", hosts[1].User)
	assert.Equal(t, "node2", hosts[1].Address)
	assert.Equal(t, 2222, hosts[1].Port)

	assert.Equal(t, "bob", hosts[2].User)
	assert.Equal(t, "node3", hosts[2].Address)
	assert.Equal(t, 2200, hosts[2].Port)
}

func TestParse_MalformedEntriesPassThrough(t *testing.T) {
	// Malformed entries are not rejected here; they fail at the probe.
	l, err := Parse(strings.NewReader("not a hostname at all\n"), "ops", 22)
	require.NoError(t, err)
	require.Equal(t, 1, l.Len())
	assert.Equal(t, "not a hostname at all", l.Hosts()[0].Address)
}

func TestParse_OrderPreserved(t *testing.T) {
	input := "h3\nh1\nh2\n"
	l, err := Parse(strings.NewReader(input), "ops", 22)
	require.NoError(t, err)

	want := []string{"h3", "h1", "h2"}
	for i, h := range l.Hosts() {
		assert.Equal(t, want[i], h.Address)
	}
}

func TestHosts_Reiterable(t *testing.T) {
	l, err := Parse(strings.NewReader("h1\nh2\n"), "ops", 22)
	require.NoError(t, err)

	first := l.Hosts()
	first[0].Address = "mutated"

	second := l.Hosts()
	assert.Equal(t, "h1", second[0].Address, "Hosts() must return an independent copy")
	assert.Equal(t, first[1], second[1])
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts.txt")
	require.NoError(t, os.WriteFile(path, []byte("# fleet\nnode1\nnode2\n"), 0644))

	l, err := Load(path, "ops", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, 22, l.Hosts()[0].Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.txt"), "ops", 22)
	assert.Error(t, err)
}

func TestParse_Target(t *testing.T) {
	l, err := Parse(strings.NewReader("alice@node1\n"), "ops", 22)
	require.NoError(t, err)
	assert.Equal(t, "alice@node1", l.Hosts()[0].Target())
}
