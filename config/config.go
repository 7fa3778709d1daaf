package config

import (
	"time"

	"github.com/fleetrun/fleetrun/common"
)

// RunConfig holds run defaults that may be set from a YAML file and
// overridden by command-line flags.
type RunConfig struct {
	User                  string `yaml:"user,omitempty"`
	Port                  int    `yaml:"port,omitempty"`
	KeyFile               string `yaml:"keyFile,omitempty"`
	ConnectTimeoutSeconds int    `yaml:"connectTimeoutSeconds,omitempty"`
	ExecTimeoutSeconds    int    `yaml:"execTimeoutSeconds,omitempty"`
	LogDir                string `yaml:"logDir,omitempty"`
}

// ApplyDefaults fills unset fields with the application defaults.
func (c *RunConfig) ApplyDefaults() {
	if c.Port <= 0 {
		c.Port = common.DefaultSSHPort
	}
	if c.ConnectTimeoutSeconds <= 0 {
		c.ConnectTimeoutSeconds = int(common.DefaultConnectTimeout / time.Second)
	}
	if c.ExecTimeoutSeconds <= 0 {
		c.ExecTimeoutSeconds = int(common.DefaultExecTimeout / time.Second)
	}
}

// ConnectTimeout returns the connect timeout as a duration.
func (c *RunConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

// ExecTimeout returns the execution timeout as a duration.
func (c *RunConfig) ExecTimeout() time.Duration {
	return time.Duration(c.ExecTimeoutSeconds) * time.Second
}
