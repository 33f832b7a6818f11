// Package code describes executable codes installed on a computer.
package code

import (
	"fmt"
	"strings"
)

const (
	// PluginFleur identifies the FLEUR executable
	PluginFleur = "fleur.fleur"
	// PluginInpgen identifies the FLEUR input generator
	PluginInpgen = "fleur.inpgen"
)

// LocalhostURL is the default host
const LocalhostURL = "localhost"

// Host represents a computer a code runs on
type Host struct {
	URL         string `json:"url,omitempty" yaml:"url,omitempty"`
	Credentials string `json:"credentials,omitempty" yaml:"credentials,omitempty"`
}

// IsLocal returns true if host is the local machine
func (h *Host) IsLocal() bool {
	if h == nil || h.URL == "" {
		return true
	}
	host := h.URL
	if index := strings.Index(host, "://"); index != -1 {
		host = host[index+3:]
	}
	host = strings.Trim(host, "/")
	if index := strings.Index(host, ":"); index != -1 {
		host = host[:index]
	}
	return host == "localhost" || host == "127.0.0.1"
}

// Key returns host identity
func (h *Host) Key() string {
	if h.IsLocal() {
		return LocalhostURL
	}
	return h.URL + "#" + h.Credentials
}

// Code represents an installed executable
type Code struct {
	Label      string   `json:"label,omitempty" yaml:"label,omitempty"`
	Plugin     string   `json:"plugin" yaml:"plugin" validate:"required"`
	Executable string   `json:"executable" yaml:"executable" validate:"required"`
	Host       *Host    `json:"host,omitempty" yaml:"host,omitempty"`
	Prepend    []string `json:"prepend,omitempty" yaml:"prepend,omitempty"`
}

// Expect returns an error if the code does not belong to the plugin
func (c *Code) Expect(plugin string) error {
	if c == nil {
		return fmt.Errorf("code was not provided, expected %v", plugin)
	}
	if c.Plugin != plugin {
		return fmt.Errorf("code %v has plugin %q, expected %q", c.Label, c.Plugin, plugin)
	}
	if c.Executable == "" {
		return fmt.Errorf("code %v has no executable", c.Label)
	}
	return nil
}

// Computer returns code host, defaulting to localhost
func (c *Code) Computer() *Host {
	if c.Host == nil {
		return &Host{URL: LocalhostURL}
	}
	return c.Host
}
