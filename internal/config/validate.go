package config

import (
	"errors"
	"fmt"
	"path/filepath"
)

// maxSocketPathLen is the usable length of sockaddr_un.sun_path on Linux.
const maxSocketPathLen = 107

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSession(); err != nil {
		return err
	}
	if err := c.validateDisplay(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateSession() error {
	return ValidateSocketPath(c.Session.Socket)
}

// ValidateSocketPath reports whether path can name a Unix socket endpoint.
func ValidateSocketPath(path string) error {
	if path == "" {
		return errors.New("session.socket must be set")
	}
	if len(path) > maxSocketPathLen {
		return fmt.Errorf("socket path %q is %d bytes; the limit is %d", path, len(path), maxSocketPathLen)
	}
	if base := filepath.Base(path); base == "." || base == string(filepath.Separator) {
		return fmt.Errorf("socket path %q does not name a file", path)
	}
	return nil
}

func (c *Config) validateDisplay() error {
	switch c.Display.Color {
	case "auto", "always", "never":
		return nil
	default:
		return fmt.Errorf("display.color must be one of auto, always, never (got %q)", c.Display.Color)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
}
