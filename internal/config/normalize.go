package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeSession(); err != nil {
		return err
	}
	if err := c.normalizeTranscript(); err != nil {
		return err
	}
	c.normalizeDisplay()
	return c.normalizeLogging()
}

func (c *Config) normalizeSession() error {
	c.Session.Socket = strings.TrimSpace(c.Session.Socket)
	if c.Session.Socket == "" {
		if value, ok := os.LookupEnv(SocketEnvVar); ok {
			c.Session.Socket = strings.TrimSpace(value)
		}
	}
	if c.Session.Socket == "" {
		c.Session.Socket = defaultSocketPath
	}
	var err error
	if c.Session.Socket, err = expandPath(c.Session.Socket); err != nil {
		return fmt.Errorf("session.socket: %w", err)
	}
	return nil
}

func (c *Config) normalizeTranscript() error {
	if strings.TrimSpace(c.Transcript.Path) == "" {
		c.Transcript.Path = defaultTranscriptPath
	}
	var err error
	if c.Transcript.Path, err = expandPath(strings.TrimSpace(c.Transcript.Path)); err != nil {
		return fmt.Errorf("transcript.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeDisplay() {
	c.Display.Color = strings.ToLower(strings.TrimSpace(c.Display.Color))
	if c.Display.Color == "" {
		c.Display.Color = defaultDisplayColor
	}
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.LogDir) != "" {
		var err error
		if c.Logging.LogDir, err = expandPath(strings.TrimSpace(c.Logging.LogDir)); err != nil {
			return fmt.Errorf("logging.log_dir: %w", err)
		}
	}
	return nil
}
