package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"sockpoke/internal/config"
	"sockpoke/internal/exchange"
	"sockpoke/internal/logging"
)

type globalFlags struct {
	config    string
	logLevel  string
	logFormat string
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.flags != nil {
			path = strings.TrimSpace(c.flags.config)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := c.applyOverrides(cfg); err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) applyOverrides(cfg *config.Config) error {
	if c.flags == nil {
		return nil
	}
	if level := strings.ToLower(strings.TrimSpace(c.flags.logLevel)); level != "" {
		cfg.Logging.Level = level
	}
	if format := strings.ToLower(strings.TrimSpace(c.flags.logFormat)); format != "" {
		if format != "console" && format != "json" {
			return fmt.Errorf("--log-format must be console or json (got %q)", c.flags.logFormat)
		}
		cfg.Logging.Format = format
	}
	return cfg.Validate()
}

func (c *commandContext) logger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.NewFromConfig(cfg)
}

// socketPath prefers the positional argument over session.socket.
func (c *commandContext) socketPath(args []string) (string, error) {
	var path string
	if len(args) > 0 {
		expanded, err := config.ExpandPath(strings.TrimSpace(args[0]))
		if err != nil {
			return "", fmt.Errorf("resolve socket path: %w", err)
		}
		path = expanded
	} else {
		cfg, err := c.ensureConfig()
		if err != nil {
			return "", err
		}
		path = cfg.Session.Socket
	}
	if err := config.ValidateSocketPath(path); err != nil {
		return "", err
	}
	return path, nil
}

func (c *commandContext) colorEnabled(w io.Writer) bool {
	cfg, err := c.ensureConfig()
	if err != nil {
		return false
	}
	switch cfg.Display.Color {
	case "always":
		return true
	case "never":
		return false
	default:
		return shouldColorize(w)
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// wrapSessionError adds an operator hint to endpoint failures.
func wrapSessionError(err error, socket string) error {
	var connErr *exchange.ConnectionError
	var bindErr *exchange.BindError
	switch {
	case errors.As(err, &connErr) && errors.Is(err, unix.ENOENT):
		return fmt.Errorf("%w; start a listener with `sockpoke listen %s`", err, socket)
	case errors.As(err, &connErr) && errors.Is(err, unix.ECONNREFUSED):
		return fmt.Errorf("%w; the socket file exists but nothing is accepting on it", err)
	case errors.As(err, &bindErr) && errors.Is(err, exchange.ErrEndpointBusy):
		return fmt.Errorf("%w; another listener holds %s", err, exchange.LockPath(socket))
	case errors.As(err, &bindErr) && errors.Is(err, unix.EACCES):
		return fmt.Errorf("%w; check permissions on the socket directory", err)
	default:
		return err
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
