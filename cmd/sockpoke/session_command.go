package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"sockpoke/internal/exchange"
	"sockpoke/internal/logging"
	"sockpoke/internal/transcript"
)

type sessionRunner func(ctx context.Context, path string, opts exchange.Options) (exchange.Stats, error)

type sessionFlags struct {
	summary bool
}

func addSessionFlags(cmd *cobra.Command, flags *sessionFlags) {
	cmd.Flags().BoolVar(&flags.summary, "summary", false, "Print a session summary table on exit")
}

func (c *commandContext) runSession(cmd *cobra.Command, args []string, role exchange.Role, flags *sessionFlags, run sessionRunner) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	path, err := c.socketPath(args)
	if err != nil {
		return err
	}
	logger, err := c.logger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	out := cmd.OutOrStdout()
	opts := exchange.Options{
		Input:     cmd.InOrStdin(),
		Output:    out,
		Logger:    logger,
		Color:     c.colorEnabled(out),
		SessionID: uuid.NewString(),
		Lock:      cfg.Session.Lock,
	}

	if cfg.Transcript.Enabled {
		store, err := transcript.Open(signalCtx, cfg.Transcript.Path)
		if err != nil {
			return fmt.Errorf("open transcript: %w", err)
		}
		defer store.Close()
		opts.Recorder = store.Recorder(opts.SessionID, role, path)
		logger.Debug("recording transcript",
			logging.String(logging.FieldSessionID, opts.SessionID),
			logging.String("transcript", store.Path()))
	}

	stats, runErr := run(signalCtx, path, opts)
	if flags.summary || cfg.Session.Summary {
		if runErr == nil || errors.Is(runErr, context.Canceled) {
			fmt.Fprintln(out, renderSummary(opts.SessionID, role, path, stats))
		}
	}
	if runErr != nil {
		if !errors.Is(runErr, context.Canceled) {
			logging.ErrorWithContext(logger, "session failed", "session_failed",
				logging.String(logging.FieldSessionID, opts.SessionID),
				logging.String(logging.FieldRole, string(role)),
				logging.String(logging.FieldEndpoint, path),
				logging.Error(runErr),
				logging.String(logging.FieldErrorHint, sessionErrorHint(runErr)))
		}
		return wrapSessionError(runErr, path)
	}
	return nil
}

func sessionErrorHint(err error) string {
	var (
		bindErr   *exchange.BindError
		connErr   *exchange.ConnectionError
		decodeErr *exchange.DecodeError
	)
	switch {
	case errors.As(err, &decodeErr):
		return "type pairs of hex digits; whitespace is allowed only between pairs"
	case errors.As(err, &bindErr):
		return "check the socket directory and any other listener on the path"
	case errors.As(err, &connErr):
		return "start `sockpoke listen` on the same path first"
	default:
		return "the peer or socket failed mid-session; rerun both sides"
	}
}

func newListenCommand(ctx *commandContext) *cobra.Command {
	var flags sessionFlags
	cmd := &cobra.Command{
		Use:   "listen [path]",
		Short: "Bind the socket, accept one peer and send first",
		Long: "Bind a Unix stream socket at path (default session.socket), accept a single peer,\n" +
			"then alternate: read a hex line from stdin, send it, print up to 4 received bytes.\n" +
			"An empty line sends the 0xff skip marker. The socket file is removed on exit.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runSession(cmd, args, exchange.RoleListen, &flags, exchange.Listen)
		},
	}
	addSessionFlags(cmd, &flags)
	return cmd
}

func newConnectCommand(ctx *commandContext) *cobra.Command {
	var flags sessionFlags
	cmd := &cobra.Command{
		Use:   "connect [path]",
		Short: "Connect to a listening socket and receive first",
		Long: "Connect to the Unix stream socket at path (default session.socket), then alternate:\n" +
			"print up to 4 received bytes, read a hex line from stdin and send it.\n" +
			"The session ends when the listener closes.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runSession(cmd, args, exchange.RoleConnect, &flags, exchange.Connect)
		},
	}
	addSessionFlags(cmd, &flags)
	return cmd
}
