package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"sockpoke/internal/exchange"
	"sockpoke/internal/transcript"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var sessionID string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded exchange frames",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if limit < 0 {
				return fmt.Errorf("--limit must be zero or positive (got %d)", limit)
			}
			out := cmd.OutOrStdout()
			if _, err := os.Stat(cfg.Transcript.Path); errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintf(out, "No transcript recorded at %s\n", cfg.Transcript.Path)
				return nil
			}

			store, err := transcript.Open(cmd.Context(), cfg.Transcript.Path)
			if err != nil {
				return fmt.Errorf("open transcript: %w", err)
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), transcript.Filter{SessionID: sessionID, Limit: limit})
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No frames recorded")
				return nil
			}
			fmt.Fprintln(out, renderHistory(entries))
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Only show frames whose session ID starts with this prefix")
	cmd.Flags().IntVar(&limit, "limit", 50, "Show at most this many recent frames (0 for all)")
	return cmd
}

func renderHistory(entries []transcript.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			entry.CreatedAt.Local().Format(time.DateTime),
			shortSessionID(entry.SessionID),
			string(entry.Role),
			directionArrow(entry.Direction),
			payloadLabel(entry),
			strconv.Itoa(entry.ByteCount),
		})
	}
	return renderTable(
		[]string{"Time", "Session", "Role", "Dir", "Payload", "Bytes"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	)
}

func shortSessionID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func directionArrow(direction exchange.Direction) string {
	switch direction {
	case exchange.DirectionSent:
		return "->"
	case exchange.DirectionReceived:
		return "<-"
	default:
		return string(direction)
	}
}

func payloadLabel(entry transcript.Entry) string {
	switch {
	case entry.Skip:
		return "(skip)"
	case entry.PayloadHex == "":
		return "(empty)"
	default:
		return entry.PayloadHex
	}
}
