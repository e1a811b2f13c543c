package main

import (
	"fmt"
	"strconv"
	"strings"

	"sockpoke/internal/exchange"
)

func renderSummary(sessionID string, role exchange.Role, path string, stats exchange.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session %s (%s %s)\n", sessionID, role, path)
	rows := [][]string{
		{"Sent", strconv.Itoa(stats.FramesSent), strconv.Itoa(stats.BytesSent), strconv.Itoa(stats.SkipsSent)},
		{"Received", strconv.Itoa(stats.FramesReceived), strconv.Itoa(stats.BytesReceived), strconv.Itoa(stats.SkipsReceived)},
	}
	b.WriteString(renderTable(
		[]string{"Direction", "Frames", "Bytes", "Skips"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
	))
	fmt.Fprintf(&b, "\nPeer closed: %s", yesNo(stats.PeerClosed))
	return b.String()
}
