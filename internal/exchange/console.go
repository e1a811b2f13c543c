package exchange

import (
	"encoding/hex"
	"fmt"
	"io"
)

const (
	ansiReset  = "\x1b[0m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

// console renders the operator-facing transcript. Write errors are ignored:
// stdout going away must not mask the socket error that ends the session.
type console struct {
	w     io.Writer
	color bool
}

func (c *console) line(color, text string) {
	if c.color && color != "" {
		text = color + text + ansiReset
	}
	_, _ = fmt.Fprintln(c.w, text)
}

func (c *console) prompt() {
	c.line("", "Write:")
}

func (c *console) skipping() {
	c.line(ansiYellow, "Skipping...")
}

func (c *console) received(data []byte) {
	c.line(ansiGreen, FormatReceived(data))
}

// FormatReceived renders a received chunk as "Read N bytes: <hex>".
func FormatReceived(data []byte) string {
	return fmt.Sprintf("Read %d bytes: %s", len(data), hex.EncodeToString(data))
}
