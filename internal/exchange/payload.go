package exchange

import (
	"encoding/hex"
	"strings"
)

const (
	// SkipMarker is sent alone in place of an empty operator line.
	SkipMarker byte = 0xFF
	// ReceiveLimit caps every receive. Longer peer writes arrive over several turns.
	ReceiveLimit = 4
)

// DecodeLine converts one operator line to bytes. ASCII whitespace is
// skipped between byte pairs, so "ab cd\n" and "abcd" decode alike while
// "a b" is rejected. A blank line decodes to zero bytes.
func DecodeLine(line string) ([]byte, error) {
	payload := make([]byte, 0, len(line)/2)
	var pair [1]byte
	for i := 0; i < len(line); {
		if isHexSpace(line[i]) {
			i++
			continue
		}
		if i+1 >= len(line) {
			return nil, newDecodeError(line, hex.ErrLength)
		}
		if _, err := hex.Decode(pair[:], []byte(line[i:i+2])); err != nil {
			return nil, newDecodeError(line, err)
		}
		payload = append(payload, pair[0])
		i += 2
	}
	return payload, nil
}

func isHexSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func newDecodeError(line string, err error) *DecodeError {
	return &DecodeError{Line: strings.TrimRight(line, "\r\n"), Err: err}
}

// OutgoingPayload returns the bytes to transmit for a decoded line and whether
// the skip marker was substituted.
func OutgoingPayload(decoded []byte) ([]byte, bool) {
	if len(decoded) == 0 {
		return []byte{SkipMarker}, true
	}
	return decoded, false
}

// IsSkip reports whether a received chunk is exactly the peer's skip marker.
func IsSkip(data []byte) bool {
	return len(data) == 1 && data[0] == SkipMarker
}
