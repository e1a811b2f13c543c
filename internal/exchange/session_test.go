package exchange_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"sockpoke/internal/exchange"
)

// scriptedConn replays queued chunks as a byte stream and captures writes.
type scriptedConn struct {
	reads  [][]byte
	writes [][]byte
	closed bool
}

func (c *scriptedConn) Read(p []byte) (int, error) {
	if len(c.reads) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.reads[0])
	if n < len(c.reads[0]) {
		c.reads[0] = c.reads[0][n:]
	} else {
		c.reads = c.reads[1:]
	}
	return n, nil
}

func (c *scriptedConn) Write(p []byte) (int, error) {
	if c.closed {
		return 0, io.ErrClosedPipe
	}
	c.writes = append(c.writes, append([]byte(nil), p...))
	return len(p), nil
}

type memoryRecorder struct {
	frames []exchange.Frame
	err    error
}

func (r *memoryRecorder) Record(_ context.Context, frame exchange.Frame) error {
	r.frames = append(r.frames, frame)
	return r.err
}

func runSession(t *testing.T, role exchange.Role, conn *scriptedConn, input string, rec exchange.Recorder) (string, *exchange.Session, error) {
	t.Helper()
	var out bytes.Buffer
	opts := exchange.Options{Input: strings.NewReader(input), Output: &out}
	if rec != nil {
		opts.Recorder = rec
	}
	session := exchange.NewSession(conn, role, opts)
	err := session.Run(context.Background())
	return out.String(), session, err
}

func TestListenerRoleWritesFirst(t *testing.T) {
	conn := &scriptedConn{reads: [][]byte{{0xff}, {0x01, 0x02}}}

	out, session, err := runSession(t, exchange.RoleListen, conn, "ab\n\n0102030405\n", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantWrites := [][]byte{{0xab}, {0xff}, {0x01, 0x02, 0x03, 0x04, 0x05}}
	if len(conn.writes) != len(wantWrites) {
		t.Fatalf("expected %d writes, got %x", len(wantWrites), conn.writes)
	}
	for i := range wantWrites {
		if !bytes.Equal(conn.writes[i], wantWrites[i]) {
			t.Fatalf("write %d = %x, want %x", i, conn.writes[i], wantWrites[i])
		}
	}

	wantOut := "Write:\n" +
		"Write:\n" +
		"Skipping...\n" +
		"Read 2 bytes: 0102\n" +
		"Write:\n" +
		"Read 0 bytes: \n" +
		"Write:\n"
	if out != wantOut {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", out, wantOut)
	}

	stats := session.Stats()
	if stats.FramesSent != 3 || stats.BytesSent != 7 || stats.SkipsSent != 1 {
		t.Fatalf("unexpected send stats: %+v", stats)
	}
	if stats.FramesReceived != 3 || stats.SkipsReceived != 1 || !stats.PeerClosed {
		t.Fatalf("unexpected receive stats: %+v", stats)
	}
}

func TestConnectorRoleReadsFirstAndStopsOnPeerClose(t *testing.T) {
	conn := &scriptedConn{reads: [][]byte{{0xab}}}

	out, session, err := runSession(t, exchange.RoleConnect, conn, "\ncafe\n", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := "Read 1 bytes: ab\nWrite:\nSkipping...\nRead 0 bytes: \n"; out != want {
		t.Fatalf("unexpected output %q, want %q", out, want)
	}
	if len(conn.writes) != 1 || !bytes.Equal(conn.writes[0], []byte{0xff}) {
		t.Fatalf("expected only the skip marker to be sent, got %x", conn.writes)
	}
	if !session.Stats().PeerClosed {
		t.Fatal("expected peer close to be recorded")
	}
}

func TestConnectorIgnoresPeerSkipMarker(t *testing.T) {
	conn := &scriptedConn{reads: [][]byte{{0xff}}}

	out, _, err := runSession(t, exchange.RoleConnect, conn, "01\n", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.Contains(out, "Read 1 bytes") {
		t.Fatalf("skip marker must not be printed, got %q", out)
	}
	if want := "Write:\nRead 0 bytes: \n"; out != want {
		t.Fatalf("unexpected output %q, want %q", out, want)
	}
}

func TestReceiveIsCappedAtFourBytes(t *testing.T) {
	conn := &scriptedConn{reads: [][]byte{{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}}}

	out, _, err := runSession(t, exchange.RoleConnect, conn, "\n\n", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.HasPrefix(out, "Read 4 bytes: 01020304\n") {
		t.Fatalf("first receive should stop at four bytes, got %q", out)
	}
	if !strings.Contains(out, "Read 2 bytes: 0506\n") {
		t.Fatalf("remaining bytes should arrive on the next turn, got %q", out)
	}
}

func TestConnectorStopsWhenInputExhausted(t *testing.T) {
	conn := &scriptedConn{reads: [][]byte{{0x10}, {0x20}}}

	out, _, err := runSession(t, exchange.RoleConnect, conn, "", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "Read 1 bytes: 10\nWrite:\n" {
		t.Fatalf("unexpected output %q", out)
	}
	if len(conn.writes) != 0 {
		t.Fatalf("nothing should be sent without input, got %x", conn.writes)
	}
}

func TestMalformedInputIsFatal(t *testing.T) {
	conn := &scriptedConn{reads: [][]byte{{0x01}}}

	_, _, err := runSession(t, exchange.RoleListen, conn, "zz\nab\n", nil)
	var decodeErr *exchange.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if decodeErr.Line != "zz" {
		t.Fatalf("unexpected offending line %q", decodeErr.Line)
	}
	if len(conn.writes) != 0 {
		t.Fatalf("nothing should be sent after a decode failure, got %x", conn.writes)
	}
}

func TestSendFailureIsFatal(t *testing.T) {
	conn := &scriptedConn{closed: true}

	_, _, err := runSession(t, exchange.RoleListen, conn, "ab\n", nil)
	if !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("expected closed pipe error, got %v", err)
	}
}

func TestRecorderReceivesFrames(t *testing.T) {
	conn := &scriptedConn{reads: [][]byte{{0xff}}}
	rec := &memoryRecorder{}

	if _, _, err := runSession(t, exchange.RoleListen, conn, "\n", rec); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rec.frames) != 2 {
		t.Fatalf("expected send and receive frames, got %+v", rec.frames)
	}
	sent, received := rec.frames[0], rec.frames[1]
	if sent.Direction != exchange.DirectionSent || !sent.Skip || !bytes.Equal(sent.Payload, []byte{0xff}) {
		t.Fatalf("unexpected sent frame %+v", sent)
	}
	if received.Direction != exchange.DirectionReceived || !received.Skip {
		t.Fatalf("unexpected received frame %+v", received)
	}
	if sent.At.IsZero() {
		t.Fatal("expected frame timestamp")
	}
}

func TestRecorderFailureDoesNotEndSession(t *testing.T) {
	conn := &scriptedConn{reads: [][]byte{{0x01}, {0x02}}}
	rec := &memoryRecorder{err: errors.New("disk full")}

	_, session, err := runSession(t, exchange.RoleListen, conn, "aa\nbb\n", rec)
	if err != nil {
		t.Fatalf("recorder errors must not surface, got %v", err)
	}
	if session.Stats().FramesSent != 2 {
		t.Fatalf("expected both frames sent, got %+v", session.Stats())
	}
}

func TestRunReturnsOnCancelWhileAwaitingInput(t *testing.T) {
	conn := &scriptedConn{}
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })

	session := exchange.NewSession(conn, exchange.RoleListen, exchange.Options{Input: pr, Output: io.Discard})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("session did not observe cancellation")
	}
}

func TestSessionIDDefaultsToUUID(t *testing.T) {
	session := exchange.NewSession(&scriptedConn{}, exchange.RoleConnect, exchange.Options{})
	if len(session.ID()) != 36 {
		t.Fatalf("expected uuid session id, got %q", session.ID())
	}
	named := exchange.NewSession(&scriptedConn{}, exchange.RoleConnect, exchange.Options{SessionID: "fixed"})
	if named.ID() != "fixed" {
		t.Fatalf("expected provided session id, got %q", named.ID())
	}
}
