package exchange

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"sockpoke/internal/logging"
)

// Role selects which side of the exchange speaks first.
type Role string

const (
	// RoleListen binds the endpoint and writes first.
	RoleListen Role = "listen"
	// RoleConnect dials the endpoint and reads first.
	RoleConnect Role = "connect"
)

// Direction of a recorded frame relative to this process.
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// Frame is one transmission or one receive call.
type Frame struct {
	Direction Direction
	Payload   []byte
	Skip      bool
	At        time.Time
}

// Recorder persists frames. Failures are logged and never end a session.
type Recorder interface {
	Record(ctx context.Context, frame Frame) error
}

// Stats counts what a session moved across the socket.
type Stats struct {
	FramesSent     int
	BytesSent      int
	SkipsSent      int
	FramesReceived int
	BytesReceived  int
	SkipsReceived  int
	PeerClosed     bool
}

// Options configures a session. Zero values select stdin, stdout, a no-op
// logger and a fresh session ID.
type Options struct {
	Input     io.Reader
	Output    io.Writer
	Logger    *slog.Logger
	Recorder  Recorder
	Color     bool
	SessionID string
	// Lock guards a listener endpoint with <path>.lock.
	Lock bool
}

func (o Options) withDefaults() Options {
	if o.Input == nil {
		o.Input = os.Stdin
	}
	if o.Output == nil {
		o.Output = os.Stdout
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	if o.SessionID == "" {
		o.SessionID = uuid.NewString()
	}
	return o
}

func sessionLogger(opts Options, role Role, path string) *slog.Logger {
	return logging.NewComponentLogger(opts.Logger, "exchange").With(
		logging.String(logging.FieldSessionID, opts.SessionID),
		logging.String(logging.FieldRole, string(role)),
		logging.String(logging.FieldEndpoint, path),
	)
}

// Session is one accepted or dialed stream driven by operator input.
type Session struct {
	id       string
	role     Role
	conn     io.ReadWriter
	input    *LineReader
	out      *console
	logger   *slog.Logger
	recorder Recorder
	stats    Stats
}

// NewSession wraps an established stream. The caller keeps ownership of conn.
func NewSession(conn io.ReadWriter, role Role, opts Options) *Session {
	opts = opts.withDefaults()
	return &Session{
		id:       opts.SessionID,
		role:     role,
		conn:     conn,
		input:    NewLineReader(opts.Input),
		out:      &console{w: opts.Output, color: opts.Color},
		logger:   opts.Logger,
		recorder: opts.Recorder,
	}
}

// ID returns the session identifier used in logs and transcripts.
func (s *Session) ID() string { return s.id }

// Stats returns the counters accumulated so far.
func (s *Session) Stats() Stats { return s.stats }

// Run drives the exchange loop for the session's role. A listener runs until
// operator input is exhausted; a connector runs until the peer closes. When
// ctx is canceled a closable conn is closed to unblock I/O and ctx.Err() is
// returned.
func (s *Session) Run(ctx context.Context) error {
	if closer, ok := s.conn.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { _ = closer.Close() })
		defer stop()
	}
	if s.role == RoleListen {
		return s.runWriteFirst(ctx)
	}
	return s.runReadFirst(ctx)
}

func (s *Session) runWriteFirst(ctx context.Context) error {
	s.out.prompt()
	for {
		line, ok, err := s.input.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			s.logger.Info("operator input exhausted", logging.Int("frames_sent", s.stats.FramesSent))
			return nil
		}
		if err := s.send(ctx, line); err != nil {
			return err
		}
		if _, err := s.receive(ctx); err != nil {
			return err
		}
		s.out.prompt()
	}
}

func (s *Session) runReadFirst(ctx context.Context) error {
	for {
		data, err := s.receive(ctx)
		if err != nil {
			return err
		}
		if len(data) == 0 {
			s.logger.Info("peer closed connection", logging.Int("frames_received", s.stats.FramesReceived))
			return nil
		}
		s.out.prompt()
		line, ok, err := s.input.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			s.logger.Info("operator input exhausted", logging.Int("frames_sent", s.stats.FramesSent))
			return nil
		}
		if err := s.send(ctx, line); err != nil {
			return err
		}
	}
}

func (s *Session) send(ctx context.Context, line string) error {
	decoded, err := DecodeLine(line)
	if err != nil {
		return err
	}
	payload, skip := OutgoingPayload(decoded)
	if skip {
		s.out.skipping()
	}
	if _, err := s.conn.Write(payload); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("send %d bytes: %w", len(payload), err)
	}

	s.stats.FramesSent++
	s.stats.BytesSent += len(payload)
	if skip {
		s.stats.SkipsSent++
	}
	s.logger.Debug("frame sent", logging.Int("bytes", len(payload)), logging.Bool("skip", skip))
	s.record(ctx, Frame{Direction: DirectionSent, Payload: payload, Skip: skip, At: time.Now()})
	return nil
}

// receive performs exactly one read of at most ReceiveLimit bytes. A zero
// length result means the peer closed the stream.
func (s *Session) receive(ctx context.Context) ([]byte, error) {
	buf := make([]byte, ReceiveLimit)
	n, err := s.conn.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("receive: %w", err)
	}
	data := buf[:n]

	skip := IsSkip(data)
	if !skip {
		s.out.received(data)
	}
	s.stats.FramesReceived++
	s.stats.BytesReceived += n
	if skip {
		s.stats.SkipsReceived++
	}
	if n == 0 {
		s.stats.PeerClosed = true
	}
	s.logger.Debug("frame received", logging.Int("bytes", n), logging.Bool("skip", skip))
	s.record(ctx, Frame{Direction: DirectionReceived, Payload: data, Skip: skip, At: time.Now()})
	return data, nil
}

func (s *Session) record(ctx context.Context, frame Frame) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, frame); err != nil {
		logging.WarnWithContext(s.logger, "transcript write failed", "transcript_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "frame missing from transcript history"),
			logging.String(logging.FieldErrorHint, "check transcript.path permissions and disk space"))
	}
}

// Listen claims path, accepts exactly one peer and runs the write-first loop.
// The endpoint is released on every return path.
func Listen(ctx context.Context, path string, opts Options) (Stats, error) {
	opts = opts.withDefaults()
	logger := sessionLogger(opts, RoleListen, path)
	opts.Logger = logger

	ep, err := Claim(path, EndpointOptions{Lock: opts.Lock, Logger: logger})
	if err != nil {
		return Stats{}, err
	}
	defer func() { _ = ep.Release() }()

	ln, err := ep.Bind()
	if err != nil {
		return Stats{}, err
	}
	defer ln.Close()
	logger.Info("listening for peer")

	conn, err := Accept(ctx, ln)
	if err != nil {
		return Stats{}, err
	}
	defer conn.Close()
	logger.Info("peer connected")

	session := NewSession(conn, RoleListen, opts)
	err = session.Run(ctx)
	return session.Stats(), err
}

// Connect dials path and runs the read-first loop. The connector never
// removes the endpoint.
func Connect(ctx context.Context, path string, opts Options) (Stats, error) {
	opts = opts.withDefaults()
	logger := sessionLogger(opts, RoleConnect, path)
	opts.Logger = logger

	conn, err := Dial(ctx, path)
	if err != nil {
		return Stats{}, err
	}
	defer conn.Close()
	logger.Info("connected to listener")

	session := NewSession(conn, RoleConnect, opts)
	err = session.Run(ctx)
	return session.Stats(), err
}
