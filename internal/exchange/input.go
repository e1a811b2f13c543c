package exchange

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

type lineResult struct {
	line string
	err  error
}

// LineReader delivers operator input one line at a time. Reads happen on a
// helper goroutine so a pending prompt can be abandoned when ctx is canceled;
// at most one line is read ahead of the consumer.
type LineReader struct {
	src   *bufio.Reader
	once  sync.Once
	lines chan lineResult
	done  bool
}

// NewLineReader wraps r, typically os.Stdin.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{src: bufio.NewReader(r), lines: make(chan lineResult)}
}

func (r *LineReader) pump() {
	defer close(r.lines)
	for {
		line, err := r.src.ReadString('\n')
		if line != "" {
			r.lines <- lineResult{line: line}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.lines <- lineResult{err: fmt.Errorf("read input: %w", err)}
			}
			return
		}
	}
}

// Next returns the next line including its trailing newline, if any. ok is
// false once input is exhausted.
func (r *LineReader) Next(ctx context.Context) (line string, ok bool, err error) {
	if r.done {
		return "", false, nil
	}
	r.once.Do(func() { go r.pump() })
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case res, open := <-r.lines:
		if !open {
			r.done = true
			return "", false, nil
		}
		if res.err != nil {
			r.done = true
			return "", false, res.err
		}
		return res.line, true, nil
	}
}
