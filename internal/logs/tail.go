package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"
)

const (
	maxLineBytes        = 1024 * 1024
	defaultPollInterval = 250 * time.Millisecond
)

// Last returns up to limit trailing lines of path and the offset just past
// them. A missing file yields no lines and offset zero.
func Last(path string, limit int) ([]string, int64, error) {
	file, err := openLog(path)
	if err != nil || file == nil {
		return nil, 0, err
	}
	defer file.Close()

	if limit <= 0 {
		offset, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, offset, nil
	}

	ring := make([]string, limit)
	count, idx := 0, 0
	offset, err := scanLines(file, func(line string) {
		ring[idx] = line
		idx = (idx + 1) % limit
		if count < limit {
			count++
		}
	})
	if err != nil {
		return nil, 0, err
	}

	lines := make([]string, count)
	if count == limit {
		for i := range count {
			lines[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, offset, nil
}

// FollowOptions tunes Follow.
type FollowOptions struct {
	Offset int64
	// Poll defaults to 250ms.
	Poll time.Duration
}

// Follow emits every complete line appended after opts.Offset until ctx is
// canceled. A truncated file is read again from the start.
func Follow(ctx context.Context, path string, opts FollowOptions, emit func(string)) error {
	poll := opts.Poll
	if poll <= 0 {
		poll = defaultPollInterval
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	offset := opts.Offset
	for {
		next, err := readFrom(path, offset, emit)
		if err != nil {
			return err
		}
		offset = next

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func readFrom(path string, offset int64, emit func(string)) (int64, error) {
	file, err := openLog(path)
	if err != nil || file == nil {
		return 0, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if offset > info.Size() || offset < 0 {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			// Partial lines are picked up on the next poll.
			return offset, nil
		}
		if err != nil {
			return offset, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(line))
		emit(line[:len(line)-1])
	}
}

func openLog(path string) (*os.File, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		file.Close()
		return nil, fmt.Errorf("log path %q is a directory", path)
	}
	return file, nil
}

func scanLines(file *os.File, fn func(string)) (int64, error) {
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		fn(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("read log file: %w", err)
	}
	offset, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("determine log offset: %w", err)
	}
	return offset, nil
}
