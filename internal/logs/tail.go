// Package logs reads the workflow log file for the CLI's logs command.
package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// TailOptions control how much of the log file is returned.
type TailOptions struct {
	// Limit caps the number of lines returned from the end of the file.
	Limit int
	// Follow keeps reading appended lines until the context is cancelled.
	Follow bool
	// Poll is the follow-mode re-read cadence. Defaults to one second.
	Poll time.Duration
}

// Tail returns the last Limit lines of the file and, in follow mode, streams
// appended lines to emit until ctx is cancelled. A missing file is not an
// error; follow mode waits for it to appear.
func Tail(ctx context.Context, path string, opts TailOptions, emit func(line string)) error {
	if emit == nil {
		return errors.New("emit callback is required")
	}
	if opts.Poll <= 0 {
		opts.Poll = time.Second
	}

	offset, err := emitLastLines(path, opts.Limit, emit)
	if err != nil {
		return err
	}
	if !opts.Follow {
		return nil
	}

	ticker := time.NewTicker(opts.Poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		offset, err = emitFrom(path, offset, emit)
		if err != nil {
			return err
		}
	}
}

// emitLastLines sends the final limit lines and returns the end-of-file
// offset to continue from.
func emitLastLines(path string, limit int, emit func(string)) (int64, error) {
	lines, offset, err := readAll(path)
	if err != nil {
		return 0, err
	}
	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	for _, line := range lines {
		emit(line)
	}
	return offset, nil
}

// emitFrom sends lines appended past offset. Truncation (rotation) restarts
// from the beginning of the file.
func emitFrom(path string, offset int64, emit func(string)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if info.Size() < offset {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return offset, nil
			}
			return offset, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(line))
		emit(trimNewline(line))
	}
}

func readAll(path string) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	var (
		lines  []string
		offset int64
	)
	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				// A trailing partial line stays unread until its newline
				// arrives.
				return lines, offset, nil
			}
			return nil, 0, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(line))
		lines = append(lines, trimNewline(line))
	}
}

func trimNewline(line string) string {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}
