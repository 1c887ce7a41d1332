package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// pollInterval paces follow mode.
var pollInterval = 250 * time.Millisecond

const maxLineBytes = 1024 * 1024

// TailOptions controls Tail.
type TailOptions struct {
	// Lines is how many existing lines to emit first; 0 emits none.
	Lines int
	// Follow keeps reading appended lines until ctx ends.
	Follow bool
	// Match, when set, keeps only lines containing it (e.g. an attempt id).
	Match string
}

// Tail emits the last opts.Lines lines of path and, with opts.Follow, every
// line appended later. A missing file is treated as empty so follow mode can
// start before the daemon. When the file shrinks (rotation or truncation),
// reading restarts from the beginning.
func Tail(ctx context.Context, path string, opts TailOptions, emit func(line string)) error {
	keep := func(line string) bool {
		return opts.Match == "" || strings.Contains(line, opts.Match)
	}

	lines, offset, err := lastLines(path, opts.Lines, keep)
	if err != nil {
		return err
	}
	for _, line := range lines {
		emit(line)
	}
	if !opts.Follow {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(pollInterval):
		}
		size, err := fileSize(path)
		if err != nil {
			return err
		}
		if size < offset {
			offset = 0
		}
		if size == offset {
			continue
		}
		offset, err = readFrom(path, offset, func(line string) {
			if keep(line) {
				emit(line)
			}
		})
		if err != nil {
			return err
		}
	}
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("log path %q is a directory", path)
	}
	return info.Size(), nil
}

// lastLines returns up to limit kept lines from the end of path and the offset
// just past the last complete line.
func lastLines(path string, limit int, keep func(string) bool) ([]string, int64, error) {
	if _, err := fileSize(path); err != nil {
		return nil, 0, err
	}
	var ring []string
	if limit > 0 {
		ring = make([]string, 0, limit)
	}
	offset, err := readFrom(path, 0, func(line string) {
		if limit <= 0 || !keep(line) {
			return
		}
		if len(ring) == limit {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, line)
	})
	return ring, offset, err
}

// readFrom calls fn for each complete line after offset and returns the offset
// past the last one. A trailing partial line is left for the next read.
func readFrom(path string, offset int64, fn func(string)) (int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}
	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			return offset, nil
		}
		if err != nil {
			return offset, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(line))
		if len(line) > maxLineBytes {
			line = line[:maxLineBytes]
		}
		fn(strings.TrimRight(line, "\r\n"))
	}
}
