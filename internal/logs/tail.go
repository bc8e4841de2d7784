package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultPoll = 250 * time.Millisecond

// Options controls a Stream call.
type Options struct {
	// Lines is how many trailing lines to emit first. Zero starts at the end.
	Lines  int
	Follow bool
	Poll   time.Duration
	// Match keeps only lines for which it returns true. Nil keeps everything.
	Match func(line string) bool
}

// Stream emits the last opts.Lines lines of path and, when following, every
// line appended afterwards until ctx is done. A missing file is treated as
// empty so a CLI can attach before the daemon has written anything.
func Stream(ctx context.Context, path string, opts Options, emit func(string)) error {
	lines, offset, err := Last(path, opts.Lines)
	if err != nil {
		return err
	}
	emitMatching(lines, opts.Match, emit)
	if !opts.Follow {
		return nil
	}

	poll := opts.Poll
	if poll <= 0 {
		poll = defaultPoll
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		lines, offset, err = ReadFrom(path, offset)
		if err != nil {
			return err
		}
		emitMatching(lines, opts.Match, emit)
	}
}

func emitMatching(lines []string, match func(string) bool, emit func(string)) {
	for _, line := range lines {
		if match == nil || match(line) {
			emit(line)
		}
	}
}

// Last returns up to n trailing lines of path and the end offset.
func Last(path string, n int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return nil, 0, fmt.Errorf("log path %q is a directory", path)
	}
	if n <= 0 {
		return nil, info.Size(), nil
	}

	scanner := newScanner(file)
	ring := make([]string, n)
	count, idx := 0, 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % n
		count++
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}
	offset, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, fmt.Errorf("determine log offset: %w", err)
	}

	if count < n {
		return ring[:count], offset, nil
	}
	lines := make([]string, n)
	for i := range n {
		lines[i] = ring[(idx+i)%n]
	}
	return lines, offset, nil
}

// ReadFrom returns complete lines written after offset and the new offset. A
// file shorter than offset was truncated or rotated and is read from the start.
func ReadFrom(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, offset, fmt.Errorf("stat log file: %w", err)
	}
	if offset > info.Size() || offset < 0 {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReader(file)
	var lines []string
	for {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			// Leave a partial trailing line for the next read.
			break
		}
		if err != nil {
			return lines, offset, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(line))
		lines = append(lines, strings.TrimRight(line, "\r\n"))
	}
	return lines, offset, nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return scanner
}

// DocumentFilter matches console and JSON log lines that carry document_id=id.
func DocumentFilter(id int64) func(string) bool {
	value := strconv.FormatInt(id, 10)
	console := "document_id=" + value
	jsonKey := `"document_id":` + value
	return func(line string) bool {
		return containsField(line, console) || containsField(line, jsonKey)
	}
}

// containsField reports whether needle occurs in line and is not followed by
// another digit, so document 1 does not match document 12.
func containsField(line, needle string) bool {
	for start := 0; ; {
		i := strings.Index(line[start:], needle)
		if i < 0 {
			return false
		}
		end := start + i + len(needle)
		if end == len(line) || line[end] < '0' || line[end] > '9' {
			return true
		}
		start = end
	}
}
