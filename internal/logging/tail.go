package logging

import (
	"bufio"
	"errors"
	"fmt"
	"os"
)

// Tail returns the last n lines of the log at path. n <= 0 returns every
// line. A missing file yields no lines.
func Tail(path string, n int) ([]string, error) {
	resolved, err := expandPath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	if n <= 0 {
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	// Ring buffer of the last n lines; next is the slot to overwrite.
	ring := make([]string, n)
	next, seen := 0, 0
	for scanner.Scan() {
		ring[next] = scanner.Text()
		next = (next + 1) % n
		seen++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	if seen < n {
		return ring[:seen], nil
	}
	lines = make([]string, 0, n)
	lines = append(lines, ring[next:]...)
	lines = append(lines, ring[:next]...)
	return lines, nil
}
