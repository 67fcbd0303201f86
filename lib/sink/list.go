package sink

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// List is a headerless single-column append file, used for the discovered
// username set. Names are appended as found and read back on the next run to
// seed deduplication.
type List struct {
	path string
	file *os.File
}

func OpenList(path string) (*List, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open list %s: %w", path, err)
	}
	return &List{path: path, file: file}, nil
}

func (l *List) Append(value string) error {
	_, err := fmt.Fprintln(l.file, Sanitize(value))
	if err != nil {
		return fmt.Errorf("append to list %s: %w", l.path, err)
	}
	return nil
}

func (l *List) Close() error {
	return l.file.Close()
}

// ReadList returns the values persisted by prior runs. A missing file is an
// empty list, not an error.
func ReadList(path string) ([]string, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open list %s: %w", path, err)
	}
	defer file.Close()

	var out []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			out = append(out, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read list %s: %w", path, err)
	}
	return out, nil
}
