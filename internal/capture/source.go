package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"unicode/utf8"
)

// Source yields at most one badge identifier per poll. ok is false when the
// channel had nothing to offer; that is not an error.
type Source interface {
	Poll() (badge string, ok bool, err error)
}

// SourceError reports an unreadable input channel. The loop logs it and retries.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("capture source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

var errBadEncoding = errors.New("badge is not valid UTF-8")

// MarkerFile is a transient file holding one badge id. A successful read
// consumes it.
type MarkerFile struct {
	Path string
}

// Poll implements Source
func (m *MarkerFile) Poll() (string, bool, error) {
	data, err := os.ReadFile(m.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &SourceError{Source: "marker", Err: err}
	}
	// Consume first, so a malformed marker cannot wedge the loop.
	if err := os.Remove(m.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", false, &SourceError{Source: "marker", Err: err}
	}
	if !utf8.Valid(data) {
		return "", false, &SourceError{Source: "marker", Err: errBadEncoding}
	}
	badge := strings.TrimSpace(string(data))
	if badge == "" {
		return "", false, nil
	}
	return badge, true, nil
}

// Keystrokes buffers characters typed by a reader in keyboard-wedge mode.
// Each end-of-line completes one badge id. It implements io.Writer so a
// terminal or HID stream can be copied into it.
type Keystrokes struct {
	mu      sync.Mutex
	partial []byte
	ready   []string
	limit   int
}

// NewKeystrokes returns a buffer holding at most limit completed ids;
// older ids are dropped when it overflows.
func NewKeystrokes(limit int) *Keystrokes {
	if limit <= 0 {
		limit = 16
	}
	return &Keystrokes{limit: limit}
}

// Write implements io.Writer
func (k *Keystrokes) Write(p []byte) (int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, b := range p {
		if b != '\n' && b != '\r' {
			k.partial = append(k.partial, b)
			continue
		}
		if len(k.partial) == 0 {
			continue
		}
		k.ready = append(k.ready, string(k.partial))
		k.partial = k.partial[:0]
		if len(k.ready) > k.limit {
			k.ready = k.ready[len(k.ready)-k.limit:]
		}
	}
	return len(p), nil
}

// Poll implements Source
func (k *Keystrokes) Poll() (string, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for len(k.ready) > 0 {
		line := k.ready[0]
		k.ready = k.ready[1:]
		if !utf8.ValidString(line) {
			return "", false, &SourceError{Source: "keystrokes", Err: errBadEncoding}
		}
		if badge := strings.TrimSpace(line); badge != "" {
			return badge, true, nil
		}
	}
	return "", false, nil
}

// Pump copies r into k until r ends. Run it on its own goroutine.
func (k *Keystrokes) Pump(r io.Reader) error {
	reader := bufio.NewReader(r)
	buf := make([]byte, 256)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			_, _ = k.Write(buf[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// Multi polls each source in order and returns the first badge found
type Multi []Source

// Poll implements Source. Errors of one source do not hide another's badge.
func (m Multi) Poll() (string, bool, error) {
	var errs []error
	for _, src := range m {
		badge, ok, err := src.Poll()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			return badge, true, nil
		}
	}
	return "", false, errors.Join(errs...)
}
