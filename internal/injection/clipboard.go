package injection

import (
	"errors"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
)

var ErrClipboardUnsupported = errors.New("no clipboard utility found (install wl-clipboard, xclip or xsel)")

type systemClipboard struct {
	timeout time.Duration
}

// NewSystemClipboard uses wl-copy, xclip or xsel, whichever is installed.
func NewSystemClipboard(timeout time.Duration) Clipboard {
	return systemClipboard{timeout: timeout}
}

func (c systemClipboard) Read() (string, error) {
	if clipboard.Unsupported {
		return "", ErrClipboardUnsupported
	}
	var text string
	err := c.withTimeout(func() error {
		var err error
		text, err = clipboard.ReadAll()
		return err
	})
	return text, err
}

func (c systemClipboard) Write(text string) error {
	if clipboard.Unsupported {
		return ErrClipboardUnsupported
	}
	return c.withTimeout(func() error {
		return clipboard.WriteAll(text)
	})
}

// withTimeout bounds a clipboard call; the helper process is left to finish
// on its own if it hangs.
func (c systemClipboard) withTimeout(fn func() error) error {
	if c.timeout <= 0 {
		return fn()
	}
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("clipboard: %w", err)
		}
		return nil
	case <-time.After(c.timeout):
		return fmt.Errorf("clipboard: timed out after %v", c.timeout)
	}
}

// CheckClipboardAvailable reports whether a clipboard utility is installed.
func CheckClipboardAvailable() error {
	if clipboard.Unsupported {
		return ErrClipboardUnsupported
	}
	return nil
}
