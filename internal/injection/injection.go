package injection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	ModeType      = "type"
	ModePaste     = "paste"
	ModeClipboard = "clipboard"
)

// Injector delivers transcribed text to the focused application.
type Injector interface {
	Inject(ctx context.Context, text string) error
}

// Backend synthesizes keystrokes.
type Backend interface {
	Name() string
	Available() error
	Inject(ctx context.Context, text string, timeout time.Duration) error
	Paste(ctx context.Context, timeout time.Duration) error
}

// Clipboard is the system clipboard.
type Clipboard interface {
	Read() (string, error)
	Write(text string) error
}

type Config struct {
	Mode                string   // "type", "paste", "clipboard"
	Backends            []string // keystroke backends in the order they are tried
	AlwaysCopyClipboard bool     // also leave the text on the clipboard after typing
	RestoreClipboard    bool     // put the previous clipboard back after a paste
	TypeTimeout         time.Duration
	ClipboardTimeout    time.Duration
	RestoreDelay        time.Duration
}

func DefaultConfig() Config {
	return Config{
		Mode:                ModeType,
		Backends:            []string{"ydotool", "wtype"},
		AlwaysCopyClipboard: false,
		RestoreClipboard:    true,
		TypeTimeout:         5 * time.Second,
		ClipboardTimeout:    3 * time.Second,
		RestoreDelay:        300 * time.Millisecond,
	}
}

// InjectionError reports that the text did not reach the focused window.
// Copied tells whether the clipboard fallback holds the text instead.
type InjectionError struct {
	Mode   string
	Err    error
	Copied bool
}

func (e *InjectionError) Error() string {
	if e.Copied {
		return fmt.Sprintf("%s injection failed, text left on clipboard: %v", e.Mode, e.Err)
	}
	return fmt.Sprintf("%s injection failed: %v", e.Mode, e.Err)
}

func (e *InjectionError) Unwrap() error {
	return e.Err
}

type injector struct {
	config    Config
	backends  []Backend
	clipboard Clipboard
}

// NewInjector resolves the configured backends and the system clipboard.
func NewInjector(config Config) (Injector, error) {
	switch config.Mode {
	case ModeType, ModePaste, ModeClipboard:
	default:
		return nil, fmt.Errorf("unsupported injection mode: %s", config.Mode)
	}

	backends := make([]Backend, 0, len(config.Backends))
	for _, name := range config.Backends {
		b, err := NewBackend(name)
		if err != nil {
			return nil, err
		}
		backends = append(backends, b)
	}
	return newInjector(config, backends, NewSystemClipboard(config.ClipboardTimeout)), nil
}

func newInjector(config Config, backends []Backend, clipboard Clipboard) *injector {
	return &injector{
		config:    config,
		backends:  backends,
		clipboard: clipboard,
	}
}

// NewBackend returns the keystroke backend called name.
func NewBackend(name string) (Backend, error) {
	switch name {
	case "ydotool":
		return NewYdotoolBackend(), nil
	case "wtype":
		return NewWtypeBackend(), nil
	default:
		return nil, fmt.Errorf("unknown injection backend: %s", name)
	}
}

func (i *injector) Inject(ctx context.Context, text string) error {
	if text == "" {
		return fmt.Errorf("cannot inject empty text")
	}

	switch i.config.Mode {
	case ModeClipboard:
		if err := i.clipboard.Write(text); err != nil {
			return &InjectionError{Mode: ModeClipboard, Err: err}
		}
		zap.S().Infof("injection: copied %d chars to clipboard", len(text))
		return nil

	case ModeType:
		return i.typeText(ctx, text)

	case ModePaste:
		return i.paste(ctx, text)

	default:
		return fmt.Errorf("unsupported injection mode: %s", i.config.Mode)
	}
}

func (i *injector) typeText(ctx context.Context, text string) error {
	var errs []error
	for _, b := range i.backends {
		if err := b.Available(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
			continue
		}
		if err := b.Inject(ctx, text, i.config.TypeTimeout); err != nil {
			zap.S().Warnf("injection: %s failed: %v", b.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
			continue
		}
		zap.S().Infof("injection: typed %d chars via %s", len(text), b.Name())
		if i.config.AlwaysCopyClipboard {
			if err := i.clipboard.Write(text); err != nil {
				zap.S().Warnf("injection: copy to clipboard: %v", err)
			}
		}
		return nil
	}

	if len(errs) == 0 {
		errs = append(errs, errors.New("no keystroke backend configured"))
	}
	injErr := &InjectionError{Mode: ModeType, Err: errors.Join(errs...)}
	if err := i.clipboard.Write(text); err != nil {
		injErr.Err = errors.Join(injErr.Err, fmt.Errorf("clipboard fallback: %w", err))
	} else {
		injErr.Copied = true
	}
	return injErr
}

func (i *injector) paste(ctx context.Context, text string) error {
	var previous string
	if i.config.RestoreClipboard {
		previous, _ = i.clipboard.Read()
	}

	if err := i.clipboard.Write(text); err != nil {
		return &InjectionError{Mode: ModePaste, Err: err}
	}

	var errs []error
	for _, b := range i.backends {
		if err := b.Available(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
			continue
		}
		if err := b.Paste(ctx, i.config.TypeTimeout); err != nil {
			zap.S().Warnf("injection: %s paste failed: %v", b.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
			continue
		}
		zap.S().Infof("injection: pasted %d chars via %s", len(text), b.Name())
		if i.config.RestoreClipboard && previous != "" {
			i.restore(previous)
		}
		return nil
	}

	if len(errs) == 0 {
		errs = append(errs, errors.New("no keystroke backend configured"))
	}
	return &InjectionError{Mode: ModePaste, Err: errors.Join(errs...), Copied: true}
}

// restore puts the previous clipboard back once the target had time to read the paste.
func (i *injector) restore(previous string) {
	go func() {
		time.Sleep(i.config.RestoreDelay)
		if err := i.clipboard.Write(previous); err != nil {
			zap.S().Debugf("injection: restore clipboard: %v", err)
		}
	}()
}
