package injection

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// runTool runs an external keystroke tool with its own deadline and folds its
// stderr into the error.
func runTool(ctx context.Context, timeout time.Duration, name string, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%s timed out after %v", name, timeout)
	}
	if msg := strings.TrimSpace(string(out)); msg != "" {
		return fmt.Errorf("%s: %w: %s", name, err, msg)
	}
	return fmt.Errorf("%s: %w", name, err)
}

func lookTool(name, pkg string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%s not found: %w (install %s)", name, err, pkg)
	}
	return nil
}

type wtypeBackend struct{}

func NewWtypeBackend() Backend {
	return &wtypeBackend{}
}

func (w *wtypeBackend) Name() string {
	return "wtype"
}

func (w *wtypeBackend) Available() error {
	return lookTool("wtype", "wtype")
}

func (w *wtypeBackend) Inject(ctx context.Context, text string, timeout time.Duration) error {
	return runTool(ctx, timeout, "wtype", "--", text)
}

func (w *wtypeBackend) Paste(ctx context.Context, timeout time.Duration) error {
	return runTool(ctx, timeout, "wtype", "-M", "ctrl", "-k", "v", "-m", "ctrl")
}
