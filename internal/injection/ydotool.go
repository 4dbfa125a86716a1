package injection

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// evdev codes for ydotool key events
const (
	keyLeftCtrl = 29
	keyV        = 47
)

type ydotoolBackend struct {
	probeTimeout time.Duration
}

func NewYdotoolBackend() Backend {
	return &ydotoolBackend{probeTimeout: 500 * time.Millisecond}
}

func (y *ydotoolBackend) Name() string {
	return "ydotool"
}

// Available requires the ydotool client and, when ydotoold is installed, a
// daemon answering on its socket.
func (y *ydotoolBackend) Available() error {
	if err := lookTool("ydotool", "ydotool"); err != nil {
		return err
	}
	if lookTool("ydotoold", "ydotool") != nil {
		return nil
	}

	sock := findSocket(ydotoolSocketCandidates())
	if sock == "" {
		return fmt.Errorf("ydotoold socket not found, is ydotoold running?")
	}
	return y.probe(sock)
}

// probe dials the daemon socket. Newer ydotoold listens on a datagram socket,
// older releases on a stream socket.
func (y *ydotoolBackend) probe(sock string) error {
	var lastErr error
	for _, network := range []string{"unixgram", "unix"} {
		conn, err := net.DialTimeout(network, sock, y.probeTimeout)
		if err == nil {
			conn.Close()
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("ydotoold not responding at %s: %w", sock, lastErr)
}

func (y *ydotoolBackend) Inject(ctx context.Context, text string, timeout time.Duration) error {
	return runTool(ctx, timeout, "ydotool", "type", "--", text)
}

func (y *ydotoolBackend) Paste(ctx context.Context, timeout time.Duration) error {
	return runTool(ctx, timeout, "ydotool", "key",
		keyEvent(keyLeftCtrl, true), keyEvent(keyV, true), keyEvent(keyV, false), keyEvent(keyLeftCtrl, false))
}

func keyEvent(code int, down bool) string {
	state := "0"
	if down {
		state = "1"
	}
	return strconv.Itoa(code) + ":" + state
}

// ydotoolSocketCandidates lists where ydotoold may have put its socket, most
// specific first.
func ydotoolSocketCandidates() []string {
	var paths []string
	if sock := os.Getenv("YDOTOOL_SOCKET"); sock != "" {
		paths = append(paths, sock)
	}
	if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, ".ydotool_socket"))
	}
	return append(paths,
		filepath.Join("/run/user", strconv.Itoa(os.Getuid()), ".ydotool_socket"),
		"/tmp/.ydotool_socket",
	)
}

func findSocket(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
