package bus

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const SockName = "control.sock"
const PidName = "hotdictate.pid"
const ProtoVer = "1.0"

// RuntimeDirEnv overrides the directory holding the socket and PID file.
const RuntimeDirEnv = "HOTDICTATE_RUNTIME_DIR"

// Commands understood by the daemon. Each request is one byte and a newline.
const (
	CmdToggle  byte = 't'
	CmdStatus  byte = 's'
	CmdVersion byte = 'v'
	CmdQuit    byte = 'q'
)

// ErrDaemonRunning means another daemon owns the PID file.
var ErrDaemonRunning = errors.New("daemon already running")

const dialTimeout = 2 * time.Second

// runtimeDir is $HOTDICTATE_RUNTIME_DIR or ~/.cache/hotdictate
func runtimeDir() (string, error) {
	if dir := os.Getenv(RuntimeDirEnv); dir != "" {
		return dir, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "hotdictate"), nil
}

func getSockPath() (string, error) {
	dir, err := runtimeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SockName), nil
}

func getPidPath() (string, error) {
	dir, err := runtimeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, PidName), nil
}

// SockPath returns ~/.cache/hotdictate/control.sock unless overridden.
func SockPath() (string, error) {
	return getSockPath()
}

type socketManager struct {
	path string
}

func newSocketManager() (*socketManager, error) {
	path, err := getSockPath()
	if err != nil {
		return nil, err
	}
	return &socketManager{path: path}, nil
}

func (s *socketManager) listen() (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return nil, err
	}
	_ = os.Remove(s.path) // stale socket from last run
	return net.Listen("unix", s.path)
}

func (s *socketManager) dial() (net.Conn, error) {
	return net.DialTimeout("unix", s.path, dialTimeout)
}

type pidManager struct {
	path string
}

func newPidManager() (*pidManager, error) {
	path, err := getPidPath()
	if err != nil {
		return nil, err
	}
	return &pidManager{path: path}, nil
}

// checkExisting fails when the PID file names a live process. Stale or
// unreadable PID files are removed.
func (p *pidManager) checkExisting() error {
	pidData, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return nil // no existing daemon
	}
	if err != nil {
		return err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
	if err != nil {
		zap.S().Warnf("bus: removing invalid PID file %s", p.path)
		_ = os.Remove(p.path)
		return nil
	}

	if !p.isProcessAlive(pid) {
		zap.S().Infof("bus: removing stale PID file for process %d", pid)
		_ = os.Remove(p.path)
		return nil
	}

	return fmt.Errorf("%w with PID %d", ErrDaemonRunning, pid)
}

func (p *pidManager) isProcessAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// signal 0 checks existence without delivering anything
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func (p *pidManager) create() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(p.path, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func (p *pidManager) remove() error {
	return os.Remove(p.path)
}

func Listen() (net.Listener, error) {
	sm, err := newSocketManager()
	if err != nil {
		return nil, err
	}
	return sm.listen()
}

func Dial() (net.Conn, error) {
	sm, err := newSocketManager()
	if err != nil {
		return nil, err
	}
	return sm.dial()
}

// SendCommand sends cmd to the running daemon and returns its one-line reply
// without the trailing newline.
func SendCommand(cmd byte) (string, error) {
	c, err := Dial()
	if err != nil {
		return "", fmt.Errorf("daemon not reachable (is `hotdictate serve` running?): %w", err)
	}
	defer c.Close()

	_ = c.SetDeadline(time.Now().Add(dialTimeout))
	if _, err := c.Write([]byte{cmd, '\n'}); err != nil {
		return "", err
	}

	resp, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(resp, "\n"), nil
}

func CheckExistingDaemon() error {
	pm, err := newPidManager()
	if err != nil {
		return err
	}
	return pm.checkExisting()
}

func CreatePidFile() error {
	pm, err := newPidManager()
	if err != nil {
		return err
	}
	return pm.create()
}

func RemovePidFile() error {
	pm, err := newPidManager()
	if err != nil {
		return err
	}
	return pm.remove()
}
