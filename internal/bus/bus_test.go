package bus

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestPidManagerBasics(t *testing.T) {
	tempDir := t.TempDir()

	testPidManager := &pidManager{
		path: filepath.Join(tempDir, PidName),
	}

	t.Run("create and remove PID file", func(t *testing.T) {
		err := testPidManager.create()
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}

		pidData, err := os.ReadFile(testPidManager.path)
		if err != nil {
			t.Fatalf("failed to read PID file: %v", err)
		}

		expectedPid := strconv.Itoa(os.Getpid())
		if string(pidData) != expectedPid {
			t.Errorf("PID file contains %q, expected %q", string(pidData), expectedPid)
		}

		err = testPidManager.remove()
		if err != nil {
			t.Fatalf("remove failed: %v", err)
		}

		if _, err := os.Stat(testPidManager.path); !os.IsNotExist(err) {
			t.Error("PID file should not exist after removal")
		}
	})

	t.Run("checkExisting with no PID file", func(t *testing.T) {
		err := testPidManager.checkExisting()
		if err != nil {
			t.Errorf("checkExisting should not error when no PID file exists: %v", err)
		}
	})

	t.Run("checkExisting with current process", func(t *testing.T) {
		err := testPidManager.create()
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		defer testPidManager.remove()

		err = testPidManager.checkExisting()
		if !errors.Is(err, ErrDaemonRunning) {
			t.Errorf("checkExisting should report ErrDaemonRunning, got %v", err)
		}
	})

	t.Run("checkExisting with stale PID file", func(t *testing.T) {
		err := os.WriteFile(testPidManager.path, []byte("99999"), 0o600)
		if err != nil {
			t.Fatalf("failed to write stale PID file: %v", err)
		}

		err = testPidManager.checkExisting()
		if err != nil {
			t.Errorf("checkExisting should succeed with stale PID: %v", err)
		}

		if _, err := os.Stat(testPidManager.path); !os.IsNotExist(err) {
			t.Error("stale PID file should be removed")
		}
	})

	t.Run("checkExisting with invalid PID file", func(t *testing.T) {
		err := os.WriteFile(testPidManager.path, []byte("invalid"), 0o600)
		if err != nil {
			t.Fatalf("failed to write invalid PID file: %v", err)
		}

		err = testPidManager.checkExisting()
		if err != nil {
			t.Errorf("checkExisting should succeed with invalid PID: %v", err)
		}

		if _, err := os.Stat(testPidManager.path); !os.IsNotExist(err) {
			t.Error("invalid PID file should be removed")
		}
	})
}

func TestIsProcessAlive(t *testing.T) {
	pm := &pidManager{}

	t.Run("current process", func(t *testing.T) {
		if !pm.isProcessAlive(os.Getpid()) {
			t.Error("current process should be alive")
		}
	})

	t.Run("non-existent process", func(t *testing.T) {
		if pm.isProcessAlive(99999) {
			t.Error("non-existent process should not be alive")
		}
	})
}

func TestSocketManagerBasics(t *testing.T) {
	testSocketManager := &socketManager{
		path: filepath.Join(t.TempDir(), SockName),
	}

	t.Run("listen and dial", func(t *testing.T) {
		listener, err := testSocketManager.listen()
		if err != nil {
			t.Fatalf("listen failed: %v", err)
		}
		defer listener.Close()

		connCh := make(chan error, 1)
		go func() {
			conn, err := listener.Accept()
			if err != nil {
				connCh <- err
				return
			}
			defer conn.Close()

			buf := make([]byte, 1024)
			n, err := conn.Read(buf)
			if err != nil {
				connCh <- err
				return
			}

			_, err = conn.Write(buf[:n])
			connCh <- err
		}()

		conn, err := testSocketManager.dial()
		if err != nil {
			t.Fatalf("dial failed: %v", err)
		}
		defer conn.Close()

		testMsg := "hello"
		if _, err := conn.Write([]byte(testMsg)); err != nil {
			t.Fatalf("write failed: %v", err)
		}

		buf := make([]byte, 1024)
		n, err := conn.Read(buf)
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}

		if string(buf[:n]) != testMsg {
			t.Errorf("got %q, expected %q", string(buf[:n]), testMsg)
		}

		if err := <-connCh; err != nil {
			t.Errorf("background connection error: %v", err)
		}
	})

	t.Run("listen replaces stale socket", func(t *testing.T) {
		if err := os.WriteFile(testSocketManager.path, []byte("stale"), 0o600); err != nil {
			t.Fatal(err)
		}
		listener, err := testSocketManager.listen()
		if err != nil {
			t.Fatalf("listen over stale socket failed: %v", err)
		}
		listener.Close()
	})

	t.Run("dial without listener", func(t *testing.T) {
		_ = os.Remove(testSocketManager.path)
		_, err := testSocketManager.dial()
		if err == nil {
			t.Error("dial should fail when no listener exists")
		}
	})
}

// serveFake answers commands the way the daemon does.
func serveFake(t *testing.T, listener net.Listener) {
	t.Helper()
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()

				buf := make([]byte, 2)
				n, err := c.Read(buf)
				if err != nil || n != 2 {
					return
				}

				switch cmd := buf[0]; cmd {
				case CmdToggle:
					fmt.Fprint(c, "STATUS state=recording\n")
				case CmdStatus:
					fmt.Fprint(c, "STATUS state=idle\n")
				case CmdVersion:
					fmt.Fprintf(c, "STATUS proto=%s\n", ProtoVer)
				case CmdQuit:
					fmt.Fprint(c, "OK quitting\n")
				default:
					fmt.Fprintf(c, "ERR unknown=%q\n", cmd)
				}
			}(conn)
		}
	}()
}

func TestSendCommand(t *testing.T) {
	t.Setenv(RuntimeDirEnv, t.TempDir())

	listener, err := Listen()
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer listener.Close()
	serveFake(t, listener)

	tests := []struct {
		cmd      byte
		expected string
	}{
		{CmdToggle, "STATUS state=recording"},
		{CmdStatus, "STATUS state=idle"},
		{CmdVersion, "STATUS proto=" + ProtoVer},
		{CmdQuit, "OK quitting"},
		{'x', "ERR unknown='x'"},
	}

	for _, tt := range tests {
		t.Run(string(tt.cmd), func(t *testing.T) {
			resp, err := SendCommand(tt.cmd)
			if err != nil {
				t.Fatalf("SendCommand(%c) failed: %v", tt.cmd, err)
			}
			if resp != tt.expected {
				t.Errorf("command %c: got %q, expected %q", tt.cmd, resp, tt.expected)
			}
		})
	}
}

func TestSendCommandNoDaemon(t *testing.T) {
	t.Setenv(RuntimeDirEnv, t.TempDir())

	if _, err := SendCommand(CmdStatus); err == nil {
		t.Error("SendCommand should fail when no daemon is listening")
	}
}

func TestPathFunctions(t *testing.T) {
	t.Run("default location", func(t *testing.T) {
		t.Setenv(RuntimeDirEnv, "")
		path, err := SockPath()
		if err != nil {
			t.Fatalf("SockPath failed: %v", err)
		}
		if !filepath.IsAbs(path) {
			t.Error("SockPath should return absolute path")
		}
		if filepath.Base(filepath.Dir(path)) != "hotdictate" {
			t.Errorf("socket should live in the hotdictate cache dir, got %s", path)
		}
	})

	t.Run("runtime dir override", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv(RuntimeDirEnv, dir)

		sock, err := getSockPath()
		if err != nil {
			t.Fatal(err)
		}
		if sock != filepath.Join(dir, SockName) {
			t.Errorf("getSockPath = %s", sock)
		}

		pid, err := getPidPath()
		if err != nil {
			t.Fatal(err)
		}
		if pid != filepath.Join(dir, PidName) {
			t.Errorf("getPidPath = %s", pid)
		}
	})
}

func TestPublicPidAPI(t *testing.T) {
	t.Setenv(RuntimeDirEnv, t.TempDir())

	if err := CheckExistingDaemon(); err != nil {
		t.Errorf("CheckExistingDaemon should succeed when no daemon running: %v", err)
	}

	if err := CreatePidFile(); err != nil {
		t.Fatalf("CreatePidFile failed: %v", err)
	}

	if err := CheckExistingDaemon(); !errors.Is(err, ErrDaemonRunning) {
		t.Errorf("expected ErrDaemonRunning while PID file is live, got %v", err)
	}

	if err := RemovePidFile(); err != nil {
		t.Fatalf("RemovePidFile failed: %v", err)
	}

	pidPath, _ := getPidPath()
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Error("PID file should not exist after RemovePidFile")
	}
}
