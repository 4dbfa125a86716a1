package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/leonardotrapani/hotdictate/internal/bus"
	"github.com/leonardotrapani/hotdictate/internal/config"
	"github.com/leonardotrapani/hotdictate/internal/controller"
	"github.com/leonardotrapani/hotdictate/internal/hotkey"
	"github.com/leonardotrapani/hotdictate/internal/injection"
	"github.com/leonardotrapani/hotdictate/internal/notify"
	"github.com/leonardotrapani/hotdictate/internal/recording"
	"github.com/leonardotrapani/hotdictate/internal/transcriber"
)

// HotkeySource delivers toggle presses from a global shortcut.
type HotkeySource interface {
	Run(ctx context.Context, onToggle func()) error
}

// Deps overrides collaborators that would otherwise be built from the config.
// Overridden collaborators are kept across config reloads.
type Deps struct {
	NewDevice   func() recording.Device
	Transcriber transcriber.Transcriber
	Injector    injection.Injector
	Notifier    notify.Notifier
	Hotkey      HotkeySource
}

type Daemon struct {
	manager    *config.Manager
	deps       Deps
	recorder   *recording.Recorder
	controller *controller.Controller
	hotkey     HotkeySource

	// hotkey presses queue here so the hook goroutine never waits on the controller
	toggles chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

func New(manager *config.Manager, deps Deps) (*Daemon, error) {
	cfg := manager.GetConfig()

	t, i, n, err := buildCollaborators(cfg, deps)
	if err != nil {
		return nil, err
	}

	newDevice := deps.NewDevice
	if newDevice == nil {
		newDevice = func() recording.Device { return recording.NewPortAudioDevice() }
	}
	recorder := recording.NewRecorder(cfg.ToRecordingConfig(), newDevice)

	ctx, cancel := context.WithCancel(context.Background())
	d := &Daemon{
		manager:    manager,
		deps:       deps,
		recorder:   recorder,
		controller: controller.New(cfg.ToControllerConfig(), recorder, t, i, n),
		hotkey:     deps.Hotkey,
		toggles:    make(chan struct{}, 8),
		ctx:        ctx,
		cancel:     cancel,
	}
	if d.hotkey == nil {
		d.hotkey = newHotkey(cfg)
	}

	manager.OnChange(d.reload)
	return d, nil
}

func buildCollaborators(cfg *config.Config, deps Deps) (transcriber.Transcriber, injection.Injector, notify.Notifier, error) {
	t, i, n := deps.Transcriber, deps.Injector, deps.Notifier

	if t == nil {
		client, err := transcriber.NewTranscriber(cfg.ToTranscriberConfig())
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create transcriber: %w", err)
		}
		t = client
	}
	if i == nil {
		inj, err := injection.NewInjector(cfg.ToInjectionConfig())
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create injector: %w", err)
		}
		i = inj
	}
	if n == nil {
		notifier, err := notify.New(cfg.Notifications.Type)
		if err != nil {
			return nil, nil, nil, err
		}
		n = notifier
	}
	return t, i, n, nil
}

func newHotkey(cfg *config.Config) HotkeySource {
	if !cfg.Hotkey.Enabled {
		return nil
	}
	if os.Getenv("DISPLAY") == "" {
		zap.S().Warnf("daemon: no X display, global hotkey disabled; bind `hotdictate toggle` in your compositor instead")
		return nil
	}
	l, err := hotkey.NewListener(cfg.Hotkey.Chord)
	if err != nil {
		zap.S().Warnf("daemon: global hotkey disabled: %v", err)
		return nil
	}
	return l
}

// reload swaps the per-cycle collaborators after a config change.
func (d *Daemon) reload(old, new *config.Config) {
	t, i, n, err := buildCollaborators(new, d.deps)
	if err != nil {
		zap.S().Warnf("daemon: keeping previous transcription settings: %v", err)
		return
	}
	d.controller.Update(t, i, n)
	zap.S().Infof("daemon: applied new configuration (provider=%s, injection=%s)", new.Transcription.Provider, new.Injection.Mode)
}

func (d *Daemon) Controller() *controller.Controller {
	return d.controller
}

// Stop asks Run to return.
func (d *Daemon) Stop() {
	d.cancel()
}

func (d *Daemon) Run() error {
	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	ln, err := bus.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := bus.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	g, ctx := errgroup.WithContext(d.ctx)

	if err := d.manager.StartWatching(ctx); err != nil {
		zap.S().Warnf("daemon: config hot reload disabled: %v", err)
	} else {
		defer d.manager.Stop()
	}

	g.Go(func() error {
		select {
		case sig := <-sigCh:
			zap.S().Infof("daemon: received signal %v, shutting down gracefully", sig)
			d.cancel()
		case <-ctx.Done():
		}
		return nil
	})

	g.Go(func() error {
		return d.recorder.Run(ctx)
	})

	g.Go(func() error {
		return d.controller.Run(ctx)
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-d.toggles:
				d.controller.Toggle()
			}
		}
	})

	if d.hotkey != nil {
		g.Go(func() error {
			if err := d.hotkey.Run(ctx, d.queueToggle); err != nil {
				zap.S().Warnf("daemon: hotkey listener stopped: %v", err)
			}
			return nil
		})
	}

	// Close the listener when context is done
	g.Go(func() error {
		<-ctx.Done()
		ln.Close()
		return nil
	})

	g.Go(func() error {
		return d.serve(ctx, ln)
	})

	zap.S().Infof("daemon: started, listening on socket")
	err = g.Wait()
	zap.S().Infof("daemon: stopped")
	return err
}

func (d *Daemon) queueToggle() {
	select {
	case d.toggles <- struct{}{}:
	default:
		zap.S().Warnf("daemon: toggle queue full, dropping hotkey press")
	}
}

func (d *Daemon) serve(ctx context.Context, ln net.Listener) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			zap.S().Errorf("daemon: accept error: %v", err)
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(c)
	}
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()
	_ = c.SetDeadline(time.Now().Add(10 * time.Second))

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		zap.S().Warnf("daemon: client read error: %v", err)
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	if len(line) <= 1 {
		fmt.Fprint(c, "ERR empty\n")
		return
	}
	cmd := line[0]

	switch cmd {
	case bus.CmdToggle:
		if d.controller.Toggle() {
			fmt.Fprintf(c, "OK state=%s\n", d.controller.State())
		} else {
			fmt.Fprintf(c, "BUSY state=%s\n", d.controller.State())
		}
	case bus.CmdStatus:
		fmt.Fprintf(c, "STATUS %s\n", formatSnapshot(d.controller.Snapshot()))
	case bus.CmdVersion:
		fmt.Fprintf(c, "STATUS proto=%s\n", bus.ProtoVer)
	case bus.CmdQuit:
		zap.S().Infof("daemon: shutdown requested")
		fmt.Fprint(c, "OK quitting\n")
		d.cancel()
	default:
		zap.S().Warnf("daemon: unknown command: %c", cmd)
		fmt.Fprintf(c, "ERR unknown=%q\n", cmd)
	}
}

func formatSnapshot(s controller.Snapshot) string {
	out := fmt.Sprintf("state=%s since=%s", s.State, s.Since.Format(time.RFC3339))
	if s.SessionID != "" {
		out += " session=" + s.SessionID
	}
	return out
}
