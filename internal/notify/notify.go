package notify

import (
	"fmt"
	"os/exec"

	"go.uber.org/zap"
)

const appName = "hotdictate"

// Notifier is the status indicator. RecordingChanged is called synchronously
// with each Idle/Recording transition, so implementations must not block.
type Notifier interface {
	RecordingChanged(on bool)
	Error(msg string)
	Warn(msg string)
}

// New returns the notifier for a notifications.type value.
func New(kind string) (Notifier, error) {
	switch kind {
	case "desktop", "":
		return Desktop{}, nil
	case "log":
		return Log{}, nil
	case "none":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unsupported notification type: %s", kind)
	}
}

// Desktop sends freedesktop notifications through notify-send.
type Desktop struct{}

func (Desktop) RecordingChanged(on bool) {
	state := "Stopped"
	if on {
		state = "Started"
	}
	send("normal", fmt.Sprintf("Recording %s", state))
}

func (Desktop) Error(msg string) {
	send("critical", msg)
}

func (Desktop) Warn(msg string) {
	send("low", msg)
}

func send(urgency, msg string) {
	cmd := exec.Command("notify-send", "-a", appName, "-u", urgency, appName+": "+msg)
	if err := cmd.Start(); err != nil {
		zap.S().Debugf("notify: failed to send notification: %v", err)
		return
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			zap.S().Debugf("notify: notify-send exited: %v", err)
		}
	}()
}

// Log writes status changes to the process logger.
type Log struct{}

func (Log) RecordingChanged(on bool) {
	if on {
		zap.S().Infof("notify: %s: Recording Started", appName)
		return
	}
	zap.S().Infof("notify: %s: Recording Stopped", appName)
}

func (Log) Error(msg string) {
	zap.S().Errorf("notify: %s: %s", appName, msg)
}

func (Log) Warn(msg string) {
	zap.S().Warnf("notify: %s: %s", appName, msg)
}

// Nop is a Notifier that does absolutely nothing.
// Useful in unit tests or headless builds.
type Nop struct{}

func (Nop) RecordingChanged(on bool) {}
func (Nop) Error(msg string)         {}
func (Nop) Warn(msg string)          {}
