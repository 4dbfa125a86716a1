package recording

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrDeviceUnavailable means no input device exists or it could not be acquired.
	ErrDeviceUnavailable = errors.New("audio input device unavailable")
	// ErrStreamOverflow means the device dropped input before it could be read.
	ErrStreamOverflow = errors.New("audio input overflowed")
)

type AudioFrame struct {
	Data      []byte
	Timestamp time.Time
}

// Device is a microphone backend. Close must be safe after a failed or partial Open.
type Device interface {
	Open(config Config) error
	Read() ([]byte, error)
	Close() error
}

// CaptureSession holds an opened Device for the duration of one recording.
type CaptureSession struct {
	device Device

	closeOnce sync.Once
	closeErr  error
}

// OpenSession acquires device. On failure the device is released before returning
// and the error wraps ErrDeviceUnavailable.
func OpenSession(device Device, config Config) (*CaptureSession, error) {
	s := &CaptureSession{device: device}
	if err := device.Open(config); err != nil {
		if cerr := s.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
		if errors.Is(err, ErrDeviceUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	return s, nil
}

// ReadFrame blocks until the device delivers one frame.
func (s *CaptureSession) ReadFrame() (AudioFrame, error) {
	data, err := s.device.Read()
	if err != nil {
		return AudioFrame{}, err
	}
	return AudioFrame{Data: data, Timestamp: time.Now()}, nil
}

// Close releases the device. Only the first call reaches the device.
func (s *CaptureSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.device.Close()
	})
	return s.closeErr
}
