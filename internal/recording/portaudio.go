package recording

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudioDevice reads signed 16-bit frames from a PortAudio input stream.
type PortAudioDevice struct {
	mu          sync.Mutex
	initialized bool
	stream      *portaudio.Stream
	in          []int16
}

func NewPortAudioDevice() *PortAudioDevice {
	return &PortAudioDevice{}
}

func (d *PortAudioDevice) Open(config Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("%w: portaudio init: %v", ErrDeviceUnavailable, err)
	}
	d.initialized = true

	info, err := inputDevice(config.Device)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	if info.MaxInputChannels < config.Channels {
		return fmt.Errorf("%w: %s has %d input channels, need %d",
			ErrDeviceUnavailable, info.Name, info.MaxInputChannels, config.Channels)
	}

	params := portaudio.LowLatencyParameters(info, nil)
	params.Input.Channels = config.Channels
	params.Output.Channels = 0
	params.SampleRate = float64(config.SampleRate)
	params.FramesPerBuffer = config.FramesPerBuffer

	d.in = make([]int16, config.FramesPerBuffer*config.Channels)
	stream, err := portaudio.OpenStream(params, d.in)
	if err != nil {
		return fmt.Errorf("%w: open stream on %s: %v", ErrDeviceUnavailable, info.Name, err)
	}
	d.stream = stream

	if err := stream.Start(); err != nil {
		return fmt.Errorf("%w: start stream: %v", ErrDeviceUnavailable, err)
	}
	return nil
}

func (d *PortAudioDevice) Read() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stream == nil {
		return nil, errors.New("stream not open")
	}

	if err := d.stream.Read(); err != nil {
		if errors.Is(err, portaudio.InputOverflowed) {
			return nil, ErrStreamOverflow
		}
		return nil, err
	}

	frame := make([]byte, len(d.in)*2)
	for i, s := range d.in {
		binary.LittleEndian.PutUint16(frame[i*2:], uint16(s))
	}
	return frame, nil
}

func (d *PortAudioDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	if d.stream != nil {
		if err := d.stream.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop stream: %w", err))
		}
		if err := d.stream.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close stream: %w", err))
		}
		d.stream = nil
	}
	if d.initialized {
		if err := portaudio.Terminate(); err != nil {
			errs = append(errs, fmt.Errorf("portaudio terminate: %w", err))
		}
		d.initialized = false
	}
	return errors.Join(errs...)
}

func inputDevice(name string) (*portaudio.DeviceInfo, error) {
	if name == "" {
		return portaudio.DefaultInputDevice()
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	for _, dev := range devices {
		if dev.Name == name && dev.MaxInputChannels > 0 {
			return dev, nil
		}
	}
	return nil, fmt.Errorf("input device %q not found", name)
}

// InputDevice describes a capture device for diagnostics.
type InputDevice struct {
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
	Default           bool
}

// ListInputDevices enumerates PortAudio input devices.
func ListInputDevices() ([]InputDevice, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	def, _ := portaudio.DefaultInputDevice()

	var result []InputDevice
	for _, dev := range devices {
		if dev.MaxInputChannels == 0 {
			continue
		}
		result = append(result, InputDevice{
			Name:              dev.Name,
			MaxInputChannels:  dev.MaxInputChannels,
			DefaultSampleRate: dev.DefaultSampleRate,
			Default:           def != nil && def.Name == dev.Name,
		})
	}
	return result, nil
}
