package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrEmptyRecording is returned by Finalize when no audio was captured.
var ErrEmptyRecording = errors.New("empty recording")

// ErrFinalized is returned when a finalized buffer is appended to or finalized again.
var ErrFinalized = errors.New("buffer already finalized")

// Format describes raw PCM held by a Buffer. Samples are signed little-endian.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// DefaultFormat is mono, 16-bit, 44.1kHz.
func DefaultFormat() Format {
	return Format{
		SampleRate: 44100,
		Channels:   1,
		BitDepth:   16,
	}
}

func (f Format) bytesPerSample() int {
	return f.BitDepth / 8
}

// Buffer accumulates PCM frames for a single recording.
// Append and Finalize are safe to call from different goroutines.
type Buffer struct {
	mu     sync.Mutex
	format Format
	frames [][]byte
	size   int
	sealed bool
}

func NewBuffer(format Format) *Buffer {
	return &Buffer{format: format}
}

func (b *Buffer) Format() Format {
	return b.format
}

// Append stores frame at the end of the recording. The buffer keeps a reference to
// frame, so the caller must not reuse it.
func (b *Buffer) Append(frame []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sealed {
		return ErrFinalized
	}
	if len(frame) == 0 {
		return nil
	}
	b.frames = append(b.frames, frame)
	b.size += len(frame)
	return nil
}

// Frames returns the number of appended frames.
func (b *Buffer) Frames() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames)
}

// Size returns the number of appended PCM bytes.
func (b *Buffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Finalize seals the buffer and encodes its frames as a WAV container.
// Frames are released whether or not encoding succeeds.
func (b *Buffer) Finalize() ([]byte, error) {
	b.mu.Lock()
	if b.sealed {
		b.mu.Unlock()
		return nil, ErrFinalized
	}
	b.sealed = true
	frames := b.frames
	size := b.size
	b.frames = nil
	b.size = 0
	b.mu.Unlock()

	if size == 0 {
		return nil, ErrEmptyRecording
	}

	return encodeWAV(b.format, frames, size)
}

// Reset drops all frames and makes the buffer usable for a new recording.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = nil
	b.size = 0
	b.sealed = false
}

func encodeWAV(format Format, frames [][]byte, size int) ([]byte, error) {
	if format.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported bit depth: %d", format.BitDepth)
	}

	out := &memWriteSeeker{buf: make([]byte, 0, 44+size)}
	enc := wav.NewEncoder(out, format.SampleRate, format.BitDepth, format.Channels, 1)

	pcm := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
		SourceBitDepth: format.BitDepth,
	}

	// A sample split across two frames is carried into the next one.
	var carry []byte
	width := format.bytesPerSample()
	for _, frame := range frames {
		data := frame
		if len(carry) > 0 {
			data = append(carry, frame...)
			carry = nil
		}
		whole := len(data) - len(data)%width
		if whole < len(data) {
			carry = append([]byte(nil), data[whole:]...)
		}

		samples := pcm.Data[:0]
		for i := 0; i < whole; i += width {
			samples = append(samples, int(int16(binary.LittleEndian.Uint16(data[i:]))))
		}
		pcm.Data = samples
		if len(samples) == 0 {
			continue
		}
		if err := enc.Write(pcm); err != nil {
			return nil, fmt.Errorf("write wav samples: %w", err)
		}
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close wav encoder: %w", err)
	}
	return out.buf, nil
}
