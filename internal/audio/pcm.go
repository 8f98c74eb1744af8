package audio

import (
	"errors"
	"fmt"
)

var ErrInvalidFormat = errors.New("invalid audio format")

// sample layout shared by every buffer of a run
type Format struct {
	SampleRate int // Hz, at least 1000 so a millisecond holds whole frames
	Channels   int // 1=mono, 2=stereo
	BitDepth   int // 16, 24 or 32 bit signed little-endian
}

// format used when a run does not specify one
func DefaultFormat() Format {
	return Format{
		SampleRate: 24000,
		Channels:   1,
		BitDepth:   16,
	}
}

func (f Format) Validate() error {
	if f.SampleRate < 1000 || f.SampleRate > 192000 {
		return fmt.Errorf(
			"%w: sample rate must be between 1000 and 192000 Hz, got %d",
			ErrInvalidFormat,
			f.SampleRate,
		)
	}
	if f.Channels < 1 || f.Channels > 8 {
		return fmt.Errorf(
			"%w: channels must be between 1 and 8, got %d",
			ErrInvalidFormat,
			f.Channels,
		)
	}
	switch f.BitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf(
			"%w: bit depth must be 16, 24 or 32, got %d",
			ErrInvalidFormat,
			f.BitDepth,
		)
	}
	return nil
}

// bytes per interleaved frame
func (f Format) FrameSize() int {
	return f.Channels * f.BitDepth / 8
}

// number of frames that fit in ms milliseconds, rounded down
func (f Format) FramesFor(ms uint64) int {
	return int(ms * uint64(f.SampleRate) / 1000)
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%dbit", f.SampleRate, f.Channels, f.BitDepth)
}

// Buffer is raw interleaved PCM with a fixed format. The stitcher treats a
// buffer handed to it as read-only; all operations return new buffers or grow
// the receiver without touching shared backing arrays.
type Buffer struct {
	format Format
	pcm    []byte
}

// wraps pcm bytes; trailing bytes that do not form a whole frame are dropped
func NewBuffer(format Format, pcm []byte) (*Buffer, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	frameSize := format.FrameSize()
	whole := len(pcm) - len(pcm)%frameSize
	data := make([]byte, whole)
	copy(data, pcm[:whole])
	return &Buffer{format: format, pcm: data}, nil
}

// empty buffer of the given format
func Empty(format Format) *Buffer {
	return &Buffer{format: format}
}

// zero-amplitude buffer lasting ms milliseconds
func Silence(format Format, ms uint64) *Buffer {
	frames := format.FramesFor(ms)
	return &Buffer{
		format: format,
		pcm:    make([]byte, frames*format.FrameSize()),
	}
}

func (b *Buffer) Format() Format {
	return b.format
}

func (b *Buffer) Frames() int {
	if b == nil || b.format.FrameSize() == 0 {
		return 0
	}
	return len(b.pcm) / b.format.FrameSize()
}

// DurationMs rounds up to whole milliseconds, so a buffer built from
// FramesFor(ms) frames reports exactly ms.
func (b *Buffer) DurationMs() uint64 {
	frames := uint64(b.Frames())
	if frames == 0 {
		return 0
	}
	rate := uint64(b.format.SampleRate)
	return (frames*1000 + rate - 1) / rate
}

func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.pcm)
}

// copy of the underlying pcm bytes
func (b *Buffer) Bytes() []byte {
	out := make([]byte, len(b.pcm))
	copy(out, b.pcm)
	return out
}

// first n frames as a new buffer; n beyond the end returns a full copy
func (b *Buffer) Prefix(frames int) *Buffer {
	if frames < 0 {
		frames = 0
	}
	if frames > b.Frames() {
		frames = b.Frames()
	}
	end := frames * b.format.FrameSize()
	data := make([]byte, end)
	copy(data, b.pcm[:end])
	return &Buffer{format: b.format, pcm: data}
}

// frames [from, to) as a new buffer
func (b *Buffer) Slice(from, to int) *Buffer {
	if from < 0 {
		from = 0
	}
	if to > b.Frames() {
		to = b.Frames()
	}
	if from >= to {
		return Empty(b.format)
	}
	frameSize := b.format.FrameSize()
	data := make([]byte, (to-from)*frameSize)
	copy(data, b.pcm[from*frameSize:to*frameSize])
	return &Buffer{format: b.format, pcm: data}
}

func (b *Buffer) AppendSilenceFrames(frames int) {
	if frames <= 0 {
		return
	}
	b.pcm = append(b.pcm, make([]byte, frames*b.format.FrameSize())...)
}

// appends other's frames; formats must match
func (b *Buffer) Append(other *Buffer) error {
	if other == nil || len(other.pcm) == 0 {
		return nil
	}
	if other.format != b.format {
		return fmt.Errorf(
			"%w: cannot append %s to %s",
			ErrInvalidFormat,
			other.format,
			b.format,
		)
	}
	b.pcm = append(b.pcm, other.pcm...)
	return nil
}

// true when every sample in frames [from, to) is zero
func (b *Buffer) IsSilent(from, to int) bool {
	seg := b.Slice(from, to)
	for _, v := range seg.pcm {
		if v != 0 {
			return false
		}
	}
	return true
}
