package audio

import (
	"bytes"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavFormatPCM = 1

// decodes a PCM WAV file into a buffer keeping the file's own format
func DecodeWAV(r io.ReadSeeker) (*Buffer, error) {
	decoder := wav.NewDecoder(r)
	// IsValidFile rejects zero-length data chunks, which are legal clips here
	decoder.ReadInfo()
	if err := decoder.Err(); err != nil {
		return nil, fmt.Errorf("not a valid WAV file: %w", err)
	}
	if decoder.NumChans < 1 || decoder.BitDepth < 8 {
		return nil, fmt.Errorf("not a valid WAV file")
	}
	// 8-bit WAV is unsigned; FFmpegDecoder converts it to the run format
	if decoder.BitDepth == 8 {
		return nil, fmt.Errorf("%w: 8-bit WAV is not supported in-process", ErrInvalidFormat)
	}

	intBuf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read PCM data: %w", err)
	}

	format := Format{
		SampleRate: int(decoder.SampleRate),
		Channels:   int(decoder.NumChans),
		BitDepth:   int(decoder.BitDepth),
	}
	if err := format.Validate(); err != nil {
		return nil, err
	}

	return &Buffer{
		format: format,
		pcm:    intsToPCM(intBuf.Data, format.BitDepth),
	}, nil
}

// DecodeWAVBytes is DecodeWAV over an in-memory file.
func DecodeWAVBytes(data []byte) (*Buffer, error) {
	return DecodeWAV(bytes.NewReader(data))
}

// writes buf as a PCM WAV file
func EncodeWAV(w io.WriteSeeker, buf *Buffer) error {
	format := buf.Format()
	encoder := wav.NewEncoder(
		w,
		format.SampleRate,
		format.BitDepth,
		format.Channels,
		wavFormatPCM,
	)

	intBuf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: format.Channels,
			SampleRate:  format.SampleRate,
		},
		Data:           pcmToInts(buf.pcm, format.BitDepth),
		SourceBitDepth: format.BitDepth,
	}

	if err := encoder.Write(intBuf); err != nil {
		return fmt.Errorf("failed to write WAV samples: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to finalize WAV header: %w", err)
	}
	return nil
}

func intsToPCM(samples []int, bitDepth int) []byte {
	width := bitDepth / 8
	out := make([]byte, len(samples)*width)
	for i, s := range samples {
		v := uint32(int32(s))
		for b := 0; b < width; b++ {
			out[i*width+b] = byte(v >> (8 * b))
		}
	}
	return out
}

func pcmToInts(pcm []byte, bitDepth int) []int {
	width := bitDepth / 8
	out := make([]int, len(pcm)/width)
	for i := range out {
		var v uint32
		for b := 0; b < width; b++ {
			v |= uint32(pcm[i*width+b]) << (8 * b)
		}
		// sign-extend from the sample width
		shift := 32 - bitDepth
		out[i] = int(int32(v<<shift) >> shift)
	}
	return out
}
