package transcriber

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/voicewin/voicewin/internal/recording"
)

// EncodeWAV wraps raw capture-format PCM in a WAV container.
func EncodeWAV(pcm []byte) ([]byte, error) {
	out := &memFile{}
	enc := wav.NewEncoder(out, recording.SampleRate, 16, recording.Channels, 1)

	samples := make([]int, len(pcm)/recording.BytesPerSample)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: recording.Channels, SampleRate: recording.SampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close wav: %w", err)
	}
	return out.buf, nil
}

// DecodeWAV reads a 16 kHz 16-bit WAV file and returns mono PCM in the capture
// format. Multi-channel input is downmixed by averaging.
func DecodeWAV(r io.ReadSeeker) ([]byte, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("not a valid WAV file")
	}
	if dec.SampleRate != recording.SampleRate {
		return nil, fmt.Errorf("unsupported sample rate %d (want %d)", dec.SampleRate, recording.SampleRate)
	}
	if dec.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported bit depth %d (want 16)", dec.BitDepth)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read pcm: %w", err)
	}

	channels := int(dec.NumChans)
	if channels < 1 {
		channels = 1
	}
	frames := len(buf.Data) / channels
	out := make([]byte, frames*recording.BytesPerSample)
	for f := 0; f < frames; f++ {
		var sum int
		for c := 0; c < channels; c++ {
			sum += buf.Data[f*channels+c]
		}
		binary.LittleEndian.PutUint16(out[f*2:], uint16(int16(sum/channels)))
	}
	return out, nil
}

// memFile is an in-memory io.WriteSeeker; the WAV encoder seeks back to patch sizes.
type memFile struct {
	buf []byte
	pos int
}

func (m *memFile) Write(p []byte) (int, error) {
	end := m.pos + len(p)
	if end > len(m.buf) {
		if end > cap(m.buf) {
			grown := make([]byte, end, 2*end)
			copy(grown, m.buf)
			m.buf = grown
		} else {
			m.buf = m.buf[:end]
		}
	}
	copy(m.buf[m.pos:], p)
	m.pos = end
	return len(p), nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var base int
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = m.pos
	case io.SeekEnd:
		base = len(m.buf)
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	pos := base + int(offset)
	if pos < 0 {
		return 0, errors.New("negative seek position")
	}
	m.pos = pos
	return int64(pos), nil
}
