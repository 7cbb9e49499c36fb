// Package vad finds the speech region of a recording using a frame classifier.
package vad

import (
	"encoding/binary"
	"math"

	"github.com/voicewin/voicewin/internal/recording"
)

// FrameSamples is the classification window: 512 samples (32 ms at 16 kHz).
const FrameSamples = 512

const frameBytes = FrameSamples * recording.BytesPerSample

// Classifier returns the probability (0..1) that a frame of normalized samples contains speech.
type Classifier interface {
	Classify(frame []float32) float32
}

// EnergyClassifier maps frame RMS to a speech probability.
// An RMS of ReferenceRMS maps to 0.5; twice that saturates at 1.
type EnergyClassifier struct {
	ReferenceRMS float32
}

func NewEnergyClassifier() *EnergyClassifier {
	return &EnergyClassifier{ReferenceRMS: 0.02}
}

func (c *EnergyClassifier) Classify(frame []float32) float32 {
	ref := c.ReferenceRMS
	if ref <= 0 {
		ref = 0.02
	}
	p := calculateRMS(frame) / (2 * ref)
	if p > 1 {
		return 1
	}
	return p
}

func calculateRMS(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return float32(math.Sqrt(sum / float64(len(samples))))
}

type Trimmer struct {
	classifier Classifier
}

func NewTrimmer(classifier Classifier) *Trimmer {
	return &Trimmer{classifier: classifier}
}

// Trim returns the sub-slice of pcm between the first and last speech frames.
// Leading or trailing silence shorter than minSilenceMs is kept. The result is
// empty when no frame scores above threshold.
func (t *Trimmer) Trim(pcm []byte, threshold float32, minSilenceMs int) []byte {
	speech := t.classify(pcm, threshold)

	first, last := -1, -1
	for i, s := range speech {
		if s {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return nil
	}

	minSilenceFrames := minSilenceMs * recording.SampleRate / 1000 / FrameSamples

	start := first * frameBytes
	if first < minSilenceFrames {
		start = 0
	}

	end := (last + 1) * frameBytes
	if len(speech)-1-last < minSilenceFrames {
		end = len(pcm)
	}
	if end > len(pcm) {
		end = len(pcm)
	}

	return pcm[start:end]
}

func (t *Trimmer) classify(pcm []byte, threshold float32) []bool {
	samples := len(pcm) / recording.BytesPerSample
	frames := (samples + FrameSamples - 1) / FrameSamples

	out := make([]bool, frames)
	buf := make([]float32, FrameSamples)
	for f := 0; f < frames; f++ {
		// the final partial frame is zero padded
		for i := range buf {
			idx := f*FrameSamples + i
			if idx >= samples {
				buf[i] = 0
				continue
			}
			s := int16(binary.LittleEndian.Uint16(pcm[idx*2:]))
			buf[i] = float32(s) / 32768
		}
		out[f] = t.classifier.Classify(buf) > threshold
	}
	return out
}
