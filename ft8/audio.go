package ft8

import (
	"fmt"
	"math"
)

// AudioSamples is a buffer of normalised samples in [-1, 1].
// Multi-channel audio is interleaved.
type AudioSamples struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Duration returns the length of the buffer in seconds
func (a AudioSamples) Duration() float64 {
	if a.SampleRate <= 0 {
		return 0
	}
	return float64(a.frames()) / float64(a.SampleRate)
}

func (a AudioSamples) frames() int {
	ch := a.Channels
	if ch <= 0 {
		ch = 1
	}
	return len(a.Samples) / ch
}

// Mono returns the first channel of the buffer
func (a AudioSamples) Mono() AudioSamples {
	if a.Channels <= 1 {
		return AudioSamples{Samples: a.Samples, SampleRate: a.SampleRate, Channels: 1}
	}
	n := a.frames()
	mono := make([]float32, n)
	for i := 0; i < n; i++ {
		mono[i] = a.Samples[i*a.Channels]
	}
	return AudioSamples{Samples: mono, SampleRate: a.SampleRate, Channels: 1}
}

func (a AudioSamples) validate() error {
	if a.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidConfig, a.SampleRate)
	}
	if a.Channels < 0 {
		return fmt.Errorf("%w: channel count must not be negative, got %d", ErrInvalidConfig, a.Channels)
	}
	return nil
}

// Pcm16ToFloat32 converts signed 16-bit PCM to samples in [-1, 1)
func Pcm16ToFloat32(pcm []int16) []float32 {
	out := make([]float32, len(pcm))
	for i, s := range pcm {
		out[i] = float32(s) / 32768.0
	}
	return out
}

// Float32ToPcm16 converts samples to signed 16-bit PCM, clipping to [-1, 1]
func Float32ToPcm16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := math.Max(-1, math.Min(1, float64(s)))
		out[i] = int16(math.Round(v * 32767))
	}
	return out
}
