package ft8

import (
	"fmt"
	"math"
)

/*
 * GFSK waveform synthesis
 * Gaussian-smoothed continuous-phase FSK with raised-cosine ramps
 */

// gfskConstK is pi*sqrt(2/ln 2)
const gfskConstK = 5.336446

// SynthConfig controls waveform generation
type SynthConfig struct {
	Protocol   Protocol
	SampleRate int
	Frequency  float64 // Frequency of tone 0, Hz
	Amplitude  float64 // Peak amplitude
	SymbolBT   float64 // Gaussian filter bandwidth-time product
	PadToSlot  bool    // Centre the waveform in a slot of silence
}

// gfskPulse computes the frequency pulse spanning three symbols
func gfskPulse(nSpsym int, symbolBT float64) []float64 {
	pulse := make([]float64, 3*nSpsym)
	for i := range pulse {
		t := float64(i)/float64(nSpsym) - 1.5
		arg1 := gfskConstK * symbolBT * (t + 0.5)
		arg2 := gfskConstK * symbolBT * (t - 0.5)
		pulse[i] = (math.Erf(arg1) - math.Erf(arg2)) / 2
	}
	return pulse
}

// Synthesize renders a tone sequence as audio
func Synthesize(tones []uint8, cfg SynthConfig) (AudioSamples, error) {
	if !cfg.Protocol.Valid() {
		return AudioSamples{}, fmt.Errorf("%w: %d", ErrInvalidProtocol, int(cfg.Protocol))
	}
	if cfg.SampleRate <= 0 || cfg.SymbolBT <= 0 || cfg.Amplitude <= 0 {
		return AudioSamples{}, fmt.Errorf("%w: sample rate, symbol BT and amplitude must be positive", ErrInvalidConfig)
	}
	if len(tones) != cfg.Protocol.NumSymbols() {
		return AudioSamples{}, fmt.Errorf("%w: %s needs %d symbols, got %d",
			ErrInvalidTones, cfg.Protocol, cfg.Protocol.NumSymbols(), len(tones))
	}
	for i, t := range tones {
		if int(t) >= cfg.Protocol.NumTones() {
			return AudioSamples{}, fmt.Errorf("%w: symbol %d has tone %d", ErrInvalidTones, i, t)
		}
	}

	nSym := len(tones)
	nSpsym := int(0.5 + float64(cfg.SampleRate)*cfg.Protocol.SymbolPeriod())
	nWave := nSym * nSpsym

	// Instantaneous phase increment per sample, with one dummy symbol at each end
	dphiPeak := 2 * math.Pi / float64(nSpsym)
	dphi := make([]float64, nWave+2*nSpsym)
	base := 2 * math.Pi * cfg.Frequency / float64(cfg.SampleRate)
	for i := range dphi {
		dphi[i] = base
	}

	pulse := gfskPulse(nSpsym, cfg.SymbolBT)
	for i, tone := range tones {
		ib := i * nSpsym
		for j, p := range pulse {
			dphi[j+ib] += dphiPeak * float64(tone) * p
		}
	}

	// Dummy symbols repeat the first and last tones
	for j := 0; j < 2*nSpsym; j++ {
		dphi[j] += dphiPeak * pulse[j+nSpsym] * float64(tones[0])
		dphi[j+nSym*nSpsym] += dphiPeak * pulse[j] * float64(tones[nSym-1])
	}

	signal := make([]float32, nWave)
	phi := 0.0
	for k := 0; k < nWave; k++ {
		signal[k] = float32(cfg.Amplitude * math.Sin(phi))
		phi = math.Mod(phi+dphi[k+nSpsym], 2*math.Pi)
	}

	// Envelope shaping over the first and last eighth of a symbol
	nRamp := nSpsym / 8
	for i := 0; i < nRamp; i++ {
		env := float32((1 - math.Cos(2*math.Pi*float64(i)/float64(2*nRamp))) / 2)
		signal[i] *= env
		signal[nWave-1-i] *= env
	}

	if cfg.PadToSlot {
		signal = padToSlot(signal, cfg.SampleRate, cfg.Protocol.SlotTime())
	}

	return AudioSamples{Samples: signal, SampleRate: cfg.SampleRate, Channels: 1}, nil
}

// padToSlot centres signal in a buffer of one slot length
func padToSlot(signal []float32, sampleRate int, slotTime float64) []float32 {
	total := int(float64(sampleRate) * slotTime)
	if total <= len(signal) {
		return signal
	}
	out := make([]float32, total)
	copy(out[(total-len(signal))/2:], signal)
	return out
}
