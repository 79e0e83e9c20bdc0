package ft8

import (
	"fmt"
	"runtime"
)

/*
 * Decoder and encoder configuration
 */

// DecoderConfig contains decoder configuration
type DecoderConfig struct {
	Protocol           Protocol `yaml:"protocol" json:"protocol"`
	MinScore           int      `yaml:"min_score" json:"min_score"`                       // Minimum sync score for candidates
	MaxCandidates      int      `yaml:"max_candidates" json:"max_candidates"`             // Maximum number of candidates decoded per slot
	MaxLDPCIterations  int      `yaml:"max_ldpc_iterations" json:"max_ldpc_iterations"`   // Belief propagation iteration budget
	MaxDecodedMessages int      `yaml:"max_decoded_messages" json:"max_decoded_messages"` // Cap on unique messages returned
	FreqOSR            int      `yaml:"freq_osr" json:"freq_osr"`                         // Frequency oversampling rate
	TimeOSR            int      `yaml:"time_osr" json:"time_osr"`                         // Time oversampling rate
	FreqMin            float64  `yaml:"freq_min" json:"freq_min"`                         // Hz
	FreqMax            float64  `yaml:"freq_max" json:"freq_max"`                         // Hz
	Workers            int      `yaml:"workers" json:"workers"`                           // Concurrent candidate decodes (0 = GOMAXPROCS)
}

// DefaultDecoderConfig returns default configuration
func DefaultDecoderConfig() DecoderConfig {
	return DecoderConfig{
		Protocol:           ProtocolFT8,
		MinScore:           10,
		MaxCandidates:      140,
		MaxLDPCIterations:  25,
		MaxDecodedMessages: 50,
		FreqOSR:            2,
		TimeOSR:            2,
		FreqMin:            200,
		FreqMax:            3000,
	}
}

// Validate checks that every field is in range
func (c DecoderConfig) Validate() error {
	if !c.Protocol.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidProtocol, int(c.Protocol))
	}
	switch {
	case c.MaxCandidates <= 0:
		return fmt.Errorf("%w: max_candidates must be positive, got %d", ErrInvalidConfig, c.MaxCandidates)
	case c.MaxLDPCIterations <= 0:
		return fmt.Errorf("%w: max_ldpc_iterations must be positive, got %d", ErrInvalidConfig, c.MaxLDPCIterations)
	case c.MaxDecodedMessages <= 0:
		return fmt.Errorf("%w: max_decoded_messages must be positive, got %d", ErrInvalidConfig, c.MaxDecodedMessages)
	case c.FreqOSR < 1 || c.FreqOSR > 8:
		return fmt.Errorf("%w: freq_osr must be in 1..8, got %d", ErrInvalidConfig, c.FreqOSR)
	case c.TimeOSR < 1 || c.TimeOSR > 8:
		return fmt.Errorf("%w: time_osr must be in 1..8, got %d", ErrInvalidConfig, c.TimeOSR)
	case c.FreqMin < 0:
		return fmt.Errorf("%w: freq_min must not be negative, got %.1f", ErrInvalidConfig, c.FreqMin)
	case c.FreqMax <= c.FreqMin:
		return fmt.Errorf("%w: freq_max %.1f must exceed freq_min %.1f", ErrInvalidConfig, c.FreqMax, c.FreqMin)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidConfig, c.Workers)
	}
	return nil
}

func (c DecoderConfig) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// EncoderConfig contains audio synthesis settings
type EncoderConfig struct {
	Protocol   Protocol `yaml:"protocol" json:"protocol"`
	Frequency  float64  `yaml:"frequency" json:"frequency"`     // Base tone frequency, Hz
	SampleRate int      `yaml:"sample_rate" json:"sample_rate"` // Hz
	SymbolBT   float64  `yaml:"symbol_bt" json:"symbol_bt"`     // 0 = protocol default
	Amplitude  float64  `yaml:"amplitude" json:"amplitude"`     // Peak amplitude, 0 < a <= 1
	PadToSlot  bool     `yaml:"pad_to_slot" json:"pad_to_slot"` // Centre the waveform in a silent slot
}

// DefaultEncoderConfig returns default configuration
func DefaultEncoderConfig() EncoderConfig {
	return EncoderConfig{
		Protocol:   ProtocolFT8,
		Frequency:  1000,
		SampleRate: 12000,
		Amplitude:  1.0,
	}
}

// Validate checks that every field is in range
func (c EncoderConfig) Validate() error {
	if !c.Protocol.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidProtocol, int(c.Protocol))
	}
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: sample_rate must be positive, got %d", ErrInvalidConfig, c.SampleRate)
	case c.Frequency <= 0:
		return fmt.Errorf("%w: frequency must be positive, got %.1f", ErrInvalidConfig, c.Frequency)
	case c.Frequency+float64(c.Protocol.NumTones())*c.Protocol.ToneSpacing() >= float64(c.SampleRate)/2:
		return fmt.Errorf("%w: frequency %.1f Hz does not fit below Nyquist at %d Hz", ErrInvalidConfig, c.Frequency, c.SampleRate)
	case c.SymbolBT < 0:
		return fmt.Errorf("%w: symbol_bt must not be negative, got %.2f", ErrInvalidConfig, c.SymbolBT)
	case c.Amplitude <= 0 || c.Amplitude > 1:
		return fmt.Errorf("%w: amplitude must be in (0, 1], got %.2f", ErrInvalidConfig, c.Amplitude)
	}
	return nil
}

// synthConfig converts encoder settings into synthesizer settings
func (c EncoderConfig) synthConfig() SynthConfig {
	bt := c.SymbolBT
	if bt == 0 {
		bt = c.Protocol.SymbolBT()
	}
	return SynthConfig{
		Protocol:   c.Protocol,
		SampleRate: c.SampleRate,
		Frequency:  c.Frequency,
		Amplitude:  c.Amplitude,
		SymbolBT:   bt,
		PadToSlot:  c.PadToSlot,
	}
}
