package ft8

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

/*
 * Waterfall Generation
 * Creates time-frequency representation using FFT
 */

// Waterfall represents the time-frequency power spectrum.
// Magnitudes are stored as 2*dB+240 clamped to 0..255 (0.5 dB steps).
type Waterfall struct {
	MaxBlocks    int      // Number of blocks (symbols) allocated
	NumBlocks    int      // Number of blocks (symbols) stored
	NumBins      int      // Number of tone-spaced frequency bins
	MinBin       int      // Tone-spaced bin of the first stored bin
	TimeOSR      int      // Time oversampling rate
	FreqOSR      int      // Frequency oversampling rate
	Mag          []uint8  // FFT magnitudes [blocks][time_osr][freq_osr][num_bins]
	BlockStride  int      // Helper: time_osr * freq_osr * num_bins
	SymbolPeriod float64  // seconds
	Protocol     Protocol // FT8 or FT4
}

// mag returns the stored value of one cell, 0 outside the grid
func (wf *Waterfall) mag(block, bin, timeSub, freqSub int) uint8 {
	if block < 0 || block >= wf.NumBlocks {
		return 0
	}
	if bin < 0 || bin >= wf.NumBins {
		return 0
	}
	if timeSub < 0 || timeSub >= wf.TimeOSR || freqSub < 0 || freqSub >= wf.FreqOSR {
		return 0
	}
	return wf.Mag[wf.index(block, timeSub, freqSub)+bin]
}

// index returns the offset of bin 0 of a block/time_sub/freq_sub row
func (wf *Waterfall) index(block, timeSub, freqSub int) int {
	return block*wf.BlockStride + (timeSub*wf.FreqOSR+freqSub)*wf.NumBins
}

// Frequency returns the audio frequency of tone 0 for a candidate
func (wf *Waterfall) Frequency(cand Candidate) float64 {
	return (float64(wf.MinBin) + float64(cand.FreqOffset) + float64(cand.FreqSub)/float64(wf.FreqOSR)) / wf.SymbolPeriod
}

// CheckCandidate rejects candidates that do not address a cell of the
// waterfall or whose tones fall outside the band
func (wf *Waterfall) CheckCandidate(cand Candidate) error {
	if cand.TimeSub < 0 || cand.TimeSub >= wf.TimeOSR {
		return fmt.Errorf("%w: time_sub %d outside 0..%d", ErrInvalidConfig, cand.TimeSub, wf.TimeOSR-1)
	}
	if cand.FreqSub < 0 || cand.FreqSub >= wf.FreqOSR {
		return fmt.Errorf("%w: freq_sub %d outside 0..%d", ErrInvalidConfig, cand.FreqSub, wf.FreqOSR-1)
	}
	if last := wf.NumBins - wf.Protocol.NumTones(); cand.FreqOffset < 0 || cand.FreqOffset > last {
		return fmt.Errorf("%w: freq_offset %d outside 0..%d", ErrInvalidConfig, cand.FreqOffset, last)
	}
	return nil
}

// Time returns the start of a candidate relative to the start of the audio
func (wf *Waterfall) Time(cand Candidate) float64 {
	return (float64(cand.TimeOffset) + float64(cand.TimeSub)/float64(wf.TimeOSR)) * wf.SymbolPeriod
}

// Monitor manages DSP processing and waterfall generation
type Monitor struct {
	SymbolPeriod float64    // Symbol period in seconds
	MinBin       int        // First tone-spaced bin in frequency range
	MaxBin       int        // First tone-spaced bin outside frequency range
	BlockSize    int        // Samples per symbol (block)
	SubblockSize int        // Analysis shift size (samples)
	NFFT         int        // FFT size
	Window       []float64  // Hann window including the 2/NFFT normalisation
	LastFrame    []float64  // Current analysis frame
	Waterfall    *Waterfall // Waterfall object

	fft      *fourier.FFT
	timeData []float64
	freqData []complex128
}

// NewMonitor creates a new monitor for waterfall generation
func NewMonitor(sampleRate int, cfg DecoderConfig) (*Monitor, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidConfig, sampleRate)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if nyquist := float64(sampleRate) / 2; cfg.FreqMax >= nyquist {
		return nil, fmt.Errorf("%w: freq_max %.0f Hz must be below the Nyquist frequency %.0f Hz",
			ErrInvalidConfig, cfg.FreqMax, nyquist)
	}

	protocol := cfg.Protocol
	symbolPeriod := protocol.SymbolPeriod()
	blockSize := int(float64(sampleRate) * symbolPeriod)
	subblockSize := blockSize / cfg.TimeOSR
	if subblockSize == 0 {
		return nil, fmt.Errorf("%w: sample rate %d too low for time_osr %d", ErrInvalidConfig, sampleRate, cfg.TimeOSR)
	}

	// One FFT bin per tone spacing / freq_osr
	nfft := blockSize * cfg.FreqOSR

	minBin := int(cfg.FreqMin * symbolPeriod)
	maxBin := int(cfg.FreqMax*symbolPeriod) + 1
	// The guard bin above freq_max stops at Nyquist
	if nyquist := nfft / 2 / cfg.FreqOSR; maxBin > nyquist {
		maxBin = nyquist
	}
	numBins := maxBin - minBin
	if numBins < protocol.NumTones() {
		return nil, fmt.Errorf("%w: band %.0f-%.0f Hz is narrower than one %s signal",
			ErrInvalidConfig, cfg.FreqMin, cfg.FreqMax, protocol)
	}

	maxBlocks := int(protocol.SlotTime() / symbolPeriod)
	blockStride := cfg.TimeOSR * cfg.FreqOSR * numBins

	wf := &Waterfall{
		MaxBlocks:    maxBlocks,
		NumBins:      numBins,
		MinBin:       minBin,
		TimeOSR:      cfg.TimeOSR,
		FreqOSR:      cfg.FreqOSR,
		Mag:          make([]uint8, maxBlocks*blockStride),
		BlockStride:  blockStride,
		SymbolPeriod: symbolPeriod,
		Protocol:     protocol,
	}

	// window[i] = fft_norm * sin²(π*i/N)
	fftNorm := 2.0 / float64(nfft)
	window := make([]float64, nfft)
	for i := 0; i < nfft; i++ {
		x := math.Sin(math.Pi * float64(i) / float64(nfft))
		window[i] = fftNorm * x * x
	}

	return &Monitor{
		SymbolPeriod: symbolPeriod,
		MinBin:       minBin,
		MaxBin:       maxBin,
		BlockSize:    blockSize,
		SubblockSize: subblockSize,
		NFFT:         nfft,
		Window:       window,
		LastFrame:    make([]float64, nfft),
		Waterfall:    wf,
		fft:          fourier.NewFFT(nfft),
		timeData:     make([]float64, nfft),
		freqData:     make([]complex128, nfft/2+1),
	}, nil
}

// Process consumes one block (BlockSize samples) of audio; short frames are
// zero padded and blocks past the slot length are ignored
func (m *Monitor) Process(frame []float32) {
	wf := m.Waterfall
	if wf.NumBlocks >= wf.MaxBlocks {
		return
	}

	framePos := 0
	for timeSub := 0; timeSub < wf.TimeOSR; timeSub++ {
		// Shift the new subblock into the analysis frame
		copy(m.LastFrame, m.LastFrame[m.SubblockSize:])
		tail := m.LastFrame[m.NFFT-m.SubblockSize:]
		for i := range tail {
			if framePos < len(frame) {
				tail[i] = float64(frame[framePos])
			} else {
				tail[i] = 0
			}
			framePos++
		}

		for i := 0; i < m.NFFT; i++ {
			m.timeData[i] = m.LastFrame[i] * m.Window[i]
		}
		m.freqData = m.fft.Coefficients(m.freqData, m.timeData)

		m.extractMagnitudes(timeSub)
	}

	wf.NumBlocks++
}

// extractMagnitudes stores the FFT power of every oversampled bin in the band
func (m *Monitor) extractMagnitudes(timeSub int) {
	wf := m.Waterfall
	for freqSub := 0; freqSub < wf.FreqOSR; freqSub++ {
		row := wf.Mag[wf.index(wf.NumBlocks, timeSub, freqSub):]
		for bin := 0; bin < wf.NumBins; bin++ {
			srcBin := (m.MinBin+bin)*wf.FreqOSR + freqSub
			if srcBin >= len(m.freqData) {
				row[bin] = 0
				continue
			}

			c := m.freqData[srcBin]
			mag2 := real(c)*real(c) + imag(c)*imag(c)
			magDB := 10.0 * math.Log10(1e-12+mag2)

			// -120 dB -> 0, 0 dB -> 240, +7.5 dB -> 255
			scaled := int(2.0*magDB + 240.0)
			if scaled < 0 {
				scaled = 0
			}
			if scaled > 255 {
				scaled = 255
			}
			row[bin] = uint8(scaled)
		}
	}
}

// Analyze computes the waterfall of a slot recording
func Analyze(audio AudioSamples, cfg DecoderConfig) (*Waterfall, error) {
	if err := audio.validate(); err != nil {
		return nil, err
	}
	mon, err := NewMonitor(audio.SampleRate, cfg)
	if err != nil {
		return nil, err
	}

	samples := audio.Mono().Samples
	for pos := 0; pos < len(samples) && mon.Waterfall.NumBlocks < mon.Waterfall.MaxBlocks; pos += mon.BlockSize {
		end := pos + mon.BlockSize
		if end > len(samples) {
			end = len(samples)
		}
		mon.Process(samples[pos:end])
	}
	return mon.Waterfall, nil
}
