package ft8

import (
	"math"
)

/*
 * SNR estimation
 * Signal power at the decoded tone cells against a lower-envelope noise
 * baseline, referred to a 2500 Hz bandwidth
 */

const (
	MinSNR = -30.0 // dB
	MaxSNR = 49.0  // dB

	snrReferenceBandwidth = 2500.0 // Hz
	hannENBW              = 1.5    // equivalent noise bandwidth of the Hann window, bins
)

// cellPower converts a stored waterfall value to linear power
func cellPower(v uint8) float64 {
	return math.Pow(10.0, (float64(v)-240.0)/20.0)
}

// CalculateSNR estimates the SNR of a decoded candidate whose channel
// symbols are tones
func CalculateSNR(wf *Waterfall, cand Candidate, tones []uint8) float64 {
	var xsig float64
	validSymbols := 0
	for i, tone := range tones {
		block := cand.TimeOffset + i
		if block < 0 || block >= wf.NumBlocks {
			continue
		}
		xsig += cellPower(wf.mag(block, cand.FreqOffset+int(tone), cand.TimeSub, cand.FreqSub))
		validSymbols++
	}
	if validSymbols == 0 {
		return MinSNR
	}
	xsig /= float64(validSymbols)

	xbase := noiseFloor(wf, cand)
	if xbase <= 0 {
		return MaxSNR
	}

	excess := xsig/xbase - 1.0
	if excess <= 0 {
		return MinSNR
	}

	binWidth := 1.0 / (wf.SymbolPeriod * float64(wf.FreqOSR))
	snr := 10.0*math.Log10(excess) + 10.0*math.Log10(hannENBW*binWidth/snrReferenceBandwidth)
	return math.Max(MinSNR, math.Min(MaxSNR, snr))
}

// noiseFloor estimates the linear noise power per bin at the candidate's
// centre frequency from the time-averaged spectrum
func noiseFloor(wf *Waterfall, cand Candidate) float64 {
	if wf.NumBlocks == 0 || wf.NumBins == 0 {
		return 0
	}

	savg := make([]float64, wf.NumBins)
	for block := 0; block < wf.NumBlocks; block++ {
		row := wf.Mag[wf.index(block, cand.TimeSub, cand.FreqSub):]
		for bin := 0; bin < wf.NumBins; bin++ {
			savg[bin] += cellPower(row[bin])
		}
	}
	for i := range savg {
		savg[i] = 10.0 * math.Log10(1e-30+savg[i]/float64(wf.NumBlocks))
	}

	sbase := calculateBaseline(savg)
	centre := cand.FreqOffset + wf.Protocol.NumTones()/2
	centre = max(0, min(centre, len(sbase)-1))
	return math.Pow(10.0, sbase[centre]/10.0)
}
