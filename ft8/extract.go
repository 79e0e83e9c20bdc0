package ft8

import (
	"math"
)

/*
 * Symbol Extraction
 * Extracts soft-decision log-likelihood ratios from waterfall
 */

// ExtractLikelihood extracts 174 log-likelihood values for LDPC decoding.
// Positive values favour bit 1. Data symbols outside the waterfall yield 0,
// as does every symbol of a candidate that does not address the band.
func ExtractLikelihood(wf *Waterfall, cand Candidate) []float32 {
	log174 := make([]float32, FTX_LDPC_N)
	if wf.CheckCandidate(cand) != nil {
		return log174
	}
	bps := wf.Protocol.BitsPerSymbol()

	for k := 0; k < wf.Protocol.NumDataSymbols(); k++ {
		block := cand.TimeOffset + wf.Protocol.dataSymbol(k)
		if block < 0 || block >= wf.NumBlocks {
			continue
		}

		row := wf.Mag[wf.index(block, cand.TimeSub, cand.FreqSub)+cand.FreqOffset:]
		logl := log174[bps*k : bps*k+bps]
		if wf.Protocol == ProtocolFT4 {
			extractSymbolFT4(row, logl)
		} else {
			extractSymbolFT8(row, logl)
		}
	}

	normalizeLikelihood(log174)
	return log174
}

// extractSymbolFT8 extracts 3 soft bits from one FT8 symbol (8-FSK)
func extractSymbolFT8(mag []uint8, logl []float32) {
	// s2[j] is the power of the tone carrying Gray-decoded value j, in dB
	var s2 [8]float32
	for j := 0; j < 8; j++ {
		s2[j] = float32(mag[FT8_Gray_map[j]])*0.5 - 120.0
	}

	// logl[i] = max(values where bit i = 1) - max(values where bit i = 0)
	logl[0] = max(s2[4], s2[5], s2[6], s2[7]) - max(s2[0], s2[1], s2[2], s2[3])
	logl[1] = max(s2[2], s2[3], s2[6], s2[7]) - max(s2[0], s2[1], s2[4], s2[5])
	logl[2] = max(s2[1], s2[3], s2[5], s2[7]) - max(s2[0], s2[2], s2[4], s2[6])
}

// extractSymbolFT4 extracts 2 soft bits from one FT4 symbol (4-FSK)
func extractSymbolFT4(mag []uint8, logl []float32) {
	var s2 [4]float32
	for j := 0; j < 4; j++ {
		s2[j] = float32(mag[FT4_Gray_map[j]])*0.5 - 120.0
	}

	logl[0] = max(s2[2], s2[3]) - max(s2[0], s2[1])
	logl[1] = max(s2[1], s2[3]) - max(s2[0], s2[2])
}

// normalizeLikelihood scales the values to variance 24
func normalizeLikelihood(log174 []float32) {
	var sum, sum2 float32
	for _, v := range log174 {
		sum += v
		sum2 += v * v
	}

	invN := 1.0 / float32(len(log174))
	variance := (sum2 - (sum * sum * invN)) * invN
	if !(variance > 0) {
		return
	}

	normFactor := float32(math.Sqrt(float64(24.0 / variance)))
	for i := range log174 {
		log174[i] *= normFactor
	}
}
