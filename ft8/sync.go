package ft8

import (
	"math"
	"sort"
)

// noSync scores a position whose sync groups all fall outside the waterfall
const noSync = math.MinInt32

/*
 * Costas Sync Detection
 * Finds candidate signals by detecting Costas sync patterns
 */

// Candidate represents a potential FT8/FT4 signal
type Candidate struct {
	Score      int `json:"score"`       // Sync score (higher = better)
	TimeOffset int `json:"time_offset"` // Index of time block
	FreqOffset int `json:"freq_offset"` // Index of frequency bin
	TimeSub    int `json:"time_sub"`    // Time subdivision index
	FreqSub    int `json:"freq_sub"`    // Frequency subdivision index
}

// fineTime returns the start position in units of 1/TimeOSR symbols
func (c Candidate) fineTime(timeOSR int) int {
	return c.TimeOffset*timeOSR + c.TimeSub
}

// fineFreq returns the frequency in units of 1/FreqOSR tone spacings
func (c Candidate) fineFreq(freqOSR int) int {
	return c.FreqOffset*freqOSR + c.FreqSub
}

// FindCandidates locates the strongest sync patterns. Candidates are ordered
// by score (then earlier time, then lower frequency), and a candidate closer
// than one symbol and one tone to a better one is dropped.
func (wf *Waterfall) FindCandidates(maxCandidates int, minScore int) []Candidate {
	if maxCandidates <= 0 || wf.NumBlocks == 0 {
		return nil
	}

	numTones := wf.Protocol.NumTones()
	// Signals may start up to 10 symbols before the audio does, and late
	// enough that their last sync group is 10 symbols past its end
	maxOffset := wf.NumBlocks - wf.Protocol.NumSymbols() + 10
	if maxOffset < 20 {
		maxOffset = 20
	}

	var found []Candidate
	for timeSub := 0; timeSub < wf.TimeOSR; timeSub++ {
		for freqSub := 0; freqSub < wf.FreqOSR; freqSub++ {
			for timeOffset := -10; timeOffset < maxOffset; timeOffset++ {
				// Frequency offset must fit all tones within the waterfall
				for freqOffset := 0; freqOffset+numTones-1 < wf.NumBins; freqOffset++ {
					score := wf.syncScore(timeOffset, freqOffset, timeSub, freqSub)
					if score < minScore {
						continue
					}
					found = append(found, Candidate{
						Score:      score,
						TimeOffset: timeOffset,
						FreqOffset: freqOffset,
						TimeSub:    timeSub,
						FreqSub:    freqSub,
					})
				}
			}
		}
	}

	sort.Slice(found, func(i, j int) bool {
		a, b := found[i], found[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if ta, tb := a.fineTime(wf.TimeOSR), b.fineTime(wf.TimeOSR); ta != tb {
			return ta < tb
		}
		return a.fineFreq(wf.FreqOSR) < b.fineFreq(wf.FreqOSR)
	})

	return wf.dedupCandidates(found, maxCandidates)
}

// dedupCandidates walks sorted candidates, keeping one per symbol/tone cell
func (wf *Waterfall) dedupCandidates(sorted []Candidate, maxCandidates int) []Candidate {
	kept := make([]Candidate, 0, min(maxCandidates, len(sorted)))
	for _, c := range sorted {
		if len(kept) >= maxCandidates {
			break
		}
		dup := false
		for _, k := range kept {
			dt := abs(c.fineTime(wf.TimeOSR) - k.fineTime(wf.TimeOSR))
			df := abs(c.fineFreq(wf.FreqOSR) - k.fineFreq(wf.FreqOSR))
			if dt < wf.TimeOSR && df < wf.FreqOSR {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, c)
		}
	}
	return kept
}

// syncScore averages the difference between each expected sync cell and its
// neighbours one tone away and one symbol away within the sync group
func (wf *Waterfall) syncScore(timeOffset, freqOffset, timeSub, freqSub int) int {
	score := 0
	numAverage := 0
	numTones := wf.Protocol.NumTones()
	syncLen := wf.Protocol.syncLength()

	for m := 0; m < wf.Protocol.numSync(); m++ {
		for k := 0; k < syncLen; k++ {
			blockAbs := timeOffset + wf.Protocol.syncSymbol(m, k)

			if blockAbs < 0 {
				continue
			}
			if blockAbs >= wf.NumBlocks {
				break
			}

			sm := wf.Protocol.syncTone(m, k)
			expected := int(wf.mag(blockAbs, freqOffset+sm, timeSub, freqSub))

			if sm > 0 {
				score += expected - int(wf.mag(blockAbs, freqOffset+sm-1, timeSub, freqSub))
				numAverage++
			}
			if sm < numTones-1 {
				score += expected - int(wf.mag(blockAbs, freqOffset+sm+1, timeSub, freqSub))
				numAverage++
			}
			if k > 0 && blockAbs > 0 {
				score += expected - int(wf.mag(blockAbs-1, freqOffset+sm, timeSub, freqSub))
				numAverage++
			}
			if k+1 < syncLen && blockAbs+1 < wf.NumBlocks {
				score += expected - int(wf.mag(blockAbs+1, freqOffset+sm, timeSub, freqSub))
				numAverage++
			}
		}
	}

	if numAverage == 0 {
		return noSync
	}
	return score / numAverage
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
