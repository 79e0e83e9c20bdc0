package ft8

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Lower-envelope baseline fit
const (
	baselineSegments = 10   // spectrum segments
	baselinePercent  = 10   // percentile kept from each segment
	baselineTerms    = 5    // polynomial terms (degree 4)
	baselineOffsetDB = 0.65 // envelope-to-mean correction
)

// calculateBaseline fits a polynomial to the lower envelope of a spectrum
// given in dB and returns its value at every bin
func calculateBaseline(sDB []float64) []float64 {
	npts := len(sDB)
	sbase := make([]float64, npts)
	if npts == 0 {
		return sbase
	}

	nlen := npts / baselineSegments
	if nlen < 1 {
		nlen = 1
	}

	// x is scaled to [-1, 1] to keep the fit well conditioned
	scale := func(i int) float64 {
		if npts == 1 {
			return 0
		}
		return 2*float64(i)/float64(npts-1) - 1
	}

	var xs, ys []float64
	for ja := 0; ja < npts; ja += nlen {
		jb := min(ja+nlen, npts)
		base := pctile(sDB[ja:jb], baselinePercent)
		for i := ja; i < jb; i++ {
			if sDB[i] <= base {
				xs = append(xs, scale(i))
				ys = append(ys, sDB[i])
			}
		}
	}

	coeffs, ok := polyfit(xs, ys, baselineTerms)
	if !ok {
		// Too few points for the fit; fall back to a flat floor
		floor := pctile(sDB, baselinePercent)
		for i := range sbase {
			sbase[i] = floor + baselineOffsetDB
		}
		return sbase
	}

	for i := range sbase {
		t := scale(i)
		v := 0.0
		for j := len(coeffs) - 1; j >= 0; j-- {
			v = v*t + coeffs[j]
		}
		sbase[i] = v + baselineOffsetDB
	}
	return sbase
}

// pctile returns the npct-th percentile of data
func pctile(data []float64, npct int) float64 {
	if len(data) == 0 {
		return 0
	}
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)

	idx := (len(sorted) * npct) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// polyfit solves the least-squares polynomial fit y = sum(c[j] * x^j)
func polyfit(x, y []float64, nterms int) ([]float64, bool) {
	n := len(x)
	if n != len(y) || n < nterms {
		return nil, false
	}

	a := mat.NewDense(n, nterms, nil)
	for i, xi := range x {
		p := 1.0
		for j := 0; j < nterms; j++ {
			a.Set(i, j, p)
			p *= xi
		}
	}
	b := mat.NewVecDense(n, append([]float64(nil), y...))

	var c mat.VecDense
	if err := c.SolveVec(a, b); err != nil {
		return nil, false
	}

	coeffs := make([]float64, nterms)
	for j := range coeffs {
		coeffs[j] = c.AtVec(j)
		if math.IsNaN(coeffs[j]) || math.IsInf(coeffs[j], 0) {
			return nil, false
		}
	}
	return coeffs, true
}
