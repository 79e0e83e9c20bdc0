package ft8

import (
	"encoding/hex"
	"fmt"
)

/*
 * LDPC(174,91) encoding and belief propagation decoding
 */

// Parity structure derived from ldpcMn at package init
var (
	checkBits [FTX_LDPC_M][]int  // codeword bits (0-based) in each check
	bitChecks [FTX_LDPC_N][3]int // checks (0-based) each bit takes part in
	bitSlot   [FTX_LDPC_N][3]int // position of the bit within checkBits[bitChecks[n][i]]
	generator [FTX_LDPC_M][FTX_LDPC_K_BYTES]uint8
)

func init() {
	for n := 0; n < FTX_LDPC_N; n++ {
		for i := 0; i < 3; i++ {
			m := int(ldpcMn[n][i]) - 1
			bitChecks[n][i] = m
			bitSlot[n][i] = len(checkBits[m])
			checkBits[m] = append(checkBits[m], n)
		}
	}

	for i, row := range ldpcGenerator {
		b, err := hex.DecodeString(row + "0")
		if err != nil || len(b) != FTX_LDPC_K_BYTES {
			panic(fmt.Sprintf("ft8: malformed generator row %d", i))
		}
		copy(generator[i][:], b)
	}
}

// LDPCResult is the outcome of belief propagation decoding
type LDPCResult struct {
	Bits       []uint8 // Hard-decision codeword (174 bits)
	Errors     int     // Fewest unsatisfied parity checks seen (0 = valid codeword)
	Iterations int     // Iterations used
	Converged  bool
}

// EncodeCodeword appends 83 parity bits to 91 message bits (MSB first in a91),
// returning the systematic 174-bit codeword as a 0/1 array
func EncodeCodeword(a91 []uint8) []uint8 {
	codeword := make([]uint8, FTX_LDPC_N)
	copy(codeword, UnpackBits(a91, FTX_LDPC_K))

	for i := 0; i < FTX_LDPC_M; i++ {
		var nsum uint8
		for j := 0; j < FTX_LDPC_K_BYTES; j++ {
			nsum ^= parity8(a91[j] & generator[i][j])
		}
		codeword[FTX_LDPC_K+i] = nsum & 1
	}
	return codeword
}

// parity8 returns the XOR of all bits of x in bit 0
func parity8(x uint8) uint8 {
	x ^= x >> 4
	x ^= x >> 2
	x ^= x >> 1
	return x & 1
}

// LDPCDecode decodes a 174-bit codeword using belief propagation
// llr: 174 log-likelihood values, positive favours bit 1
// maxIters: maximum number of iterations (typically 25)
func LDPCDecode(llr []float32, maxIters int) LDPCResult {
	var tov [FTX_LDPC_N][3]float32 // check-to-variable messages
	var toc [FTX_LDPC_M][7]float32 // variable-to-check messages (tanh domain)

	plain := make([]uint8, FTX_LDPC_N)
	res := LDPCResult{Bits: plain, Errors: FTX_LDPC_M}

	for iter := 0; iter < maxIters; iter++ {
		res.Iterations = iter + 1

		// Hard decision (tov is zero on the first pass)
		plainSum := 0
		for n := 0; n < FTX_LDPC_N; n++ {
			sum := clampLLR(llr[n]) + tov[n][0] + tov[n][1] + tov[n][2]
			if sum > 0 {
				plain[n] = 1
			} else {
				plain[n] = 0
			}
			plainSum += int(plain[n])
		}

		// The all-zero word satisfies every check but is never transmitted
		if plainSum == 0 {
			res.Errors = FTX_LDPC_M
			break
		}

		errors := LDPCCheck(plain)
		if errors < res.Errors {
			res.Errors = errors
		}
		if errors == 0 {
			res.Converged = true
			break
		}

		// Variable nodes to check nodes
		for m := 0; m < FTX_LDPC_M; m++ {
			for idx, n := range checkBits[m] {
				Tnm := clampLLR(llr[n])
				for i := 0; i < 3; i++ {
					if bitChecks[n][i] != m {
						Tnm += tov[n][i]
					}
				}
				toc[m][idx] = fastTanh(-Tnm / 2.0)
			}
		}

		// Check nodes to variable nodes
		for n := 0; n < FTX_LDPC_N; n++ {
			for i := 0; i < 3; i++ {
				m := bitChecks[n][i]
				Tmn := float32(1.0)
				for idx := range checkBits[m] {
					if idx != bitSlot[n][i] {
						Tmn *= toc[m][idx]
					}
				}
				tov[n][i] = -2.0 * fastAtanh(Tmn)
			}
		}
	}

	return res
}

// LDPCCheck returns the number of unsatisfied parity checks (0 = valid codeword)
func LDPCCheck(codeword []uint8) int {
	errors := 0
	for m := 0; m < FTX_LDPC_M; m++ {
		x := uint8(0)
		for _, n := range checkBits[m] {
			x ^= codeword[n]
		}
		if x != 0 {
			errors++
		}
	}
	return errors
}

const maxLLR = 100.0

func clampLLR(x float32) float32 {
	if x > maxLLR {
		return maxLLR
	}
	if x < -maxLLR {
		return -maxLLR
	}
	return x
}

// fastTanh computes a rational approximation of tanh(x)
func fastTanh(x float32) float32 {
	if x < -4.97 {
		return -1.0
	}
	if x > 4.97 {
		return 1.0
	}

	x2 := x * x
	a := x * (945.0 + x2*(105.0+x2))
	b := 945.0 + x2*(420.0+x2*15.0)
	return a / b
}

// fastAtanh computes a rational approximation of atanh(x)
func fastAtanh(x float32) float32 {
	x2 := x * x
	a := x * (945.0 + x2*(-735.0+x2*64.0))
	b := 945.0 + x2*(-1050.0+x2*225.0)
	return a / b
}
