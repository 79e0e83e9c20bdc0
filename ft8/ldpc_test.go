package ft8

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// randomCodeword encodes a random payload with a valid CRC
func randomCodeword(rng *rand.Rand) []uint8 {
	var payload [FTX_PAYLOAD_SIZE]uint8
	for i := range payload {
		payload[i] = uint8(rng.IntN(256))
	}
	a91 := AddCRC(payload)
	return EncodeCodeword(a91[:])
}

// codewordLLR maps bits to LLRs of the given magnitude, positive for 1
func codewordLLR(codeword []uint8, magnitude float32) []float32 {
	llr := make([]float32, len(codeword))
	for i, b := range codeword {
		if b == 1 {
			llr[i] = magnitude
		} else {
			llr[i] = -magnitude
		}
	}
	return llr
}

func TestParityTables(t *testing.T) {
	total := 0
	for m := 0; m < FTX_LDPC_M; m++ {
		n := len(checkBits[m])
		assert.True(t, n == 6 || n == 7, "check %d has %d bits", m, n)
		total += n
	}
	assert.Equal(t, 3*FTX_LDPC_N, total)
}

func TestEncodedCodewordsSatisfyChecks(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 200; i++ {
		codeword := randomCodeword(rng)
		require.Len(t, codeword, FTX_LDPC_N)
		require.Equal(t, 0, LDPCCheck(codeword), "codeword %d", i)
	}
}

func TestEncodeCodewordIsSystematic(t *testing.T) {
	packed, err := PackMessage("CQ W1ABC FN42", nil)
	require.NoError(t, err)
	a91 := AddCRC(packed.Payload)
	codeword := EncodeCodeword(a91[:])
	assert.Equal(t, a91[:], PackBits(codeword[:FTX_LDPC_K], FTX_LDPC_K))
}

func TestLDPCDecodeClean(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	codeword := randomCodeword(rng)

	res := LDPCDecode(codewordLLR(codeword, 5), 25)
	assert.True(t, res.Converged)
	assert.Equal(t, 0, res.Errors)
	assert.Equal(t, 1, res.Iterations)
	assert.Equal(t, codeword, res.Bits)
}

func TestLDPCDecodeCorrectsErrors(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	codeword := randomCodeword(rng)

	llr := codewordLLR(codeword, 4)
	// Weakly wrong decisions on a handful of bits
	for _, n := range []int{3, 40, 77, 120, 170} {
		llr[n] = -llr[n] / 4
	}
	require.NotEqual(t, 0, LDPCCheck(hardDecision(llr)))

	res := LDPCDecode(llr, 25)
	require.True(t, res.Converged)
	assert.Equal(t, codeword, res.Bits)
	assert.Greater(t, res.Iterations, 1)
}

func TestLDPCErrorsNonIncreasing(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 8))
	codeword := randomCodeword(rng)
	llr := codewordLLR(codeword, 1)
	for i := range llr {
		llr[i] += float32(rng.NormFloat64() * 1.5)
	}

	prev := FTX_LDPC_M + 1
	for iters := 1; iters <= 30; iters++ {
		res := LDPCDecode(llr, iters)
		assert.LessOrEqual(t, res.Errors, prev, "iterations %d", iters)
		prev = res.Errors
	}
}

func TestLDPCRejectsAllZero(t *testing.T) {
	llr := make([]float32, FTX_LDPC_N)
	for i := range llr {
		llr[i] = -10
	}
	res := LDPCDecode(llr, 25)
	assert.False(t, res.Converged)
	assert.Equal(t, FTX_LDPC_M, res.Errors)
}

func TestLDPCClampsExtremeLLRs(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 10))
	codeword := randomCodeword(rng)
	res := LDPCDecode(codewordLLR(codeword, 1e6), 25)
	assert.True(t, res.Converged)
	assert.Equal(t, codeword, res.Bits)
}

func TestFastTanhAtanh(t *testing.T) {
	for _, x := range []float32{-1, -0.5, -0.25, 0, 0.25, 0.5, 1} {
		assert.InDelta(t, x, fastAtanh(fastTanh(x)), 0.01)
	}
	assert.InDelta(t, 1.0, fastTanh(10), 1e-6)
	assert.InDelta(t, -1.0, fastTanh(-10), 1e-6)
}

func hardDecision(llr []float32) []uint8 {
	bits := make([]uint8, len(llr))
	for i, v := range llr {
		if v > 0 {
			bits[i] = 1
		}
	}
	return bits
}
