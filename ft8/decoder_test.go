package ft8

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSignal struct {
	text      string
	frequency float64
	amplitude float64
}

// slotAudio synthesizes signals centred in one slot and mixes them
func slotAudio(t *testing.T, protocol Protocol, signals ...testSignal) AudioSamples {
	t.Helper()
	mix := AudioSamples{
		Samples:    make([]float32, int(12000*protocol.SlotTime())),
		SampleRate: 12000,
		Channels:   1,
	}
	for _, s := range signals {
		cfg := DefaultEncoderConfig()
		cfg.Protocol = protocol
		cfg.Frequency = s.frequency
		cfg.Amplitude = s.amplitude
		cfg.PadToSlot = true
		_, audio, err := EncodeToAudio(s.text, cfg, nil)
		require.NoError(t, err)
		require.Len(t, audio.Samples, len(mix.Samples))
		for i, v := range audio.Samples {
			mix.Samples[i] += v
		}
	}
	return mix
}

// addNoise adds white Gaussian noise of the given standard deviation
func addNoise(audio AudioSamples, sigma float64, seed uint64) {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	for i := range audio.Samples {
		audio.Samples[i] += float32(rng.NormFloat64() * sigma)
	}
}

func newTestDecoder(t *testing.T, protocol Protocol) *Decoder {
	t.Helper()
	cfg := DefaultDecoderConfig()
	cfg.Protocol = protocol
	d, err := NewDecoder(cfg)
	require.NoError(t, err)
	return d
}

func texts(messages []DecodedMessage) []string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = m.Text
	}
	return out
}

func TestDecodeRoundTrip(t *testing.T) {
	for _, text := range []string{
		"CQ W1ABC FN42",
		"W1ABC K1DEF 73",
		"K1DEF W1ABC RRR",
		"TNX BOB 73 GL",
	} {
		t.Run(text, func(t *testing.T) {
			audio := slotAudio(t, ProtocolFT8, testSignal{text, 1000, 0.5})

			messages, err := newTestDecoder(t, ProtocolFT8).Decode(context.Background(), audio, nil)
			require.NoError(t, err)
			require.Len(t, messages, 1)

			msg := messages[0]
			assert.Equal(t, text, msg.Text)
			assert.Equal(t, ProtocolFT8, msg.Protocol)
			assert.InDelta(t, 1000, msg.Frequency, 3.2)
			assert.Greater(t, msg.TimeOffset, 0.5)
			assert.Less(t, msg.TimeOffset, 2.5)
			assert.GreaterOrEqual(t, msg.SNR, 20.0)
			assert.LessOrEqual(t, msg.SNR, MaxSNR)

			enc, err := Encode(text, ProtocolFT8, nil)
			require.NoError(t, err)
			assert.Equal(t, enc.Hash, msg.Hash)
			assert.Equal(t, enc.Payload, msg.Payload)
			assert.Equal(t, enc.Type, msg.Type)
		})
	}
}

func TestDecodeFT4(t *testing.T) {
	audio := slotAudio(t, ProtocolFT4, testSignal{"CQ W1ABC FN42", 1000, 0.5})

	messages, err := newTestDecoder(t, ProtocolFT4).Decode(context.Background(), audio, nil)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "CQ W1ABC FN42", messages[0].Text)
	assert.Equal(t, ProtocolFT4, messages[0].Protocol)
	assert.InDelta(t, 1000, messages[0].Frequency, 10.5)

	enc, err := Encode("CQ W1ABC FN42", ProtocolFT4, nil)
	require.NoError(t, err)
	assert.Equal(t, enc.Hash, messages[0].Hash)
}

func TestDecodeMultipleSignals(t *testing.T) {
	audio := slotAudio(t, ProtocolFT8,
		testSignal{"CQ W1ABC FN42", 800, 0.3},
		testSignal{"W1ABC K1DEF 73", 1250, 0.3},
		testSignal{"K1DEF W1ABC RRR", 1700, 0.3},
	)

	messages, err := newTestDecoder(t, ProtocolFT8).Decode(context.Background(), audio, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"CQ W1ABC FN42", "W1ABC K1DEF 73", "K1DEF W1ABC RRR"}, texts(messages))

	seen := make(map[uint16]bool)
	for _, m := range messages {
		assert.False(t, seen[m.Hash], "duplicate hash %04x", m.Hash)
		seen[m.Hash] = true
	}
}

func TestDecodeMaxDecodedMessages(t *testing.T) {
	audio := slotAudio(t, ProtocolFT8,
		testSignal{"CQ W1ABC FN42", 800, 0.3},
		testSignal{"W1ABC K1DEF 73", 1250, 0.3},
		testSignal{"K1DEF W1ABC RRR", 1700, 0.3},
	)

	cfg := DefaultDecoderConfig()
	cfg.MaxDecodedMessages = 1
	cfg.Workers = 1
	d, err := NewDecoder(cfg)
	require.NoError(t, err)

	messages, err := d.Decode(context.Background(), audio, nil)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func TestDecodeNoisy(t *testing.T) {
	// 0 dB in 2500 Hz: signal power A²/2 against noise σ²·2500/6000
	const amplitude = 0.1
	audio := slotAudio(t, ProtocolFT8, testSignal{"CQ W1ABC FN42", 1500, amplitude})
	addNoise(audio, 0.1095, 42)

	messages, err := newTestDecoder(t, ProtocolFT8).Decode(context.Background(), audio, nil)
	require.NoError(t, err)
	require.Contains(t, texts(messages), "CQ W1ABC FN42")

	for _, m := range messages {
		if m.Text == "CQ W1ABC FN42" {
			assert.InDelta(t, 0, m.SNR, 6)
		}
	}
}

func TestDecodeSilenceAndNoise(t *testing.T) {
	d := newTestDecoder(t, ProtocolFT8)

	silence := AudioSamples{Samples: make([]float32, 180000), SampleRate: 12000, Channels: 1}
	messages, err := d.Decode(context.Background(), silence, nil)
	require.NoError(t, err)
	assert.Empty(t, messages)

	cands, err := d.FindCandidates(silence)
	require.NoError(t, err)
	assert.Empty(t, cands)

	noise := AudioSamples{Samples: make([]float32, 180000), SampleRate: 12000, Channels: 1}
	addNoise(noise, 0.1, 7)
	messages, err = d.Decode(context.Background(), noise, nil)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestDecodeCancelled(t *testing.T) {
	audio := slotAudio(t, ProtocolFT8, testSignal{"CQ W1ABC FN42", 1000, 0.5})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	messages, err := newTestDecoder(t, ProtocolFT8).Decode(ctx, audio, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, messages)
}

func TestDecodeCandidate(t *testing.T) {
	d := newTestDecoder(t, ProtocolFT8)
	audio := slotAudio(t, ProtocolFT8, testSignal{"K1DEF W1ABC RR73", 1000, 0.5})

	cands, err := d.FindCandidates(audio)
	require.NoError(t, err)
	require.NotEmpty(t, cands)
	for i := 1; i < len(cands); i++ {
		assert.GreaterOrEqual(t, cands[i-1].Score, cands[i].Score)
	}

	var decoded *DecodedMessage
	for _, c := range cands {
		msg, status, err := d.DecodeCandidate(audio, c, nil)
		require.NoError(t, err)
		require.NotNil(t, status)
		if msg != nil {
			assert.True(t, status.CRCMatch())
			assert.Equal(t, 0, status.LDPCErrors)
			decoded = msg
			break
		}
	}
	require.NotNil(t, decoded)
	assert.Equal(t, "K1DEF W1ABC RR73", decoded.Text)

	// Nothing transmitted here
	empty := Candidate{TimeOffset: 8, FreqOffset: 300}
	msg, status, err := d.DecodeCandidate(audio, empty, nil)
	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.False(t, status.CRCMatch())
	assert.Greater(t, status.LDPCErrors, 0)
}

func TestDecodeCandidateRejectsOutsideBand(t *testing.T) {
	d := newTestDecoder(t, ProtocolFT8)
	silence := AudioSamples{Samples: make([]float32, 12000*15), SampleRate: 12000, Channels: 1}

	for _, c := range []Candidate{
		{TimeOffset: 80, FreqOffset: 10, TimeSub: 3},
		{TimeOffset: 8, FreqOffset: 10, FreqSub: -1},
		{TimeOffset: 8, FreqOffset: -1},
		{TimeOffset: 8, FreqOffset: 1000},
	} {
		msg, status, err := d.DecodeCandidate(silence, c, nil)
		assert.ErrorIs(t, err, ErrInvalidConfig, "%+v", c)
		assert.Nil(t, msg)
		assert.Nil(t, status)
	}

	wf, err := d.Analyze(silence)
	require.NoError(t, err)
	_, err = d.DecodeWaterfall(context.Background(), wf, []Candidate{{FreqSub: 5}}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestExtractLikelihoodOutsideWaterfall(t *testing.T) {
	audio := slotAudio(t, ProtocolFT8, testSignal{"CQ W1ABC FN42", 1000, 0.5})
	wf, err := Analyze(audio, DefaultDecoderConfig())
	require.NoError(t, err)

	// Data symbols 0-2 land on blocks -3..-1
	early := ExtractLikelihood(wf, Candidate{TimeOffset: -10, FreqOffset: 128})
	require.Len(t, early, FTX_LDPC_N)
	for i := 0; i < 9; i++ {
		assert.Zero(t, early[i], "bit %d", i)
	}
	nonZero := 0
	for _, v := range early[9:] {
		if v != 0 {
			nonZero++
		}
	}
	assert.Positive(t, nonZero)

	// Data symbols from 6 onwards land past the last block
	late := ExtractLikelihood(wf, Candidate{TimeOffset: 80, FreqOffset: 128})
	for i := 18; i < FTX_LDPC_N; i++ {
		assert.Zero(t, late[i], "bit %d", i)
	}

	// A candidate outside the band carries no information
	for _, c := range []Candidate{{TimeOffset: 8, FreqOffset: 128, TimeSub: 2}, {TimeOffset: 8, FreqOffset: wf.NumBins}} {
		assert.Equal(t, make([]float32, FTX_LDPC_N), ExtractLikelihood(wf, c))
	}
}

func TestDecodeSignalStartingBeforeCapture(t *testing.T) {
	audio := slotAudio(t, ProtocolFT8, testSignal{"CQ W1ABC FN42", 1000, 0.5})

	// The transmission starts 14160 samples into the slot; cut one second
	// more so the capture begins one second into the signal
	cut := 14160 + 12000
	audio.Samples = audio.Samples[cut:]

	messages, err := newTestDecoder(t, ProtocolFT8).Decode(context.Background(), audio, nil)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "CQ W1ABC FN42", messages[0].Text)
	assert.Negative(t, messages[0].TimeOffset)
	assert.InDelta(t, -0.85, messages[0].TimeOffset, 0.25)
	assert.InDelta(t, 1000, messages[0].Frequency, 3.2)
}

func TestDecodeDuplicateTransmissions(t *testing.T) {
	audio := slotAudio(t, ProtocolFT8,
		testSignal{"CQ W1ABC FN42", 800, 0.3},
		testSignal{"CQ W1ABC FN42", 1600, 0.3},
	)

	messages, err := newTestDecoder(t, ProtocolFT8).Decode(context.Background(), audio, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"CQ W1ABC FN42"}, texts(messages))
}

func TestUniqueMessagesKeysOnPayload(t *testing.T) {
	a := &DecodedMessage{Text: "A", Payload: [FTX_PAYLOAD_SIZE]uint8{1}, Hash: 0x1234}
	b := &DecodedMessage{Text: "B", Payload: [FTX_PAYLOAD_SIZE]uint8{2}, Hash: 0x1234}
	again := &DecodedMessage{Text: "A again", Payload: a.Payload, Hash: 0x1234}
	c := &DecodedMessage{Text: "C", Payload: [FTX_PAYLOAD_SIZE]uint8{3}, Hash: 0x0042}

	results := []*DecodedMessage{a, nil, b, again, c}
	assert.Equal(t, []string{"A", "B", "C"}, texts(uniqueMessages(results, 10)))
	assert.Equal(t, []string{"A", "B"}, texts(uniqueMessages(results, 2)))
	assert.Empty(t, uniqueMessages(nil, 10))
}

func TestDecodeWaterfallMatchesDecode(t *testing.T) {
	d := newTestDecoder(t, ProtocolFT8)
	audio := slotAudio(t, ProtocolFT8,
		testSignal{"CQ W1ABC FN42", 800, 0.3},
		testSignal{"W1ABC K1DEF 73", 1250, 0.3},
	)

	wf, err := d.Analyze(audio)
	require.NoError(t, err)
	candidates := wf.FindCandidates(d.Config().MaxCandidates, d.Config().MinScore)
	fromWaterfall, err := d.DecodeWaterfall(context.Background(), wf, candidates, nil)
	require.NoError(t, err)

	direct, err := d.Decode(context.Background(), audio, nil)
	require.NoError(t, err)
	assert.Equal(t, texts(direct), texts(fromWaterfall))
	assert.Len(t, direct, 2)
}

func TestDecodeResolvesHashes(t *testing.T) {
	audio := slotAudio(t, ProtocolFT8,
		testSignal{"CQ PJ4/K1ABC", 900, 0.3},
		testSignal{"<PJ4/K1ABC> W1ABC FN42", 1600, 0.3},
	)

	ht := NewCallsignHashTable(0, 0)
	ht.SaveCallsign("PJ4/K1ABC")

	messages, err := newTestDecoder(t, ProtocolFT8).Decode(context.Background(), audio, ht)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"CQ PJ4/K1ABC", "<PJ4/K1ABC> W1ABC FN42"}, texts(messages))
}

func TestNewDecoderValidates(t *testing.T) {
	cfg := DefaultDecoderConfig()
	cfg.MaxCandidates = 0
	_, err := NewDecoder(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = DefaultDecoderConfig()
	cfg.Protocol = Protocol(5)
	_, err = NewDecoder(cfg)
	assert.ErrorIs(t, err, ErrInvalidProtocol)

	d, err := NewDecoder(DefaultDecoderConfig())
	require.NoError(t, err)
	assert.Equal(t, DefaultDecoderConfig(), d.Config())
}
