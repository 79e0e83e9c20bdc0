package ft8

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestProtocolConstants(t *testing.T) {
	ft8 := ProtocolFT8.Constants()
	assert.Equal(t, 0.16, ft8.SymbolPeriod)
	assert.Equal(t, 15.0, ft8.SlotTime)
	assert.InDelta(t, 6.25, ft8.ToneSpacing, 1e-9)
	assert.Equal(t, 8, ft8.NumTones)
	assert.Equal(t, 58, ft8.DataSymbols)
	assert.Equal(t, 79, ft8.TotalSymbols)
	assert.Equal(t, 7, ft8.SyncLength)
	assert.Equal(t, 3, ft8.NumSyncBlocks)
	assert.Equal(t, 36, ft8.SyncOffset)
	assert.Equal(t, 2.0, ft8.SymbolBT)

	ft4 := ProtocolFT4.Constants()
	assert.Equal(t, 0.048, ft4.SymbolPeriod)
	assert.Equal(t, 7.5, ft4.SlotTime)
	assert.Equal(t, 4, ft4.NumTones)
	assert.Equal(t, 87, ft4.DataSymbols)
	assert.Equal(t, 105, ft4.TotalSymbols)
	assert.Equal(t, 4, ft4.SyncLength)
	assert.Equal(t, 4, ft4.NumSyncBlocks)
	assert.Equal(t, 33, ft4.SyncOffset)
	assert.Equal(t, 1.0, ft4.SymbolBT)
	assert.InDelta(t, 20.833, ft4.ToneSpacing, 1e-3)

	for _, c := range []Constants{ft8, ft4} {
		assert.Equal(t, 77, c.PayloadBits)
		assert.Equal(t, 174, c.CodewordBits)
		assert.Equal(t, 91, c.MessageCRCBits)
	}
}

func TestSymbolLayout(t *testing.T) {
	for _, p := range []Protocol{ProtocolFT8, ProtocolFT4} {
		t.Run(p.String(), func(t *testing.T) {
			used := make(map[int]string)
			for m := 0; m < p.numSync(); m++ {
				for k := 0; k < p.syncLength(); k++ {
					pos := p.syncSymbol(m, k)
					require.Empty(t, used[pos], "symbol %d", pos)
					used[pos] = "sync"
				}
			}
			for k := 0; k < p.NumDataSymbols(); k++ {
				pos := p.dataSymbol(k)
				require.Empty(t, used[pos], "symbol %d", pos)
				used[pos] = "data"
			}

			ramps := 0
			if p == ProtocolFT4 {
				ramps = 2
				assert.Empty(t, used[0])
				assert.Empty(t, used[p.NumSymbols()-1])
			}
			assert.Len(t, used, p.NumSymbols()-ramps)
			assert.Equal(t, FTX_LDPC_N, p.NumDataSymbols()*p.BitsPerSymbol())
		})
	}
}

func TestParseProtocol(t *testing.T) {
	p, err := ParseProtocol(" ft4 ")
	require.NoError(t, err)
	assert.Equal(t, ProtocolFT4, p)

	_, err = ParseProtocol("JT65")
	assert.ErrorIs(t, err, ErrInvalidProtocol)

	assert.Equal(t, "Protocol(3)", Protocol(3).String())
	assert.False(t, Protocol(3).Valid())
}

func TestDecoderConfigEncoding(t *testing.T) {
	cfg := DefaultDecoderConfig()
	cfg.Protocol = ProtocolFT4

	out, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(out), "protocol: FT4")

	var back DecoderConfig
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, cfg, back)

	js, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(js), `"protocol":"FT4"`)

	var bad DecoderConfig
	assert.Error(t, yaml.Unmarshal([]byte("protocol: JT9\n"), &bad))
}

func TestDecoderConfigValidate(t *testing.T) {
	require.NoError(t, DefaultDecoderConfig().Validate())

	tests := []struct {
		name   string
		modify func(*DecoderConfig)
	}{
		{"max candidates", func(c *DecoderConfig) { c.MaxCandidates = 0 }},
		{"ldpc iterations", func(c *DecoderConfig) { c.MaxLDPCIterations = -1 }},
		{"max decoded", func(c *DecoderConfig) { c.MaxDecodedMessages = 0 }},
		{"freq osr", func(c *DecoderConfig) { c.FreqOSR = 0 }},
		{"time osr", func(c *DecoderConfig) { c.TimeOSR = 9 }},
		{"freq min", func(c *DecoderConfig) { c.FreqMin = -5 }},
		{"freq range", func(c *DecoderConfig) { c.FreqMax = c.FreqMin }},
		{"workers", func(c *DecoderConfig) { c.Workers = -2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultDecoderConfig()
			tt.modify(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	cfg := DefaultDecoderConfig()
	assert.Positive(t, cfg.workers())
	cfg.Workers = 3
	assert.Equal(t, 3, cfg.workers())
}
