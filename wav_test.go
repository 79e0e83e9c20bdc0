package main

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwsl/ftx/ft8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWAVRoundTrip(t *testing.T) {
	samples := make([]float32, 12000)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*1000*float64(i)/12000))
	}
	path := filepath.Join(t.TempDir(), "tone.wav")

	require.NoError(t, WriteWAV(path, ft8.AudioSamples{Samples: samples, SampleRate: 12000, Channels: 1}))

	got, err := ReadWAV(path)
	require.NoError(t, err)
	assert.Equal(t, 12000, got.SampleRate)
	assert.Equal(t, 1, got.Channels)
	require.Len(t, got.Samples, len(samples))
	assert.InDelta(t, 1.0, got.Duration(), 1e-9)
	for i := range samples {
		require.InDelta(t, samples[i], got.Samples[i], 1e-4, "sample %d", i)
	}
}

func TestWAVStereo(t *testing.T) {
	samples := []float32{0.25, -0.25, 0.5, -0.5, 0, 0}
	path := filepath.Join(t.TempDir(), "stereo.wav")

	require.NoError(t, WriteWAV(path, ft8.AudioSamples{Samples: samples, SampleRate: 8000, Channels: 2}))

	got, err := ReadWAV(path)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Channels)
	assert.Equal(t, 8000, got.SampleRate)
	assert.InDeltaSlice(t, []float32{0.25, 0.5, 0}, got.Mono().Samples, 1e-4)
}

func TestReadWAVErrors(t *testing.T) {
	_, err := ReadWAV(filepath.Join(t.TempDir(), "missing.wav"))
	assert.ErrorContains(t, err, "failed to open")

	path := filepath.Join(t.TempDir(), "text.wav")
	require.NoError(t, os.WriteFile(path, []byte("this is not a RIFF file at all"), 0o644))
	_, err = ReadWAV(path)
	assert.ErrorContains(t, err, "invalid WAV file")
}

func TestEncodedWAVDecodes(t *testing.T) {
	cfg := ft8.DefaultEncoderConfig()
	cfg.PadToSlot = true
	cfg.Amplitude = 0.5
	_, audio, err := ft8.EncodeToAudio("CQ W1ABC FN42", cfg, nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "slot.wav")
	require.NoError(t, WriteWAV(path, audio))
	loaded, err := ReadWAV(path)
	require.NoError(t, err)

	decoder, err := ft8.NewDecoder(ft8.DefaultDecoderConfig())
	require.NoError(t, err)
	messages, err := decoder.Decode(t.Context(), loaded, nil)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "CQ W1ABC FN42", messages[0].Text)
}

// rawWAV builds a canonical 44-byte-header WAV file
func rawWAV(t *testing.T, format, bitDepth uint16, data []byte) string {
	t.Helper()
	const rate, channels = 8000, 1
	blockAlign := channels * bitDepth / 8

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(data)))
	buf.WriteString("WAVEfmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, format)
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(rate))
	binary.Write(&buf, binary.LittleEndian, uint32(rate)*uint32(blockAlign))
	binary.Write(&buf, binary.LittleEndian, blockAlign)
	binary.Write(&buf, binary.LittleEndian, bitDepth)
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)

	path := filepath.Join(t.TempDir(), "raw.wav")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestReadWAV8Bit(t *testing.T) {
	got, err := ReadWAV(rawWAV(t, wavFormatPCM, 8, []byte{128, 192, 64, 0}))
	require.NoError(t, err)
	assert.Equal(t, 8000, got.SampleRate)
	assert.InDeltaSlice(t, []float32{0, 0.5, -0.5, -1}, got.Samples, 1e-6)
}

func TestReadWAVRejectsFloat(t *testing.T) {
	const wavFormatIEEEFloat = 3
	data := make([]byte, 16)
	binary.LittleEndian.PutUint32(data[4:], math.Float32bits(0.5))
	_, err := ReadWAV(rawWAV(t, wavFormatIEEEFloat, 32, data))
	assert.ErrorContains(t, err, "unsupported WAV format 3")
}
