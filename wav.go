package main

import (
	"fmt"
	"os"

	"github.com/cwsl/ftx/ft8"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavFormatPCM = 1

// ReadWAV loads a PCM WAV file as normalised samples
func ReadWAV(filename string) (ft8.AudioSamples, error) {
	file, err := os.Open(filename)
	if err != nil {
		return ft8.AudioSamples{}, fmt.Errorf("failed to open WAV file: %w", err)
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return ft8.AudioSamples{}, fmt.Errorf("invalid WAV file: %s", filename)
	}
	if decoder.WavAudioFormat != wavFormatPCM {
		return ft8.AudioSamples{}, fmt.Errorf("unsupported WAV format %d in %s (only integer PCM)", decoder.WavAudioFormat, filename)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return ft8.AudioSamples{}, fmt.Errorf("failed to read samples: %w", err)
	}
	if decoder.BitDepth == 0 {
		return ft8.AudioSamples{}, fmt.Errorf("WAV file %s has no bit depth", filename)
	}

	// Normalise to [-1.0, 1.0); 8-bit PCM is unsigned around 128
	fullScale := float32(int64(1) << (decoder.BitDepth - 1))
	offset := 0
	if decoder.BitDepth == 8 {
		offset = 128
	}
	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v-offset) / fullScale
	}

	return ft8.AudioSamples{
		Samples:    samples,
		SampleRate: int(decoder.SampleRate),
		Channels:   int(decoder.NumChans),
	}, nil
}

// WriteWAV stores samples as 16-bit PCM
func WriteWAV(filename string, samples ft8.AudioSamples) error {
	channels := samples.Channels
	if channels <= 0 {
		channels = 1
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create WAV file: %w", err)
	}
	defer file.Close()

	pcm := ft8.Float32ToPcm16(samples.Samples)
	data := make([]int, len(pcm))
	for i, s := range pcm {
		data[i] = int(s)
	}

	encoder := wav.NewEncoder(file, samples.SampleRate, 16, channels, wavFormatPCM)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  samples.SampleRate,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := encoder.Write(buf); err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to finalise WAV file: %w", err)
	}
	return file.Close()
}
