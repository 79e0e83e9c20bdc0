package main

import (
	"math"
	"time"

	"github.com/cwsl/ftx/ft8"
)

// DecodeInfo is a decoded message enriched for reporting
type DecodeInfo struct {
	CycleID   string          `json:"cycle_id"`
	Timestamp time.Time       `json:"timestamp"`
	Mode      ft8.Protocol    `json:"mode"`
	Message   string          `json:"message"`
	Type      ft8.MessageType `json:"type"`
	SNR       int             `json:"snr"`
	DT        float64         `json:"dt"`
	AudioFreq float64         `json:"audio_frequency"` // Hz within the passband
	Frequency uint64          `json:"frequency"`       // RF frequency in Hz, when the dial frequency is known
	Callsign  string          `json:"callsign,omitempty"`
	Locator   string          `json:"locator,omitempty"`

	// Distance and bearing (calculated if receiver locator is configured)
	DistanceKm *float64 `json:"distance_km,omitempty"`
	BearingDeg *float64 `json:"bearing_deg,omitempty"`
}

// NewDecodeInfo builds a report for one decoded message
func NewDecodeInfo(msg ft8.DecodedMessage, cycleID string, timestamp time.Time, station StationConfig) DecodeInfo {
	info := DecodeInfo{
		CycleID:   cycleID,
		Timestamp: timestamp,
		Mode:      msg.Protocol,
		Message:   msg.Text,
		Type:      msg.Type,
		SNR:       int(math.Round(msg.SNR)),
		DT:        msg.TimeOffset,
		AudioFreq: msg.Frequency,
	}
	if station.DialFrequency > 0 {
		info.Frequency = station.DialFrequency + uint64(math.Round(msg.Frequency))
	}

	spot := ft8.ParseSpot(msg.Text)
	info.Callsign = spot.Callsign
	info.Locator = spot.Locator

	if spot.Locator != "" && station.Locator != "" {
		if dist, bearing, err := CalculateDistanceAndBearingFromLocators(station.Locator, spot.Locator); err == nil {
			info.DistanceKm = &dist
			info.BearingDeg = &bearing
		}
	}
	return info
}
