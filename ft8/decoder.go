package ft8

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

/*
 * FT8/FT4 Decoder
 * waterfall -> candidate search -> likelihood extraction -> LDPC -> CRC -> unpack
 */

// DecodeStatus reports how far a candidate got through decoding
type DecodeStatus struct {
	Frequency     float64 `json:"frequency"`      // Hz, tone 0
	Time          float64 `json:"time"`           // seconds from the start of the audio
	LDPCErrors    int     `json:"ldpc_errors"`    // Unsatisfied parity checks (0 = converged)
	Iterations    int     `json:"iterations"`     // Belief propagation iterations used
	CRCExtracted  uint16  `json:"crc_extracted"`  // CRC carried in the codeword
	CRCCalculated uint16  `json:"crc_calculated"` // CRC computed over the payload
}

// CRCMatch reports whether the decoded codeword passed the CRC check
func (s DecodeStatus) CRCMatch() bool {
	return s.LDPCErrors == 0 && s.CRCExtracted == s.CRCCalculated
}

// DecodedMessage represents a decoded FT8/FT4 message
type DecodedMessage struct {
	Text       string                  `json:"text"`
	Type       MessageType             `json:"type"`
	Payload    [FTX_PAYLOAD_SIZE]uint8 `json:"-"`
	Hash       uint16                  `json:"hash"`      // CRC of the transmitted payload
	SNR        float64                 `json:"snr"`       // dB in 2500 Hz
	Frequency  float64                 `json:"frequency"` // Hz, tone 0
	TimeOffset float64                 `json:"dt"`        // seconds from the start of the audio
	Candidate  Candidate               `json:"candidate"`
	Protocol   Protocol                `json:"protocol"`
}

// Decoder decodes slot recordings
type Decoder struct {
	config DecoderConfig
}

// NewDecoder creates a decoder with a validated configuration
func NewDecoder(config DecoderConfig) (*Decoder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Decoder{config: config}, nil
}

// Config returns the decoder configuration
func (d *Decoder) Config() DecoderConfig {
	return d.config
}

// Analyze computes the waterfall of a recording
func (d *Decoder) Analyze(audio AudioSamples) (*Waterfall, error) {
	return Analyze(audio, d.config)
}

// FindCandidates runs the spectral front-end and sync search
func (d *Decoder) FindCandidates(audio AudioSamples) ([]Candidate, error) {
	wf, err := d.Analyze(audio)
	if err != nil {
		return nil, err
	}
	return wf.FindCandidates(d.config.MaxCandidates, d.config.MinScore), nil
}

// DecodeCandidate attempts to decode one candidate. A nil message with a
// nil error means the candidate did not decode; status tells why. Candidates
// that do not address the waterfall band fail with ErrInvalidConfig.
func (d *Decoder) DecodeCandidate(audio AudioSamples, cand Candidate, hasher CallsignHasher) (*DecodedMessage, *DecodeStatus, error) {
	wf, err := d.Analyze(audio)
	if err != nil {
		return nil, nil, err
	}
	if err := wf.CheckCandidate(cand); err != nil {
		return nil, nil, err
	}
	msg, status := d.decodeCandidate(wf, cand, hasher)
	return msg, status, nil
}

// decodeCandidate demodulates, error-corrects, checks and unpacks one candidate
func (d *Decoder) decodeCandidate(wf *Waterfall, cand Candidate, hasher CallsignHasher) (*DecodedMessage, *DecodeStatus) {
	status := &DecodeStatus{
		Frequency: wf.Frequency(cand),
		Time:      wf.Time(cand),
	}

	llr := ExtractLikelihood(wf, cand)
	res := LDPCDecode(llr, d.config.MaxLDPCIterations)
	status.LDPCErrors = res.Errors
	status.Iterations = res.Iterations
	if !res.Converged {
		return nil, status
	}

	a91 := PackBits(res.Bits[:FTX_LDPC_K], FTX_LDPC_K)
	var ok bool
	status.CRCExtracted, status.CRCCalculated, ok = VerifyCRC(a91)
	if !ok {
		return nil, status
	}

	var payload [FTX_PAYLOAD_SIZE]uint8
	copy(payload[:], a91)
	payload[9] &= 0xF8
	if wf.Protocol == ProtocolFT4 {
		payload = scrambleFT4(payload)
	}

	text, err := UnpackMessage(payload, hasher)
	if err != nil {
		logger.Debug("unpack failed", "freq", status.Frequency, "dt", status.Time, "err", err)
		return nil, status
	}

	tones := TonesFromCodeword(res.Bits, wf.Protocol)
	return &DecodedMessage{
		Text:       text,
		Type:       GetMessageType(payload),
		Payload:    payload,
		Hash:       status.CRCCalculated,
		SNR:        CalculateSNR(wf, cand, tones),
		Frequency:  status.Frequency,
		TimeOffset: status.Time,
		Candidate:  cand,
		Protocol:   wf.Protocol,
	}, status
}

// Decode finds and decodes every signal in a slot recording. Messages are
// returned in candidate order without duplicates. No new candidates are
// started once MaxDecodedMessages unique messages have been decoded or ctx
// is done; on cancellation the messages decoded so far are returned with
// ctx's error.
func (d *Decoder) Decode(ctx context.Context, audio AudioSamples, hasher CallsignHasher) ([]DecodedMessage, error) {
	wf, err := d.Analyze(audio)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	candidates := wf.FindCandidates(d.config.MaxCandidates, d.config.MinScore)
	return d.DecodeWaterfall(ctx, wf, candidates, hasher)
}

// DecodeWaterfall decodes candidates of an already analysed recording, with
// the same ordering and limits as Decode
func (d *Decoder) DecodeWaterfall(ctx context.Context, wf *Waterfall, candidates []Candidate, hasher CallsignHasher) ([]DecodedMessage, error) {
	for _, cand := range candidates {
		if err := wf.CheckCandidate(cand); err != nil {
			return nil, err
		}
	}

	results := make([]*DecodedMessage, len(candidates))
	var (
		mu       sync.Mutex
		unique   = make(map[[FTX_PAYLOAD_SIZE]uint8]struct{})
		failures int
	)

	var g errgroup.Group
	g.SetLimit(d.config.workers())

	for i, cand := range candidates {
		if ctx.Err() != nil {
			break
		}
		mu.Lock()
		enough := len(unique) >= d.config.MaxDecodedMessages
		mu.Unlock()
		if enough {
			break
		}

		g.Go(func() error {
			msg, status := d.decodeCandidate(wf, cand, hasher)
			mu.Lock()
			defer mu.Unlock()
			if msg == nil {
				failures++
				if failures <= 5 {
					logger.Debug("candidate failed", "index", i, "score", cand.Score,
						"freq", status.Frequency, "ldpc_errors", status.LDPCErrors,
						"crc_extracted", status.CRCExtracted, "crc_calculated", status.CRCCalculated)
				}
				return nil
			}
			results[i] = msg
			unique[msg.Payload] = struct{}{}
			return nil
		})
	}
	_ = g.Wait()

	messages := uniqueMessages(results, d.config.MaxDecodedMessages)

	logger.Debug("decode finished", "protocol", wf.Protocol, "candidates", len(candidates),
		"decoded", len(messages), "failures", failures)

	if err := ctx.Err(); err != nil {
		return messages, err
	}
	return messages, nil
}

// uniqueMessages walks results in order, keeping the first copy of each
// payload. Distinct payloads sharing a CRC are both kept.
func uniqueMessages(results []*DecodedMessage, limit int) []DecodedMessage {
	messages := make([]DecodedMessage, 0, min(limit, len(results)))
	seen := make(map[[FTX_PAYLOAD_SIZE]uint8]struct{})
	for _, msg := range results {
		if len(messages) >= limit {
			break
		}
		if msg == nil {
			continue
		}
		if _, dup := seen[msg.Payload]; dup {
			continue
		}
		seen[msg.Payload] = struct{}{}
		messages = append(messages, *msg)
	}
	return messages
}
