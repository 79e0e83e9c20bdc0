package ft8

// EncodedMessage is a packed message ready for transmission
type EncodedMessage struct {
	Text     string                  `json:"text"`
	Type     MessageType             `json:"type"`
	Payload  [FTX_PAYLOAD_SIZE]uint8 `json:"-"`
	Tones    []uint8                 `json:"tones"`
	Hash     uint16                  `json:"hash"`
	Protocol Protocol                `json:"protocol"`
}

// Encode packs text and maps it to the protocol's channel symbols. It fails
// with an *EncodeError wrapping ErrNoGrammar when no message format fits.
func Encode(text string, protocol Protocol, hasher CallsignHasher) (*EncodedMessage, error) {
	if !protocol.Valid() {
		return nil, &EncodeError{Text: text, Reason: "unknown protocol", Err: ErrInvalidProtocol}
	}
	packed, err := PackMessage(text, hasher)
	if err != nil {
		return nil, err
	}
	tones, hash := PayloadTones(packed.Payload, protocol)
	return &EncodedMessage{
		Text:     FmtMsg(text),
		Type:     packed.Type,
		Payload:  packed.Payload,
		Tones:    tones,
		Hash:     hash,
		Protocol: protocol,
	}, nil
}

// GenerateAudio synthesizes a tone sequence with encoder settings
func GenerateAudio(tones []uint8, cfg EncoderConfig) (AudioSamples, error) {
	if err := cfg.Validate(); err != nil {
		return AudioSamples{}, err
	}
	return Synthesize(tones, cfg.synthConfig())
}

// EncodeToAudio packs text and synthesizes it in one step
func EncodeToAudio(text string, cfg EncoderConfig, hasher CallsignHasher) (*EncodedMessage, AudioSamples, error) {
	if err := cfg.Validate(); err != nil {
		return nil, AudioSamples{}, err
	}
	msg, err := Encode(text, cfg.Protocol, hasher)
	if err != nil {
		return nil, AudioSamples{}, err
	}
	audio, err := Synthesize(msg.Tones, cfg.synthConfig())
	if err != nil {
		return nil, AudioSamples{}, err
	}
	return msg, audio, nil
}
