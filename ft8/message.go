package ft8

import (
	"encoding/hex"
	"fmt"
	"strings"
)

/*
 * FT8/FT4 Message Unpacking
 * Supports message types 0.0, 0.1, 0.5, 0.6, 1, 2 and 4; the remaining
 * types are recognised and rendered as a placeholder
 */

// Message type constants
const (
	NTOKENS  = 2063592 // Number of special tokens
	MAX22    = 4194304 // 2^22
	MAXGRID4 = 32400   // 18*10*18*10
)

// MessageType represents all FT8/FT4 message types
type MessageType int

const (
	MessageTypeFreeText   MessageType = iota // 0.0
	MessageTypeDXpedition                    // 0.1
	MessageTypeEUVHF                         // 0.2
	MessageTypeARRLFD                        // 0.3, 0.4
	MessageTypeTelemetry                     // 0.5
	MessageTypeContesting                    // 0.6
	MessageTypeStandard                      // 1, 2
	MessageTypeARRLRTTY                      // 3
	MessageTypeNonstdCall                    // 4
	MessageTypeWWROF                         // 5
	MessageTypeUnknown
)

var messageTypeNames = [...]string{
	MessageTypeFreeText:   "FREE_TEXT",
	MessageTypeDXpedition: "DXPEDITION",
	MessageTypeEUVHF:      "EU_VHF",
	MessageTypeARRLFD:     "ARRL_FD",
	MessageTypeTelemetry:  "TELEMETRY",
	MessageTypeContesting: "CONTESTING",
	MessageTypeStandard:   "STANDARD",
	MessageTypeARRLRTTY:   "ARRL_RTTY",
	MessageTypeNonstdCall: "NONSTD_CALL",
	MessageTypeWWROF:      "WWROF",
	MessageTypeUnknown:    "UNKNOWN",
}

func (t MessageType) String() string {
	if t < 0 || int(t) >= len(messageTypeNames) {
		return "UNKNOWN"
	}
	return messageTypeNames[t]
}

// MarshalText renders the type by name
func (t MessageType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// messageSelector extracts i3 and n3 from a payload
func messageSelector(payload [FTX_PAYLOAD_SIZE]uint8) (i3, n3 uint8) {
	i3 = (payload[9] >> 3) & 0x07
	n3 = ((payload[8] << 2) & 0x04) | ((payload[9] >> 6) & 0x03)
	return i3, n3
}

// GetMessageType extracts the message type from i3 and n3 bits
func GetMessageType(payload [FTX_PAYLOAD_SIZE]uint8) MessageType {
	i3, n3 := messageSelector(payload)

	switch i3 {
	case 0:
		switch n3 {
		case 0:
			return MessageTypeFreeText
		case 1:
			return MessageTypeDXpedition
		case 2:
			return MessageTypeEUVHF
		case 3, 4:
			return MessageTypeARRLFD
		case 5:
			return MessageTypeTelemetry
		case 6:
			return MessageTypeContesting
		default:
			return MessageTypeUnknown
		}
	case 1, 2:
		return MessageTypeStandard
	case 3:
		return MessageTypeARRLRTTY
	case 4:
		return MessageTypeNonstdCall
	case 5:
		return MessageTypeWWROF
	default:
		return MessageTypeUnknown
	}
}

// UnpackMessage renders a 77-bit payload as text. hasher may be nil, in
// which case hashed callsigns appear as <...>. Standard callsigns found in
// the message are saved into hasher.
func UnpackMessage(payload [FTX_PAYLOAD_SIZE]uint8, hasher CallsignHasher) (string, error) {
	switch GetMessageType(payload) {
	case MessageTypeFreeText:
		return unpackFreeText(payload), nil
	case MessageTypeTelemetry:
		return unpackTelemetry(payload), nil
	case MessageTypeStandard:
		return unpackStandard(payload, hasher)
	case MessageTypeNonstdCall:
		return unpackNonstd(payload, hasher)
	case MessageTypeDXpedition:
		return unpackDXpedition(payload, hasher)
	case MessageTypeContesting:
		return unpackContesting(payload, hasher)
	default:
		i3, n3 := messageSelector(payload)
		if i3 == 0 {
			return fmt.Sprintf("[Type %d.%d]", i3, n3), nil
		}
		return fmt.Sprintf("[Type %d]", i3), nil
	}
}

// payload71 extracts the 71 bits that precede n3 as a 9-byte big-endian number
func payload71(payload [FTX_PAYLOAD_SIZE]uint8) []uint8 {
	b71 := make([]uint8, 9)
	carry := uint8(0)
	for i := 0; i < 9; i++ {
		b71[i] = (carry << 7) | (payload[i] >> 1)
		carry = payload[i] & 0x01
	}
	return b71
}

// unpackFreeText unpacks free text messages (Type 0.0):
// up to 13 characters as a base-42 number
func unpackFreeText(payload [FTX_PAYLOAD_SIZE]uint8) string {
	b71 := payload71(payload)

	c13 := make([]byte, 13)
	for idx := 12; idx >= 0; idx-- {
		// Divide the long integer in b71 by 42
		rem := uint16(0)
		for i := 0; i < 9; i++ {
			rem = (rem << 8) | uint16(b71[i])
			b71[i] = uint8(rem / 42)
			rem = rem % 42
		}
		c13[idx] = Charn(int(rem), CharTableFull)
	}

	return strings.TrimSpace(string(c13))
}

// unpackTelemetry unpacks telemetry data (Type 0.5) as upper-case hex
// without leading zeros
func unpackTelemetry(payload [FTX_PAYLOAD_SIZE]uint8) string {
	digits := strings.TrimLeft(strings.ToUpper(hex.EncodeToString(payload71(payload))), "0")
	if digits == "" {
		return "0"
	}
	return digits
}

// unpackStandard unpacks standard messages (Type 1 or 2)
// Format: c28 r1 c28 r1 R1 g15
func unpackStandard(payload [FTX_PAYLOAD_SIZE]uint8, hasher CallsignHasher) (string, error) {
	n29a := uint32(payload[0])<<21 | uint32(payload[1])<<13 | uint32(payload[2])<<5 | uint32(payload[3]>>3)
	n29b := uint32(payload[3]&0x07)<<26 | uint32(payload[4])<<18 | uint32(payload[5])<<10 | uint32(payload[6])<<2 | uint32(payload[7]>>6)
	R1 := (payload[7] >> 5) & 0x01
	igrid4 := uint16(payload[7]&0x1F)<<10 | uint16(payload[8])<<2 | uint16(payload[9]>>6)
	i3, _ := messageSelector(payload)

	callTo, err := unpack28(n29a>>1, uint8(n29a&0x01), i3, hasher)
	if err != nil {
		return "", err
	}
	callDe, err := unpack28(n29b>>1, uint8(n29b&0x01), i3, hasher)
	if err != nil {
		return "", err
	}
	extra, err := unpackGrid(igrid4, R1)
	if err != nil {
		return "", err
	}

	parts := []string{callTo, callDe}
	if extra != "" {
		parts = append(parts, extra)
	}
	return strings.Join(parts, " "), nil
}

// unpackNonstd unpacks non-standard callsign messages (Type 4)
// Format: h12 c58 h1 r2 c1
func unpackNonstd(payload [FTX_PAYLOAD_SIZE]uint8, hasher CallsignHasher) (string, error) {
	h12 := uint16(payload[0])<<4 | uint16(payload[1]>>4)
	n58 := uint64(payload[1]&0x0F)<<54 | uint64(payload[2])<<46 | uint64(payload[3])<<38 |
		uint64(payload[4])<<30 | uint64(payload[5])<<22 | uint64(payload[6])<<14 |
		uint64(payload[7])<<6 | uint64(payload[8]>>2)
	iflip := (payload[8] >> 1) & 0x01
	nrpt := uint8(payload[8]&0x01)<<1 | uint8(payload[9]>>7)
	icq := (payload[9] >> 6) & 0x01

	callDecoded := unpack58(n58)
	if len(callDecoded) < 3 {
		return "", fmt.Errorf("invalid non-standard callsign %q", callDecoded)
	}
	if hasher != nil {
		if n22, ok := CallsignHash(callDecoded); ok {
			hasher.SaveHash(callDecoded, n22)
		}
	}

	if icq != 0 {
		return "CQ " + callDecoded, nil
	}

	call3 := lookupHashed(hasher, Hash12Bits, uint32(h12))
	call1, call2 := call3, callDecoded
	if iflip == 1 {
		call1, call2 = callDecoded, call3
	}

	parts := []string{call1, call2}
	switch nrpt {
	case 1:
		parts = append(parts, "RRR")
	case 2:
		parts = append(parts, "RR73")
	case 3:
		parts = append(parts, "73")
	}
	return strings.Join(parts, " "), nil
}

// unpackDXpedition unpacks DXpedition mode messages (Type 0.1)
// Format: c28 c28 h10 r5
func unpackDXpedition(payload [FTX_PAYLOAD_SIZE]uint8, hasher CallsignHasher) (string, error) {
	n28a := uint32(payload[0])<<20 | uint32(payload[1])<<12 | uint32(payload[2])<<4 | uint32(payload[3]>>4)
	n28b := uint32(payload[3]&0x0F)<<24 | uint32(payload[4])<<16 | uint32(payload[5])<<8 | uint32(payload[6])
	h10 := uint16(payload[7])<<2 | uint16(payload[8]>>6)
	r5 := (payload[8] >> 1) & 0x1F

	callRR, err := unpack28(n28a, 0, 0, hasher)
	if err != nil {
		return "", err
	}
	callTo, err := unpack28(n28b, 0, 0, hasher)
	if err != nil {
		return "", err
	}
	callDe := lookupHashed(hasher, Hash10Bits, uint32(h10))

	// r5 (0..31) => -30,-28..+30,+32
	report := IntToDD(int(r5)*2-30, 2, true)

	return fmt.Sprintf("%s RR73; %s %s %s", callRR, callTo, callDe, report), nil
}

// unpackContesting unpacks contesting messages (Type 0.6)
// Format: c28 c28 g15
func unpackContesting(payload [FTX_PAYLOAD_SIZE]uint8, hasher CallsignHasher) (string, error) {
	n28a := uint32(payload[0])<<20 | uint32(payload[1])<<12 | uint32(payload[2])<<4 | uint32(payload[3]>>4)
	n28b := uint32(payload[3]&0x0F)<<24 | uint32(payload[4])<<16 | uint32(payload[5])<<8 | uint32(payload[6])
	g15 := uint16(payload[7]&0x7F)<<8 | uint16(payload[8])

	callTo, err := unpack28(n28a, 0, 0, hasher)
	if err != nil {
		return "", err
	}
	callDe, err := unpack28(n28b, 0, 0, hasher)
	if err != nil {
		return "", err
	}
	grid, err := unpackGrid(g15, 0)
	if err != nil {
		return "", err
	}

	parts := []string{callTo, callDe}
	if grid != "" {
		parts = append(parts, grid)
	}
	return strings.Join(parts, " "), nil
}

// lookupHashed renders a hashed callsign in angle brackets
func lookupHashed(hasher CallsignHasher, hashType HashType, hash uint32) string {
	if hasher != nil {
		if call, ok := hasher.LookupHash(hashType, hash); ok {
			return "<" + call + ">"
		}
	}
	return "<...>"
}

// unpack28 unpacks a 28-bit callsign field
func unpack28(n28 uint32, ip uint8, i3 uint8, hasher CallsignHasher) (string, error) {
	if n28 < NTOKENS {
		switch {
		case n28 == 0:
			return "DE", nil
		case n28 == 1:
			return "QRZ", nil
		case n28 == 2:
			return "CQ", nil
		case n28 <= 1002:
			return fmt.Sprintf("CQ %03d", n28-3), nil
		case n28 <= 532443:
			// CQ ABCD with up to 4 letters
			n := n28 - 1003
			aaaa := make([]byte, 4)
			for i := 3; i >= 0; i-- {
				aaaa[i] = Charn(int(n%27), CharTableLettersSpace)
				n /= 27
			}
			return "CQ " + strings.TrimLeft(string(aaaa), " "), nil
		}
		return "", fmt.Errorf("unused token value %d", n28)
	}

	n28 -= NTOKENS
	if n28 < MAX22 {
		return lookupHashed(hasher, Hash22Bits, n28), nil
	}

	// Standard callsign
	n := n28 - MAX22

	callsign := make([]byte, 6)
	callsign[5] = Charn(int(n%27), CharTableLettersSpace)
	n /= 27
	callsign[4] = Charn(int(n%27), CharTableLettersSpace)
	n /= 27
	callsign[3] = Charn(int(n%27), CharTableLettersSpace)
	n /= 27
	callsign[2] = Charn(int(n%10), CharTableNumeric)
	n /= 10
	callsign[1] = Charn(int(n%36), CharTableAlphanum)
	n /= 36
	callsign[0] = Charn(int(n%37), CharTableAlphanumSpace)

	result := string(callsign)

	switch {
	case strings.HasPrefix(result, "3D0") && result[3] != ' ':
		// Swaziland: 3D0XYZ -> 3DA0XYZ
		result = "3DA0" + strings.TrimSpace(result[3:])
	case result[0] == 'Q' && IsLetter(result[1]):
		// Guinea: QA0XYZ -> 3XA0XYZ
		result = "3X" + strings.TrimSpace(result[1:])
	default:
		result = strings.TrimSpace(result)
	}

	if len(result) < 3 || strings.Contains(result, " ") {
		return "", fmt.Errorf("invalid standard callsign value %d", n28-MAX22)
	}

	if ip != 0 {
		switch i3 {
		case 1:
			result += "/R"
		case 2:
			result += "/P"
		}
	}

	if hasher != nil {
		if n22, ok := CallsignHash(result); ok {
			hasher.SaveHash(result, n22)
		}
	}

	return result, nil
}

// unpack58 unpacks an 11-character base-38 callsign
func unpack58(n58 uint64) string {
	c11 := make([]byte, 11)
	for i := 10; i >= 0; i-- {
		c11[i] = Charn(int(n58%38), CharTableAlphanumSpaceSlash)
		n58 /= 38
	}
	return strings.TrimSpace(string(c11))
}

// unpackGrid unpacks the 15-bit grid, acknowledgement or report field
func unpackGrid(igrid4 uint16, R1 uint8) (string, error) {
	if igrid4 <= MAXGRID4 {
		n := int(igrid4)
		grid := make([]byte, 4)
		grid[3] = '0' + byte(n%10)
		n /= 10
		grid[2] = '0' + byte(n%10)
		n /= 10
		grid[1] = 'A' + byte(n%18)
		n /= 18
		grid[0] = 'A' + byte(n%18)

		if R1 == 1 {
			return "R " + string(grid), nil
		}
		return string(grid), nil
	}

	switch igrid4 {
	case MAXGRID4 + 1:
		return "", nil
	case MAXGRID4 + 2:
		return "RRR", nil
	case MAXGRID4 + 3:
		return "RR73", nil
	case MAXGRID4 + 4:
		return "73", nil
	}

	// Signal report
	dd := int(igrid4) - MAXGRID4 - 35
	if dd > 99 {
		return "", fmt.Errorf("report %d out of range", dd)
	}
	if R1 == 1 {
		return "R" + IntToDD(dd, 2, true), nil
	}
	return IntToDD(dd, 2, true), nil
}
