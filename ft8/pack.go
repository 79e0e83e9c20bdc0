package ft8

import (
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

/*
 * FT8/FT4 Message Packing
 * Grammars are tried in order: standard, non-standard callsign,
 * DXpedition, telemetry, free text
 */

var (
	reportPattern    = regexp.MustCompile(`^(R?)([+-]\d{2})$`)
	gridPattern      = regexp.MustCompile(`^[A-R]{2}[0-9]{2}$`)
	cqNumPattern     = regexp.MustCompile(`^\d{3}$`)
	cqLettersPattern = regexp.MustCompile(`^[A-Z]{1,4}$`)
	telemetryPattern = regexp.MustCompile(`^[0-9A-F]{1,18}$`)
)

// errNotThisGrammar signals that a grammar does not apply and the next one
// should be tried
var errNotThisGrammar = errors.New("not this grammar")

// Packed is a source-encoded message
type Packed struct {
	Payload [FTX_PAYLOAD_SIZE]uint8
	Type    MessageType
}

// StandardFields holds the callsign and exchange fields of a standard message
type StandardFields struct {
	CallTo string `json:"call_to"`
	CallDe string `json:"call_de"`
	Extra  string `json:"extra,omitempty"`
}

// PackMessage source-encodes message text. hasher may be nil; when set,
// callsigns sent as hashes are saved into it.
func PackMessage(text string, hasher CallsignHasher) (Packed, error) {
	msg := FmtMsg(text)
	if msg == "" {
		return Packed{}, &EncodeError{Text: text, Reason: "empty message", Err: ErrNoGrammar}
	}

	grammars := []struct {
		t    MessageType
		pack func(string, CallsignHasher) ([FTX_PAYLOAD_SIZE]uint8, error)
	}{
		{MessageTypeStandard, packStandard},
		{MessageTypeNonstdCall, packNonstd},
		{MessageTypeDXpedition, packDXpedition},
		{MessageTypeTelemetry, packTelemetry},
		{MessageTypeFreeText, packFreeText},
	}
	for _, g := range grammars {
		payload, err := g.pack(msg, hasher)
		if err == nil {
			return Packed{Payload: payload, Type: g.t}, nil
		}
		if !errors.Is(err, errNotThisGrammar) {
			return Packed{}, &EncodeError{Text: text, Reason: err.Error(), Err: ErrNoGrammar}
		}
	}
	return Packed{}, &EncodeError{Text: text, Err: ErrNoGrammar}
}

// IsValidMessage reports whether text can be packed
func IsValidMessage(text string) bool {
	_, err := PackMessage(text, nil)
	return err == nil
}

// MessageTypeOf returns the message type text would be packed as, or
// MessageTypeUnknown if it cannot be packed
func MessageTypeOf(text string) MessageType {
	p, err := PackMessage(text, nil)
	if err != nil {
		return MessageTypeUnknown
	}
	return p.Type
}

// ParseStandardMessage splits text into the fields of a standard message
func ParseStandardMessage(text string) (StandardFields, error) {
	f, _, err := parseStandard(FmtMsg(text))
	if err != nil {
		return StandardFields{}, &EncodeError{Text: text, Reason: "not a standard message", Err: ErrNoGrammar}
	}
	return f, nil
}

// parseStandard splits a formatted message into call_to, call_de and extra.
// The R flag of an "R GRID" exchange is returned separately.
func parseStandard(msg string) (StandardFields, bool, error) {
	tokens := strings.Fields(msg)
	if len(tokens) >= 3 && tokens[0] == "CQ" && isCQModifier(tokens[1]) {
		tokens = append([]string{"CQ " + tokens[1]}, tokens[2:]...)
	}

	switch len(tokens) {
	case 2:
		return StandardFields{CallTo: tokens[0], CallDe: tokens[1]}, false, nil
	case 3:
		return StandardFields{CallTo: tokens[0], CallDe: tokens[1], Extra: tokens[2]}, false, nil
	case 4:
		if tokens[2] == "R" && gridPattern.MatchString(tokens[3]) {
			return StandardFields{CallTo: tokens[0], CallDe: tokens[1], Extra: "R " + tokens[3]}, true, nil
		}
	}
	return StandardFields{}, false, errNotThisGrammar
}

func isCQModifier(s string) bool {
	return cqNumPattern.MatchString(s) || cqLettersPattern.MatchString(s)
}

// packStandard packs Type 1/2: c28 r1 c28 r1 R1 g15
func packStandard(msg string, hasher CallsignHasher) ([FTX_PAYLOAD_SIZE]uint8, error) {
	var payload [FTX_PAYLOAD_SIZE]uint8

	f, ackGrid, err := parseStandard(msg)
	if err != nil {
		return payload, err
	}

	hasR := strings.HasSuffix(f.CallTo, "/R") || strings.HasSuffix(f.CallDe, "/R")
	hasP := strings.HasSuffix(f.CallTo, "/P") || strings.HasSuffix(f.CallDe, "/P")
	if hasR && hasP {
		return payload, errNotThisGrammar
	}
	i3 := uint8(1)
	if hasP {
		i3 = 2
	}

	n28a, ipa, ok := pack28(f.CallTo, hasher)
	if !ok {
		return payload, errNotThisGrammar
	}
	n28b, ipb, ok := pack28(f.CallDe, hasher)
	if !ok || n28b < NTOKENS {
		return payload, errNotThisGrammar
	}

	extra := f.Extra
	if ackGrid {
		extra = strings.TrimPrefix(extra, "R ")
	}
	igrid4, ok := packGrid(extra)
	if !ok {
		return payload, errNotThisGrammar
	}
	if ackGrid {
		igrid4 |= 0x8000
	}

	n29a := n28a<<1 | uint32(ipa)
	n29b := n28b<<1 | uint32(ipb)
	R1 := uint8(igrid4 >> 15)
	igrid4 &= 0x7FFF

	payload[0] = uint8(n29a >> 21)
	payload[1] = uint8(n29a >> 13)
	payload[2] = uint8(n29a >> 5)
	payload[3] = uint8(n29a<<3) | uint8(n29b>>26)
	payload[4] = uint8(n29b >> 18)
	payload[5] = uint8(n29b >> 10)
	payload[6] = uint8(n29b >> 2)
	payload[7] = uint8(n29b<<6) | R1<<5 | uint8(igrid4>>10)
	payload[8] = uint8(igrid4 >> 2)
	payload[9] = uint8(igrid4<<6) | i3<<3
	return payload, nil
}

// pack28 packs a callsign field: special tokens, CQ modifiers, standard
// callsigns with an optional /R or /P suffix, or a <bracketed> callsign
// sent as its 22-bit hash
func pack28(call string, hasher CallsignHasher) (n28 uint32, ip uint8, ok bool) {
	switch call {
	case "DE":
		return 0, 0, true
	case "QRZ":
		return 1, 0, true
	case "CQ":
		return 2, 0, true
	}

	if mod, found := strings.CutPrefix(call, "CQ "); found {
		if cqNumPattern.MatchString(mod) {
			n, _ := strconv.Atoi(mod)
			return 3 + uint32(n), 0, true
		}
		if cqLettersPattern.MatchString(mod) {
			n := uint32(0)
			padded := fmt.Sprintf("%4s", mod)
			for i := 0; i < 4; i++ {
				n = n*27 + uint32(Nchar(padded[i], CharTableLettersSpace))
			}
			return 1003 + n, 0, true
		}
		return 0, 0, false
	}

	if strings.HasPrefix(call, "<") && strings.HasSuffix(call, ">") {
		inner := call[1 : len(call)-1]
		n22, ok := CallsignHash(inner)
		if !ok || len(inner) < 3 {
			return 0, 0, false
		}
		if hasher != nil {
			hasher.SaveHash(inner, n22)
		}
		return NTOKENS + n22, 0, true
	}

	base := call
	if strings.HasSuffix(call, "/R") || strings.HasSuffix(call, "/P") {
		base = call[:len(call)-2]
		ip = 1
	}
	n, ok := packBasecall(base)
	if !ok {
		return 0, 0, false
	}
	if hasher != nil {
		if n22, ok := CallsignHash(call); ok {
			hasher.SaveHash(call, n22)
		}
	}
	return NTOKENS + MAX22 + n, ip, true
}

// packBasecall packs a standard callsign into 28 bits minus the token and
// hash space, or reports false if it is not standard
func packBasecall(call string) (uint32, bool) {
	length := len(call)
	if length < 3 {
		return 0, false
	}

	c6 := []byte("      ")
	switch {
	case strings.HasPrefix(call, "3DA0") && length > 4 && length <= 7:
		// Swaziland: 3DA0XYZ -> 3D0XYZ
		copy(c6, "3D0")
		copy(c6[3:], call[4:])
	case strings.HasPrefix(call, "3X") && IsLetter(call[2]) && length <= 7:
		// Guinea: 3XA0XYZ -> QA0XYZ
		c6[0] = 'Q'
		copy(c6[1:], call[2:])
	case IsDigit(call[2]) && length <= 6:
		// AB0XYZ
		copy(c6, call)
	case IsDigit(call[1]) && length <= 5:
		// A0XYZ -> " A0XYZ"
		copy(c6[1:], call)
	default:
		return 0, false
	}

	tables := [6]CharTable{
		CharTableAlphanumSpace, CharTableAlphanum, CharTableNumeric,
		CharTableLettersSpace, CharTableLettersSpace, CharTableLettersSpace,
	}
	radix := [6]uint32{37, 36, 10, 27, 27, 27}

	n := uint32(0)
	for i, c := range c6 {
		j := Nchar(c, tables[i])
		if j < 0 {
			return 0, false
		}
		n = n*radix[i] + uint32(j)
	}
	// Letters after the digit must not be followed by letters once a space appears
	if strings.Contains(strings.TrimRight(string(c6[3:]), " "), " ") {
		return 0, false
	}
	return n, true
}

// packGrid packs the 15-bit exchange field; the R flag of a report is
// returned in bit 15
func packGrid(extra string) (uint16, bool) {
	switch extra {
	case "":
		return MAXGRID4 + 1, true
	case "RRR":
		return MAXGRID4 + 2, true
	case "RR73":
		return MAXGRID4 + 3, true
	case "73":
		return MAXGRID4 + 4, true
	}

	if gridPattern.MatchString(extra) {
		igrid4 := uint16(extra[0] - 'A')
		igrid4 = igrid4*18 + uint16(extra[1]-'A')
		igrid4 = igrid4*10 + uint16(extra[2]-'0')
		igrid4 = igrid4*10 + uint16(extra[3]-'0')
		return igrid4, true
	}

	m := reportPattern.FindStringSubmatch(extra)
	if m == nil {
		return 0, false
	}
	dd, _ := strconv.Atoi(m[2])
	if dd < -30 {
		return 0, false
	}
	igrid4 := uint16(MAXGRID4 + 35 + dd)
	if m[1] == "R" {
		igrid4 |= 0x8000
	}
	return igrid4, true
}

// packNonstd packs Type 4: h12 c58 h1 r2 c1
func packNonstd(msg string, hasher CallsignHasher) ([FTX_PAYLOAD_SIZE]uint8, error) {
	var payload [FTX_PAYLOAD_SIZE]uint8

	tokens := strings.Fields(msg)
	if len(tokens) < 2 || len(tokens) > 3 {
		return payload, errNotThisGrammar
	}
	callTo, callDe := tokens[0], tokens[1]

	var nrpt uint8
	if len(tokens) == 3 {
		switch tokens[2] {
		case "RRR":
			nrpt = 1
		case "RR73":
			nrpt = 2
		case "73":
			nrpt = 3
		default:
			return payload, errNotThisGrammar
		}
	}

	var icq, iflip uint8
	var n12 uint32
	call58 := callDe
	if callTo == "CQ" {
		if nrpt != 0 {
			return payload, errNotThisGrammar
		}
		icq = 1
	} else {
		call12 := callTo
		if isBracketed(callDe) {
			iflip = 1
			call12, call58 = callDe, callTo
		}
		n22, ok := CallsignHash(call12)
		if !ok || !looksLikeCallsign(strings.Trim(call12, "<>")) {
			return payload, errNotThisGrammar
		}
		if hasher != nil {
			hasher.SaveHash(strings.Trim(call12, "<>"), n22)
		}
		n12 = n22 >> 10
	}

	n58, ok := pack58(call58)
	if !ok || !looksLikeCallsign(call58) {
		return payload, errNotThisGrammar
	}
	if hasher != nil {
		if n22, ok := CallsignHash(call58); ok {
			hasher.SaveHash(call58, n22)
		}
	}

	i3 := uint8(4)
	payload[0] = uint8(n12 >> 4)
	payload[1] = uint8(n12<<4) | uint8(n58>>54)
	payload[2] = uint8(n58 >> 46)
	payload[3] = uint8(n58 >> 38)
	payload[4] = uint8(n58 >> 30)
	payload[5] = uint8(n58 >> 22)
	payload[6] = uint8(n58 >> 14)
	payload[7] = uint8(n58 >> 6)
	payload[8] = uint8(n58<<2) | iflip<<1 | nrpt>>1
	payload[9] = nrpt<<7 | icq<<6 | i3<<3
	return payload, nil
}

// looksLikeCallsign requires both a letter and a digit, so that plain words
// fall through to free text
func looksLikeCallsign(s string) bool {
	if len(s) < 3 || len(s) > 11 {
		return false
	}
	return strings.ContainsAny(s, "0123456789") && strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
}

func isBracketed(s string) bool {
	return len(s) > 2 && s[0] == '<' && s[len(s)-1] == '>'
}

// pack58 packs up to 11 characters of a non-standard callsign in base 38
func pack58(call string) (uint64, bool) {
	if len(call) < 3 || len(call) > 11 || isBracketed(call) {
		return 0, false
	}
	n58 := uint64(0)
	for i := 0; i < 11; i++ {
		c := byte(' ')
		if i < len(call) {
			c = call[i]
		}
		j := Nchar(c, CharTableAlphanumSpaceSlash)
		if j < 0 || (c == ' ' && i < len(call)) {
			return 0, false
		}
		n58 = n58*38 + uint64(j)
	}
	return n58, true
}

// packDXpedition packs Type 0.1: c28 c28 h10 r5, from
// "CALL1 RR73; CALL2 <DXCALL> +dd"
func packDXpedition(msg string, hasher CallsignHasher) ([FTX_PAYLOAD_SIZE]uint8, error) {
	var payload [FTX_PAYLOAD_SIZE]uint8

	tokens := strings.Fields(msg)
	if len(tokens) != 5 || tokens[1] != "RR73;" || !isBracketed(tokens[3]) {
		return payload, errNotThisGrammar
	}

	n28a, ok := packBasecall(tokens[0])
	if !ok {
		return payload, errNotThisGrammar
	}
	n28b, ok := packBasecall(tokens[2])
	if !ok {
		return payload, errNotThisGrammar
	}
	dxCall := strings.Trim(tokens[3], "<>")
	n22, ok := CallsignHash(dxCall)
	if !ok || len(dxCall) < 3 {
		return payload, errNotThisGrammar
	}
	if hasher != nil {
		hasher.SaveHash(dxCall, n22)
	}
	h10 := n22 >> 12

	m := reportPattern.FindStringSubmatch(tokens[4])
	if m == nil || m[1] != "" {
		return payload, errNotThisGrammar
	}
	dd, _ := strconv.Atoi(m[2])
	if dd < -30 || dd > 32 || dd%2 != 0 {
		return payload, errNotThisGrammar
	}
	r5 := uint8((dd + 30) / 2)

	n28a += NTOKENS + MAX22
	n28b += NTOKENS + MAX22
	n3 := uint8(1)
	payload[0] = uint8(n28a >> 20)
	payload[1] = uint8(n28a >> 12)
	payload[2] = uint8(n28a >> 4)
	payload[3] = uint8(n28a<<4) | uint8(n28b>>24)
	payload[4] = uint8(n28b >> 16)
	payload[5] = uint8(n28b >> 8)
	payload[6] = uint8(n28b)
	payload[7] = uint8(h10 >> 2)
	payload[8] = uint8(h10<<6) | r5<<1 | n3>>2
	payload[9] = (n3 & 0x03) << 6
	return payload, nil
}

// packTelemetry packs Type 0.5: up to 18 hex digits (71 bits)
func packTelemetry(msg string, _ CallsignHasher) ([FTX_PAYLOAD_SIZE]uint8, error) {
	var payload [FTX_PAYLOAD_SIZE]uint8

	if !telemetryPattern.MatchString(msg) || (len(msg) > 1 && msg[0] == '0') {
		return payload, errNotThisGrammar
	}
	b71, err := hex.DecodeString(strings.Repeat("0", 18-len(msg)) + msg)
	if err != nil || b71[0] > 0x7F {
		return payload, errNotThisGrammar
	}

	setPayload71(&payload, b71)
	n3 := uint8(5)
	payload[8] |= n3 >> 2
	payload[9] = (n3 & 0x03) << 6
	return payload, nil
}

// packFreeText packs Type 0.0: up to 13 characters as a base-42 number
func packFreeText(msg string, _ CallsignHasher) ([FTX_PAYLOAD_SIZE]uint8, error) {
	var payload [FTX_PAYLOAD_SIZE]uint8

	if len(msg) > 13 {
		return payload, errNotThisGrammar
	}
	if !inTable(msg, CharTableFull) {
		return payload, errNotThisGrammar
	}

	b71 := make([]uint8, 9)
	for j := 0; j < 13; j++ {
		c := byte(' ')
		if j < len(msg) {
			c = msg[j]
		}
		mulAdd(b71, 42, uint16(Nchar(c, CharTableFull)))
	}

	setPayload71(&payload, b71)
	return payload, nil
}

// mulAdd sets the big-endian number b to b*mul + add
func mulAdd(b []uint8, mul, add uint16) {
	x := uint32(add)
	for i := len(b) - 1; i >= 0; i-- {
		x += uint32(b[i]) * uint32(mul)
		b[i] = uint8(x)
		x >>= 8
	}
}

// setPayload71 stores a 71-bit big-endian number in the first 71 payload bits
func setPayload71(payload *[FTX_PAYLOAD_SIZE]uint8, b71 []uint8) {
	for i := 0; i < 9; i++ {
		payload[i] = b71[i] << 1
		if i+1 < 9 {
			payload[i] |= b71[i+1] >> 7
		}
	}
	payload[9] = 0
}
