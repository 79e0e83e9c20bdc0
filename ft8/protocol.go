package ft8

import (
	"fmt"
	"strings"
)

/*
 * FT8/FT4 protocol constants
 * Symbol layout, sync patterns, code sizes and timing for both protocols
 */

// FT8 symbol structure: S D1 S D2 S
// S  - sync block (7 symbols of Costas pattern)
// D1 - first data block (29 symbols each encoding 3 bits)
// D2 - second data block (29 symbols each encoding 3 bits)
const (
	FT8_ND          = 58 // Data symbols
	FT8_NN          = 79 // Total channel symbols
	FT8_LENGTH_SYNC = 7  // Length of each sync group
	FT8_NUM_SYNC    = 3  // Number of sync groups
	FT8_SYNC_OFFSET = 36 // Offset between sync groups
)

// FT4 symbol structure: R Sa D1 Sb D2 Sc D3 Sd R
// R  - ramping symbol (no payload information)
// Sx - one of four different sync blocks (4 symbols of Costas pattern)
// Dy - data block (29 symbols each encoding 2 bits)
const (
	FT4_ND          = 87  // Data symbols
	FT4_NR          = 2   // Ramp symbols (beginning + end)
	FT4_NN          = 105 // Total channel symbols
	FT4_LENGTH_SYNC = 4   // Length of each sync group
	FT4_NUM_SYNC    = 4   // Number of sync groups
	FT4_SYNC_OFFSET = 33  // Offset between sync groups
)

// LDPC parameters
const (
	FTX_LDPC_N       = 174                  // Number of bits in encoded message
	FTX_LDPC_K       = 91                   // Number of payload bits (including CRC)
	FTX_LDPC_M       = 83                   // Number of LDPC checksum bits
	FTX_LDPC_N_BYTES = (FTX_LDPC_N + 7) / 8 // Bytes needed for 174 bits
	FTX_LDPC_K_BYTES = (FTX_LDPC_K + 7) / 8 // Bytes needed for 91 bits
	FTX_PAYLOAD_BITS = 77                   // Source-encoded message bits
	FTX_PAYLOAD_SIZE = 10                   // Bytes needed for 77 bits
)

// CRC parameters
const (
	FT8_CRC_POLYNOMIAL = 0x2757 // CRC-14 polynomial without leading 1
	FT8_CRC_WIDTH      = 14
)

// Timing
const (
	FT8SlotTime   = 15.0  // seconds
	FT8SymbolTime = 0.160 // seconds per symbol
	FT8SymbolBT   = 2.0   // Gaussian filter bandwidth-time product

	FT4SlotTime   = 7.5   // seconds
	FT4SymbolTime = 0.048 // seconds per symbol
	FT4SymbolBT   = 1.0
)

// Costas 7x7 tone pattern for FT8 synchronization
var FT8_Costas_pattern = [7]uint8{3, 1, 4, 0, 6, 5, 2}

// Costas 4x4 tone patterns for FT4 synchronization (4 different patterns)
var FT4_Costas_pattern = [4][4]uint8{
	{0, 1, 3, 2},
	{1, 0, 2, 3},
	{2, 3, 1, 0},
	{3, 2, 0, 1},
}

// Gray code map to encode 8 symbols (tones) for FT8
var FT8_Gray_map = [8]uint8{0, 1, 3, 2, 5, 6, 4, 7}

// Gray code map to encode 4 symbols (tones) for FT4
var FT4_Gray_map = [4]uint8{0, 1, 3, 2}

// FT4 scrambling sequence, XORed with the 77-bit payload before the CRC is added
var FT4_XOR_sequence = [10]uint8{0x4A, 0x5E, 0x89, 0xB4, 0xB0, 0x8A, 0x79, 0x55, 0xBE, 0x28}

// Protocol represents FT8 or FT4
type Protocol int

const (
	ProtocolFT8 Protocol = iota
	ProtocolFT4
)

// ParseProtocol accepts "FT8" or "FT4" in any case
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FT8":
		return ProtocolFT8, nil
	case "FT4":
		return ProtocolFT4, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidProtocol, s)
}

// Valid reports whether p is one of the supported protocols
func (p Protocol) Valid() bool {
	return p == ProtocolFT8 || p == ProtocolFT4
}

// String returns the protocol name
func (p Protocol) String() string {
	switch p {
	case ProtocolFT8:
		return "FT8"
	case ProtocolFT4:
		return "FT4"
	}
	return fmt.Sprintf("Protocol(%d)", int(p))
}

// MarshalText lets protocols appear by name in YAML and JSON
func (p Protocol) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidProtocol, int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText parses a protocol name
func (p *Protocol) UnmarshalText(text []byte) error {
	v, err := ParseProtocol(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// SlotTime returns the slot length in seconds
func (p Protocol) SlotTime() float64 {
	if p == ProtocolFT4 {
		return FT4SlotTime
	}
	return FT8SlotTime
}

// SymbolPeriod returns the symbol length in seconds
func (p Protocol) SymbolPeriod() float64 {
	if p == ProtocolFT4 {
		return FT4SymbolTime
	}
	return FT8SymbolTime
}

// NumSymbols returns the number of channel symbols in a transmission
func (p Protocol) NumSymbols() int {
	if p == ProtocolFT4 {
		return FT4_NN
	}
	return FT8_NN
}

// NumDataSymbols returns the number of payload-carrying symbols
func (p Protocol) NumDataSymbols() int {
	if p == ProtocolFT4 {
		return FT4_ND
	}
	return FT8_ND
}

// NumTones returns the FSK alphabet size
func (p Protocol) NumTones() int {
	if p == ProtocolFT4 {
		return 4
	}
	return 8
}

// BitsPerSymbol returns log2 of the FSK alphabet size
func (p Protocol) BitsPerSymbol() int {
	if p == ProtocolFT4 {
		return 2
	}
	return 3
}

// SymbolBT returns the default GFSK bandwidth-time product
func (p Protocol) SymbolBT() float64 {
	if p == ProtocolFT4 {
		return FT4SymbolBT
	}
	return FT8SymbolBT
}

// ToneSpacing returns the tone separation in Hz
func (p Protocol) ToneSpacing() float64 {
	return 1.0 / p.SymbolPeriod()
}

// syncLength returns the number of symbols in one sync group
func (p Protocol) syncLength() int {
	if p == ProtocolFT4 {
		return FT4_LENGTH_SYNC
	}
	return FT8_LENGTH_SYNC
}

// numSync returns the number of sync groups
func (p Protocol) numSync() int {
	if p == ProtocolFT4 {
		return FT4_NUM_SYNC
	}
	return FT8_NUM_SYNC
}

// syncTone returns the expected tone of symbol k of sync group m
func (p Protocol) syncTone(m, k int) int {
	if p == ProtocolFT4 {
		return int(FT4_Costas_pattern[m][k])
	}
	return int(FT8_Costas_pattern[k])
}

// syncSymbol returns the channel symbol index of symbol k of sync group m
func (p Protocol) syncSymbol(m, k int) int {
	if p == ProtocolFT4 {
		return 1 + FT4_SYNC_OFFSET*m + k
	}
	return FT8_SYNC_OFFSET*m + k
}

// dataSymbol returns the channel symbol index of data symbol k
func (p Protocol) dataSymbol(k int) int {
	if p == ProtocolFT4 {
		// R + 4 sync, then 4 more sync after each block of 29
		return k + 5 + 4*(k/29)
	}
	// 7 sync, then 7 more sync after the first 29
	return k + 7 + 7*(k/29)
}

// Constants describes the fixed parameters of a protocol
type Constants struct {
	Protocol       Protocol `json:"protocol"`
	SymbolPeriod   float64  `json:"symbol_period"`
	SlotTime       float64  `json:"slot_time"`
	ToneSpacing    float64  `json:"tone_spacing"`
	NumTones       int      `json:"num_tones"`
	DataSymbols    int      `json:"data_symbols"`
	TotalSymbols   int      `json:"total_symbols"`
	SyncLength     int      `json:"sync_length"`
	NumSyncBlocks  int      `json:"num_sync_blocks"`
	SyncOffset     int      `json:"sync_offset"`
	SymbolBT       float64  `json:"symbol_bt"`
	PayloadBits    int      `json:"payload_bits"`
	CodewordBits   int      `json:"codeword_bits"`
	MessageCRCBits int      `json:"message_crc_bits"`
}

// Constants returns the protocol's fixed parameters
func (p Protocol) Constants() Constants {
	c := Constants{
		Protocol:       p,
		SymbolPeriod:   p.SymbolPeriod(),
		SlotTime:       p.SlotTime(),
		ToneSpacing:    p.ToneSpacing(),
		NumTones:       p.NumTones(),
		DataSymbols:    p.NumDataSymbols(),
		TotalSymbols:   p.NumSymbols(),
		SyncLength:     p.syncLength(),
		NumSyncBlocks:  p.numSync(),
		SyncOffset:     FT8_SYNC_OFFSET,
		SymbolBT:       p.SymbolBT(),
		PayloadBits:    FTX_PAYLOAD_BITS,
		CodewordBits:   FTX_LDPC_N,
		MessageCRCBits: FTX_LDPC_K,
	}
	if p == ProtocolFT4 {
		c.SyncOffset = FT4_SYNC_OFFSET
	}
	return c
}
