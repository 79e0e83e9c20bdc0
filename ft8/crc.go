package ft8

/*
 * CRC-14 for FT8/FT4
 */

const (
	CRC_TOPBIT = 1 << (FT8_CRC_WIDTH - 1)

	// The CRC covers the 77-bit message zero-extended to 82 bits
	crcBits = 96 - FT8_CRC_WIDTH
)

// ComputeCRC calculates 14-bit CRC for a sequence of bits
// message: byte sequence (MSB first)
// numBits: number of bits in the sequence
func ComputeCRC(message []uint8, numBits int) uint16 {
	remainder := uint16(0)
	idxByte := 0

	// Modulo-2 division, a bit at a time
	for idxBit := 0; idxBit < numBits; idxBit++ {
		if idxBit%8 == 0 {
			remainder ^= uint16(message[idxByte]) << (FT8_CRC_WIDTH - 8)
			idxByte++
		}

		if remainder&CRC_TOPBIT != 0 {
			remainder = (remainder << 1) ^ FT8_CRC_POLYNOMIAL
		} else {
			remainder = remainder << 1
		}
	}

	return remainder & ((CRC_TOPBIT << 1) - 1)
}

// ExtractCRC extracts the CRC from a 91-bit message (77 bits payload + 14 bits CRC)
// a91: 12 bytes containing 91 bits (77 payload + 14 CRC)
func ExtractCRC(a91 []uint8) uint16 {
	// bits 77-90: low 3 bits of a91[9], all of a91[10], top 3 bits of a91[11]
	return uint16(a91[9]&0x07)<<11 | uint16(a91[10])<<3 | uint16(a91[11]>>5)
}

// MessageCRC returns the CRC of a 77-bit payload
func MessageCRC(payload [FTX_PAYLOAD_SIZE]uint8) uint16 {
	var a91 [FTX_LDPC_K_BYTES]uint8
	copy(a91[:], payload[:])
	a91[9] &= 0xF8
	return ComputeCRC(a91[:], crcBits)
}

// AddCRC appends the CRC to a 77-bit payload, producing the 91 message bits
func AddCRC(payload [FTX_PAYLOAD_SIZE]uint8) [FTX_LDPC_K_BYTES]uint8 {
	var a91 [FTX_LDPC_K_BYTES]uint8
	copy(a91[:], payload[:])
	a91[9] &= 0xF8

	crc := ComputeCRC(a91[:], crcBits)
	a91[9] |= uint8(crc >> 11)
	a91[10] = uint8(crc >> 3)
	a91[11] = uint8(crc << 5)
	return a91
}

// VerifyCRC reports whether the CRC stored in a91 matches its payload
func VerifyCRC(a91 []uint8) (extracted, calculated uint16, ok bool) {
	extracted = ExtractCRC(a91)
	var payload [FTX_PAYLOAD_SIZE]uint8
	copy(payload[:], a91)
	calculated = MessageCRC(payload)
	return extracted, calculated, extracted == calculated
}

// PackBits packs an array of bits (0/1) into bytes (MSB first)
func PackBits(plain []uint8, numBits int) []uint8 {
	numBytes := (numBits + 7) / 8
	packed := make([]uint8, numBytes)

	for i := 0; i < numBits; i++ {
		if plain[i] != 0 {
			packed[i/8] |= 1 << (7 - (i % 8))
		}
	}

	return packed
}

// UnpackBits expands the first numBits bits of packed (MSB first) into a 0/1 array
func UnpackBits(packed []uint8, numBits int) []uint8 {
	plain := make([]uint8, numBits)
	for i := 0; i < numBits; i++ {
		plain[i] = (packed[i/8] >> (7 - (i % 8))) & 1
	}
	return plain
}
