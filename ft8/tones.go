package ft8

// TonesFromCodeword maps a 174-bit codeword onto the channel symbol sequence,
// inserting sync (and, for FT4, ramp) symbols
func TonesFromCodeword(codeword []uint8, protocol Protocol) []uint8 {
	if protocol == ProtocolFT4 {
		return tonesFT4(codeword)
	}
	return tonesFT8(codeword)
}

// tonesFT8 builds S7 D29 S7 D29 S7
func tonesFT8(codeword []uint8) []uint8 {
	itone := make([]uint8, FT8_NN)

	for m := 0; m < FT8_NUM_SYNC; m++ {
		for k := 0; k < FT8_LENGTH_SYNC; k++ {
			itone[FT8_SYNC_OFFSET*m+k] = FT8_Costas_pattern[k]
		}
	}

	for j := 0; j < FT8_ND; j++ {
		i := 3 * j
		indx := codeword[i]<<2 | codeword[i+1]<<1 | codeword[i+2]
		itone[ProtocolFT8.dataSymbol(j)] = FT8_Gray_map[indx]
	}
	return itone
}

// tonesFT4 builds R S4 D29 S4 D29 S4 D29 S4 R; ramp symbols carry tone 0
func tonesFT4(codeword []uint8) []uint8 {
	itone := make([]uint8, FT4_NN)

	for m := 0; m < FT4_NUM_SYNC; m++ {
		for k := 0; k < FT4_LENGTH_SYNC; k++ {
			itone[ProtocolFT4.syncSymbol(m, k)] = FT4_Costas_pattern[m][k]
		}
	}

	for j := 0; j < FT4_ND; j++ {
		i := 2 * j
		indx := codeword[i]<<1 | codeword[i+1]
		itone[ProtocolFT4.dataSymbol(j)] = FT4_Gray_map[indx]
	}
	return itone
}

// PayloadTones runs a 77-bit payload through scrambling (FT4), CRC, LDPC and
// tone mapping
func PayloadTones(payload [FTX_PAYLOAD_SIZE]uint8, protocol Protocol) (tones []uint8, hash uint16) {
	if protocol == ProtocolFT4 {
		payload = scrambleFT4(payload)
	}
	a91 := AddCRC(payload)
	codeword := EncodeCodeword(a91[:])
	return TonesFromCodeword(codeword, protocol), ExtractCRC(a91[:])
}

// scrambleFT4 XORs the payload with the FT4 sequence; applying it twice is the identity
func scrambleFT4(payload [FTX_PAYLOAD_SIZE]uint8) [FTX_PAYLOAD_SIZE]uint8 {
	for i := range payload {
		payload[i] ^= FT4_XOR_sequence[i]
	}
	payload[9] &= 0xF8
	return payload
}
