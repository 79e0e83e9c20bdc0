package ft8

import (
	"strconv"
	"strings"
)

/*
 * Character tables and string helpers for message packing
 */

// CharTable selects one of the alphabets used by the message fields
type CharTable int

const (
	CharTableFull               CharTable = iota // space 0-9 A-Z + - . / ?
	CharTableAlphanumSpace                       // space 0-9 A-Z
	CharTableAlphanum                            // 0-9 A-Z
	CharTableLettersSpace                        // space A-Z
	CharTableNumeric                             // 0-9
	CharTableAlphanumSpaceSlash                  // space 0-9 A-Z /
)

// Charn converts an index to a character according to the specified table.
// This is the inverse of Nchar.
func Charn(c int, table CharTable) byte {
	if table != CharTableAlphanum && table != CharTableNumeric {
		if c == 0 {
			return ' '
		}
		c--
	}

	if table != CharTableLettersSpace {
		if c < 10 {
			return '0' + byte(c)
		}
		c -= 10
	}

	if table != CharTableNumeric {
		if c < 26 {
			return 'A' + byte(c)
		}
		c -= 26
	}

	if table == CharTableFull {
		if c < 5 {
			return "+-./?"[c]
		}
	} else if table == CharTableAlphanumSpaceSlash {
		if c == 0 {
			return '/'
		}
	}

	return '_'
}

// Nchar converts a character to its index according to the specified table,
// or -1 if the table does not contain it
func Nchar(c byte, table CharTable) int {
	n := 0

	if table != CharTableAlphanum && table != CharTableNumeric {
		if c == ' ' {
			return 0
		}
		n++
	}

	if table != CharTableLettersSpace {
		if c >= '0' && c <= '9' {
			return n + int(c-'0')
		}
		n += 10
	}

	if table != CharTableNumeric {
		if c >= 'A' && c <= 'Z' {
			return n + int(c-'A')
		}
		n += 26
	}

	if table == CharTableFull {
		if i := strings.IndexByte("+-./?", c); i >= 0 {
			return n + i
		}
	} else if table == CharTableAlphanumSpaceSlash {
		if c == '/' {
			return n
		}
	}

	return -1
}

// inTable reports whether every character of s belongs to the table
func inTable(s string, table CharTable) bool {
	for i := 0; i < len(s); i++ {
		if Nchar(s[i], table) < 0 {
			return false
		}
	}
	return true
}

// IsDigit checks if a character is a digit
func IsDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// IsLetter checks if a character is an upper-case letter
func IsLetter(c byte) bool {
	return c >= 'A' && c <= 'Z'
}

// FmtMsg upper-cases a message and collapses runs of spaces
func FmtMsg(msg string) string {
	return strings.Join(strings.Fields(strings.ToUpper(msg)), " ")
}

// IntToDD formats value with at least width digits, optionally always signed
func IntToDD(value, width int, fullSign bool) string {
	sign := ""
	if value < 0 {
		sign = "-"
		value = -value
	} else if fullSign {
		sign = "+"
	}
	digits := strconv.Itoa(value)
	for len(digits) < width {
		digits = "0" + digits
	}
	return sign + digits
}
