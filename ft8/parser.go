package ft8

import (
	"regexp"
	"strings"
)

/*
 * Decoded message parsing
 * Extracts the transmitting callsign and grid locator from message text
 */

var (
	// Callsign pattern, allowing a portable suffix like /P, /M, /6
	callsignPattern = regexp.MustCompile(`^[A-Z0-9]{1,3}[0-9][A-Z0-9]{0,3}[A-Z](/[A-Z0-9]+)?$`)

	// Directed CQ modifiers that precede the callsign
	cqModifiers = map[string]bool{
		"DX": true, "NA": true, "SA": true, "EU": true, "AF": true, "AS": true, "OC": true,
		"FD": true, "WW": true, "TEST": true, "POTA": true, "SOTA": true,
	}
)

// Spot is the transmitter information carried by a decoded message
type Spot struct {
	Callsign string `json:"callsign,omitempty"`
	Locator  string `json:"locator,omitempty"`
}

// ParseSpot extracts the transmitting callsign and grid locator using field
// positions, since some strings are valid as both callsign and grid:
//
//	CQ MM3NDH IO86       -> MM3NDH, IO86
//	CQ DX MM3NDH IO86    -> MM3NDH, IO86
//	SV3AUW MM3NDH -15    -> MM3NDH
//	<...> DL9SFE JN48    -> DL9SFE, JN48
//	SV3AUW MM3NDH R IO86 -> MM3NDH, IO86
func ParseSpot(text string) Spot {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return Spot{}
	}

	callIndex, gridIndex := 1, 2
	if fields[0] == "CQ" && len(fields) >= 3 && (cqModifiers[fields[1]] || cqNumPattern.MatchString(fields[1])) {
		callIndex, gridIndex = 2, 3
	}
	if len(fields) > gridIndex+1 && fields[gridIndex] == "R" {
		gridIndex++
	}

	var spot Spot
	if len(fields) > callIndex && IsValidCallsign(fields[callIndex]) {
		spot.Callsign = NormalizeCallsign(fields[callIndex])
	}
	if len(fields) > gridIndex && IsValidGridLocator(fields[gridIndex]) {
		spot.Locator = fields[gridIndex]
	}
	return spot
}

// NormalizeCallsign strips angle brackets and portable suffixes:
// <II0LOVE> -> II0LOVE, R9KC/6 -> R9KC
func NormalizeCallsign(call string) string {
	call = strings.Trim(call, "<>")
	if idx := strings.Index(call, "/"); idx != -1 {
		call = call[:idx]
	}
	return call
}

// IsValidCallsign checks if a string looks like an amateur radio callsign
func IsValidCallsign(s string) bool {
	s = strings.ToUpper(strings.Trim(s, "<>"))
	if len(s) < 3 || len(s) > 15 {
		return false
	}
	return callsignPattern.MatchString(s)
}

// IsValidGridLocator checks for a 4-character Maidenhead locator, excluding
// acknowledgements that share the shape
func IsValidGridLocator(s string) bool {
	if len(s) != 4 {
		return false
	}
	upper := strings.ToUpper(s)
	if upper == "RR73" {
		return false
	}
	return gridPattern.MatchString(upper)
}
