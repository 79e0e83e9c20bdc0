package main

import (
	"fmt"
	"math"
	"strings"
)

const earthRadiusKm = 6371.0

// locatorPair describes one character pair of a Maidenhead locator: the
// allowed range of each character and the size of one step in degrees
type locatorPair struct {
	lo, hi   byte
	lonDeg   float64
	latDeg   float64
	pairName string
}

var locatorPairs = [4]locatorPair{
	{'A', 'R', 20.0, 10.0, "field"},
	{'0', '9', 2.0, 1.0, "square"},
	{'A', 'X', 2.0 / 24.0, 1.0 / 24.0, "subsquare"},
	{'0', '9', 2.0 / 240.0, 1.0 / 240.0, "extended square"},
}

// MaidenheadToLatLon converts a 4, 6 or 8 character Maidenhead locator to
// the latitude and longitude of the centre of its square
func MaidenheadToLatLon(locator string) (lat, lon float64, err error) {
	locator = strings.ToUpper(locator)
	if len(locator) != 4 && len(locator) != 6 && len(locator) != 8 {
		return 0, 0, fmt.Errorf("invalid Maidenhead locator length: %d (must be 4, 6, or 8)", len(locator))
	}

	var p locatorPair
	for i := 0; i < len(locator)/2; i++ {
		p = locatorPairs[i]
		c1, c2 := locator[2*i], locator[2*i+1]
		if c1 < p.lo || c1 > p.hi || c2 < p.lo || c2 > p.hi {
			return 0, 0, fmt.Errorf("invalid %s characters %q (must be %c-%c)", p.pairName, locator[2*i:2*i+2], p.lo, p.hi)
		}
		lon += float64(c1-p.lo) * p.lonDeg
		lat += float64(c2-p.lo) * p.latDeg
	}

	// Centre of the smallest square
	lon += p.lonDeg / 2
	lat += p.latDeg / 2

	return lat - 90.0, lon - 180.0, nil
}

// IsValidMaidenheadLocator checks if a string is a valid Maidenhead locator
func IsValidMaidenheadLocator(locator string) bool {
	_, _, err := MaidenheadToLatLon(locator)
	return err == nil
}

// CalculateDistanceAndBearing returns the great circle distance (km) and
// initial bearing (degrees, 0-360) from the first point to the second
func CalculateDistanceAndBearing(lat1, lon1, lat2, lon2 float64) (distanceKm float64, bearingDeg float64) {
	lat1Rad := lat1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0
	dLat := lat2Rad - lat1Rad
	dLon := (lon2 - lon1) * math.Pi / 180.0

	// Haversine
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	distanceKm = earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	y := math.Sin(dLon) * math.Cos(lat2Rad)
	x := math.Cos(lat1Rad)*math.Sin(lat2Rad) - math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(dLon)
	bearingDeg = math.Mod(math.Atan2(y, x)*180.0/math.Pi+360.0, 360.0)

	return distanceKm, bearingDeg
}

// CalculateDistanceAndBearingFromLocators calculates distance and bearing between two Maidenhead locators
func CalculateDistanceAndBearingFromLocators(from, to string) (distanceKm float64, bearingDeg float64, err error) {
	lat1, lon1, err := MaidenheadToLatLon(from)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid locator %q: %w", from, err)
	}
	lat2, lon2, err := MaidenheadToLatLon(to)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid locator %q: %w", to, err)
	}
	distanceKm, bearingDeg = CalculateDistanceAndBearing(lat1, lon1, lat2, lon2)
	return distanceKm, bearingDeg, nil
}
