// Package astro parses sexagesimal target coordinates and answers the
// coarse visibility questions the calculator form needs.
package astro

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/soniakeys/unit"
)

var (
	raPattern  = regexp.MustCompile(`^(\d{1,2}):(\d{1,2}):(\d{1,2}(?:\.\d+)?)$`)
	decPattern = regexp.MustCompile(`^([+-])(\d{1,2}):(\d{1,2}):(\d{1,2}(?:\.\d+)?)$`)
)

// SkyCoord is an equatorial target position in degrees.
type SkyCoord struct {
	RAdeg  float64
	DecDeg float64
}

// ValidRA reports whether s is formatted as HH:MM:SS[.s]. Component ranges
// are not checked, so "24:61:00" passes.
func ValidRA(s string) bool {
	return raPattern.MatchString(s)
}

// ValidDec reports whether s is formatted as ±DD:MM:SS[.s]. The sign is
// mandatory.
func ValidDec(s string) bool {
	return decPattern.MatchString(s)
}

// ParseRA converts HH:MM:SS[.s] to degrees. Out-of-range components are
// not rejected and wrap around, so "24:61:00" yields 15.25.
func ParseRA(s string) (float64, error) {
	m := raPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("right ascension %q: want HH:MM:SS", s)
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	sec, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, fmt.Errorf("right ascension %q: %w", s, err)
	}
	return unit.NewRA(h, min, sec).Hour() * 15, nil
}

// ParseDec converts ±DD:MM:SS[.s] to decimal degrees. The sign applies to
// the whole value, so "-00:30:00" is -0.5.
func ParseDec(s string) (float64, error) {
	m := decPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("declination %q: want ±DD:MM:SS", s)
	}
	return sexagesimal(m[1][0], m[2], m[3], m[4], s)
}

// ParseLatitude accepts a declination-style string with an optional sign.
func ParseLatitude(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s != "" && s[0] != '+' && s[0] != '-' {
		s = "+" + s
	}
	return ParseDec(s)
}

// ParseCoord parses an RA/Dec pair.
func ParseCoord(ra, dec string) (SkyCoord, error) {
	raDeg, err := ParseRA(ra)
	if err != nil {
		return SkyCoord{}, err
	}
	decDeg, err := ParseDec(dec)
	if err != nil {
		return SkyCoord{}, err
	}
	return SkyCoord{RAdeg: raDeg, DecDeg: decDeg}, nil
}

// FormatDec renders decimal degrees as ±DD:MM:SS.sss.
func FormatDec(deg float64) string {
	sign := byte('+')
	if deg < 0 {
		sign = '-'
		deg = -deg
	}
	d := int(deg)
	rem := (deg - float64(d)) * 60
	m := int(rem)
	s := (rem - float64(m)) * 60
	if s >= 59.9995 {
		s = 0
		m++
	}
	if m == 60 {
		m = 0
		d++
	}
	return fmt.Sprintf("%c%02d:%02d:%06.3f", sign, d, m, s)
}

func sexagesimal(sign byte, dStr, mStr, sStr, orig string) (float64, error) {
	d, _ := strconv.Atoi(dStr)
	m, _ := strconv.Atoi(mStr)
	sec, err := strconv.ParseFloat(sStr, 64)
	if err != nil {
		return 0, fmt.Errorf("angle %q: %w", orig, err)
	}
	neg := byte(0)
	if sign == '-' {
		neg = '-'
	}
	return unit.NewAngle(neg, d, m, sec).Deg(), nil
}
