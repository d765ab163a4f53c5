package astro

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/sidereal"
)

// Observer is a ground-based telescope site.
type Observer struct {
	LatDeg float64 // north positive
	LonDeg float64 // east positive
	Name   string
}

// ReferenceLatitude is the site latitude the horizon check is pinned to.
const ReferenceLatitude = "-30:43:16.068"

// ReferenceSite is the SKA-Mid site in the Karoo.
var ReferenceSite = Observer{
	LatDeg: mustLatitude(ReferenceLatitude),
	LonDeg: 21.4430,
	Name:   "SKA-Mid",
}

func mustLatitude(s string) float64 {
	v, err := ParseLatitude(s)
	if err != nil {
		panic(err)
	}
	return v
}

// DeclinationLimit is the declination at and above which a target never
// rises at the site. Only meaningful for southern sites.
func (o Observer) DeclinationLimit() float64 {
	return 90 + o.LatDeg
}

// IsAboveHorizon reports whether a target at decDeg ever rises at the site.
// This is a single inequality on declination; refraction and the dish
// elevation limit are ignored.
func (o Observer) IsAboveHorizon(decDeg float64) bool {
	return decDeg < o.DeclinationLimit()
}

// TransitElevation returns the elevation in degrees of a target at decDeg
// as it crosses the local meridian. Negative values never rise.
func (o Observer) TransitElevation(decDeg float64) float64 {
	return 90 - math.Abs(o.LatDeg-decDeg)
}

// Elevation returns the target's elevation in degrees at time t.
func (o Observer) Elevation(c SkyCoord, t time.Time) float64 {
	lat := o.LatDeg * math.Pi / 180
	dec := c.DecDeg * math.Pi / 180
	ha := localSidereal(t, o.LonDeg) - c.RAdeg*math.Pi/180

	sinAlt := math.Sin(dec)*math.Sin(lat) + math.Cos(dec)*math.Cos(lat)*math.Cos(ha)
	return math.Asin(math.Max(-1, math.Min(1, sinAlt))) * 180 / math.Pi
}

// localSidereal is local mean sidereal time in radians.
func localSidereal(t time.Time, lonDeg float64) float64 {
	return sidereal.Mean(julian.TimeToJD(t)).Rad() + lonDeg*math.Pi/180
}
