package validate

// Band is a receiver band's frequency coverage in Hz.
type Band struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// Bands lists the receiver bands in frequency order.
var Bands = []Band{
	{Name: "Band 1", LowHz: 0.35e9, HighHz: 1.05e9},
	{Name: "Band 2", LowHz: 0.95e9, HighHz: 1.76e9},
	{Name: "Band 5a", LowHz: 4.6e9, HighHz: 8.4e9},
	{Name: "Band 5b", LowHz: 8.4e9, HighHz: 15.4e9},
}

// BandNames returns the band names with a leading "" for "no band".
func BandNames() []string {
	names := []string{""}
	for _, b := range Bands {
		names = append(names, b.Name)
	}
	return names
}

// LookupBand returns the band with the given name.
func LookupBand(name string) (Band, bool) {
	for _, b := range Bands {
		if b.Name == name {
			return b, true
		}
	}
	return Band{}, false
}

// Contains reports whether the window centreHz ± widthHz/2 lies inside
// the band, edges included.
func (b Band) Contains(centreHz, widthHz float64) bool {
	half := widthHz / 2
	return centreHz-half >= b.LowHz && centreHz+half <= b.HighHz
}

// BandwidthContained checks a window against the named band. An empty
// or unknown band passes.
func BandwidthContained(centreHz, widthHz float64, band string) bool {
	b, ok := LookupBand(band)
	if !ok {
		return true
	}
	return b.Contains(centreHz, widthHz)
}
