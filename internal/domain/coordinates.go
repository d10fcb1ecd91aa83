package domain

// Immutable WGS84 geographic coordinates in decimal degrees.
type LatLon struct {
	Lat float64
	Lon float64
}

// Return coordinates as [lon, lat] for GeoJSON compatibility.
func (c LatLon) CoordsToList() []float64 { return []float64{c.Lon, c.Lat} }

// Immutable position on the SVY21 plane, in meters.
type SVY21Point struct {
	Northing float64
	Easting  float64
}
