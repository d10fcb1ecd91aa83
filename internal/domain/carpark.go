package domain

import "time"

// Agency identifies which government source produced a record.
type Agency string

const (
	AgencyURA Agency = "URA"
	AgencyLTA Agency = "LTA"
)

// Represents one flattened availability reading: a single lot type at a
// single carpark at a point in time. Source rows carrying several geometries
// are exploded into one record per geometry, so a record never has more than
// one position.
type CarparkAvailability struct {
	CarparkID   string
	Agency      Agency
	Development string // development name, LTA rows only
	Area        string // area label, LTA rows only
	LotType     string
	LotLabel    string
	Lots        int
	SVY21       *SVY21Point // plane coordinates as published, URA rows only
	Location    *LatLon     // parsed (LTA) or derived from SVY21 (URA)
	FetchedAt   time.Time
}

// Represents the published reference record for one parking facility.
// Populated from the URA carpark details feed.
type Carpark struct {
	Code          string
	Name          string
	VehicleCat    string
	ParkingSystem string
	Capacity      int
	Remarks       string
	SVY21         *SVY21Point
	Location      *LatLon
	UpdatedAt     time.Time
}

// Represents one tariff row for a carpark: a time window and the rates
// charged inside it. Rates and durations stay display-formatted strings
// exactly as published ("$0.50", "30 mins"); no money parsing happens here.
type RateWindow struct {
	CarparkCode  string
	VehicleCat   string
	StartTime    string
	EndTime      string
	WeekdayRate  string
	WeekdayMin   string
	SaturdayRate string
	SaturdayMin  string
	SundayPHRate string
	SundayPHMin  string
}
