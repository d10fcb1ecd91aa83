package dto

import "time"

type AvailabilityRowResponse struct {
	CarparkID   string   `json:"carpark_id"`
	Agency      string   `json:"agency"`
	Development string   `json:"development,omitempty"`
	Area        string   `json:"area,omitempty"`
	LotType     string   `json:"lot_type"`
	LotLabel    string   `json:"lot_label"`
	Lots        int      `json:"lots"`
	Northing    *float64 `json:"northing,omitempty"`
	Easting     *float64 `json:"easting,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
}

type AvailabilityResponse struct {
	FetchedAt time.Time                 `json:"fetched_at"`
	Count     int                       `json:"count"`
	Rows      []AvailabilityRowResponse `json:"rows"`
}

type RefreshResponse struct {
	Status string `json:"status"`
}
