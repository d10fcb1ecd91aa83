package dto

import "time"

type CarparkResponse struct {
	Code            string    `json:"code"`
	Name            string    `json:"name"`
	VehicleCategory string    `json:"vehicle_category,omitempty"`
	ParkingSystem   string    `json:"parking_system,omitempty"`
	Capacity        int       `json:"capacity"`
	Remarks         string    `json:"remarks,omitempty"`
	Northing        *float64  `json:"northing,omitempty"`
	Easting         *float64  `json:"easting,omitempty"`
	Lat             *float64  `json:"lat,omitempty"`
	Lon             *float64  `json:"lon,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type ListCarparksResponse struct {
	Count    int               `json:"count"`
	Carparks []CarparkResponse `json:"carparks"`
}

type RateWindowResponse struct {
	CarparkCode     string `json:"carpark_code"`
	VehicleCategory string `json:"vehicle_category,omitempty"`
	StartTime       string `json:"start_time,omitempty"`
	EndTime         string `json:"end_time,omitempty"`
	WeekdayRate     string `json:"weekday_rate,omitempty"`
	WeekdayMin      string `json:"weekday_min,omitempty"`
	SaturdayRate    string `json:"saturday_rate,omitempty"`
	SaturdayMin     string `json:"saturday_min,omitempty"`
	SundayPHRate    string `json:"sunday_ph_rate,omitempty"`
	SundayPHMin     string `json:"sunday_ph_min,omitempty"`
}

type ListRatesResponse struct {
	CarparkCode string               `json:"carpark_code"`
	Count       int                  `json:"count"`
	Rates       []RateWindowResponse `json:"rates"`
}
