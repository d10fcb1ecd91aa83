package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"carpark-data-service/internal/api/dto"
	"carpark-data-service/internal/domain"
	"carpark-data-service/internal/ports"
	"carpark-data-service/internal/services"
)

type CarparkHandler struct {
	Repo    ports.CarparkRepository
	Service *services.CarparkService
}

// List serves carpark reference records, optionally filtered to a
// comma-separated set of codes.
func (h *CarparkHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var codes []string
	if raw := strings.TrimSpace(r.URL.Query().Get("codes")); raw != "" {
		for _, code := range strings.Split(raw, ",") {
			if code = strings.TrimSpace(code); code != "" {
				codes = append(codes, code)
			}
		}
	}

	carparks, err := h.Repo.ListCarparks(r.Context(), codes...)
	if err != nil {
		log.Printf("list carparks failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.ListCarparksResponse{Carparks: make([]dto.CarparkResponse, 0, len(carparks))}
	for _, cp := range carparks {
		res.Carparks = append(res.Carparks, toCarparkResponse(cp))
	}
	res.Count = len(res.Carparks)

	writeJSON(w, r, http.StatusOK, res)
}

// Rates serves the tariff windows for one carpark code.
func (h *CarparkHandler) Rates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if code == "" {
		writeError(w, r, http.StatusBadRequest, "code is required")
		return
	}

	rates, err := h.Repo.ListRates(r.Context(), code)
	if errors.Is(err, ports.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "carpark not found")
		return
	}
	if err != nil {
		log.Printf("list rates failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.ListRatesResponse{
		CarparkCode: code,
		Rates:       make([]dto.RateWindowResponse, 0, len(rates)),
	}
	for _, rate := range rates {
		res.Rates = append(res.Rates, dto.RateWindowResponse{
			CarparkCode:     rate.CarparkCode,
			VehicleCategory: rate.VehicleCat,
			StartTime:       rate.StartTime,
			EndTime:         rate.EndTime,
			WeekdayRate:     rate.WeekdayRate,
			WeekdayMin:      rate.WeekdayMin,
			SaturdayRate:    rate.SaturdayRate,
			SaturdayMin:     rate.SaturdayMin,
			SundayPHRate:    rate.SundayPHRate,
			SundayPHMin:     rate.SundayPHMin,
		})
	}
	res.Count = len(res.Rates)

	writeJSON(w, r, http.StatusOK, res)
}

// GeoJSON exports every positioned carpark as a FeatureCollection.
func (h *CarparkHandler) GeoJSON(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	payload, err := h.Service.ExportGeoJSON(r.Context())
	if err != nil {
		log.Printf("export geojson failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeGeoJSON(w, r, http.StatusOK, payload)
}

func toCarparkResponse(cp domain.Carpark) dto.CarparkResponse {
	res := dto.CarparkResponse{
		Code:            cp.Code,
		Name:            cp.Name,
		VehicleCategory: cp.VehicleCat,
		ParkingSystem:   cp.ParkingSystem,
		Capacity:        cp.Capacity,
		Remarks:         cp.Remarks,
		UpdatedAt:       cp.UpdatedAt,
	}

	if cp.SVY21 != nil {
		northing, easting := cp.SVY21.Northing, cp.SVY21.Easting
		res.Northing, res.Easting = &northing, &easting
	}
	if cp.Location != nil {
		lat, lon := cp.Location.Lat, cp.Location.Lon
		res.Lat, res.Lon = &lat, &lon
	}

	return res
}
