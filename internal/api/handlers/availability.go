package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"carpark-data-service/internal/api/dto"
	"carpark-data-service/internal/domain"
	"carpark-data-service/internal/platform/obs"
	"carpark-data-service/internal/services"
)

type AvailabilityHandler struct {
	Service *services.AvailabilityService
}

// List serves the merged availability snapshot, optionally filtered by
// agency and lot type.
func (h *AvailabilityHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	snap, err := h.Service.Snapshot(r.Context())
	if err != nil {
		log.Printf("availability snapshot failed: %v", err)
		writeError(w, r, http.StatusBadGateway, "upstream data sources unavailable")
		return
	}

	agency := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("agency")))
	lotType := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("lot_type")))

	res := dto.AvailabilityResponse{
		FetchedAt: snap.FetchedAt,
		Rows:      make([]dto.AvailabilityRowResponse, 0, len(snap.Rows)),
	}
	for _, rec := range snap.Rows {
		if agency != "" && string(rec.Agency) != agency {
			continue
		}
		if lotType != "" && rec.LotType != lotType {
			continue
		}
		res.Rows = append(res.Rows, toAvailabilityRow(rec))
	}
	res.Count = len(res.Rows)

	writeJSON(w, r, http.StatusOK, res)
}

// Refresh starts a provider fetch in the background and reports 202.
// Clients pick up the result on their next availability read.
func (h *AvailabilityHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	reqID := obs.RequestID(r.Context())
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		ctx = obs.WithRequestID(ctx, reqID)

		if _, err := h.Service.Refresh(ctx); err != nil {
			log.Printf("manual refresh failed: %v", err)
		}
	}()

	writeJSON(w, r, http.StatusAccepted, dto.RefreshResponse{Status: "refresh started"})
}

func toAvailabilityRow(rec domain.CarparkAvailability) dto.AvailabilityRowResponse {
	row := dto.AvailabilityRowResponse{
		CarparkID:   rec.CarparkID,
		Agency:      string(rec.Agency),
		Development: rec.Development,
		Area:        rec.Area,
		LotType:     rec.LotType,
		LotLabel:    rec.LotLabel,
		Lots:        rec.Lots,
	}

	if rec.SVY21 != nil {
		northing, easting := rec.SVY21.Northing, rec.SVY21.Easting
		row.Northing, row.Easting = &northing, &easting
	}
	if rec.Location != nil {
		lat, lon := rec.Location.Lat, rec.Location.Lon
		row.Lat, row.Lon = &lat, &lon
	}

	return row
}
