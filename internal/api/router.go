package api

import (
	"net/http"

	"carpark-data-service/internal/api/handlers"
	"carpark-data-service/internal/ports"
	"carpark-data-service/internal/services"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(
	availability *services.AvailabilityService,
	carparks *services.CarparkService,
	repo ports.CarparkRepository,
) http.Handler {
	mux := http.NewServeMux()

	availHandler := &handlers.AvailabilityHandler{Service: availability}
	carparkHandler := &handlers.CarparkHandler{Repo: repo, Service: carparks}

	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/v1/availability", availHandler.List)
	mux.HandleFunc("/v1/refresh", availHandler.Refresh)
	mux.HandleFunc("/v1/carparks", carparkHandler.List)
	mux.HandleFunc("/v1/rates", carparkHandler.Rates)
	mux.HandleFunc("/v1/carparks.geojson", carparkHandler.GeoJSON)

	return requestIDMiddleware(loggingMiddleware(mux))
}
