package ports

import (
	"carpark-data-service/internal/domain"
	"context"
	"errors"
)

// ErrNotFound reports that a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Port: a boundary for persisting and querying carpark data.
type CarparkRepository interface {
	// Insert or update reference records keyed by carpark code.
	UpsertCarparks(ctx context.Context, carparks []domain.Carpark) error
	// Replace all tariff windows with the given set.
	ReplaceRates(ctx context.Context, rates []domain.RateWindow) error
	// Retrieve reference records, optionally filtered by code.
	ListCarparks(ctx context.Context, codes ...string) ([]domain.Carpark, error)
	// Retrieve tariff windows for one carpark. Returns ErrNotFound when the
	// carpark code is unknown.
	ListRates(ctx context.Context, code string) ([]domain.RateWindow, error)
	// Append availability rows from one refresh.
	InsertAvailability(ctx context.Context, rows []domain.CarparkAvailability) error
	// Retrieve the newest stored reading per carpark, agency and lot type.
	LatestAvailability(ctx context.Context) ([]domain.CarparkAvailability, error)
}
