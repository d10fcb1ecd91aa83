package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"carpark-data-service/internal/adapters/feedtest"
	"carpark-data-service/internal/domain"
	"carpark-data-service/internal/ports"
	"carpark-data-service/internal/services"
)

type nopRepo struct{}

func (nopRepo) UpsertCarparks(ctx context.Context, carparks []domain.Carpark) error { return nil }
func (nopRepo) ReplaceRates(ctx context.Context, rates []domain.RateWindow) error   { return nil }
func (nopRepo) ListCarparks(ctx context.Context, codes ...string) ([]domain.Carpark, error) {
	return nil, nil
}
func (nopRepo) ListRates(ctx context.Context, code string) ([]domain.RateWindow, error) {
	return nil, ports.ErrNotFound
}
func (nopRepo) InsertAvailability(ctx context.Context, rows []domain.CarparkAvailability) error {
	return nil
}
func (nopRepo) LatestAvailability(ctx context.Context) ([]domain.CarparkAvailability, error) {
	return nil, nil
}

func TestRouterEndToEnd(t *testing.T) {
	ura := &feedtest.Provider{Name: domain.AgencyURA, Rows: []domain.CarparkAvailability{
		{CarparkID: "A0004", Agency: domain.AgencyURA, LotType: "C", LotLabel: "Car", Lots: 107},
	}}
	availability := &services.AvailabilityService{Providers: []ports.AvailabilityProvider{ura}}
	carparks := &services.CarparkService{Repo: nopRepo{}}

	srv := httptest.NewServer(NewRouter(availability, carparks, nopRepo{}))
	defer srv.Close()

	res, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NotEmpty(t, res.Header.Get("X-Request-ID"), "every response should carry a request id")

	res, err = http.Get(srv.URL + "/v1/availability")
	require.NoError(t, err)
	body, err := io.ReadAll(res.Body)
	res.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, int64(1), gjson.GetBytes(body, "count").Int())

	res, err = http.Get(srv.URL + "/v1/rates?code=ZZZZ")
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusNotFound, res.StatusCode)

	res, err = http.Get(srv.URL + "/does-not-exist")
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusNotFound, res.StatusCode)
}
