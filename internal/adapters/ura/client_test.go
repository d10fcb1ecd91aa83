package ura

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"carpark-data-service/internal/domain"
)

func writeEnvelope(w http.ResponseWriter, result string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"Status":"Success","Message":"","Result":` + result + `}`))
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient("test-key")
	require.NoError(t, err)
	client.BaseURL = baseURL
	return client
}

func TestClientFetchesTokenOnce(t *testing.T) {
	var tokenCalls, dataCalls int32
	var gotAccessKey, gotRequestedWith, gotUserAgent, gotToken string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case tokenPath:
			atomic.AddInt32(&tokenCalls, 1)
			gotAccessKey = r.Header.Get("AccessKey")
			gotRequestedWith = r.Header.Get("X-Requested-With")
			gotUserAgent = r.Header.Get("User-Agent")
			writeEnvelope(w, `"daily-token"`)
		case invokePath:
			atomic.AddInt32(&dataCalls, 1)
			gotToken = r.Header.Get("Token")
			writeEnvelope(w, `[]`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.ListAvailability(context.Background())
	require.NoError(t, err)
	_, err = client.ListAvailability(context.Background())
	require.NoError(t, err)

	require.EqualValues(t, 1, atomic.LoadInt32(&tokenCalls), "token handshake should happen once")
	require.EqualValues(t, 2, atomic.LoadInt32(&dataCalls))

	require.Equal(t, "test-key", gotAccessKey)
	require.Equal(t, "XMLHttpRequest", gotRequestedWith)
	require.Contains(t, gotUserAgent, "Mozilla/5.0")
	require.Equal(t, "daily-token", gotToken)
}

func TestClientRefreshesExpiredToken(t *testing.T) {
	var tokenCalls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case tokenPath:
			n := atomic.AddInt32(&tokenCalls, 1)
			writeEnvelope(w, fmt.Sprintf(`"token-%d"`, n))
		case invokePath:
			if r.Header.Get("Token") == "token-1" {
				// How the service signals an expired daily token.
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"Status":"Fail","Message":"Invalid Token","Result":""}`))
				return
			}
			writeEnvelope(w, `[{"carparkNo":"A0004","geometries":[{"coordinates":"28956.4609,29088.2522"}],"lotType":"C","lotsAvailable":"107"}]`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	rows, err := client.ListAvailability(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.EqualValues(t, 2, atomic.LoadInt32(&tokenCalls), "expired token should be refreshed once")
}

func TestClientPropagatesEnvelopeFailure(t *testing.T) {
	var tokenCalls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case tokenPath:
			atomic.AddInt32(&tokenCalls, 1)
			writeEnvelope(w, `"daily-token"`)
		case invokePath:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"Status":"Fail","Message":"Service not available","Result":""}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.ListAvailability(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "Service not available")
	require.EqualValues(t, 2, atomic.LoadInt32(&tokenCalls), "one refresh attempt before giving up")
}

func TestClientRetriesServerErrors(t *testing.T) {
	var invokeAttempts int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case tokenPath:
			writeEnvelope(w, `"daily-token"`)
		case invokePath:
			if atomic.AddInt32(&invokeAttempts, 1) == 1 {
				http.Error(w, "upstream hiccup", http.StatusInternalServerError)
				return
			}
			writeEnvelope(w, `[]`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	rows, err := client.ListAvailability(context.Background())
	require.NoError(t, err)
	require.Empty(t, rows)
	require.EqualValues(t, 2, atomic.LoadInt32(&invokeAttempts))
}

func TestFlattenAvailability(t *testing.T) {
	fetchedAt := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	rows := []availabilityRow{
		{
			CarparkNo:     "A0004",
			LotType:       "C",
			LotsAvailable: "107",
			Geometries: []geometry{
				{Coordinates: "28956.4609,29088.2522"},
				{Coordinates: "29000.0,29100.0"},
			},
		},
		{CarparkNo: "B0001", LotType: "M", LotsAvailable: "12"},
		{CarparkNo: "C0099", LotType: "H", LotsAvailable: "n/a", Geometries: []geometry{{Coordinates: "0,0"}}},
	}

	recs := flattenAvailability(rows, fetchedAt)
	require.Len(t, recs, 4, "rows explode one record per geometry")

	require.Equal(t, "A0004", recs[0].CarparkID)
	require.Equal(t, "Car", recs[0].LotLabel)
	require.Equal(t, 107, recs[0].Lots)
	require.NotNil(t, recs[0].SVY21)
	require.InDelta(t, 28956.4609, recs[0].SVY21.Easting, 1e-9)
	require.InDelta(t, 29088.2522, recs[0].SVY21.Northing, 1e-9)
	require.NotNil(t, recs[1].SVY21)

	require.Equal(t, "Motorcycle", recs[2].LotLabel)
	require.Nil(t, recs[2].SVY21, "row without geometries keeps no position")

	require.Equal(t, 0, recs[3].Lots, "unparsable count keeps the row with zero lots")
	require.Equal(t, "Heavy Vehicle", recs[3].LotLabel)
	require.Nil(t, recs[3].SVY21, `"0,0" is the feed's null placeholder`)

	for _, rec := range recs {
		require.Equal(t, domain.AgencyURA, rec.Agency)
		require.True(t, rec.FetchedAt.Equal(fetchedAt))
	}
}

func TestParsePlanePoint(t *testing.T) {
	require.Nil(t, parsePlanePoint(""))
	require.Nil(t, parsePlanePoint("12345"))
	require.Nil(t, parsePlanePoint("a,b"))
	require.Nil(t, parsePlanePoint("0,0"))

	pt := parsePlanePoint("28956.4609, 29088.2522")
	require.NotNil(t, pt)
	require.InDelta(t, 28956.4609, pt.Easting, 1e-9)
	require.InDelta(t, 29088.2522, pt.Northing, 1e-9)
}

func TestSplitDetails(t *testing.T) {
	updatedAt := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	rows := []detailRow{
		{
			PPCode: "A0004", PPName: "ALIWAL STREET", VehCat: "Car",
			StartTime: "08.30 AM", EndTime: "05.00 PM",
			WeekdayRate: "$0.50", WeekdayMin: "30 mins",
			SatdayRate: "$0.50", SatdayMin: "30 mins",
			SunPHRate: "$0.50", SunPHMin: "30 mins",
			ParkingSystem: "B", ParkCapacity: 97,
			Geometries: []geometry{{Coordinates: "31045.6165,31694.0055"}},
		},
		{
			PPCode: "A0004", PPName: "ALIWAL STREET", VehCat: "Motorcycle",
			StartTime: "05.00 PM", EndTime: "10.00 PM",
			WeekdayRate: "$0.80", WeekdayMin: "30 mins",
			ParkingSystem: "B", ParkCapacity: 97,
		},
		{PPCode: "K0101", PPName: "KOEK ROAD", VehCat: "Car", ParkCapacity: 498},
	}

	carparks, rates := splitDetails(rows, updatedAt)
	require.Len(t, carparks, 2, "reference records dedupe by code")
	require.Len(t, rates, 3, "every source row contributes a tariff window")

	require.Equal(t, "A0004", carparks[0].Code)
	require.Equal(t, "ALIWAL STREET", carparks[0].Name)
	require.Equal(t, 97, carparks[0].Capacity)
	require.NotNil(t, carparks[0].SVY21)
	require.InDelta(t, 31045.6165, carparks[0].SVY21.Easting, 1e-9)
	require.InDelta(t, 31694.0055, carparks[0].SVY21.Northing, 1e-9)

	require.Equal(t, "K0101", carparks[1].Code)
	require.Nil(t, carparks[1].SVY21)

	require.Equal(t, "Motorcycle", rates[1].VehicleCat)
	require.Equal(t, "$0.80", rates[1].WeekdayRate)
	require.Equal(t, "A0004", rates[1].CarparkCode)
}
