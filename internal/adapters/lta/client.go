package lta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"carpark-data-service/internal/domain"
	"carpark-data-service/internal/platform/httpretry"
	"carpark-data-service/internal/platform/obs"
)

const (
	defaultBaseURL   = "http://datamall2.mytransport.sg/ltaodataservice"
	availabilityPath = "/CarParkAvailabilityv2"

	// DataMall caps every response at 500 rows; larger result sets are
	// paged with $skip.
	pageSize = 500
)

// Client talks to the LTA DataMall OData service. Authentication is a
// static AccountKey header; no handshake is involved.
type Client struct {
	// BaseURL may be pointed at a stub server in tests before first use.
	BaseURL string

	session    *http.Client
	accountKey string
}

func NewClient(accountKey string) (*Client, error) {
	if accountKey == "" {
		return nil, errors.New("LTA account key is empty")
	}

	return &Client{
		BaseURL:    defaultBaseURL,
		session:    &http.Client{Timeout: 10 * time.Second},
		accountKey: accountKey,
	}, nil
}

func (c *Client) Agency() domain.Agency { return domain.AgencyLTA }

type availabilityRow struct {
	CarParkID     string `json:"CarParkID"`
	Area          string `json:"Area"`
	Development   string `json:"Development"`
	Location      string `json:"Location"`
	AvailableLots int    `json:"AvailableLots"`
	LotType       string `json:"LotType"`
	Agency        string `json:"Agency"`
}

type availabilityResponse struct {
	Value []availabilityRow `json:"value"`
}

// ListAvailability walks the paged feed and returns the LTA-managed rows.
// The feed mirrors HDB-agency rows owned by a separate HDB feed; those are
// dropped here.
func (c *Client) ListAvailability(ctx context.Context) (_ []domain.CarparkAvailability, err error) {
	defer obs.Time(ctx, "lta.ListAvailability")(&err)

	fetchedAt := time.Now().UTC()
	out := make([]domain.CarparkAvailability, 0, pageSize)

	for skip := 0; ; skip += pageSize {
		rows, err := c.fetchPage(ctx, skip)
		if err != nil {
			return nil, fmt.Errorf("list availability: %w", err)
		}

		for _, row := range rows {
			if row.Agency != string(domain.AgencyLTA) {
				continue
			}

			out = append(out, domain.CarparkAvailability{
				CarparkID:   row.CarParkID,
				Agency:      domain.AgencyLTA,
				Development: row.Development,
				Area:        row.Area,
				LotType:     row.LotType,
				LotLabel:    domain.LotTypeLabel(row.LotType),
				Lots:        row.AvailableLots,
				Location:    parseLocation(row.Location),
				FetchedAt:   fetchedAt,
			})
		}

		// A short page is the last page.
		if len(rows) < pageSize {
			return out, nil
		}
	}
}

func (c *Client) fetchPage(ctx context.Context, skip int) ([]availabilityRow, error) {
	endpoint := c.BaseURL + availabilityPath
	if skip > 0 {
		endpoint += "?$skip=" + strconv.Itoa(skip)
	}

	resp, err := httpretry.Do(ctx, c.session, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("AccountKey", c.accountKey)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch page skip=%d: %w", skip, err)
	}
	defer resp.Body.Close()

	var decoded availabilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode page skip=%d: %w", skip, err)
	}

	return decoded.Value, nil
}

// parseLocation parses the "lat lon" string the feed publishes per carpark.
// Blank or malformed locations leave the record without a position.
func parseLocation(s string) *domain.LatLon {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return nil
	}

	lat, errLat := strconv.ParseFloat(fields[0], 64)
	lon, errLon := strconv.ParseFloat(fields[1], 64)
	if errLat != nil || errLon != nil {
		return nil
	}

	if lat == 0 && lon == 0 {
		return nil
	}

	return &domain.LatLon{Lat: lat, Lon: lon}
}
