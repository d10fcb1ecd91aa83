package ura

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"carpark-data-service/internal/domain"
	"carpark-data-service/internal/platform/httpretry"
)

// Endpoints and headers follow the URA data service conventions. The service
// rejects requests without a browser user agent, and every data call carries
// a daily token obtained from the token endpoint.
const (
	defaultBaseURL = "https://www.ura.gov.sg/uraDataService"

	tokenPath  = "/insertNewToken.action"
	invokePath = "/invokeUraDS"

	availabilityService = "Car_Park_Availability"
	detailsService      = "Car_Park_Details"

	statusSuccess = "Success"

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/106.0.0.0 Safari/537.36"
)

// Client talks to the URA data service. It implements both the availability
// provider and the carpark directory capabilities.
//
// The client is safe for concurrent use. The daily token is fetched lazily
// on the first data call and refreshed once when the service signals an
// expired token.
type Client struct {
	// BaseURL may be pointed at a stub server in tests before first use.
	BaseURL string

	session   *http.Client
	accessKey string

	mu    sync.Mutex
	token string
}

func NewClient(accessKey string) (*Client, error) {
	if accessKey == "" {
		return nil, errors.New("URA access key is empty")
	}

	return &Client{
		BaseURL:   defaultBaseURL,
		session:   &http.Client{Timeout: 10 * time.Second},
		accessKey: accessKey,
	}, nil
}

func (c *Client) Agency() domain.Agency { return domain.AgencyURA }

// envelope is the fixed response wrapper of the data service. Result holds a
// token string on auth calls and a row array on data calls.
type envelope struct {
	Status  string          `json:"Status"`
	Message string          `json:"Message"`
	Result  json.RawMessage `json:"Result"`
}

// envelopeError reports a response whose Status is not "Success".
type envelopeError struct {
	Status  string
	Message string
}

func (e *envelopeError) Error() string {
	return fmt.Sprintf("ura status %q: %s", e.Status, e.Message)
}

func (c *Client) newRequest(ctx context.Context, endpoint string, token string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("AccessKey", c.accessKey)
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Accept", "application/json")

	if token != "" {
		req.Header.Set("Token", token)
	}

	return req, nil
}

// fetchToken performs the token handshake.
func (c *Client) fetchToken(ctx context.Context) (string, error) {
	endpoint := c.BaseURL + tokenPath

	resp, err := httpretry.Do(ctx, c.session, func() (*http.Request, error) {
		return c.newRequest(ctx, endpoint, "")
	})
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	if env.Status != statusSuccess {
		return "", &envelopeError{Status: env.Status, Message: env.Message}
	}

	var token string
	if err := json.Unmarshal(env.Result, &token); err != nil {
		return "", fmt.Errorf("decode token value: %w", err)
	}
	if token == "" {
		return "", errors.New("token endpoint returned an empty token")
	}

	return token, nil
}

func (c *Client) getToken(ctx context.Context, refresh bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && !refresh {
		return c.token, nil
	}

	token, err := c.fetchToken(ctx)
	if err != nil {
		return "", err
	}

	c.token = token
	return token, nil
}

// invoke performs one data service call and returns the Result payload.
// An auth-shaped failure (a 401, or the non-success envelope the service
// uses to signal expired daily tokens) triggers a single token refresh and
// one retry.
func (c *Client) invoke(ctx context.Context, service string) (json.RawMessage, error) {
	token, err := c.getToken(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}

	result, err := c.invokeWithToken(ctx, service, token)
	if err == nil || !isAuthFailure(err) {
		return result, err
	}

	token, err = c.getToken(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}

	return c.invokeWithToken(ctx, service, token)
}

func (c *Client) invokeWithToken(ctx context.Context, service string, token string) (json.RawMessage, error) {
	endpoint := c.BaseURL + invokePath + "?service=" + url.QueryEscape(service)

	resp, err := httpretry.Do(ctx, c.session, func() (*http.Request, error) {
		return c.newRequest(ctx, endpoint, token)
	})
	if err != nil {
		return nil, fmt.Errorf("invoke %s: %w", service, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", service, err)
	}

	if env.Status != statusSuccess {
		return nil, &envelopeError{Status: env.Status, Message: env.Message}
	}

	return env.Result, nil
}

func isAuthFailure(err error) bool {
	var se *httpretry.StatusError
	if errors.As(err, &se) && se.Code == http.StatusUnauthorized {
		return true
	}
	var ee *envelopeError
	return errors.As(err, &ee)
}
