// Package api is the request/response client for the session, config and
// summary endpoints of the voice-agent backend. No retries, no caching;
// every failure is logged and returned to the caller.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultSummaryLimit is used when a caller asks for summaries without a limit.
const DefaultSummaryLimit = 3

// RequestError is returned when the backend answers with a non-2xx status.
type RequestError struct {
	Status int
	Body   string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Body)
}

// Client talks to the voice-agent backend.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logrus.Logger
}

// New creates a Client against the given base URL.
func New(baseURL string, log *logrus.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

// CreateSession requests a room credential for one call.
func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (SessionResponse, error) {
	var resp SessionResponse
	err := c.do(ctx, http.MethodPost, "/api/session", nil, req, &resp)
	return resp, err
}

// ListSummaries fetches recent post-call summaries. An empty phone asks for
// the service's default scope; limit falls back to DefaultSummaryLimit.
func (c *Client) ListSummaries(ctx context.Context, phone string, limit int) ([]SummaryRecord, error) {
	if limit <= 0 {
		limit = DefaultSummaryLimit
	}
	q := url.Values{}
	if phone != "" {
		q.Set("phone", phone)
	}
	q.Set("limit", strconv.Itoa(limit))

	var records []SummaryRecord
	err := c.do(ctx, http.MethodGet, "/api/summaries", q, nil, &records)
	return records, err
}

// GetConfig fetches the realtime endpoint and default timezone.
func (c *Client) GetConfig(ctx context.Context) (ConfigResponse, error) {
	var resp ConfigResponse
	err := c.do(ctx, http.MethodGet, "/api/config", nil, nil, &resp)
	return resp, err
}

// ListAppointments fetches upcoming appointments for a caller.
func (c *Client) ListAppointments(ctx context.Context, phone string, daysAhead int, status string) ([]Appointment, error) {
	q := url.Values{}
	q.Set("phone", phone)
	if daysAhead > 0 {
		q.Set("days_ahead", strconv.Itoa(daysAhead))
	}
	if status != "" {
		q.Set("status", status)
	}

	var records []Appointment
	err := c.do(ctx, http.MethodGet, "/api/appointments", q, nil, &records)
	return records, err
}

// ListSlots fetches bookable slots, optionally filtered by date and service.
func (c *Client) ListSlots(ctx context.Context, date, serviceType string) ([]Slot, error) {
	q := url.Values{}
	if date != "" {
		q.Set("date", date)
	}
	if serviceType != "" {
		q.Set("service_type", serviceType)
	}

	var slots []Slot
	err := c.do(ctx, http.MethodGet, "/api/slots", q, nil, &slots)
	return slots, err
}

// Health checks backend reachability.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var resp HealthResponse
	err := c.do(ctx, http.MethodGet, "/api/health", nil, nil, &resp)
	return resp, err
}

// do performs one request and decodes the response into out. It logs the
// call's start and completion with latency, and never swallows an error.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	fields := logrus.Fields{"method": method, "path": path}
	c.log.WithFields(fields).Debug("api request start")
	start := time.Now()

	resp, err := c.http.Do(req)
	latency := time.Since(start)
	if err != nil {
		c.log.WithFields(fields).WithField("latency", latency).WithError(err).Error("api request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	fields["status"] = resp.StatusCode
	fields["latency"] = latency

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		reqErr := &RequestError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
		c.log.WithFields(fields).WithError(reqErr).Error("api request rejected")
		return reqErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.log.WithFields(fields).WithError(err).Error("api response decode failed")
			return fmt.Errorf("decode %s response: %w", path, err)
		}
	}

	c.log.WithFields(fields).Info("api request complete")
	return nil
}
