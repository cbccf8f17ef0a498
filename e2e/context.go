package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mirathi/internal/readiness/handler"
	"mirathi/internal/readiness/service"
	"mirathi/internal/readiness/store"
	"mirathi/pkg/platform/middleware/request"
	"mirathi/pkg/platform/middleware/requesttime"
)

// TestContext holds one scenario's state: an in-process readiness service
// over in-memory stores, the last HTTP exchange, and the identifiers the
// scenario has created so far.
type TestContext struct {
	Server     *httptest.Server
	HTTPClient *http.Client

	LastStatus       int
	LastResponseBody []byte

	EstateID     string
	AssessmentID string
	Context      map[string]any

	// risk flag IDs and the payloads that created them, keyed by category
	RiskIDs      map[string]string
	RiskPayloads map[string]map[string]any
	LastVersion  float64
}

// NewTestContext boots a fresh service instance. Every scenario gets its own
// store, so scenarios cannot observe each other's estates.
func NewTestContext() *TestContext {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := service.New(store.New(), service.WithLogger(logger))
	api := handler.New(svc, logger)

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Route("/api/v1", func(r chi.Router) {
		api.Register(r)
	})

	return &TestContext{
		Server:       httptest.NewServer(r),
		HTTPClient:   &http.Client{Timeout: 10 * time.Second},
		RiskIDs:      make(map[string]string),
		RiskPayloads: make(map[string]map[string]any),
	}
}

// Close shuts the scenario's server down.
func (tc *TestContext) Close() {
	if tc.Server != nil {
		tc.Server.Close()
	}
}

// defaultContext is a statutory intestate monogamous estate that routes to
// the High Court: complexity above the magistrate cap, value below the
// commercial court threshold, no minors or disputes.
func defaultContext() map[string]any {
	return map[string]any{
		"regime":              "intestate",
		"marriage_type":       "monogamous",
		"religion":            "statutory",
		"minors_involved":     false,
		"disputed_assets":     false,
		"estate_insolvent":    false,
		"business_assets":     false,
		"foreign_assets":      false,
		"charitable_bequest":  false,
		"disabled_dependants": false,
		"complexity_score":    4,
		"total_beneficiaries": 3,
		"estate_value_kes":    int64(30_000_000),
	}
}

func (tc *TestContext) do(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, tc.Server.URL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read side only

	tc.LastStatus = resp.StatusCode
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	return nil
}

// POST issues a POST and records the response.
func (tc *TestContext) POST(path string, body any) error { return tc.do(http.MethodPost, path, body) }

// PUT issues a PUT and records the response.
func (tc *TestContext) PUT(path string, body any) error { return tc.do(http.MethodPut, path, body) }

// GET issues a GET and records the response.
func (tc *TestContext) GET(path string) error { return tc.do(http.MethodGet, path, nil) }

// FetchAssessment reloads the scenario's assessment and returns it decoded.
func (tc *TestContext) FetchAssessment() (map[string]any, error) {
	if tc.AssessmentID == "" {
		return nil, fmt.Errorf("no assessment created yet")
	}
	if err := tc.GET("/api/v1/assessments/" + tc.AssessmentID); err != nil {
		return nil, err
	}
	if tc.LastStatus != http.StatusOK {
		return nil, fmt.Errorf("fetch assessment: status %d: %s", tc.LastStatus, tc.LastResponseBody)
	}
	var doc map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &doc); err != nil {
		return nil, fmt.Errorf("decode assessment: %w", err)
	}
	return doc, nil
}

// ResponseField extracts a top-level field from the last JSON response.
func (tc *TestContext) ResponseField(field string) (any, error) {
	var doc map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &doc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	value, ok := doc[field]
	if !ok {
		return nil, fmt.Errorf("field %q not in response: %s", field, tc.LastResponseBody)
	}
	return value, nil
}

// newEstateID mints an estate identifier for the scenario.
func newEstateID() string {
	return uuid.New().String()
}
