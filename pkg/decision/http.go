package decision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/absmach/dexgate/partition"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const contentType = "application/json"

var errEmptyURL = errors.New("decision URL is required")

type actionRequest struct {
	Time   float64              `json:"time"`
	States map[string][]float64 `json:"states"`
}

type actionResponse struct {
	Action []float64 `json:"action"`
}

type httpTaker struct {
	url    string
	client *http.Client
}

// NewHTTP returns a decision function that posts every complete round as
// JSON to an external policy service and reads its action back.
func NewHTTP(rawURL string, client *http.Client) (partition.ActionTaker, error) {
	if rawURL == "" {
		return nil, errEmptyURL
	}
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, fmt.Errorf("decision URL is not a valid URL: %w", err)
	}
	if client == nil {
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	return &httpTaker{url: rawURL, client: client}, nil
}

func (h *httpTaker) TakeNextAction(ctx context.Context, time float64, states map[string][]float64) ([]float64, error) {
	body, err := json.Marshal(actionRequest{Time: time, States: states})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal round: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach decision service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("decision service returned unexpected status: %s", resp.Status)
	}

	var ar actionResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return nil, fmt.Errorf("failed to decode decision response: %w", err)
	}

	return ar.Action, nil
}
