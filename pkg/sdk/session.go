package sdk

import (
	"encoding/json"
	"net/http"
	"time"
)

const (
	sessionsEndpoint = "/sessions"
	healthEndpoint   = "/health"
)

type Session struct {
	ID         string    `json:"id"`
	RemoteAddr string    `json:"remote_addr"`
	OpenedAt   time.Time `json:"opened_at"`
	Rounds     uint64    `json:"rounds"`
	Pending    int       `json:"pending"`
}

type SessionsPage struct {
	Total    uint64    `json:"total"`
	Sessions []Session `json:"sessions"`
}

type Health struct {
	Status     string `json:"status"`
	InstanceID string `json:"instance_id"`
}

func (sdk *gatewaySDK) ListSessions() (SessionsPage, error) {
	url := sdk.gatewayURL + sessionsEndpoint

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return SessionsPage{}, err
	}

	var sp SessionsPage
	if err := json.Unmarshal(body, &sp); err != nil {
		return SessionsPage{}, err
	}

	return sp, nil
}

func (sdk *gatewaySDK) Health() (Health, error) {
	url := sdk.gatewayURL + healthEndpoint

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return Health{}, err
	}

	var h Health
	if err := json.Unmarshal(body, &h); err != nil {
		return Health{}, err
	}

	return h, nil
}
