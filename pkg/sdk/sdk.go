package sdk

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
)

const CTJSON string = "application/json"

type SDK interface {
	// ListSessions lists the simulation connections open on the gateway.
	//
	// example:
	//  page, _ := sdk.ListSessions()
	//  fmt.Println(page.Total)
	ListSessions() (SessionsPage, error)

	// Health reports the gateway status and instance id.
	//
	// example:
	//  h, _ := sdk.Health()
	//  fmt.Println(h.Status)
	Health() (Health, error)
}

type gatewaySDK struct {
	gatewayURL string
	client     *http.Client
}

type Config struct {
	GatewayURL      string
	TLSVerification bool
}

func NewSDK(cfg Config) SDK {
	return &gatewaySDK{
		gatewayURL: cfg.GatewayURL,
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.TLSVerification,
				},
			},
		},
	}
}

func (sdk *gatewaySDK) processRequest(method, reqURL string, data []byte, expectedRespCode int) ([]byte, error) {
	req, err := http.NewRequest(method, reqURL, bytes.NewReader(data))
	if err != nil {
		return []byte{}, err
	}

	req.Header.Add("Content-Type", CTJSON)

	resp, err := sdk.client.Do(req)
	if err != nil {
		return []byte{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return []byte{}, err
	}

	if resp.StatusCode != expectedRespCode {
		return []byte{}, fmt.Errorf("unexpected response code: %d", resp.StatusCode)
	}

	return body, nil
}
