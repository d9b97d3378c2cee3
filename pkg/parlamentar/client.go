// Package parlamentar fetches the legislator directory used to fill in the
// authorship of an amendment.
package parlamentar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coolbeans/emenda/pkg/emenda"
)

const (
	// DefaultURL is the public legislator listing.
	DefaultURL = "https://emendas-api.herokuapp.com/parlamentares"
	// DefaultUserAgent is sent with every directory request.
	DefaultUserAgent = "emenda-parlamentares/1.0"
	// DefaultTimeout bounds one directory request.
	DefaultTimeout = 30 * time.Second
)

// ClientConfig configures a Client.
type ClientConfig struct {
	// URL of the listing. Default: DefaultURL.
	URL string

	// RateLimit is the minimum interval between requests. Default: 500ms.
	RateLimit time.Duration

	// Timeout bounds each request when HTTPClient is nil. Default: 30s.
	Timeout time.Duration

	// HTTPClient sends the requests. If nil, an *http.Client with Timeout is
	// used. It is always wrapped with rate limiting.
	HTTPClient HTTPClient

	UserAgent string
}

// DefaultConfig returns the configuration for the public listing.
func DefaultConfig() ClientConfig {
	return ClientConfig{
		URL:       DefaultURL,
		RateLimit: DefaultRequestInterval,
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
	}
}

// Client reads the legislator listing.
type Client struct {
	url        string
	httpClient *RateLimitedHTTPClient
	userAgent  string
}

// NewClient creates a client, filling unset configuration with defaults.
func NewClient(config ClientConfig) *Client {
	defaults := DefaultConfig()
	if config.URL == "" {
		config.URL = defaults.URL
	}
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	underlying := config.HTTPClient
	if underlying == nil {
		underlying = &http.Client{Timeout: config.Timeout}
	}
	return &Client{
		url:        config.URL,
		httpClient: NewRateLimitedHTTPClient(underlying, config.RateLimit),
		userAgent:  config.UserAgent,
	}
}

// Close releases the rate limiter.
func (client *Client) Close() {
	client.httpClient.Close()
}

// registro is one record of the listing.
type registro struct {
	ID           identificacao `json:"id"`
	Nome         string        `json:"nome"`
	Sexo         string        `json:"sexo"`
	SiglaPartido string        `json:"siglaPartido"`
	SiglaUF      string        `json:"siglaUF"`
	SiglaCasa    string        `json:"siglaCasa"`
}

// identificacao accepts numeric and string ids.
type identificacao string

func (id *identificacao) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var texto string
		if err := json.Unmarshal(raw, &texto); err != nil {
			return err
		}
		*id = identificacao(texto)
		return nil
	}
	var numero json.Number
	if err := json.Unmarshal(raw, &numero); err != nil {
		return fmt.Errorf("invalid legislator id %s: %w", raw, err)
	}
	*id = identificacao(numero.String())
	return nil
}

// Listar fetches every legislator of the listing.
func (client *Client) Listar(ctx context.Context) ([]emenda.Parlamentar, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, client.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", client.url, err)
	}
	request.Header.Set("User-Agent", client.userAgent)
	request.Header.Set("Accept", "application/json")

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch legislators: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf("legislator listing returned status %d", response.StatusCode)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read legislator listing: %w", err)
	}
	var registros []registro
	if err := json.Unmarshal(body, &registros); err != nil {
		return nil, fmt.Errorf("failed to parse legislator listing: %w", err)
	}

	parlamentares := make([]emenda.Parlamentar, 0, len(registros))
	for _, registro := range registros {
		parlamentares = append(parlamentares, emenda.Parlamentar{
			Identificacao:        string(registro.ID),
			Nome:                 registro.Nome,
			Sexo:                 registro.Sexo,
			SiglaPartido:         registro.SiglaPartido,
			SiglaUF:              registro.SiglaUF,
			SiglaCasaLegislativa: registro.SiglaCasa,
		})
	}
	return parlamentares, nil
}
