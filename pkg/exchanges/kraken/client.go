package kraken

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://api.kraken.com"

// Request outcomes reported to an Observer.
const (
	OutcomeOK        = "ok"
	OutcomeTransport = "transport_error"
	OutcomeRejected  = "rejected"
)

// Observer receives one call per request. Implementations must not block.
type Observer interface {
	ObserveRequest(endpoint, outcome string, elapsed time.Duration)
}

// Config holds the client settings. Only Credential is needed for private
// calls; everything else has a default.
type Config struct {
	Credential Credential
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Nonce      *NonceSource
	Observer   Observer
	Logger     zerolog.Logger
}

// Client issues single-attempt requests against the Kraken REST API. It does
// not retry, cache or throttle; spacing calls is the caller's job.
type Client struct {
	cred       Credential
	signer     *Signer
	baseURL    string
	httpClient *http.Client
	nonce      *NonceSource
	observer   Observer
	log        zerolog.Logger
}

type envelope struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

// New validates the credential and builds a client. A non-empty secret that
// is not base64 fails here, before any request can be made.
func New(cfg Config) (*Client, error) {
	c := &Client{
		cred:       cfg.Credential,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: cfg.HTTPClient,
		nonce:      cfg.Nonce,
		observer:   cfg.Observer,
		log:        cfg.Logger,
	}
	if cfg.Credential.APISecret != "" {
		signer, err := NewSigner(cfg.Credential.APISecret)
		if err != nil {
			return nil, err
		}
		c.signer = signer
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		c.httpClient = &http.Client{Timeout: timeout}
	}
	if c.nonce == nil {
		c.nonce = NewNonceSource()
	}
	return c, nil
}

// PublicGet calls GET {base}/0/public/{endpoint} and returns the envelope's
// result.
func (c *Client) PublicGet(ctx context.Context, endpoint string, query url.Values) (json.RawMessage, error) {
	path := "/0/public/" + endpoint
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &TransportError{Method: http.MethodGet, Endpoint: path, Err: err}
	}
	return c.do(req, path)
}

// PrivateCall signs form with a fresh nonce and POSTs it to path
// (e.g. "/0/private/Balance"). The caller's form is not modified.
func (c *Client) PrivateCall(ctx context.Context, path string, form url.Values) (json.RawMessage, error) {
	if c.cred.APIKey == "" {
		return nil, &ConfigError{Field: "api key", Reason: "required for private endpoints"}
	}
	if c.signer == nil {
		return nil, &ConfigError{Field: "api secret", Reason: "required for private endpoints"}
	}

	body := url.Values{}
	for k, v := range form {
		body[k] = append([]string(nil), v...)
	}
	body.Set("nonce", strconv.FormatInt(c.nonce.Next(), 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(body.Encode()))
	if err != nil {
		return nil, &TransportError{Method: http.MethodPost, Endpoint: path, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("API-Key", c.cred.APIKey)
	req.Header.Set("API-Sign", c.signer.Sign(path, body))
	return c.do(req, path)
}

func (c *Client) do(req *http.Request, path string) (json.RawMessage, error) {
	start := time.Now()
	result, err := c.roundTrip(req, path)

	outcome := OutcomeOK
	var semErr *SemanticError
	switch {
	case errors.As(err, &semErr):
		outcome = OutcomeRejected
	case err != nil:
		outcome = OutcomeTransport
	}
	elapsed := time.Since(start)
	if c.observer != nil {
		c.observer.ObserveRequest(path, outcome, elapsed)
	}
	c.log.Debug().Str("method", req.Method).Str("endpoint", path).Str("outcome", outcome).
		Dur("elapsed", elapsed).Msg("kraken request")
	return result, err
}

func (c *Client) roundTrip(req *http.Request, path string) (json.RawMessage, error) {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Method: req.Method, Endpoint: path, Err: err}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &TransportError{Method: req.Method, Endpoint: path, StatusCode: res.StatusCode, Err: err}
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &TransportError{
			Method:     req.Method,
			Endpoint:   path,
			StatusCode: res.StatusCode,
			Err:        fmt.Errorf("unexpected status: %s", truncate(string(raw), 256)),
		}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &TransportError{Method: req.Method, Endpoint: path, StatusCode: res.StatusCode, Err: fmt.Errorf("decode envelope: %w", err)}
	}
	if len(env.Error) > 0 {
		return nil, &SemanticError{Endpoint: path, Messages: env.Error}
	}
	return env.Result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
