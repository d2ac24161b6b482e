package bunq

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// DefaultBaseURL is the production bunq API endpoint.
const DefaultBaseURL = "https://api.bunq.com/v1"

// APIError is a non-2xx response from the remote API.
type APIError struct {
	Status int
	Path   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bunq %s failed: %d", e.Path, e.Status)
}

// Dialer produces per-connection clients. The HTTP client and logger are
// shared; the signing key is per household.
type Dialer struct {
	BaseURL    string
	HTTPClient *http.Client
	Log        *zap.Logger
}

// Dial returns a client signing with the given private key.
func (d *Dialer) Dial(key *rsa.PrivateKey) *Client {
	base := d.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	hc := d.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{baseURL: base, hc: hc, key: key, log: log}
}

// Client issues signed requests for one connection. It is stateless and safe
// to reuse across requests with different session tokens.
type Client struct {
	baseURL string
	hc      *http.Client
	key     *rsa.PrivateKey
	log     *zap.Logger
}

// envelope is the provider's outer response wrapper.
type envelope struct {
	Response []json.RawMessage `json:"Response"`
}

// Do sends one signed request. The body is serialized once and the signature
// is computed over exactly those bytes (an empty string when body is nil);
// re-serializing would break remote verification. The auth token header is
// attached only when token is non-empty (absent for the installation call).
func (c *Client) Do(ctx context.Context, method, path string, body any, token string) ([]json.RawMessage, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
	}

	sig, err := signBody(c.key, payload)
	if err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}

	reqID, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("X-Bunq-Client-Signature", base64.StdEncoding.EncodeToString(sig))
	req.Header.Set("X-Bunq-Client-Request-Id", reqID.String())
	req.Header.Set("X-Bunq-Language", "nl_NL")
	req.Header.Set("X-Bunq-Region", "nl_NL")
	req.Header.Set("X-Bunq-Geolocation", "0 0 0 0 000")
	if token != "" {
		req.Header.Set("X-Bunq-Client-Authentication", token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bunq %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("bunq %s: read body: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Error("bunq error",
			zap.Int("status", resp.StatusCode),
			zap.String("path", path),
			zap.ByteString("body", raw),
		)
		return nil, &APIError{Status: resp.StatusCode, Path: path}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("bunq %s: decode envelope: %w", path, err)
	}
	return env.Response, nil
}

// firstTagged returns the value of the first of the given keys present in any
// envelope item, scanning items in response order. The provider wraps each
// item in a single-key object naming its variant.
func firstTagged(items []json.RawMessage, keys ...string) (json.RawMessage, string, bool) {
	for _, item := range items {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err != nil {
			continue
		}
		for _, k := range keys {
			if v, ok := obj[k]; ok {
				return v, k, true
			}
		}
	}
	return nil, "", false
}
