package signing

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// AutographConfig configures an AutographClient.
type AutographConfig struct {
	// URL is the service root, e.g. "https://autograph.example.com".
	URL string

	// Authorization is sent verbatim as the Authorization header.
	Authorization string

	// KeyID selects a signer on the service. Empty uses the default.
	KeyID string

	// Timeout bounds each HTTP request. Zero means 30s.
	Timeout time.Duration

	// HTTPClient overrides the client (tests). Timeout is ignored when set.
	HTTPClient *http.Client
}

// AutographClient signs payloads with an Autograph service through its
// /sign/data endpoint. One HTTP request is made per Sign call.
type AutographClient struct {
	url           string
	authorization string
	keyID         string
	http          *http.Client
}

// NewAutographClient creates a client.
func NewAutographClient(cfg AutographConfig) *AutographClient {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &AutographClient{
		url:           strings.TrimRight(cfg.URL, "/"),
		authorization: cfg.Authorization,
		keyID:         cfg.KeyID,
		http:          client,
	}
}

type autographRequest struct {
	Input string `json:"input"`
	KeyID string `json:"keyid,omitempty"`
}

type autographResponse struct {
	Ref       string `json:"ref"`
	Type      string `json:"type"`
	Mode      string `json:"mode"`
	SignerID  string `json:"signer_id"`
	PublicKey string `json:"public_key"`
	Signature string `json:"signature"`
	X5U       string `json:"x5u"`
}

// Sign implements Signer.
//
// Transport errors, 429 and 5xx responses yield *SigningUnavailable.
// Any other non-2xx status, an undecodable body or an undecodable
// signature yields *SignerProtocolError. Result count is checked by the
// Coordinator.
func (c *AutographClient) Sign(ctx context.Context, payloads [][]byte) ([]SignResult, error) {
	if len(payloads) == 0 {
		return []SignResult{}, nil
	}

	reqs := make([]autographRequest, len(payloads))
	for i, p := range payloads {
		reqs[i] = autographRequest{Input: base64.StdEncoding.EncodeToString(p), KeyID: c.keyID}
	}
	body, err := json.Marshal(reqs)
	if err != nil {
		return nil, fmt.Errorf("encode sign request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/sign/data", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build sign request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.authorization != "" {
		req.Header.Set("Authorization", c.authorization)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &SigningUnavailable{Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, &SigningUnavailable{Cause: fmt.Errorf("read response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &SigningUnavailable{Cause: fmt.Errorf("autograph returned %s", resp.Status)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &SignerProtocolError{Message: fmt.Sprintf("autograph returned %s: %s", resp.Status, snippet(respBody))}
	}

	var out []autographResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, &SignerProtocolError{Message: fmt.Sprintf("decode response: %v", err)}
	}

	results := make([]SignResult, len(out))
	for i, r := range out {
		sig, err := decodeSignature(r.Signature)
		if err != nil {
			return nil, &SignerProtocolError{Message: fmt.Sprintf("result %d: %v", i, err)}
		}
		ref := r.X5U
		if ref == "" {
			ref = r.PublicKey
		}
		results[i] = SignResult{Signature: sig, PublicKeyRef: ref}
	}
	return results, nil
}

// decodeSignature accepts the base64 variants Autograph signers emit.
func decodeSignature(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	for _, enc := range []*base64.Encoding{
		base64.RawURLEncoding,
		base64.URLEncoding,
		base64.StdEncoding,
		base64.RawStdEncoding,
	} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, fmt.Errorf("signature is not base64")
}

func snippet(b []byte) string {
	const n = 200
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
