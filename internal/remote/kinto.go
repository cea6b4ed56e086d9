package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
)

// KintoConfig configures a KintoClient.
type KintoConfig struct {
	// URL is the server root, without the /v1 suffix.
	URL string

	// Authorization is sent verbatim as the Authorization header.
	Authorization string

	// WorkspaceBucket receives staged changes. Default "main-workspace".
	WorkspaceBucket string

	// PublishBucket is read when listing. Default "main".
	PublishBucket string

	// Collection is the collection id in both buckets.
	Collection string

	// Timeout bounds each HTTP request. Zero means 30s.
	Timeout time.Duration

	// HTTPClient overrides the client (tests). Timeout is ignored when set.
	HTTPClient *http.Client
}

// serverFields are added by the server and never part of a payload.
var serverFields = []string{"last_modified", "schema"}

// KintoClient is a Collection backed by the Remote Settings (Kinto) HTTP
// API. Writes go to the workspace bucket; listing reads the publish
// bucket; approval asks the server to sign and publish the workspace.
type KintoClient struct {
	base          string
	authorization string
	workspace     string
	publish       string
	collection    string
	http          *http.Client
}

// NewKintoClient creates a client.
func NewKintoClient(cfg KintoConfig) *KintoClient {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	workspace := cfg.WorkspaceBucket
	if workspace == "" {
		workspace = "main-workspace"
	}
	publish := cfg.PublishBucket
	if publish == "" {
		publish = "main"
	}
	return &KintoClient{
		base:          strings.TrimRight(cfg.URL, "/") + "/v1",
		authorization: cfg.Authorization,
		workspace:     workspace,
		publish:       publish,
		collection:    cfg.Collection,
		http:          client,
	}
}

func (c *KintoClient) collectionPath(bucket string) string {
	return fmt.Sprintf("%s/buckets/%s/collections/%s", c.base, url.PathEscape(bucket), url.PathEscape(c.collection))
}

func (c *KintoClient) recordPath(id string) string {
	return c.collectionPath(c.workspace) + "/records/" + url.PathEscape(id)
}

// ListRecords implements Collection. Server-managed fields are stripped
// and each record is re-canonicalized so it compares byte for byte with
// locally built payloads.
func (c *KintoClient) ListRecords(ctx context.Context) ([]Record, error) {
	body, err := c.do(ctx, http.MethodGet, c.collectionPath(c.publish)+"/records", nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data []map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}

	records := make([]Record, 0, len(resp.Data))
	for _, raw := range resp.Data {
		var id string
		if err := json.Unmarshal(raw["id"], &id); err != nil || id == "" {
			return nil, fmt.Errorf("record without string id")
		}
		for _, f := range serverFields {
			delete(raw, f)
		}
		stripped, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", id, err)
		}
		payload, err := jsoncanonicalizer.Transform(stripped)
		if err != nil {
			return nil, fmt.Errorf("canonicalize record %s: %w", id, err)
		}
		records = append(records, Record{ID: id, Payload: payload})
	}
	return records, nil
}

// UpsertRecord implements Collection.
func (c *KintoClient) UpsertRecord(ctx context.Context, rec Record) error {
	body, err := json.Marshal(map[string]json.RawMessage{"data": rec.Payload})
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.ID, err)
	}
	_, err = c.do(ctx, http.MethodPut, c.recordPath(rec.ID), body)
	return err
}

// DeleteRecord implements Collection. A record that is already gone is
// not an error.
func (c *KintoClient) DeleteRecord(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, c.recordPath(id), nil)
	if isNotFound(err) {
		return nil
	}
	return err
}

// isNotFound reports whether err, or anything it wraps, is a 404 response.
func isNotFound(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.Status == http.StatusNotFound
}

// ApprovePendingChanges implements Collection by requesting review
// signing of the workspace collection.
func (c *KintoClient) ApprovePendingChanges(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPatch, c.collectionPath(c.workspace), []byte(`{"data":{"status":"to-sign"}}`))
	return err
}

func (c *KintoClient) do(ctx context.Context, method, target string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authorization != "" {
		req.Header.Set("Authorization", c.authorization)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(respBody))
		if len(msg) > 200 {
			msg = msg[:200] + "..."
		}
		return nil, &HTTPError{Method: method, URL: target, Status: resp.StatusCode, Body: msg}
	}
	return respBody, nil
}
