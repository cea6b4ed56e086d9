package signing

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAutograph serves /sign/data. handler overrides the default echo
// behavior when set.
type fakeAutograph struct {
	requests atomic.Int32
	lastAuth atomic.Value
	handler  http.HandlerFunc
}

func (f *fakeAutograph) server(t *testing.T) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Post("/sign/data", func(w http.ResponseWriter, req *http.Request) {
		f.requests.Add(1)
		f.lastAuth.Store(req.Header.Get("Authorization"))
		if f.handler != nil {
			f.handler(w, req)
			return
		}
		var in []autographRequest
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		out := make([]autographResponse, len(in))
		for i, item := range in {
			raw, _ := base64.StdEncoding.DecodeString(item.Input)
			out[i] = autographResponse{
				Ref:       "ref",
				Signature: base64.RawURLEncoding.EncodeToString(append([]byte("sig:"), raw...)),
				X5U:       "https://autograph.example.com/x5u/" + item.KeyID,
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestAutographClient_Sign(t *testing.T) {
	fake := &fakeAutograph{}
	srv := fake.server(t)

	client := NewAutographClient(AutographConfig{URL: srv.URL + "/", Authorization: "Hawk id=\"x\"", KeyID: "normandy"})
	results, err := client.Sign(context.Background(), [][]byte{[]byte(`{"id":"a"}`), []byte(`{"id":"b"}`)})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, []byte(`sig:{"id":"a"}`), results[0].Signature)
	assert.Equal(t, []byte(`sig:{"id":"b"}`), results[1].Signature)
	assert.Equal(t, "https://autograph.example.com/x5u/normandy", results[0].PublicKeyRef)
	assert.True(t, results[0].Timestamp.IsZero())
	assert.Equal(t, `Hawk id="x"`, fake.lastAuth.Load())
	assert.Equal(t, int32(1), fake.requests.Load())
}

func TestAutographClient_EmptyInputSkipsNetwork(t *testing.T) {
	fake := &fakeAutograph{}
	srv := fake.server(t)

	results, err := NewAutographClient(AutographConfig{URL: srv.URL}).Sign(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, fake.requests.Load())
}

func TestAutographClient_FallsBackToPublicKey(t *testing.T) {
	fake := &fakeAutograph{handler: func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"signature":"c2ln","public_key":"MHYwEAYH"}]`))
	}}
	srv := fake.server(t)

	results, err := NewAutographClient(AutographConfig{URL: srv.URL}).Sign(context.Background(), [][]byte{[]byte("x")})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []byte("sig"), results[0].Signature)
	assert.Equal(t, "MHYwEAYH", results[0].PublicKeyRef)
}

func TestAutographClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		unavailable bool
	}{
		{name: "server error", status: http.StatusBadGateway, body: "upstream", unavailable: true},
		{name: "rate limited", status: http.StatusTooManyRequests, body: "slow down", unavailable: true},
		{name: "unauthorized", status: http.StatusUnauthorized, body: "bad hawk"},
		{name: "bad request", status: http.StatusBadRequest, body: "nope"},
		{name: "garbage body", status: http.StatusOK, body: "<html>"},
		{name: "bad signature encoding", status: http.StatusOK, body: `[{"signature":"!!!"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeAutograph{handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}}
			srv := fake.server(t)

			_, err := NewAutographClient(AutographConfig{URL: srv.URL}).Sign(context.Background(), [][]byte{[]byte("x")})
			require.Error(t, err)
			assert.Equal(t, tt.unavailable, IsUnavailable(err), "unavailable: %v", err)
			assert.Equal(t, !tt.unavailable, IsProtocolError(err), "protocol: %v", err)
		})
	}
}

func TestAutographClient_ConnectionRefusedIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewAutographClient(AutographConfig{URL: url}).Sign(context.Background(), [][]byte{[]byte("x")})
	assert.True(t, IsUnavailable(err))
}

func TestDecodeSignature_Variants(t *testing.T) {
	raw := []byte{0xfb, 0xff, 0xfe, 0x01}
	for _, enc := range []*base64.Encoding{
		base64.RawURLEncoding,
		base64.URLEncoding,
		base64.StdEncoding,
		base64.RawStdEncoding,
	} {
		got, err := decodeSignature(enc.EncodeToString(raw))
		require.NoError(t, err)
		assert.Equal(t, raw, got)
	}
}
