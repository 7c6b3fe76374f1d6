package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ByLCY/romaneio/documents"
	"github.com/ByLCY/romaneio/kvstore"
)

type fakeGenerator struct {
	err   error
	kinds []documents.Kind
	got   []byte
}

func (f *fakeGenerator) Generate(_ context.Context, kind documents.Kind, input json.RawMessage) ([]byte, error) {
	f.got = input
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.7 " + string(kind)), nil
}

func (f *fakeGenerator) Kinds() []documents.Kind { return f.kinds }

func newTestServer(t *testing.T, gen *fakeGenerator, opts Options) (*httptest.Server, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	opts.Generator = gen
	opts.Logger = zap.New(core)
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, logs
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func readAll(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return data
}

func TestCreateThenFetch(t *testing.T) {
	gen := &fakeGenerator{}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ts, logs := newTestServer(t, gen, Options{Now: func() time.Time { return now }})

	resp := post(t, ts.URL+"/documents/delivery-sheet", `{"route_code":"R1"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d: %s", resp.StatusCode, readAll(t, resp))
	}
	var created createResponse
	if err := json.Unmarshal(readAll(t, resp), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(created.ID) != 32 || created.URL != "/documents/"+created.ID {
		t.Fatalf("unexpected response: %+v", created)
	}
	if !created.ExpiresAt.Equal(now.Add(DefaultTTL)) {
		t.Fatalf("expires_at = %v", created.ExpiresAt)
	}
	if string(gen.got) != `{"route_code":"R1"}` {
		t.Fatalf("generator input = %q", gen.got)
	}

	get, err := http.Get(ts.URL + created.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if get.Header.Get("Content-Type") != "application/pdf" {
		t.Fatalf("content-type = %q", get.Header.Get("Content-Type"))
	}
	if cd := get.Header.Get("Content-Disposition"); !strings.HasPrefix(cd, "inline;") {
		t.Fatalf("content-disposition = %q", cd)
	}
	if body := readAll(t, get); !bytes.Equal(body, []byte("%PDF-1.7 delivery-sheet")) {
		t.Fatalf("body = %q", body)
	}

	dl, err := http.Get(ts.URL + created.URL + "?download=1")
	if err != nil {
		t.Fatalf("GET download: %v", err)
	}
	readAll(t, dl)
	if cd := dl.Header.Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment;") {
		t.Fatalf("download disposition = %q", cd)
	}

	if logs.FilterMessage("[Server] Document stored").Len() != 1 {
		t.Fatalf("expected stored log entry")
	}
}

func TestFetchExpired(t *testing.T) {
	ts, _ := newTestServer(t, &fakeGenerator{}, Options{TTL: 20 * time.Millisecond})
	resp := post(t, ts.URL+"/documents/route-report", `{}`)
	var created createResponse
	if err := json.Unmarshal(readAll(t, resp), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	get, err := http.Get(ts.URL + created.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	readAll(t, get)
	if get.StatusCode != http.StatusNotFound {
		t.Fatalf("过期后应返回 404, got %d", get.StatusCode)
	}
}

func TestRenderDirect(t *testing.T) {
	ts, _ := newTestServer(t, &fakeGenerator{}, Options{})
	resp := post(t, ts.URL+"/documents/delivery-proof/render", `{}`)
	body := readAll(t, resp)
	if resp.StatusCode != http.StatusOK || !bytes.HasPrefix(body, []byte("%PDF")) {
		t.Fatalf("render = %d %q", resp.StatusCode, body)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != `inline; filename="delivery-proof.pdf"` {
		t.Fatalf("content-disposition = %q", cd)
	}
}

func TestErrorStatuses(t *testing.T) {
	cases := []struct {
		name string
		err  error
		path string
		body string
		want int
	}{
		{"unknown kind", nil, "/documents/invoice", `{}`, http.StatusNotFound},
		{"invalid input", fmt.Errorf("%w: orders", documents.ErrInvalidInput), "/documents/delivery-sheet", `{}`, http.StatusBadRequest},
		{"render failure", fmt.Errorf("%w: boom", documents.ErrRender), "/documents/delivery-sheet/render", `{}`, http.StatusInternalServerError},
		{"too large", nil, "/documents/delivery-sheet", strings.Repeat("x", 64), http.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		ts, _ := newTestServer(t, &fakeGenerator{err: tc.err}, Options{MaxBodyBytes: 32})
		resp := post(t, ts.URL+tc.path, tc.body)
		body := readAll(t, resp)
		if resp.StatusCode != tc.want {
			t.Fatalf("%s: status = %d, want %d (%s)", tc.name, resp.StatusCode, tc.want, body)
		}
		var payload map[string]string
		if err := json.Unmarshal(body, &payload); err != nil || payload["error"] == "" {
			t.Fatalf("%s: expected JSON error body, got %q", tc.name, body)
		}
	}
}

func TestFetchMissing(t *testing.T) {
	ts, logs := newTestServer(t, &fakeGenerator{}, Options{Store: kvstore.NewMemory()})
	resp, err := http.Get(ts.URL + "/documents/does-not-exist")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	readAll(t, resp)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	entries := logs.FilterMessage("[Server] Request").All()
	if len(entries) != 1 || entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected one warn request log, got %+v", entries)
	}
}

func TestHealth(t *testing.T) {
	gen := &fakeGenerator{kinds: []documents.Kind{documents.KindDeliverySheet, documents.KindRouteReport}}
	ts, _ := newTestServer(t, gen, Options{})
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var payload struct {
		Status string   `json:"status"`
		Kinds  []string `json:"kinds"`
	}
	if err := json.Unmarshal(readAll(t, resp), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff([]string{"delivery-sheet", "route-report"}, payload.Kinds); diff != "" || payload.Status != "ok" {
		t.Fatalf("health mismatch (-want +got):\n%s", diff)
	}
}

type downStore struct{ kvstore.Store }

func (downStore) Ping(context.Context) error { return fmt.Errorf("connection refused") }

func TestHealthStorePing(t *testing.T) {
	gen := &fakeGenerator{kinds: []documents.Kind{documents.KindDeliverySheet}}
	ts, logs := newTestServer(t, gen, Options{Store: downStore{kvstore.NewMemory()}})
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var payload struct {
		Status string `json:"status"`
		Store  string `json:"store"`
	}
	if err := json.Unmarshal(readAll(t, resp), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Status != "degraded" || payload.Store != "connection refused" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if logs.FilterMessage("[Server] Store ping failed").Len() != 1 {
		t.Fatalf("expected ping failure log")
	}
}

func TestNewRequiresGenerator(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatalf("expected error")
	}
}
