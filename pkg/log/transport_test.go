package log

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTransport_SetsRequestIDAndLogs(t *testing.T) {
	var gotID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get(headerRequestID)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	logger := New(Config{Level: "debug", Output: &buf})
	client := &http.Client{Transport: NewTransport(nil, logger)}

	resp, err := client.Get(srv.URL + "/api/videos/1/viewers")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()

	if gotID == "" {
		t.Fatalf("expected X-Request-ID to be set on outbound request")
	}
	out := buf.String()
	if !strings.Contains(out, "outbound request completed") {
		t.Fatalf("expected completion log, got %q", out)
	}
	if !strings.Contains(out, gotID) {
		t.Fatalf("expected log to carry request id %s, got %q", gotID, out)
	}
}

func TestTransport_KeepsCallerRequestID(t *testing.T) {
	var gotID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get(headerRequestID)
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewTransport(nil, New(Config{Level: "disabled"}))}
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set(headerRequestID, "req-1")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()

	if gotID != "req-1" {
		t.Fatalf("request id=%q want=req-1", gotID)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]string{
		"debug":    "debug",
		" WARN ":   "warn",
		"warning":  "warn",
		"off":      "disabled",
		"":         "info",
		"whatever": "info",
	}
	for in, want := range cases {
		if got := parseLevel(in).String(); got != want {
			t.Fatalf("parseLevel(%q)=%s want=%s", in, got, want)
		}
	}
}
