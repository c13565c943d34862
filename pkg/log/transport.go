package log

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Transport is an http.RoundTripper that stamps outgoing requests with an
// X-Request-ID and logs each round trip at debug level. Failed round trips
// are logged at warn.
type Transport struct {
	Base   http.RoundTripper
	Logger zerolog.Logger
}

// NewTransport wraps base (http.DefaultTransport when nil).
func NewTransport(base http.RoundTripper, logger zerolog.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{Base: base, Logger: logger}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	reqID := req.Header.Get(headerRequestID)
	if reqID == "" {
		reqID = uuid.New().String()
		req = req.Clone(req.Context())
		req.Header.Set(headerRequestID, reqID)
	}

	resp, err := t.Base.RoundTrip(req)

	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		t.Logger.Warn().
			Str(FieldRequestID, reqID).
			Str(FieldMethod, req.Method).
			Str(FieldURL, req.URL.String()).
			Float64(FieldLatency, latency).
			Err(err).
			Msg("outbound request failed")
		return nil, err
	}

	t.Logger.Debug().
		Str(FieldRequestID, reqID).
		Str(FieldMethod, req.Method).
		Str(FieldURL, req.URL.String()).
		Int(FieldStatus, resp.StatusCode).
		Float64(FieldLatency, latency).
		Msg("outbound request completed")

	return resp, nil
}
