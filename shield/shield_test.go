package shield

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hazyhaar/qmsearch/kit"
)

func chain(h http.Handler) http.Handler {
	stack := DefaultStack()
	for i := len(stack) - 1; i >= 0; i-- {
		h = stack[i](h)
	}
	return h
}

func TestDefaultStack_HeadersAndRequestID(t *testing.T) {
	var gotID string
	h := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = kit.GetRequestID(r.Context())
		if GetLogger(r.Context()) == nil {
			t.Error("no logger")
		}
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if gotID == "" || rec.Header().Get(RequestIDHeader) != gotID {
		t.Errorf("request id: ctx=%q header=%q", gotID, rec.Header().Get(RequestIDHeader))
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff")
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("missing CSP")
	}
}

func TestRequestLogger_ReusesValidIncomingID(t *testing.T) {
	const incoming = "0190b4a2-7c1e-7d3f-8a5b-2f6c9e1d4a7b"
	var gotID string
	h := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = kit.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, incoming)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if gotID != incoming {
		t.Errorf("id = %q, want %q", gotID, incoming)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if gotID == "<script>" {
		t.Error("invalid incoming id reused")
	}
}

func TestForceFresh(t *testing.T) {
	tests := []struct {
		name   string
		target string
		header string
		want   bool
	}{
		{"none", "/panels", "", false},
		{"query", "/panels?fresh=1", "", true},
		{"header", "/panels", "1", true},
		{"header false", "/panels", "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got bool
			h := ForceFresh(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = kit.ForceFresh(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set(ForceFreshHeader, tt.header)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got != tt.want {
				t.Errorf("force fresh = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHeadToGet(t *testing.T) {
	var method string
	h := HeadToGet(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodHead, "/", nil))
	if method != http.MethodGet {
		t.Errorf("method = %s", method)
	}
}
