package searchindex

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(ClientConfig{
		AppID:        "APPID",
		APIKey:       "secret",
		BaseURL:      srv.URL,
		AllowPrivate: true,
		HTTPClient:   srv.Client(),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestClient_ListIndices_Pagination(t *testing.T) {
	// WHAT: ListIndices follows nbPages and parses updatedAt.
	// WHY: applications with many indices get paged listings.
	var pages []string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/1/indexes" {
			t.Errorf("path: got %q", r.URL.Path)
		}
		if got := r.Header.Get("X-Algolia-Application-Id"); got != "APPID" {
			t.Errorf("app id header: got %q", got)
		}
		if got := r.Header.Get("X-Algolia-API-Key"); got != "secret" {
			t.Errorf("api key header: got %q", got)
		}
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		switch page {
		case "0":
			w.Write([]byte(`{"items":[{"name":"wp_posts","entries":10,"updatedAt":"2024-03-01T10:00:00Z"}],"nbPages":2}`))
		default:
			w.Write([]byte(`{"items":[{"name":"other","entries":5,"updatedAt":"2024-03-02T11:30:00Z"}],"nbPages":2}`))
		}
	})

	list, err := c.ListIndices(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("pages requested: got %v", pages)
	}
	if len(list) != 2 {
		t.Fatalf("indices: got %d, want 2", len(list))
	}
	if list[0].Name != "wp_posts" || list[0].Entries != 10 {
		t.Errorf("first: got %+v", list[0])
	}
	want := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	if !list[0].UpdatedAt.Equal(want) {
		t.Errorf("updatedAt: got %v, want %v", list[0].UpdatedAt, want)
	}
}

func TestClient_GetSettings(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/1/indexes/wp_posts/settings" {
			t.Errorf("path: got %q", r.URL.Path)
		}
		w.Write([]byte(`{"searchableAttributes":["post_title","content"],"hitsPerPage":20}`))
	})

	s, err := c.GetSettings(context.Background(), "wp_posts")
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	attrs, ok := s["searchableAttributes"].([]any)
	if !ok || len(attrs) != 2 {
		t.Fatalf("searchableAttributes: got %#v", s["searchableAttributes"])
	}
	if s["hitsPerPage"] != float64(20) {
		t.Errorf("hitsPerPage: got %#v", s["hitsPerPage"])
	}
}

func TestClient_GetRecord_NotFound(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"ObjectID does not exist","status":404}`))
	})

	_, err := c.GetRecord(context.Background(), "wp_searchable_posts", "42-0")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error: got %v, want ErrNotFound", err)
	}
}

func TestClient_GetRecord_Found(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/1/indexes/wp_searchable_posts/42-0" {
			t.Errorf("path: got %q", r.URL.Path)
		}
		w.Write([]byte(`{"objectID":"42-0","post_title":"Hello"}`))
	})

	rec, err := c.GetRecord(context.Background(), "wp_searchable_posts", "42-0")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if rec["objectID"] != "42-0" {
		t.Errorf("objectID: got %#v", rec["objectID"])
	}
}

func TestClient_StatusError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"Invalid Application-ID or API key","status":403}`))
	})

	_, err := c.ListIndices(context.Background())
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("error: got %T %v, want *StatusError", err, err)
	}
	if se.Code != 403 || se.Body != "Invalid Application-ID or API key" {
		t.Errorf("status error: got %+v", se)
	}
}

// WHAT: an HTML error page from a proxy is reported as its text.
// WHY: the status panel prints the message in a table cell.
func TestClient_StatusError_HTMLBody(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html><body>\n<h1>502 Bad Gateway</h1>\n<p>nginx &amp; co</p>\n</body></html>"))
	})

	_, err := c.ListIndices(context.Background())
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("error: got %T %v, want *StatusError", err, err)
	}
	if se.Code != 502 || se.Body != "502 Bad Gateway nginx & co" {
		t.Errorf("status error: got %+v", se)
	}
}

func TestClient_RejectsUnsafeIndexName(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not be sent")
	})
	if _, err := c.GetSettings(context.Background(), "../keys"); err == nil {
		t.Fatal("expected error for traversal index name")
	}
}

func TestNewClient_PrivateBaseURL(t *testing.T) {
	_, err := NewClient(ClientConfig{AppID: "x", BaseURL: "http://127.0.0.1:9200"})
	if err == nil {
		t.Fatal("expected SSRF rejection for loopback base url")
	}
}

func TestNewClient_DefaultBaseURL(t *testing.T) {
	if _, err := NewClient(ClientConfig{}); err == nil {
		t.Fatal("expected error without app id or base url")
	}
}
