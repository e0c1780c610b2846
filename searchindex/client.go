package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/qmsearch/horosafe"
)

// ClientConfig configures the REST client.
type ClientConfig struct {
	AppID   string
	APIKey  string
	BaseURL string // default https://<AppID>-dsn.algolia.net
	Timeout time.Duration

	// AllowPrivate skips the private-address check on BaseURL. Needed for
	// local mirrors and httptest servers.
	AllowPrivate bool

	HTTPClient *http.Client
}

// Client talks to the search service's REST API.
type Client struct {
	base   string
	appID  string
	apiKey string
	http   *http.Client
}

// NewClient validates the configuration and builds a Client.
func NewClient(cfg ClientConfig) (*Client, error) {
	base := cfg.BaseURL
	if base == "" {
		if cfg.AppID == "" {
			return nil, fmt.Errorf("searchindex: app id or base url is required")
		}
		base = "https://" + cfg.AppID + "-dsn.algolia.net"
	}
	if !cfg.AllowPrivate {
		if err := horosafe.ValidateURL(base); err != nil {
			return nil, fmt.Errorf("searchindex: %w", err)
		}
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		base:   base,
		appID:  cfg.AppID,
		apiKey: cfg.APIKey,
		http:   hc,
	}, nil
}

type listIndicesResponse struct {
	Items []struct {
		Name      string `json:"name"`
		Entries   int64  `json:"entries"`
		UpdatedAt string `json:"updatedAt"`
	} `json:"items"`
	NbPages int `json:"nbPages"`
}

// ListIndices returns every index of the application, following pagination.
func (c *Client) ListIndices(ctx context.Context) ([]Summary, error) {
	var out []Summary
	for page := 0; ; page++ {
		var resp listIndicesResponse
		path := "/1/indexes?page=" + strconv.Itoa(page)
		if err := c.get(ctx, "list indices", path, &resp); err != nil {
			return nil, err
		}
		for _, it := range resp.Items {
			s := Summary{Name: it.Name, Entries: it.Entries}
			if it.UpdatedAt != "" {
				t, err := time.Parse(time.RFC3339, it.UpdatedAt)
				if err != nil {
					return nil, fmt.Errorf("searchindex: list indices: updatedAt of %s: %w", it.Name, err)
				}
				s.UpdatedAt = t
			}
			out = append(out, s)
		}
		if page+1 >= resp.NbPages {
			break
		}
	}
	return out, nil
}

// GetSettings returns the raw settings document of index.
func (c *Client) GetSettings(ctx context.Context, index string) (map[string]any, error) {
	if err := horosafe.ValidateIdentifier(index); err != nil {
		return nil, fmt.Errorf("searchindex: get settings: %w", err)
	}
	settings := map[string]any{}
	if err := c.get(ctx, "get settings", "/1/indexes/"+url.PathEscape(index)+"/settings", &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// GetRecord fetches one object by id.
func (c *Client) GetRecord(ctx context.Context, index, id string) (Record, error) {
	if err := horosafe.ValidateIdentifier(index); err != nil {
		return nil, fmt.Errorf("searchindex: get record: %w", err)
	}
	if err := horosafe.ValidateIdentifier(id); err != nil {
		return nil, fmt.Errorf("searchindex: get record: %w", err)
	}
	rec := Record{}
	path := "/1/indexes/" + url.PathEscape(index) + "/" + url.PathEscape(id)
	if err := c.get(ctx, "get record", path, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (c *Client) get(ctx context.Context, op, path string, into any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("searchindex: %s: new request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Algolia-Application-Id", c.appID)
	req.Header.Set("X-Algolia-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("searchindex: %s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := horosafe.LimitedReadAll(resp.Body, horosafe.MaxResponseBody)
	if err != nil {
		return fmt.Errorf("searchindex: %s: read body: %w", op, err)
	}

	if resp.StatusCode == http.StatusNotFound && op == "get record" {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Op: op, Code: resp.StatusCode, Body: apiMessage(body)}
	}

	if err := json.Unmarshal(body, into); err != nil {
		return fmt.Errorf("searchindex: %s: json decode: %w", op, err)
	}
	return nil
}

// textOnly reduces HTML error pages (proxies, load balancers) to their text.
var textOnly = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}()

// apiMessage extracts {"message": "..."} from an error body. Anything else
// is reported as its text, markup removed, truncated to 200 bytes.
func apiMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		return e.Message
	}
	msg := string(body)
	if bytes.IndexByte(body, '<') >= 0 {
		msg = html.UnescapeString(textOnly.Sanitize(msg))
	}
	msg = strings.Join(strings.Fields(msg), " ")
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
