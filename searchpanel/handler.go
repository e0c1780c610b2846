package searchpanel

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hazyhaar/qmsearch/host"
	"github.com/hazyhaar/qmsearch/shield"
)

// Handler returns the HTTP routes:
//
//	GET  /healthz          liveness and breaker state
//	POST /panels           host request JSON → panels JSON
//	POST /panels.html      host request JSON → HTML page
//	GET  /panels/{topic}   one topic from query parameters
//	GET  /runs             recent collector runs
//	GET  /cache            stored transients
//	DELETE /cache/{key}    drop one transient
//	GET  /metrics          prometheus
func (p *Panel) Handler() http.Handler {
	r := chi.NewRouter()
	for _, mw := range shield.DefaultStack() {
		r.Use(mw)
	}

	r.Get("/healthz", p.handleHealth)
	r.Post("/panels", p.handlePanelsJSON)
	r.Post("/panels.html", p.handlePanelsHTML)
	r.Get("/panels/{topic}", p.handleTopic)
	r.Get("/runs", p.handleRuns)
	r.Get("/cache", p.handleCache)
	r.Delete("/cache/{key}", p.handleForget)
	r.Handle("/metrics", promhttp.HandlerFor(p.promReg, promhttp.HandlerOpts{}))
	return r
}

// panelsResponse is the JSON shape of /panels.
type panelsResponse struct {
	RequestID string      `json:"request_id,omitempty"`
	Panels    []View      `json:"panels"`
	Snapshots []*Snapshot `json:"snapshots,omitempty"`
}

func (p *Panel) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"breaker": p.BreakerState(),
	})
}

func (p *Panel) handlePanelsJSON(w http.ResponseWriter, r *http.Request) {
	res, ok := p.collectBody(w, r)
	if !ok {
		return
	}
	resp := panelsResponse{RequestID: res.RequestID, Panels: p.Render(res)}
	if r.URL.Query().Get("raw") == "1" {
		resp.Snapshots = res.Snapshots
	}
	writeJSON(w, http.StatusOK, resp)
}

func (p *Panel) handlePanelsHTML(w http.ResponseWriter, r *http.Request) {
	res, ok := p.collectBody(w, r)
	if !ok {
		return
	}
	p.writeHTML(w, r, p.Render(res))
}

func (p *Panel) handleTopic(w http.ResponseWriter, r *http.Request) {
	topic := chi.URLParam(r, "topic")
	req, err := requestFromQuery(r)
	if err != nil {
		jsonErr(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := p.Collect(r.Context(), req, topic)
	if errors.Is(err, ErrUnknownTopic) {
		jsonErr(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		shield.GetLogger(r.Context()).Error("collect", "error", err)
		jsonErr(w, "internal error", http.StatusInternalServerError)
		return
	}

	views := p.Render(res)
	switch r.URL.Query().Get("format") {
	case "html":
		p.writeHTML(w, r, views)
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := WriteText(w, views); err != nil {
			shield.GetLogger(r.Context()).Warn("write text", "error", err)
		}
	default:
		writeJSON(w, http.StatusOK, panelsResponse{RequestID: res.RequestID, Panels: views})
	}
}

func (p *Panel) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := p.Runs(r.Context(), limit)
	if err != nil {
		shield.GetLogger(r.Context()).Error("runs", "error", err)
		jsonErr(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (p *Panel) handleCache(w http.ResponseWriter, r *http.Request) {
	entries, err := p.CacheEntries(r.Context())
	if err != nil {
		shield.GetLogger(r.Context()).Error("cache entries", "error", err)
		jsonErr(w, "internal error", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []CacheEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (p *Panel) handleForget(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := p.Forget(r.Context(), key); err != nil {
		shield.GetLogger(r.Context()).Error("cache forget", "key", key, "error", err)
		jsonErr(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// collectBody decodes the host request from the body and runs every
// collector. An empty body is an empty request.
func (p *Panel) collectBody(w http.ResponseWriter, r *http.Request) (*Result, bool) {
	var req host.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		jsonErr(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	res, err := p.Collect(r.Context(), &req)
	if err != nil {
		shield.GetLogger(r.Context()).Error("collect", "error", err)
		jsonErr(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}
	return res, true
}

func (p *Panel) writeHTML(w http.ResponseWriter, r *http.Request, views []View) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := WriteHTML(w, views); err != nil {
		shield.GetLogger(r.Context()).Warn("write html", "error", err)
	}
}

// requestFromQuery builds a host request from post_id, post_type, kind and
// admin. Settings come from the configuration.
func requestFromQuery(r *http.Request) (*host.Request, error) {
	q := r.URL.Query()
	req := &host.Request{Admin: q.Get("admin") == "1"}
	if raw := q.Get("post_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return nil, errors.New("post_id must be a positive integer")
		}
		kind := q.Get("kind")
		if kind == "" {
			kind = host.KindPost
		}
		switch kind {
		case host.KindPost, host.KindTerm, host.KindUser:
		default:
			return nil, errors.New("kind must be post, term or user")
		}
		req.Item = &host.Item{Kind: kind, ID: id, Type: q.Get("post_type")}
	}
	return req, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonErr(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
