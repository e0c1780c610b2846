package shield

import (
	"net/http"

	"github.com/hazyhaar/qmsearch/kit"
)

// ForceFreshHeader asks the panels to bypass cached remote data.
const ForceFreshHeader = "X-Force-Fresh"

// ForceFresh marks the request context with kit.WithForceFresh when the
// header or the "fresh" query parameter is "1" or "true".
func ForceFresh(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if truthy(r.Header.Get(ForceFreshHeader)) || truthy(r.URL.Query().Get("fresh")) {
			r = r.WithContext(kit.WithForceFresh(r.Context(), true))
		}
		next.ServeHTTP(w, r)
	})
}

func truthy(v string) bool {
	return v == "1" || v == "true"
}
