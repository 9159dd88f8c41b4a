package api

import (
	"net/http"
	"strings"
)

// Route is an HTTP route with method, pattern and handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Group is a collection of routes sharing a prefix.
type Group struct {
	Prefix string
	Routes []Route
}

// Build registers every group on a new ServeMux.
func Build(groups ...Group) *http.ServeMux {
	mux := http.NewServeMux()
	for _, group := range groups {
		for _, route := range group.Routes {
			mux.HandleFunc(route.Method+" "+group.Prefix+route.Pattern, route.Handler)
		}
	}
	return mux
}

// TrimSlash redirects requests with a trailing slash to the canonical path
// without it. The root path "/" is preserved.
func TrimSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(r.URL.Path) > 1 && strings.HasSuffix(r.URL.Path, "/") {
			target := strings.TrimSuffix(r.URL.Path, "/")
			if r.URL.RawQuery != "" {
				target += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, target, http.StatusMovedPermanently)
			return
		}
		next.ServeHTTP(w, r)
	})
}
