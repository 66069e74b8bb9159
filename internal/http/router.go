package http

import (
	"io/fs"
	"net/http"
	"path"
	"strings"

	"adventure-backend/internal/handlers"
	"adventure-backend/internal/health"
	"adventure-backend/internal/monitoring"

	"github.com/gorilla/mux"
)

type RouterOptions struct {
	// StaticFS is served under /static/; nil disables static assets
	StaticFS fs.FS
	// Reload is mounted at handlers.ReloadPath when set (debug mode)
	Reload *handlers.ReloadHandler
	Debug  bool
}

// NewRouter builds the public routes. Anything not listed here is a 404.
func NewRouter(pages *handlers.PageHandler, opts RouterOptions) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", pages.Index).Methods(http.MethodGet, http.MethodHead)

	if opts.StaticFS != nil {
		r.PathPrefix("/static/").
			Handler(http.StripPrefix("/static", staticHandler(opts.StaticFS, opts.Debug))).
			Methods(http.MethodGet, http.MethodHead)
	}

	if opts.Reload != nil {
		r.HandleFunc(handlers.ReloadPath, opts.Reload.ServeWS).Methods(http.MethodGet)
	}

	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	return r
}

// NewAdminRouter serves health and metrics on the monitoring listener
func NewAdminRouter(checker *health.HealthChecker, metrics *monitoring.Metrics) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/health", checker).Methods(http.MethodGet, http.MethodHead)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(notFound)
	return r
}

// staticHandler serves files only; directories (including the root) are 404
// rather than listings or redirects.
func staticHandler(fsys fs.FS, debug bool) http.Handler {
	files := http.FileServer(http.FS(fsys))
	cacheControl := "public, max-age=3600"
	if debug {
		cacheControl = "no-cache"
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name == "" || strings.HasSuffix(r.URL.Path, "/") {
			notFound(w, r)
			return
		}
		info, err := fs.Stat(fsys, name)
		if err != nil || info.IsDir() {
			notFound(w, r)
			return
		}

		w.Header().Set("Cache-Control", cacheControl)
		files.ServeHTTP(w, r)
	})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "404 page not found", http.StatusNotFound)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
