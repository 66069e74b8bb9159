package handlers

import (
	"bytes"
	"errors"
	"log"
	"net/http"
	"strconv"

	"adventure-backend/internal/monitoring"
	"adventure-backend/internal/render"
)

// ReloadPath is where the live reload websocket is mounted in debug mode
const ReloadPath = "/debug/reload"

// PageData is passed to every page template
type PageData struct {
	Debug      bool
	ReloadPath string
}

type PageHandler struct {
	renderer *render.Renderer
	index    string
	debug    bool
	metrics  *monitoring.Metrics
}

// NewPageHandler serves index from renderer. metrics may be nil.
func NewPageHandler(renderer *render.Renderer, index string, debug bool, metrics *monitoring.Metrics) *PageHandler {
	return &PageHandler{
		renderer: renderer,
		index:    index,
		debug:    debug,
		metrics:  metrics,
	}
}

// Index renders the game page. The request itself is never inspected.
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	data := PageData{Debug: h.debug}
	if h.debug {
		data.ReloadPath = ReloadPath
	}

	var buf bytes.Buffer
	err := h.renderer.Render(&buf, h.index, data)
	if h.metrics != nil {
		h.metrics.RecordRender(h.index, err)
	}
	if err != nil {
		h.renderError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// renderError answers 500 for any render failure; the detail is only
// exposed in debug mode.
func (h *PageHandler) renderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, render.ErrTemplateNotFound):
		log.Printf("[Page] template %s not found: %v", h.index, err)
	case errors.Is(err, render.ErrTemplateParse):
		log.Printf("[Page] template %s does not parse: %v", h.index, err)
	default:
		log.Printf("[Page] rendering %s failed: %v", h.index, err)
	}

	msg := http.StatusText(http.StatusInternalServerError)
	if h.debug {
		msg = msg + ": " + err.Error()
	}
	w.Header().Set("Cache-Control", "no-store")
	http.Error(w, msg, http.StatusInternalServerError)
}
