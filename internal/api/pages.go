package api

import (
	_ "embed"
	"net/http"
	"strings"

	"github.com/medichat/medichat/internal/log"
)

//go:embed index.html
var indexHTML []byte

//go:embed notfound.html
var notFoundHTML []byte

//go:embed servererror.html
var serverErrorHTML []byte

// PagesHandler serves the chat page and catch-all error responses.
type PagesHandler struct {
	logger log.Logger
}

// NewPagesHandler creates the page handler.
func NewPagesHandler(logger log.Logger) *PagesHandler {
	return &PagesHandler{logger: logger}
}

// RegisterRoutes registers the root catch-all on the given mux.
func (h *PagesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", h.root)
}

// root serves the chat page at exactly "/". Anything else fell through
// the registered routes: API paths get a JSON 404, the rest an HTML page.
func (h *PagesHandler) root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed", h.logger)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(indexHTML)
		return
	}

	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeError(w, http.StatusNotFound, "Resource not found", h.logger)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write(notFoundHTML)
}
