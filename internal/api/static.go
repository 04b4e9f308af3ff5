package api

import (
	"io/fs"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type staticHandler struct {
	fs fs.FS
}

func newStaticHandler(staticFS fs.FS) *staticHandler {
	return &staticHandler{fs: staticFS}
}

func (h *staticHandler) serveNamed(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.serve(w, r, name)
	}
}

// ServeHTTP serves /{filename} from the static filesystem.
func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	h.serve(w, r, name)
}

func (h *staticHandler) serve(w http.ResponseWriter, r *http.Request, name string) {
	if h.fs == nil || name == "" || !fs.ValidPath(name) {
		http.NotFound(w, r)
		return
	}
	info, err := fs.Stat(h.fs, name)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	setSecurityHeaders(w, cacheControlNoCache)
	http.ServeFileFS(w, r, h.fs, name)
}
