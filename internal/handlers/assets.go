package handlers

import (
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tasknest/apiserver/internal/storage"
)

// AssetsHandler serves static assets out of object storage. Unknown keys
// and backend read failures both surface as plain 404s.
func AssetsHandler(store *storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		if key == "" || strings.Contains(key, "..") {
			http.NotFound(w, r)
			return
		}

		reader, err := store.Get(r.Context(), key)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer reader.Close()

		// Object storage clients may defer the existence check to the
		// first read, so buffer before committing to a 200.
		data, err := io.ReadAll(reader)
		if err != nil {
			http.NotFound(w, r)
			return
		}

		if contentType := mime.TypeByExtension(path.Ext(key)); contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		_, _ = w.Write(data)
	}
}
