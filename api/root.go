// Package api implements the REST surface: global config, session CRUD and
// the service banner.
package api

import "net/http"

const serviceName = "DeepChat API"

// RegisterRoot registers GET / (service banner) and GET /health.
func RegisterRoot(mux *http.ServeMux, version string) {
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": serviceName,
			"version": version,
		})
	})

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}
