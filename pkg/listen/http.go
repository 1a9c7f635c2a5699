package listen

import (
	"encoding/json"
	"net/http"

	"github.com/praetorian-inc/framer/pkg/metrics"
	"github.com/praetorian-inc/framer/pkg/pipeline"
)

type health struct {
	Status   string         `json:"status"`
	Channels int            `json:"channels"`
	Stats    pipeline.Stats `json:"stats"`
}

// Handler returns the management HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /channels", s.handleChannels)
	if s.registry != nil {
		mux.Handle("GET /metrics", metrics.Handler(s.registry))
	}
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, health{
		Status:   "ok",
		Channels: s.pipeline.Framer().Len(),
		Stats:    s.pipeline.Stats(),
	})
}

func (s *Server) handleChannels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.pipeline.Channels())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
