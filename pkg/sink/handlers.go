package sink

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// Router builds the inspection API: stored batches, counters, and the
// live-tail websocket.
func Router(s *Sink, hub *Hub) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/v1/batches", func(w http.ResponseWriter, req *http.Request) {
		respondJSON(w, http.StatusOK, s.Batches())
	}).Methods(http.MethodGet)

	r.HandleFunc("/v1/stats", func(w http.ResponseWriter, req *http.Request) {
		respondJSON(w, http.StatusOK, s.Stats())
	}).Methods(http.MethodGet)

	r.HandleFunc("/v1/live", hub.ServeWS).Methods(http.MethodGet)
	return r
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode JSON response: %v", err)
	}
}
