package endpoints

import (
	"net/http"
	"os"

	"gorm.io/gorm"

	"github.com/zulily/modeldb/pkg/server"
)

// RegisterStatusEndpoints registers the status and health endpoints.
// Neither requires authentication.
func RegisterStatusEndpoints(s *server.Server) {
	s.Router.HandleFunc("/", handleStatus()).Methods("GET")
	s.Router.HandleFunc("/health", handleHealth(s.DB)).Methods("GET")
}

func handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version := os.Getenv("MODELDB_VERSION_DISPLAY")
		if version == "" {
			version = "0.1.0"
		}

		respondWithJSON(w, http.StatusOK, map[string]string{
			"service": "modeldb",
			"version": version,
		})
	}
}

func handleHealth(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}

		var one int
		if err := db.Raw(`SELECT 1`).Scan(&one).Error; err != nil {
			respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"error":  err.Error(),
			})
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
