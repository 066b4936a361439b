// Package health отдаёт liveness и readiness для балансировщика и оркестратора.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"plantobill/internal/models"
)

type status struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Pool   *pool  `json:"pool,omitempty"`
}

type pool struct {
	Open    int `json:"open"`
	InUse   int `json:"in_use"`
	Idle    int `json:"idle"`
	MaxOpen int `json:"max_open"`
}

// RegisterRoutes вешает /healthz и /readyz на корневой роутер.
func RegisterRoutes(r *mux.Router, db *gorm.DB) {
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		models.WriteJSON(w, http.StatusOK, status{Status: "ok"})
	}).Methods(http.MethodGet)
	r.HandleFunc("/readyz", readiness(db)).Methods(http.MethodGet)
}

func readiness(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			models.WriteJSON(w, http.StatusServiceUnavailable, status{Status: "unavailable", Error: "db not configured"})
			return
		}
		sqlDB, err := db.DB()
		if err != nil {
			models.WriteJSON(w, http.StatusServiceUnavailable, status{Status: "unavailable", Error: "db handle error"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(ctx); err != nil {
			models.WriteJSON(w, http.StatusServiceUnavailable, status{Status: "unavailable", Error: "db unreachable"})
			return
		}
		st := sqlDB.Stats()
		models.WriteJSON(w, http.StatusOK, status{
			Status: "ok",
			Pool:   &pool{Open: st.OpenConnections, InUse: st.InUse, Idle: st.Idle, MaxOpen: st.MaxOpenConnections},
		})
	}
}
