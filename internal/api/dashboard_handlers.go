package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/shopdash/shopdash/internal/analytics"
)

// handleDashboard returns every dataset in one object, or a 500 if any read fails.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := s.analytics.Dashboard(r.Context())
	if err != nil {
		s.logger.Error("fetching dashboard data",
			zap.String("request_id", requestID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "Failed to fetch dashboard data")
		return
	}

	writeJSON(w, http.StatusOK, dashboard)
}

// handleDataset returns a handler serving a single dataset.
func (s *Server) handleDataset(ds analytics.Dataset) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := s.analytics.Fetch(r.Context(), ds.Key)
		if err != nil {
			s.logger.Error("fetching dataset",
				zap.String("dataset", ds.Key),
				zap.String("request_id", requestID(r.Context())),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, ds.ErrorMessage())
			return
		}

		writeJSON(w, http.StatusOK, data)
	}
}
