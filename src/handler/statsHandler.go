package handler

import (
	"context"
	"net/http"
	"strconv"

	logger "github.com/sirupsen/logrus"

	"tradingjournal/src/auth"
	"tradingjournal/src/service"
	"tradingjournal/src/stats"
)

type statsReporter interface {
	Report(ctx context.Context, userID uint, days int) (stats.Report, error)
}

// StatsSummaryHandler returns a handler that serves the trading stats report
// over the last `days` days (default 30).
func StatsSummaryHandler(svc statsReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		days := service.DefaultStatsDays
		if daysParam := r.URL.Query().Get("days"); daysParam != "" {
			parsed, err := strconv.Atoi(daysParam)
			if err != nil || parsed < 1 || parsed > service.MaxStatsDays {
				respondError(w, http.StatusBadRequest, "invalid days")
				return
			}
			days = parsed
		}

		report, err := svc.Report(r.Context(), user.ID, days)
		if err != nil {
			logger.WithError(err).Error("failed to build stats report")
			respondError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		respondSuccess(w, http.StatusOK, "Stats retrieved", report)
	}
}

// DefaultStatsSummaryHandler wires the handler to the production service.
func DefaultStatsSummaryHandler(svc *service.StatsService) http.HandlerFunc {
	return StatsSummaryHandler(svc)
}
