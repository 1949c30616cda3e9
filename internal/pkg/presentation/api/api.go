package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sentinelnexus/equipment-compliance-mgmt/internal/pkg/application/compliance"
	"github.com/sentinelnexus/equipment-compliance-mgmt/internal/pkg/application/equipment"
	"github.com/sentinelnexus/equipment-compliance-mgmt/internal/pkg/application/refresher"
	"github.com/sentinelnexus/equipment-compliance-mgmt/internal/pkg/presentation/api/auth"
	"github.com/sentinelnexus/equipment-compliance-mgmt/pkg/types"
)

var tracer = otel.Tracer("equipment-compliance-mgmt/api")

func RegisterHandlers(router *chi.Mux, svc equipment.Management, guard *refresher.Guard, adminSecret string, logger zerolog.Logger) *chi.Mux {

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	authority := auth.New(adminSecret)

	router.Route("/api/v0", func(r chi.Router) {
		r.Route("/equipment", func(r chi.Router) {
			r.Get("/", queryEquipmentHandler(logger, svc))
			r.Get("/rejected", rejectedEquipmentHandler(logger, svc))
			r.Get("/obsolete", obsoleteEquipmentHandler(logger, svc))
			r.Get("/{tag}", getEquipmentDetailsHandler(logger, svc))
			r.Get("/{tag}/history", getHistoryHandler(logger, svc))
			r.Get("/{tag}/history.xlsx", downloadHistoryHandler(logger, svc))
			r.Post("/", createEquipmentHandler(logger, svc, guard))
			r.Delete("/{tag}", deleteEquipmentHandler(logger, svc, guard))
		})

		r.Get("/twins", getTwinsHandler(logger, svc))
		r.Get("/analytics", getAnalyticsHandler(logger, svc))
		r.Get("/stats", getStatsHandler(logger, svc))
		r.Get("/export.xlsx", downloadExportHandler(logger, svc))

		r.Post("/suggestions", createSuggestionHandler(logger, svc, guard))

		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(authority))
			r.Use(jwtauth.Authenticator(authority))
			r.Get("/suggestions", getSuggestionsHandler(logger, svc))
		})
	})

	return router
}

func queryEquipmentHandler(logger zerolog.Logger, svc equipment.Management) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		_, span := tracer.Start(r.Context(), "query-equipment")
		defer func() { endSpan(err, span) }()

		snap, ok := requireSnapshot(w, svc)
		if !ok {
			return
		}

		items := snap.Dashboard(compliance.ParseFilters(r.URL.Query())...)
		writeCollection(w, items)
	}
}

func rejectedEquipmentHandler(logger zerolog.Logger, svc equipment.Management) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		_, span := tracer.Start(r.Context(), "query-rejected-equipment")
		defer func() { endSpan(err, span) }()

		snap, ok := requireSnapshot(w, svc)
		if !ok {
			return
		}

		writeCollection(w, snap.Rejected(compliance.ParseFilters(r.URL.Query())...))
	}
}

func obsoleteEquipmentHandler(logger zerolog.Logger, svc equipment.Management) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		_, span := tracer.Start(r.Context(), "query-obsolete-equipment")
		defer func() { endSpan(err, span) }()

		snap, ok := requireSnapshot(w, svc)
		if !ok {
			return
		}

		writeCollection(w, snap.Obsolete(compliance.ParseFilters(r.URL.Query())...))
	}
}

type equipmentDetails struct {
	types.Equipment
	Status types.Status `json:"status"`
	IsTwin bool         `json:"isTwin"`
}

func getEquipmentDetailsHandler(logger zerolog.Logger, svc equipment.Management) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		_, span := tracer.Start(r.Context(), "get-equipment-details")
		defer func() { endSpan(err, span) }()

		snap, ok := requireSnapshot(w, svc)
		if !ok {
			return
		}

		tag := chi.URLParam(r, "tag")

		e, found := snap.Find(tag)
		if !found {
			err = fmt.Errorf("no equipment tagged %s", tag)
			w.WriteHeader(http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, equipmentDetails{
			Equipment: e,
			Status:    compliance.Status(e),
			IsTwin:    snap.IsTwin(e),
		})
	}
}

func getHistoryHandler(logger zerolog.Logger, svc equipment.Management) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		ctx, span := tracer.Start(r.Context(), "get-equipment-history")
		defer func() { endSpan(err, span) }()

		tag := chi.URLParam(r, "tag")

		entries, err := svc.History(ctx, tag)
		if err != nil {
			writeServiceError(w, logger, err, "could not fetch history")
			return
		}

		writeCollection(w, entries)
	}
}

func downloadHistoryHandler(logger zerolog.Logger, svc equipment.Management) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		ctx, span := tracer.Start(r.Context(), "download-equipment-history")
		defer func() { endSpan(err, span) }()

		tag := chi.URLParam(r, "tag")

		workbook, err := svc.HistoryXLSX(ctx, tag)
		if err != nil {
			writeServiceError(w, logger, err, "could not render history download")
			return
		}

		writeWorkbook(w, fmt.Sprintf("historico-%s.xlsx", tag), workbook)
	}
}

func createEquipmentHandler(logger zerolog.Logger, svc equipment.Management, guard *refresher.Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "create-equipment")
		defer func() { endSpan(err, span) }()

		release := guard.Begin()
		defer release()

		body, err := io.ReadAll(r.Body)
		if err != nil {
			logger.Error().Err(err).Msg("unable to read body")
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		var e types.Equipment
		if err = json.Unmarshal(body, &e); err != nil {
			logger.Error().Err(err).Msg("unable to unmarshal body")
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if err = svc.Create(ctx, e); err != nil {
			writeServiceError(w, logger, err, "unable to create equipment")
			return
		}

		w.WriteHeader(http.StatusCreated)
	}
}

func deleteEquipmentHandler(logger zerolog.Logger, svc equipment.Management, guard *refresher.Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		ctx, span := tracer.Start(r.Context(), "delete-equipment")
		defer func() { endSpan(err, span) }()

		release := guard.Begin()
		defer release()

		tag := chi.URLParam(r, "tag")

		removal := struct {
			Reason   string `json:"reason"`
			Category string `json:"category"`
		}{}
		if body, readErr := io.ReadAll(r.Body); readErr == nil && len(body) > 0 {
			if err = json.Unmarshal(body, &removal); err != nil {
				logger.Error().Err(err).Msg("unable to unmarshal body")
				w.WriteHeader(http.StatusBadRequest)
				return
			}
		}

		if err = svc.MarkObsolete(ctx, tag, removal.Reason, removal.Category); err != nil {
			writeServiceError(w, logger, err, "unable to mark equipment obsolete")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func getTwinsHandler(logger zerolog.Logger, svc equipment.Management) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		_, span := tracer.Start(r.Context(), "get-twin-gauges")
		defer func() { endSpan(err, span) }()

		snap, ok := requireSnapshot(w, svc)
		if !ok {
			return
		}

		writeCollection(w, snap.Twins())
	}
}

func getAnalyticsHandler(logger zerolog.Logger, svc equipment.Management) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		_, span := tracer.Start(r.Context(), "get-analytics")
		defer func() { endSpan(err, span) }()

		snap, ok := requireSnapshot(w, svc)
		if !ok {
			return
		}

		writeJSON(w, http.StatusOK, snap.Analytics(compliance.ParseAnalyticsFilters(r.URL.Query())...))
	}
}

func getStatsHandler(logger zerolog.Logger, svc equipment.Management) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		_, span := tracer.Start(r.Context(), "get-stats")
		defer func() { endSpan(err, span) }()

		snap, ok := requireSnapshot(w, svc)
		if !ok {
			return
		}

		writeJSON(w, http.StatusOK, snap.Stats(compliance.ParseFilters(r.URL.Query())...))
	}
}

func downloadExportHandler(logger zerolog.Logger, svc equipment.Management) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		ctx, span := tracer.Start(r.Context(), "download-export")
		defer func() { endSpan(err, span) }()

		workbook, err := svc.ExportXLSX(ctx, compliance.ParseFilters(r.URL.Query())...)
		if err != nil {
			writeServiceError(w, logger, err, "could not render export download")
			return
		}

		writeWorkbook(w, "equipamentos.xlsx", workbook)
	}
}

func createSuggestionHandler(logger zerolog.Logger, svc equipment.Management, guard *refresher.Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "create-suggestion")
		defer func() { endSpan(err, span) }()

		release := guard.Begin()
		defer release()

		body, err := io.ReadAll(r.Body)
		if err != nil {
			logger.Error().Err(err).Msg("unable to read body")
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		var suggestion types.Suggestion
		if err = json.Unmarshal(body, &suggestion); err != nil {
			logger.Error().Err(err).Msg("unable to unmarshal body")
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if err = svc.SubmitSuggestion(ctx, suggestion); err != nil {
			writeServiceError(w, logger, err, "unable to submit suggestion")
			return
		}

		w.WriteHeader(http.StatusCreated)
	}
}

func getSuggestionsHandler(logger zerolog.Logger, svc equipment.Management) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		ctx, span := tracer.Start(r.Context(), "get-suggestions")
		defer func() { endSpan(err, span) }()

		suggestions, err := svc.Suggestions(ctx)
		if err != nil {
			writeServiceError(w, logger, err, "could not fetch suggestions")
			return
		}

		writeCollection(w, suggestions)
	}
}

func endSpan(err error, span trace.Span) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func requireSnapshot(w http.ResponseWriter, svc equipment.Management) (*compliance.Snapshot, bool) {
	snap := svc.Snapshot()
	if snap == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return nil, false
	}
	return snap, true
}

func writeServiceError(w http.ResponseWriter, logger zerolog.Logger, err error, msg string) {
	logger.Error().Err(err).Msg(msg)

	switch {
	case errors.Is(err, equipment.ErrMissingTag):
		w.WriteHeader(http.StatusBadRequest)
	case errors.Is(err, equipment.ErrNoSnapshot):
		w.WriteHeader(http.StatusServiceUnavailable)
	case errors.Is(err, equipment.ErrStoreUnavailable):
		w.WriteHeader(http.StatusBadGateway)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func writeCollection[T any](w http.ResponseWriter, items []T) {
	writeJSON(w, http.StatusOK, types.Collection[T]{
		Data:       items,
		Count:      uint64(len(items)),
		Limit:      uint64(len(items)),
		TotalCount: uint64(len(items)),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		return
	}
}

func writeWorkbook(w http.ResponseWriter, filename string, workbook []byte) {
	w.Header().Add("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Add("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	w.Write(workbook)
}
