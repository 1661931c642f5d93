package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/diwise/iot-light-monitoring/internal/pkg/application"
	"github.com/diwise/iot-light-monitoring/internal/pkg/application/alerts"
	"github.com/diwise/iot-light-monitoring/internal/pkg/application/cctv"
	"github.com/diwise/iot-light-monitoring/internal/pkg/application/export"
	"github.com/diwise/iot-light-monitoring/internal/pkg/application/ledcontrol"
	"github.com/diwise/iot-light-monitoring/internal/pkg/application/sensors"
	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
)

var tracer = otel.Tracer("iot-light-monitoring/api")

// RegisterHandlers mounts the REST api. If webEvents is not nil it is served as the
// real-time feed on /api/events.
func RegisterHandlers(ctx context.Context, router *chi.Mux, app application.App, webEvents http.Handler) *chi.Mux {

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	log := logging.GetFromContext(ctx)

	router.Route("/api", func(r chi.Router) {
		r.Route("/sensor", func(r chi.Router) {
			r.Post("/", ingestSensorReadingHandler(log, app.Sensors()))
			r.Get("/latest", latestSensorReadingHandler(log, app.Sensors()))
			r.Get("/readings", querySensorReadingsHandler(log, app.Sensors()))
			r.Get("/summary", sensorSummaryHandler(log, app.Sensors()))
		})

		r.Route("/led", func(r chi.Router) {
			r.Post("/", applyLedControlHandler(log, app.LedControl()))
			r.Get("/status", ledStatusHandler(log, app.LedControl()))
			r.Get("/history", ledHistoryHandler(log, app.LedControl()))
		})

		r.Route("/cctv", func(r chi.Router) {
			r.Get("/", listFootageHandler(log, app.Footage()))
			r.Post("/", registerFootageHandler(log, app.Footage()))
			r.Post("/upload", uploadFootageHandler(log, app.Footage()))
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", queryAlertsHandler(log, app.Alerts()))
			r.Patch("/{alertID}", resolveAlertHandler(log, app.Alerts()))
		})

		r.Get("/export/{dataset}", exportHandler(log, app.Exporter()))

		if webEvents != nil {
			r.Handle("/events", webEvents)
		}
	})

	return router
}

func ingestSensorReadingHandler(log zerolog.Logger, svc sensors.SensorService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "ingest-sensor-reading")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		body, err := io.ReadAll(r.Body)
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to read body")
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		var reading sensors.Reading
		err = json.Unmarshal(body, &reading)
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to unmarshal body")

			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) && typeErr.Field == "light_intensity" {
				writeError(w, http.StatusBadRequest, "Missing or invalid light_intensity")
				return
			}

			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		stored, err := svc.Ingest(ctx, reading)
		if err != nil {
			if errors.Is(err, sensors.ErrMissingLightIntensity) {
				requestLogger.Debug().Msg("rejected reading without light intensity")
				writeError(w, http.StatusBadRequest, "Missing or invalid light_intensity")
				return
			}

			requestLogger.Error().Err(err).Msg("unable to store sensor reading")
			writeError(w, http.StatusInternalServerError, "Failed to store sensor reading")
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{
			"success": true,
			"reading": stored,
		})
	}
}

func latestSensorReadingHandler(log zerolog.Logger, svc sensors.SensorService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "get-latest-sensor-reading")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		latest, err := svc.Latest(ctx)
		if errors.Is(err, sensors.ErrNoReadings) {
			requestLogger.Debug().Msg("no sensor readings stored yet")
			writeError(w, http.StatusNotFound, "No sensor readings")
			return
		}
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to fetch latest sensor reading")
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		writeJSON(w, http.StatusOK, ApiResponse{Data: latest})
	}
}

func querySensorReadingsHandler(log zerolog.Logger, svc sensors.SensorService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "query-sensor-readings")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		conditions, offset, limit, err := conditionsFromQuery(r.URL.Query())
		if err != nil {
			requestLogger.Debug().Err(err).Msg("bad query")
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		result, err := svc.Query(ctx, conditions...)
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to query sensor readings")
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		writeJSON(w, http.StatusOK, collection(result, offset, limit))
	}
}

func sensorSummaryHandler(log zerolog.Logger, svc sensors.SensorService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "get-sensor-summary")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		summary, err := svc.Summary(ctx)
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to summarise sensor readings")
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		writeJSON(w, http.StatusOK, ApiResponse{Data: summary})
	}
}

func ledStatusHandler(log zerolog.Logger, svc ledcontrol.LedControlService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "get-led-status")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		status, err := svc.Status(ctx)
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to fetch led status")
			writeError(w, http.StatusInternalServerError, "Failed to fetch LED status")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"status":  status,
		})
	}
}

func applyLedControlHandler(log zerolog.Logger, svc ledcontrol.LedControlService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "apply-led-control")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		var cmd ledcontrol.Command
		err = json.NewDecoder(r.Body).Decode(&cmd)
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to decode led control command")
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		entry, err := svc.Apply(ctx, cmd)
		if err != nil {
			if errors.Is(err, ledcontrol.ErrInvalidCommand) {
				requestLogger.Debug().Err(err).Msg("rejected led control command")
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}

			requestLogger.Error().Err(err).Msg("unable to store led control")
			writeError(w, http.StatusInternalServerError, "Failed to update LED settings")
			return
		}

		requestLogger.Info().Bool("led_status", entry.LedStatus).Str("control_mode", string(entry.ControlMode)).Msg("led control applied")

		writeJSON(w, http.StatusCreated, map[string]any{
			"success": true,
			"control": entry,
		})
	}
}

func ledHistoryHandler(log zerolog.Logger, svc ledcontrol.LedControlService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "get-led-history")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		conditions, offset, limit, err := conditionsFromQuery(r.URL.Query())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		history, err := svc.History(ctx, conditions...)
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to fetch led history")
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		writeJSON(w, http.StatusOK, collection(history, offset, limit))
	}
}

func uploadFootageHandler(log zerolog.Logger, svc cctv.FootageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "upload-cctv-footage")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		var upload cctv.Upload
		err = json.NewDecoder(r.Body).Decode(&upload)
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to decode footage upload")
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		f, err := svc.Upload(ctx, upload)
		if err != nil {
			if errors.Is(err, cctv.ErrMissingUploadFields) {
				writeError(w, http.StatusBadRequest, "Missing required fields: file_url, file_name")
				return
			}

			requestLogger.Error().Err(err).Msg("unable to store footage")
			writeError(w, http.StatusInternalServerError, "Failed to store CCTV footage record")
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{
			"success": true,
			"footage": f,
		})
	}
}

func registerFootageHandler(log zerolog.Logger, svc cctv.FootageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "register-cctv-footage")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		var registration cctv.Registration
		err = json.NewDecoder(r.Body).Decode(&registration)
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to decode footage registration")
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		f, err := svc.Register(ctx, registration)
		if err != nil {
			if errors.Is(err, cctv.ErrMissingVideoURL) {
				writeError(w, http.StatusBadRequest, "Missing required field: video_url")
				return
			}

			requestLogger.Error().Err(err).Msg("unable to store footage")
			writeError(w, http.StatusInternalServerError, "Failed to store CCTV footage record")
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{
			"success": true,
			"footage": f,
		})
	}
}

func listFootageHandler(log zerolog.Logger, svc cctv.FootageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "list-cctv-footage")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		conditions, offset, limit, err := conditionsFromQuery(r.URL.Query())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		result, err := svc.List(ctx, conditions...)
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to list footage")
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		writeJSON(w, http.StatusOK, collection(result, offset, limit))
	}
}

func queryAlertsHandler(log zerolog.Logger, svc alerts.AlertService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "query-alerts")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		q := r.URL.Query()

		conditions, offset, limit, err := conditionsFromQuery(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if alertType := q.Get("type"); alertType != "" {
			conditions = append(conditions, database.WithAlertType(alertType))
		}

		if s := q.Get("open"); s != "" {
			open, parseErr := strconv.ParseBool(s)
			if parseErr != nil {
				err = fmt.Errorf("invalid open %q", s)
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			if open {
				conditions = append(conditions, database.WithOnlyOpen())
			}
		}

		result, err := svc.Query(ctx, conditions...)
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to query alerts")
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		writeJSON(w, http.StatusOK, collection(result, offset, limit))
	}
}

func resolveAlertHandler(log zerolog.Logger, svc alerts.AlertService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "resolve-alert")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		alertID := chi.URLParam(r, "alertID")
		requestLogger = requestLogger.With().Str("alert_id", alertID).Logger()

		a, err := svc.Resolve(ctx, alertID)
		if errors.Is(err, alerts.ErrAlertNotFound) {
			requestLogger.Debug().Msg("alert not found")
			writeError(w, http.StatusNotFound, "Alert not found")
			return
		}
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to resolve alert")
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		requestLogger.Info().Msg("alert resolved")

		writeJSON(w, http.StatusOK, ApiResponse{Data: a})
	}
}

func exportHandler(log zerolog.Logger, exporter export.Exporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "export-dataset")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		dataset := chi.URLParam(r, "dataset")

		buf := &bytes.Buffer{}

		filename, err := exporter.Export(ctx, dataset, buf)
		if errors.Is(err, export.ErrUnknownDataset) {
			writeError(w, http.StatusNotFound, "Unknown dataset")
			return
		}
		if err != nil {
			requestLogger.Error().Err(err).Str("dataset", dataset).Msg("export failed")
			writeError(w, http.StatusInternalServerError, "Failed to export data")
			return
		}

		w.Header().Add("Content-Type", "text/csv")
		w.Header().Add("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes())
	}
}
