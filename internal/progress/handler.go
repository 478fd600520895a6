package progress

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fitsphere/backend/internal/auth"
	"github.com/fitsphere/backend/internal/telemetry/metrics"
	"github.com/fitsphere/backend/internal/telemetry/tracing"
	"github.com/fitsphere/backend/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=progress_mocks_test.go -package=progress_test

type progressRepo interface {
	Add(ctx context.Context, m Measurement) (*Measurement, error)
	Get(ctx context.Context, id int) (*Measurement, error)
	List(ctx context.Context, params ListParams) ([]Measurement, error)
	ListAll(ctx context.Context, clientID int) ([]Measurement, error)
	Count(ctx context.Context, clientID int) (int, error)
}

// clientsDirectory lets trainers read only their own clients' data.
type clientsDirectory interface {
	IsLinked(ctx context.Context, trainerID, clientID int) (bool, error)
}

type MeasurementsResponse struct {
	Measurements []Measurement `json:"measurements"`
	Total        int           `json:"total"`
}

type SeriesResponse struct {
	Dimension string        `json:"dimension"`
	Range     string        `json:"range"`
	Points    []SeriesPoint `json:"points"`
}

type AllSeriesResponse struct {
	Range  string             `json:"range"`
	Points []MultiSeriesPoint `json:"points"`
}

type Handler struct {
	repo     progressRepo
	clients  clientsDirectory
	analyzer *Analyzer
	metrics  *metrics.Manager

	// nowFunc is swapped in tests to pin the range cutoffs
	nowFunc func() time.Time
}

func NewHandler(
	repo progressRepo,
	clients clientsDirectory,
	metrics *metrics.Manager,
) *Handler {
	return &Handler{
		repo:     repo,
		clients:  clients,
		analyzer: NewAnalyzer(repo),
		metrics:  metrics,
		nowFunc:  time.Now,
	}
}

func (handler *Handler) SetupRoutes(mainRouter *mux.Router) {
	progressRouter := mainRouter.PathPrefix("/progress").Subrouter()

	progressRouter.
		HandleFunc("/measurements", handler.handleAdd).
		Methods("POST", "OPTIONS").Name("new-measurement")
	progressRouter.
		HandleFunc("/measurements/page/{page}/size/{size}", handler.handleList).
		Methods("GET").Name("measurements-page")
	progressRouter.
		HandleFunc("/history", handler.handleHistory).
		Methods("GET").Name("measurements-history")
	progressRouter.
		HandleFunc("/stats/{range}", handler.handleStats).
		Methods("GET").Name("progress-stats")
	progressRouter.
		HandleFunc("/series/{dimension}/{range}", handler.handleSeries).
		Methods("GET").Name("progress-series")

	// trainer views over a linked client's data
	progressRouter.
		HandleFunc("/clients/{clientId}/measurements/page/{page}/size/{size}", handler.handleList).
		Methods("GET").Name("client-measurements-page")
	progressRouter.
		HandleFunc("/clients/{clientId}/history", handler.handleHistory).
		Methods("GET").Name("client-measurements-history")
	progressRouter.
		HandleFunc("/clients/{clientId}/stats/{range}", handler.handleStats).
		Methods("GET").Name("client-progress-stats")
	progressRouter.
		HandleFunc("/clients/{clientId}/series/{dimension}/{range}", handler.handleSeries).
		Methods("GET").Name("client-progress-series")
}

func (handler *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "progressHandler.add")
	defer span.End()

	session, ok := auth.SessionFromContext(ctx)
	if !ok || session.Role != auth.RoleClient {
		http.Error(w, "no can do", http.StatusForbidden)
		return
	}

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var measurement Measurement
	if err := json.NewDecoder(r.Body).Decode(&measurement); err != nil {
		log.Tracef("new measurement, unmarshal json params: %s", err)
		http.Error(w, "add measurement failed", http.StatusBadRequest)
		return
	}

	if !measurement.HasMetrics() {
		http.Error(w, "error, at least one measurement field must be set", http.StatusBadRequest)
		return
	}

	measurement.ClientID = session.UserID
	if measurement.CreatedAt.IsZero() {
		measurement.CreatedAt = handler.nowFunc()
	}

	addedMeasurement, err := handler.repo.Add(ctx, measurement)
	if err != nil {
		log.Errorf("failed to add new measurement for client %d: %s", session.UserID, err)
		http.Error(w, "error, failed to add new measurement", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterMeasurements.Inc()

	measurementJson, err := json.Marshal(addedMeasurement)
	if err != nil {
		log.Errorf("failed to marshal new measurement: %s", err)
		http.Error(w, "error, failed to add new measurement", http.StatusInternalServerError)
		return
	}

	log.Debugf("new measurement added for client %d: %d", session.UserID, addedMeasurement.ID)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, measurementJson, http.StatusCreated)
}

func (handler *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "progressHandler.list")
	defer span.End()

	clientID, ok := handler.resolveClientID(ctx, w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	page, err := strconv.Atoi(vars["page"])
	if err != nil || page < 1 {
		http.Error(w, "invalid page (has to be a positive number)", http.StatusBadRequest)
		return
	}
	size, err := strconv.Atoi(vars["size"])
	if err != nil || size < 1 {
		http.Error(w, "invalid size (has to be a positive number)", http.StatusBadRequest)
		return
	}

	measurements, err := handler.repo.List(ctx, ListParams{
		ClientID: clientID,
		Page:     page,
		Size:     size,
	})
	if err != nil {
		log.Errorf("list measurements for client %d: %s", clientID, err)
		http.Error(w, "failed to get measurements", http.StatusInternalServerError)
		return
	}

	total, err := handler.repo.Count(ctx, clientID)
	if err != nil {
		log.Errorf("measurements count for client %d: %s", clientID, err)
		http.Error(w, "failed to get measurements", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(MeasurementsResponse{
		Measurements: measurements,
		Total:        total,
	})
	if err != nil {
		log.Errorf("marshal measurements error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func (handler *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "progressHandler.history")
	defer span.End()

	clientID, ok := handler.resolveClientID(ctx, w, r)
	if !ok {
		return
	}

	measurements, err := handler.repo.ListAll(ctx, clientID)
	if err != nil {
		log.Errorf("measurements history for client %d: %s", clientID, err)
		http.Error(w, "failed to get measurements", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(MeasurementsResponse{
		Measurements: measurements,
		Total:        len(measurements),
	})
	if err != nil {
		log.Errorf("marshal measurements error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func (handler *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "progressHandler.stats")
	defer span.End()

	clientID, ok := handler.resolveClientID(ctx, w, r)
	if !ok {
		return
	}

	window := mux.Vars(r)["range"]
	stats, err := handler.analyzer.ClientStats(ctx, clientID, window, handler.nowFunc())
	if err != nil {
		if isBadInput(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Errorf("stats for client %d: %s", clientID, err)
		http.Error(w, "failed to get stats", http.StatusInternalServerError)
		return
	}

	statsJson, err := json.Marshal(stats)
	if err != nil {
		log.Errorf("marshal stats error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, statsJson)
}

func (handler *Handler) handleSeries(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "progressHandler.series")
	defer span.End()

	clientID, ok := handler.resolveClientID(ctx, w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	dimension := vars["dimension"]
	window := vars["range"]

	if dimension == DimensionAll {
		points, err := handler.analyzer.ClientAllSeries(ctx, clientID, window, handler.nowFunc())
		if err != nil {
			if isBadInput(err) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			log.Errorf("all series for client %d: %s", clientID, err)
			http.Error(w, "failed to get series", http.StatusInternalServerError)
			return
		}

		respJson, err := json.Marshal(AllSeriesResponse{
			Range:  window,
			Points: points,
		})
		if err != nil {
			log.Errorf("marshal series error: %s", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
		return
	}

	points, err := handler.analyzer.ClientSeries(ctx, clientID, dimension, window, handler.nowFunc())
	if err != nil {
		if isBadInput(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Errorf("series [%s] for client %d: %s", dimension, clientID, err)
		http.Error(w, "failed to get series", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(SeriesResponse{
		Dimension: dimension,
		Range:     window,
		Points:    points,
	})
	if err != nil {
		log.Errorf("marshal series error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

// resolveClientID decides whose data is being read: clients always
// get their own, trainers get a linked client's via the clientId
// path var. Writes the error response itself when access is denied.
func (handler *Handler) resolveClientID(ctx context.Context, w http.ResponseWriter, r *http.Request) (int, bool) {
	session, ok := auth.SessionFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return 0, false
	}

	clientIDStr, hasClientID := mux.Vars(r)["clientId"]
	if !hasClientID {
		if session.Role != auth.RoleClient {
			http.Error(w, "no can do", http.StatusForbidden)
			return 0, false
		}
		return session.UserID, true
	}

	if session.Role != auth.RoleTrainer {
		http.Error(w, "no can do", http.StatusForbidden)
		return 0, false
	}

	clientID, err := strconv.Atoi(clientIDStr)
	if err != nil {
		http.Error(w, "error, client id NaN", http.StatusBadRequest)
		return 0, false
	}

	linked, err := handler.clients.IsLinked(ctx, session.UserID, clientID)
	if err != nil {
		log.Errorf("progress, link check trainer %d client %d: %s", session.UserID, clientID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return 0, false
	}
	if !linked {
		http.Error(w, "error, client not linked to trainer", http.StatusForbidden)
		return 0, false
	}

	return clientID, true
}

// isBadInput recognizes the range / dimension validation errors of
// the analyzer, which come back as plain fmt.Errorf values.
func isBadInput(err error) bool {
	return strings.HasPrefix(err.Error(), "unknown time range") ||
		strings.HasPrefix(err.Error(), "unknown dimension")
}
