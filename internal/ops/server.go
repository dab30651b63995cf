// Package ops provides the operational HTTP endpoint for the notifier:
// liveness, readiness, and subsystem status for the hosting platform.
package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/provider/resilience"
	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/worker"
)

// Pinger verifies connectivity to a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig holds configuration for the ops router.
type RouterConfig struct {
	Version   string
	BuildTime string
	Logger    zerolog.Logger

	// DB is the storage pool checked by the readiness probe. Optional.
	DB Pinger

	// Pipeline and Sweeper supply dispatch and sweep statistics for the
	// status endpoint. Optional.
	Pipeline *worker.Pipeline
	Sweeper  *worker.Sweeper

	// Gateways reports push gateway health. Optional.
	Gateways *resilience.HealthTracker
}

// NewRouter creates the chi router for the ops endpoint.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(requestLogger(cfg.Logger))
	r.Use(chimiddleware.Recoverer)

	h := &handler{cfg: cfg}

	r.Get("/health", h.health)
	r.Get("/ready", h.ready)
	r.Get("/status", h.status)

	return r
}

type handler struct {
	cfg RouterConfig
}

type healthResponse struct {
	Status    string    `json:"status"`
	Time      time.Time `json:"time"`
	Version   string    `json:"version,omitempty"`
	BuildTime string    `json:"buildTime,omitempty"`
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Time:      time.Now(),
		Version:   h.cfg.Version,
		BuildTime: h.cfg.BuildTime,
	})
}

func (h *handler) ready(w http.ResponseWriter, r *http.Request) {
	if h.cfg.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.cfg.DB.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{
				Status: "unavailable",
				Time:   time.Now(),
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Time: time.Now()})
}

type statusResponse struct {
	Status   string          `json:"status"`
	Time     time.Time       `json:"time"`
	Pipeline *pipelineStatus `json:"pipeline,omitempty"`
	Sweeper  *sweeperStatus  `json:"sweeper,omitempty"`
	Gateways []gatewayStatus `json:"gateways,omitempty"`
}

type pipelineStatus struct {
	Processed        int64      `json:"processed"`
	Skipped          int64      `json:"skipped"`
	Delivered        int64      `json:"delivered"`
	PrunedTokens     int64      `json:"prunedTokens"`
	DispatchFailures int64      `json:"dispatchFailures"`
	LastProcessedAt  *time.Time `json:"lastProcessedAt,omitempty"`
}

type sweeperStatus struct {
	TotalRuns    int64      `json:"totalRuns"`
	TotalDeleted int64      `json:"totalDeleted"`
	LastDeleted  int        `json:"lastDeleted"`
	LastRunAt    *time.Time `json:"lastRunAt,omitempty"`
}

type gatewayStatus struct {
	Name          string     `json:"name"`
	Healthy       bool       `json:"healthy"`
	CircuitState  string     `json:"circuitState"`
	LastSuccessAt *time.Time `json:"lastSuccessAt,omitempty"`
	LastFailureAt *time.Time `json:"lastFailureAt,omitempty"`
	LastError     string     `json:"lastError,omitempty"`
}

func (h *handler) status(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{
		Status: "ok",
		Time:   time.Now(),
	}

	if h.cfg.Pipeline != nil {
		m := h.cfg.Pipeline.GetMetrics()
		resp.Pipeline = &pipelineStatus{
			Processed:        m.Processed,
			Skipped:          m.Skipped,
			Delivered:        m.Delivered,
			PrunedTokens:     m.PrunedTokens,
			DispatchFailures: m.DispatchFailures,
			LastProcessedAt:  nonZeroTime(m.LastProcessedAt),
		}
	}

	if h.cfg.Sweeper != nil {
		m := h.cfg.Sweeper.GetMetrics()
		resp.Sweeper = &sweeperStatus{
			TotalRuns:    m.TotalRuns,
			TotalDeleted: m.TotalDeleted,
			LastDeleted:  m.LastDeleted,
			LastRunAt:    nonZeroTime(m.LastRunAt),
		}
	}

	if h.cfg.Gateways != nil {
		for _, g := range h.cfg.Gateways.AllHealth() {
			status := gatewayStatus{
				Name:          g.Name,
				Healthy:       g.IsHealthy(),
				CircuitState:  g.CircuitState.String(),
				LastSuccessAt: g.LastSuccessAt,
				LastFailureAt: g.LastFailureAt,
				LastError:     g.LastError,
			}
			if !status.Healthy {
				resp.Status = "degraded"
			}
			resp.Gateways = append(resp.Gateways, status)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // response already committed
}

func nonZeroTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// requestLogger logs each ops request with its chi request ID.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Debug().
				Str("request_id", chimiddleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("ops request")
		})
	}
}
