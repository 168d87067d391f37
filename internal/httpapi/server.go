// Package httpapi exposes the prediction service over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ckdserve/internal/features"
	"ckdserve/internal/predict"
	"ckdserve/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Predict(ctx context.Context, rec features.Record, client string) (predict.Result, error)
	PredictFixture(ctx context.Context, caseID int, client string) (predict.FixtureResult, error)
	LastLoaded() (time.Time, bool)
	Ready() bool
	Status() types.ArtifactStatus
}

// TimestampLayout formats prediction timestamps in server local time.
const TimestampLayout = "2006-01-02 15:04:05"

const (
	rootMessage = "CKD Prediction API is running."
	rootUsage   = "POST to /predict with patient data."
)

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if c := corsMiddleware(); c != nil {
		r.Use(c)
	}
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		resp := types.RootResponse{Message: rootMessage, Usage: rootUsage}
		if t, ok := svc.LastLoaded(); ok {
			s := t.Format(time.ANSIC)
			resp.ModelLastLoaded = &s
		}
		writeJSON(w, http.StatusOK, resp)
	})

	r.Post("/predict", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lvl := requestLogLevel(r)
		// a missing Content-Type is read as JSON
		ct := r.Header.Get("Content-Type")
		if ct != "" && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			IncrementRejected("content_type")
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			logEnd(r, lvl, http.StatusUnsupportedMediaType, start, nil)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		var body types.PredictRequest
		if err := dec.Decode(&body); err != nil {
			// body size overruns are reported the same way to avoid leaking the limit
			IncrementRejected("invalid_json")
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			logEnd(r, lvl, http.StatusBadRequest, start, err)
			return
		}
		logDebug(r, lvl, "predict request", map[string]any{"input": map[string]any(body)})

		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		ctx = predict.WithRequestID(ctx, middleware.GetReqID(r.Context()))
		res, err := svc.Predict(ctx, features.Record(body), clientHost(r))
		if err != nil {
			writeServiceError(w, r, lvl, start, err)
			return
		}
		writeJSON(w, http.StatusOK, types.PredictResponse{
			Prediction:  res.Class,
			Probability: RoundProbability(res.Confidence),
			Timestamp:   res.ProducedAt.Format(TimestampLayout),
			Client:      res.Client,
		})
		logEnd(r, lvl, http.StatusOK, start, nil)
	})

	r.Get("/test_case/{id}", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lvl := requestLogLevel(r)
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			IncrementRejected("unknown_fixture")
			writeJSONError(w, http.StatusNotFound, "Test case not found")
			logEnd(r, lvl, http.StatusNotFound, start, nil)
			return
		}
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		ctx = predict.WithRequestID(ctx, middleware.GetReqID(r.Context()))
		res, err := svc.PredictFixture(ctx, id, clientHost(r))
		if err != nil {
			writeServiceError(w, r, lvl, start, err)
			return
		}
		writeJSON(w, http.StatusOK, types.TestCaseResponse{
			CaseID:      res.CaseID,
			Input:       res.Input,
			Prediction:  res.Class,
			Probability: RoundProbability(res.Confidence),
			Timestamp:   res.ProducedAt.Format(TimestampLayout),
			Client:      res.Client,
		})
		logEnd(r, lvl, http.StatusOK, start, nil)
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)

	return r
}

// writeServiceError translates err and logs it. 5xx bodies never carry the
// underlying error.
func writeServiceError(w http.ResponseWriter, r *http.Request, lvl LogLevel, start time.Time, err error) {
	resp, reason := errorResponse(err)
	if resp.Code < http.StatusInternalServerError {
		IncrementRejected(reason)
	}
	writeJSON(w, resp.Code, resp)
	logEnd(r, lvl, resp.Code, start, err)
}

// clientHost returns the caller address without port. RealIP may already have
// replaced RemoteAddr with a bare address.
func clientHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RoundProbability rounds p to 4 decimals for responses.
func RoundProbability(p float64) float64 { return math.Round(p*1e4) / 1e4 }
