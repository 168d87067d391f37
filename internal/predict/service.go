// Package predict runs the prediction pipeline: freshness check, validation,
// inference, label decoding and audit logging.
package predict

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"ckdserve/internal/artifact"
	"ckdserve/internal/features"
	"ckdserve/pkg/types"
)

// ArtifactSource hands out the current artifact, reloading it when stale.
type ArtifactSource interface {
	EnsureFresh() (*artifact.Artifact, error)
	LastLoaded() (time.Time, bool)
}

// Result is one prediction. It is a value and is never persisted.
type Result struct {
	Class      string
	Confidence float64
	ProducedAt time.Time
	Client     string
}

// FixtureResult is a Result plus the fixture it was computed from.
type FixtureResult struct {
	Result
	CaseID int
	Input  map[string]float64
}

// Config holds Service dependencies. Zero values select defaults.
type Config struct {
	Store ArtifactSource
	// Logger receives failure detail; defaults to a no-op logger.
	Logger *zerolog.Logger
	// Audit receives one record per prediction; defaults to a no-op logger.
	Audit *zerolog.Logger
	// CacheSize enables the LRU memo when > 0.
	CacheSize int
	// Now defaults to time.Now.
	Now func() time.Time
}

// Service is safe for concurrent use.
type Service struct {
	store ArtifactSource
	log   zerolog.Logger
	audit zerolog.Logger
	memo  *memo
	now   func() time.Time
}

// New constructs a Service.
func New(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("predict: nil artifact store")
	}
	m, err := newMemo(cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("predict: cache: %w", err)
	}
	s := &Service{store: cfg.Store, memo: m, now: cfg.Now, log: zerolog.Nop(), audit: zerolog.Nop()}
	if cfg.Logger != nil {
		s.log = *cfg.Logger
	}
	if cfg.Audit != nil {
		s.audit = *cfg.Audit
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// LastLoaded reports the modification time of the serving artifact.
func (s *Service) LastLoaded() (time.Time, bool) { return s.store.LastLoaded() }

// Ready reports whether an artifact has been published.
func (s *Service) Ready() bool {
	_, ok := s.store.LastLoaded()
	return ok
}

// Status returns the artifact slot snapshot. Sources without their own
// Status get a minimal one built from LastLoaded.
func (s *Service) Status() types.ArtifactStatus {
	if st, ok := s.store.(interface{ Status() types.ArtifactStatus }); ok {
		return st.Status()
	}
	out := types.ArtifactStatus{State: string(artifact.StateEmpty)}
	if t, ok := s.store.LastLoaded(); ok {
		out.State = string(artifact.StateReady)
		out.LoadedModTime = t.Unix()
	}
	return out
}

// Predict validates rec and classifies it with the freshest artifact. Every
// call checks the artifact file, which is how hot reload happens.
func (s *Service) Predict(ctx context.Context, rec features.Record, client string) (Result, error) {
	a, err := s.store.EnsureFresh()
	if err != nil {
		return Result{}, s.fail(ctx, "request", err)
	}
	vec, err := features.Validate(rec)
	if err != nil {
		return Result{}, s.fail(ctx, "request", err)
	}
	return s.run(ctx, a, vec, client, "request")
}

// PredictFixture runs the pipeline on a built-in record. Fixtures are trusted
// and skip range checks; fixture 1 sits on the exclusive pot bound.
func (s *Service) PredictFixture(ctx context.Context, caseID int, client string) (FixtureResult, error) {
	fx, ok := LookupFixture(caseID)
	if !ok {
		return FixtureResult{}, s.fail(ctx, "fixture", unknownFixtureError{id: caseID})
	}
	a, err := s.store.EnsureFresh()
	if err != nil {
		return FixtureResult{}, s.fail(ctx, "fixture", err)
	}
	vec, err := features.Normalize(fx.record())
	if err != nil {
		return FixtureResult{}, s.fail(ctx, "fixture", err)
	}
	res, err := s.run(ctx, a, vec, client, "fixture")
	if err != nil {
		return FixtureResult{}, err
	}
	return FixtureResult{Result: res, CaseID: fx.ID, Input: fx.Input}, nil
}

func (s *Service) run(ctx context.Context, a *artifact.Artifact, vec features.Vector, client, source string) (Result, error) {
	o, hit := s.memo.get(a, vec)
	if hit {
		cacheHitsTotal.Inc()
	} else {
		var err error
		o, err = s.infer(a, vec)
		if err != nil {
			return Result{}, s.fail(ctx, source, err)
		}
		s.memo.put(a, vec, o)
	}
	res := Result{Class: o.label, Confidence: o.confidence, ProducedAt: s.now(), Client: client}
	predictionsTotal.WithLabelValues(source, res.Class).Inc()
	s.auditRecord(ctx, source, vec, res, hit)
	return res, nil
}

// infer calls the classifier. Confidence is the largest class probability.
func (s *Service) infer(a *artifact.Artifact, vec features.Vector) (o outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &InferenceError{Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	id, err := a.Predict(vec)
	if err != nil {
		return outcome{}, &InferenceError{Err: err}
	}
	probs, err := a.PredictProba(vec)
	if err != nil {
		return outcome{}, &InferenceError{Err: err}
	}
	if len(probs) == 0 {
		return outcome{}, &InferenceError{Err: errors.New("empty probability vector")}
	}
	best := 0
	for i, p := range probs {
		if math.IsNaN(p) || p < 0 || p > 1+1e-9 {
			return outcome{}, &InferenceError{Err: fmt.Errorf("invalid probability %v for class %d", p, i)}
		}
		if p > probs[best] {
			best = i
		}
	}
	if best != id {
		s.log.Warn().Int("class_id", id).Int("argmax", best).Msg("predicted class differs from most probable class")
	}
	label, err := a.Decode(id)
	if err != nil {
		return outcome{}, &InferenceError{Err: err}
	}
	return outcome{label: label, confidence: math.Min(probs[best], 1)}, nil
}

func (s *Service) fail(ctx context.Context, source string, err error) error {
	kind := errorKind(err)
	predictionErrorsTotal.WithLabelValues(kind).Inc()
	lvl := zerolog.WarnLevel
	switch kind {
	case "artifact_missing", "artifact_corrupt", "inference", "internal":
		lvl = zerolog.ErrorLevel
	}
	ev := s.log.WithLevel(lvl).Err(err).Str("kind", kind).Str("source", source)
	if rid := RequestID(ctx); rid != "" {
		ev = ev.Str("request_id", rid)
	}
	ev.Msg("prediction failed")
	return err
}

// auditRecord never fails the prediction.
func (s *Service) auditRecord(ctx context.Context, source string, vec features.Vector, res Result, cached bool) {
	defer func() { _ = recover() }()
	ev := s.audit.Info().
		Str("source", source).
		Str("client", res.Client).
		Interface("input", vec.Map()).
		Str("prediction", res.Class).
		Float64("probability", res.Confidence).
		Time("produced_at", res.ProducedAt).
		Bool("cached", cached)
	if rid := RequestID(ctx); rid != "" {
		ev = ev.Str("request_id", rid)
	}
	ev.Msg("prediction made")
}
