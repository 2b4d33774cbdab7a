// Package learner owns the feedback-driven ensemble that recalibrates the
// heuristic scorer. The active model is an immutable snapshot behind an
// atomic pointer: readers copy the reference once per call, a successful
// retrain swaps in a whole new snapshot.
package learner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"matching_engine/internal/models"
	"matching_engine/internal/scorer"
)

// State of the active model.
type State string

const (
	StateUntrained State = "untrained" // heuristic calibration only
	StateTrained   State = "trained"   // ensemble calibration active
)

// Snapshot is one immutable active-model state. Never mutated in place.
type Snapshot struct {
	State     State
	K         float64 // heuristic sigmoid steepness
	S0        float64 // heuristic sigmoid midpoint
	Members   []member
	TrainedAt time.Time
	AUC       float64
}

// snapshotParams is the serialized snapshot stored with metrics.
type snapshotParams struct {
	K       float64        `json:"k"`
	S0      float64        `json:"s0"`
	Members []memberParams `json:"members"`
	AUC     float64        `json:"auc"`
}

// Store is the persistence the learner depends on.
type Store interface {
	ListTrainingData(ctx context.Context) ([]models.TrainingDataPoint, error)
	SaveModelMetrics(ctx context.Context, m *models.ModelMetrics) error
	LatestActivatedMetrics(ctx context.Context) (*models.ModelMetrics, error)
}

// Config tunes the learner.
type Config struct {
	MinSamples          int     // below this, retrain returns InsufficientData
	RegressionTolerance float64 // max allowed AUC drop before refusing activation
	RecencyHalfLifeDays float64 // training-sample weight halves every this many days
	HoldoutFraction     float64
}

// DefaultConfig returns the shipped learner parameters.
func DefaultConfig() Config {
	return Config{
		MinSamples:          100,
		RegressionTolerance: 0.02,
		RecencyHalfLifeDays: 90,
		HoldoutFraction:     0.2,
	}
}

// Learner trains and serves the calibration ensemble. One instance per
// deployment scope; multiple instances (per tenant) are possible since no
// state is package-global.
type Learner struct {
	store  Store
	config Config
	active atomic.Pointer[Snapshot]

	// retrainMu guards the single exclusive retrain; a concurrent call
	// fails fast instead of queuing.
	retrainMu sync.Mutex

	now func() time.Time
}

// New creates a Learner with the heuristic defaults active.
func New(store Store, cfg Config) *Learner {
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = DefaultConfig().MinSamples
	}
	if cfg.RegressionTolerance <= 0 {
		cfg.RegressionTolerance = DefaultConfig().RegressionTolerance
	}
	if cfg.RecencyHalfLifeDays <= 0 {
		cfg.RecencyHalfLifeDays = DefaultConfig().RecencyHalfLifeDays
	}
	if cfg.HoldoutFraction <= 0 || cfg.HoldoutFraction >= 0.5 {
		cfg.HoldoutFraction = DefaultConfig().HoldoutFraction
	}
	l := &Learner{store: store, config: cfg, now: time.Now}
	heuristic := scorer.DefaultCalibration()
	l.active.Store(&Snapshot{State: StateUntrained, K: heuristic.K, S0: heuristic.S0})
	return l
}

// Init loads the last activated model snapshot from storage, falling back
// to the heuristic defaults when none exists or it cannot be rebuilt.
func (l *Learner) Init(ctx context.Context) error {
	metrics, err := l.store.LatestActivatedMetrics(ctx)
	if err != nil {
		return fmt.Errorf("failed to load last model snapshot: %w", err)
	}
	if metrics == nil || len(metrics.Params) == 0 {
		slog.Info("no persisted model, heuristic calibration active")
		return nil
	}

	var params snapshotParams
	if err := json.Unmarshal(metrics.Params, &params); err != nil {
		slog.Warn("persisted model snapshot unreadable, heuristic calibration active", "error", err)
		return nil
	}
	members := make([]member, 0, len(params.Members))
	for _, mp := range params.Members {
		if m := mp.build(); m != nil {
			members = append(members, m)
		}
	}
	if len(members) < 2 {
		slog.Warn("persisted model snapshot incomplete, heuristic calibration active")
		return nil
	}

	l.active.Store(&Snapshot{
		State:     StateTrained,
		K:         params.K,
		S0:        params.S0,
		Members:   members,
		TrainedAt: metrics.TrainedAt,
		AUC:       params.AUC,
	})
	slog.Info("restored ensemble calibration",
		"trained_at", metrics.TrainedAt,
		"auc_roc", params.AUC,
		"members", len(members),
	)
	return nil
}

// ActiveState reports the current model state.
func (l *Learner) ActiveState() State {
	return l.active.Load().State
}

// Calibrate implements scorer.Calibrator. Reads one snapshot reference;
// no lock is taken on the scoring path.
func (l *Learner) Calibrate(raw float64, features []float64) (float64, bool) {
	snap := l.active.Load()
	if snap.State != StateTrained || len(snap.Members) == 0 {
		return scorer.Sigmoid(snap.K * (raw - snap.S0)), false
	}
	prob, _ := ensemblePredict(snap.Members, features)
	return prob, true
}

// Predict returns the ensemble probability with a variance-derived
// confidence interval. Higher member agreement means a tighter interval;
// the confidence is a derived score, not a statistical guarantee.
func (l *Learner) Predict(features []float64) (probability, confidence, low, high float64) {
	snap := l.active.Load()
	if snap.State != StateTrained || len(snap.Members) == 0 {
		raw := 0.0
		if len(features) > 0 {
			raw = features[len(features)-1]
		}
		p := scorer.Sigmoid(snap.K * (raw - snap.S0))
		return p, 0.5, math.Max(0, p-0.2), math.Min(1, p+0.2)
	}
	prob, stddev := ensemblePredict(snap.Members, features)
	confidence = math.Max(0, 1.0-2*stddev)
	return prob, confidence, math.Max(0, prob-stddev), math.Min(1, prob+stddev)
}

func ensemblePredict(members []member, features []float64) (mean, stddev float64) {
	preds := make([]float64, len(members))
	for i, m := range members {
		preds[i] = m.predict(features)
		mean += preds[i]
	}
	mean /= float64(len(members))
	variance := 0.0
	for _, p := range preds {
		variance += (p - mean) * (p - mean)
	}
	variance /= float64(len(members))
	return mean, math.Sqrt(variance)
}

// Retrain pulls all training data, fits the ensemble and, if the held-out
// AUC-ROC does not regress past the tolerance, atomically swaps the active
// snapshot. Insufficient data and model regression are reported in the
// response, not as errors; only a concurrent retrain is rejected outright.
func (l *Learner) Retrain(ctx context.Context) (*models.RetrainResponse, error) {
	if !l.retrainMu.TryLock() {
		return nil, models.ErrRetrainInProgress
	}
	defer l.retrainMu.Unlock()

	start := l.now()
	points, err := l.store.ListTrainingData(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load training data: %w", err)
	}

	pos, neg := 0, 0
	usable := points[:0]
	for _, p := range points {
		if len(p.Features) == 0 {
			continue
		}
		usable = append(usable, p)
		if p.Label == 1 {
			pos++
		} else {
			neg++
		}
	}
	if len(usable) < l.config.MinSamples || pos == 0 || neg == 0 {
		slog.Info("retrain skipped, insufficient data",
			"samples", len(usable), "positive", pos, "negative", neg,
			"min_samples", l.config.MinSamples,
		)
		return &models.RetrainResponse{Status: models.RetrainInsufficientData}, nil
	}

	// Chronological split: train on older outcomes, evaluate on newest.
	sort.Slice(usable, func(i, j int) bool { return usable[i].ObservedAt.Before(usable[j].ObservedAt) })
	cut := len(usable) - int(float64(len(usable))*l.config.HoldoutFraction)
	if cut >= len(usable) {
		cut = len(usable) - 1
	}
	trainPoints, holdout := usable[:cut], usable[cut:]

	dims := len(usable[0].Features)
	newest := usable[len(usable)-1].ObservedAt
	samples := make([]sample, len(trainPoints))
	for i, p := range trainPoints {
		ageDays := newest.Sub(p.ObservedAt).Hours() / 24
		samples[i] = sample{
			features: p.Features,
			label:    float64(p.Label),
			weight:   math.Exp(-ageDays / l.config.RecencyHalfLifeDays),
		}
	}

	logistic, err := trainLogistic(ctx, samples, dims)
	if err != nil {
		return nil, fmt.Errorf("logistic training aborted: %w", err)
	}
	boosted, err := trainBoostedStumps(ctx, samples, dims)
	if err != nil {
		return nil, fmt.Errorf("boosting aborted: %w", err)
	}
	members := []member{logistic, boosted}

	probs := make([]float64, len(holdout))
	labels := make([]int, len(holdout))
	for i, p := range holdout {
		probs[i], _ = ensemblePredict(members, p.Features)
		labels[i] = p.Label
	}
	eval := evaluate(probs, labels)

	metrics := &models.ModelMetrics{
		ID:                 uuid.New(),
		Accuracy:           eval.accuracy,
		Precision:          eval.precision,
		Recall:             eval.recall,
		AUCROC:             eval.aucROC,
		CalibrationError:   eval.calibrationError,
		TrainedAt:          start,
		SampleCount:        len(usable),
		FeatureImportances: featureImportances(logistic, boosted, dims),
	}

	active := l.active.Load()
	if active.State == StateTrained && eval.aucROC < active.AUC-l.config.RegressionTolerance {
		// Record the run for visibility but keep the current model.
		metrics.Activated = false
		if err := l.store.SaveModelMetrics(ctx, metrics); err != nil {
			return nil, fmt.Errorf("failed to persist model metrics: %w", err)
		}
		slog.Warn("retrained model regressed, keeping active model",
			"new_auc", eval.aucROC, "active_auc", active.AUC,
			"tolerance", l.config.RegressionTolerance,
		)
		return &models.RetrainResponse{Status: models.RetrainModelRegressed, Metrics: metrics}, nil
	}

	params := snapshotParams{K: active.K, S0: active.S0, AUC: eval.aucROC}
	for _, m := range members {
		params.Members = append(params.Members, m.params())
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize model snapshot: %w", err)
	}
	metrics.Params = raw
	metrics.Activated = true
	if err := l.store.SaveModelMetrics(ctx, metrics); err != nil {
		return nil, fmt.Errorf("failed to persist model metrics: %w", err)
	}

	l.active.Store(&Snapshot{
		State:     StateTrained,
		K:         active.K,
		S0:        active.S0,
		Members:   members,
		TrainedAt: start,
		AUC:       eval.aucROC,
	})

	slog.Info("retrain completed, ensemble activated",
		"samples", len(usable),
		"holdout", len(holdout),
		"auc_roc", eval.aucROC,
		"accuracy", eval.accuracy,
		"calibration_error", eval.calibrationError,
		"duration_ms", l.now().Sub(start).Milliseconds(),
	)
	return &models.RetrainResponse{Status: models.RetrainActivated, Metrics: metrics}, nil
}

// featureImportances blends normalized logistic weight magnitudes with
// boosting split frequency.
func featureImportances(logistic *logisticModel, boosted *boostedStumps, dims int) map[string]float64 {
	names := featureNames(dims)
	raw := make([]float64, dims)

	sumW := 0.0
	for i := 0; i < dims && i < len(logistic.weights); i++ {
		sumW += math.Abs(logistic.weights[i])
	}
	if sumW > 0 {
		for i := 0; i < dims && i < len(logistic.weights); i++ {
			raw[i] += 0.5 * math.Abs(logistic.weights[i]) / sumW
		}
	}

	if len(boosted.stumps) > 0 {
		per := 0.5 / float64(len(boosted.stumps))
		for _, s := range boosted.stumps {
			if s.Feature < dims {
				raw[s.Feature] += per
			}
		}
	}

	out := make(map[string]float64, dims)
	for i, name := range names {
		out[name] = raw[i]
	}
	return out
}

func featureNames(dims int) []string {
	names := make([]string, 0, dims)
	for _, c := range models.ComponentOrder {
		names = append(names, string(c))
	}
	names = append(names, "raw_score")
	for len(names) < dims {
		names = append(names, fmt.Sprintf("feature_%d", len(names)))
	}
	return names[:dims]
}
