package learner

import (
	"context"
	"math"
	"sort"
)

// Model family kinds. Each member is a tagged variant with a uniform
// predict capability; the set stays open for extension without a class
// hierarchy.
const (
	kindLogistic      = "logistic"
	kindBoostedStumps = "boosted_stumps"
)

// member is one independently trained ensemble model.
type member interface {
	kind() string
	predict(features []float64) float64
	params() memberParams
}

// memberParams is the serialized form of a member, stored in the
// model_metrics params column so snapshots survive restarts.
type memberParams struct {
	Kind    string    `json:"kind"`
	Weights []float64 `json:"weights,omitempty"`
	Bias    float64   `json:"bias,omitempty"`
	Base    float64   `json:"base,omitempty"`
	Stumps  []stump   `json:"stumps,omitempty"`
}

func (p memberParams) build() member {
	switch p.Kind {
	case kindLogistic:
		return &logisticModel{weights: p.Weights, bias: p.Bias}
	case kindBoostedStumps:
		return &boostedStumps{base: p.Base, stumps: p.Stumps}
	}
	return nil
}

// sample is one weighted training observation.
type sample struct {
	features []float64
	label    float64
	weight   float64
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// --- logistic baseline ---

type logisticModel struct {
	weights []float64
	bias    float64
}

func (m *logisticModel) kind() string { return kindLogistic }

func (m *logisticModel) predict(features []float64) float64 {
	z := m.bias
	for i, w := range m.weights {
		if i < len(features) {
			z += w * features[i]
		}
	}
	return sigmoid(z)
}

func (m *logisticModel) params() memberParams {
	return memberParams{Kind: kindLogistic, Weights: m.weights, Bias: m.bias}
}

// trainLogistic fits weighted logistic regression with full-batch gradient
// descent and L2 regularization. Checks ctx between epochs so a retrain can
// be cancelled cooperatively.
func trainLogistic(ctx context.Context, samples []sample, dims int) (*logisticModel, error) {
	const (
		epochs = 300
		lr     = 0.5
		l2     = 0.01
	)
	m := &logisticModel{weights: make([]float64, dims)}

	totalW := 0.0
	for _, s := range samples {
		totalW += s.weight
	}
	if totalW == 0 {
		return m, nil
	}

	grad := make([]float64, dims)
	for epoch := 0; epoch < epochs; epoch++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		for i := range grad {
			grad[i] = 0
		}
		gradB := 0.0
		for _, s := range samples {
			err := m.predict(s.features) - s.label
			w := s.weight / totalW
			for i := 0; i < dims && i < len(s.features); i++ {
				grad[i] += w * err * s.features[i]
			}
			gradB += w * err
		}
		for i := range m.weights {
			m.weights[i] -= lr * (grad[i] + l2*m.weights[i])
		}
		m.bias -= lr * gradB
	}
	return m, nil
}

// --- gradient-boosted stumps ---

// stump is one depth-1 regression tree on the boosting residuals.
type stump struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      float64 `json:"left"`  // value when feature <= threshold
	Right     float64 `json:"right"` // value when feature > threshold
}

type boostedStumps struct {
	base   float64
	stumps []stump
}

func (m *boostedStumps) kind() string { return kindBoostedStumps }

func (m *boostedStumps) predict(features []float64) float64 {
	f := m.base
	for _, s := range m.stumps {
		v := 0.0
		if s.Feature < len(features) {
			v = features[s.Feature]
		}
		if v <= s.Threshold {
			f += s.Left
		} else {
			f += s.Right
		}
	}
	return sigmoid(f)
}

func (m *boostedStumps) params() memberParams {
	return memberParams{Kind: kindBoostedStumps, Base: m.base, Stumps: m.stumps}
}

// trainBoostedStumps fits gradient boosting for logistic loss: each round
// fits a stump to the weighted residuals and adds a damped Newton step.
func trainBoostedStumps(ctx context.Context, samples []sample, dims int) (*boostedStumps, error) {
	const (
		rounds       = 60
		learningRate = 0.3
	)

	posW, totalW := 0.0, 0.0
	for _, s := range samples {
		totalW += s.weight
		posW += s.weight * s.label
	}
	if totalW == 0 {
		return &boostedStumps{}, nil
	}
	prior := clampProb(posW / totalW)
	m := &boostedStumps{base: math.Log(prior / (1 - prior))}

	scores := make([]float64, len(samples))
	for i := range scores {
		scores[i] = m.base
	}

	thresholds := candidateThresholds(samples, dims)

	for round := 0; round < rounds; round++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		best, bestGain := stump{}, 0.0
		found := false
		for feat := 0; feat < dims; feat++ {
			for _, th := range thresholds[feat] {
				var lNum, lDen, rNum, rDen float64
				for i, s := range samples {
					p := sigmoid(scores[i])
					r := s.label - p
					h := s.weight * p * (1 - p)
					if featAt(s.features, feat) <= th {
						lNum += s.weight * r
						lDen += h
					} else {
						rNum += s.weight * r
						rDen += h
					}
				}
				if lDen < 1e-9 || rDen < 1e-9 {
					continue
				}
				gain := lNum*lNum/lDen + rNum*rNum/rDen
				if gain > bestGain {
					bestGain = gain
					best = stump{
						Feature:   feat,
						Threshold: th,
						Left:      learningRate * lNum / lDen,
						Right:     learningRate * rNum / rDen,
					}
					found = true
				}
			}
		}
		if !found {
			break
		}

		m.stumps = append(m.stumps, best)
		for i, s := range samples {
			if featAt(s.features, best.Feature) <= best.Threshold {
				scores[i] += best.Left
			} else {
				scores[i] += best.Right
			}
		}
	}
	return m, nil
}

// candidateThresholds picks up to ~10 split points per feature from the
// observed value distribution.
func candidateThresholds(samples []sample, dims int) [][]float64 {
	out := make([][]float64, dims)
	for feat := 0; feat < dims; feat++ {
		vals := make([]float64, 0, len(samples))
		for _, s := range samples {
			vals = append(vals, featAt(s.features, feat))
		}
		sort.Float64s(vals)
		uniq := vals[:0]
		for i, v := range vals {
			if i == 0 || v != uniq[len(uniq)-1] {
				uniq = append(uniq, v)
			}
		}
		if len(uniq) < 2 {
			continue
		}
		step := len(uniq) / 10
		if step < 1 {
			step = 1
		}
		for i := step; i < len(uniq); i += step {
			out[feat] = append(out[feat], (uniq[i-1]+uniq[i])/2)
		}
	}
	return out
}

func featAt(features []float64, i int) float64 {
	if i < len(features) {
		return features[i]
	}
	return 0
}

func clampProb(p float64) float64 {
	if p < 1e-6 {
		return 1e-6
	}
	if p > 1-1e-6 {
		return 1 - 1e-6
	}
	return p
}
