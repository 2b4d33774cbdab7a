package learner

import (
	"math"
	"sort"
)

// evalResult holds held-out evaluation metrics for one trained ensemble.
type evalResult struct {
	accuracy         float64
	precision        float64
	recall           float64
	aucROC           float64
	calibrationError float64
}

// evaluate computes classification metrics at a 0.5 cut plus rank-based
// AUC-ROC and 10-bin expected calibration error.
func evaluate(probs []float64, labels []int) evalResult {
	var res evalResult
	if len(probs) == 0 || len(probs) != len(labels) {
		return res
	}

	var tp, tn, fp, fn float64
	for i, p := range probs {
		predicted := p >= 0.5
		actual := labels[i] == 1
		switch {
		case predicted && actual:
			tp++
		case predicted && !actual:
			fp++
		case !predicted && actual:
			fn++
		default:
			tn++
		}
	}
	total := float64(len(probs))
	res.accuracy = (tp + tn) / total
	if tp+fp > 0 {
		res.precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		res.recall = tp / (tp + fn)
	}
	res.aucROC = aucROC(probs, labels)
	res.calibrationError = expectedCalibrationError(probs, labels, 10)
	return res
}

// aucROC computes the area under the ROC curve via average ranks, which
// handles ties correctly.
func aucROC(probs []float64, labels []int) float64 {
	n := len(probs)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return probs[idx[a]] < probs[idx[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && probs[idx[j]] == probs[idx[i]] {
			j++
		}
		avg := float64(i+j+1) / 2 // ranks are 1-based
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}
		i = j
	}

	var nPos, nNeg, sumRanksPos float64
	for i, l := range labels {
		if l == 1 {
			nPos++
			sumRanksPos += ranks[i]
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return 0.5
	}
	return (sumRanksPos - nPos*(nPos+1)/2) / (nPos * nNeg)
}

// expectedCalibrationError bins predictions and averages the gap between
// mean predicted probability and observed positive rate, weighted by bin
// population.
func expectedCalibrationError(probs []float64, labels []int, bins int) float64 {
	counts := make([]float64, bins)
	sumProb := make([]float64, bins)
	sumLabel := make([]float64, bins)
	for i, p := range probs {
		b := int(p * float64(bins))
		if b >= bins {
			b = bins - 1
		}
		counts[b]++
		sumProb[b] += p
		sumLabel[b] += float64(labels[i])
	}
	ece := 0.0
	total := float64(len(probs))
	for b := 0; b < bins; b++ {
		if counts[b] == 0 {
			continue
		}
		gap := math.Abs(sumProb[b]/counts[b] - sumLabel[b]/counts[b])
		ece += counts[b] / total * gap
	}
	return ece
}
