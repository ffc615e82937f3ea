package evaluate

import "sort"

// ClassMetrics is the per-label quality breakdown.
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Metrics is the aggregate quality report over one labeled batch.
// Labels are the sorted union of true and predicted labels, and index
// the confusion matrix on both axes (rows true, columns predicted).
type Metrics struct {
	Accuracy        float64                 `json:"accuracy"`
	MacroPrecision  float64                 `json:"macro_precision"`
	MacroRecall     float64                 `json:"macro_recall"`
	MacroF1         float64                 `json:"macro_f1"`
	PerClass        map[string]ClassMetrics `json:"per_class"`
	Labels          []string                `json:"labels"`
	ConfusionMatrix [][]int                 `json:"confusion_matrix"`
}

// ComputeMetrics scores predictions against ground truth. Both slices
// must be the same length. Undefined ratios (no predictions for a
// label, no true instances of a label) score zero rather than NaN.
func ComputeMetrics(yTrue, yPred []string) Metrics {
	labelSet := map[string]struct{}{}
	for _, l := range yTrue {
		labelSet[l] = struct{}{}
	}
	for _, l := range yPred {
		labelSet[l] = struct{}{}
	}

	labels := make([]string, 0, len(labelSet))
	for l := range labelSet {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}

	confusion := make([][]int, len(labels))
	for i := range confusion {
		confusion[i] = make([]int, len(labels))
	}

	correct := 0
	tp := make([]int, len(labels))
	fp := make([]int, len(labels))
	fn := make([]int, len(labels))

	for i := range yTrue {
		ti, pi := index[yTrue[i]], index[yPred[i]]
		confusion[ti][pi]++
		if ti == pi {
			correct++
			tp[ti]++
		} else {
			fn[ti]++
			fp[pi]++
		}
	}

	m := Metrics{
		PerClass:        make(map[string]ClassMetrics, len(labels)),
		Labels:          labels,
		ConfusionMatrix: confusion,
	}
	if len(yTrue) > 0 {
		m.Accuracy = float64(correct) / float64(len(yTrue))
	}

	for i, label := range labels {
		precision := safeDiv(tp[i], tp[i]+fp[i])
		recall := safeDiv(tp[i], tp[i]+fn[i])
		f1 := 0.0
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}
		m.PerClass[label] = ClassMetrics{
			Precision: precision,
			Recall:    recall,
			F1:        f1,
			Support:   tp[i] + fn[i],
		}
		m.MacroPrecision += precision
		m.MacroRecall += recall
		m.MacroF1 += f1
	}

	if n := float64(len(labels)); n > 0 {
		m.MacroPrecision /= n
		m.MacroRecall /= n
		m.MacroF1 /= n
	}
	return m
}

func safeDiv(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
