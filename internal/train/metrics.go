package train

// MeanMetric accumulates a running mean of observed values.
type MeanMetric struct {
	sum   float64
	count int
}

// Update adds one observation.
func (m *MeanMetric) Update(value float64) {
	m.sum += value
	m.count++
}

// Mean returns the mean of all observations, or 0 before any.
func (m *MeanMetric) Mean() float64 {
	if m.count == 0 {
		return 0
	}
	return m.sum / float64(m.count)
}

// Count returns the number of observations.
func (m *MeanMetric) Count() int {
	return m.count
}

// Reset clears the accumulator.
func (m *MeanMetric) Reset() {
	m.sum = 0
	m.count = 0
}

// AccuracyMetric accumulates top-1 classification accuracy.
type AccuracyMetric struct {
	correct int
	total   int
}

// Update adds a batch's worth of predictions.
func (m *AccuracyMetric) Update(correct, total int) {
	m.correct += correct
	m.total += total
}

// Accuracy returns the fraction of correct predictions, or 0 before any.
func (m *AccuracyMetric) Accuracy() float64 {
	if m.total == 0 {
		return 0
	}
	return float64(m.correct) / float64(m.total)
}

// Reset clears the accumulator.
func (m *AccuracyMetric) Reset() {
	m.correct = 0
	m.total = 0
}
