package metrics

import (
	"fmt"

	dto "github.com/prometheus/client_model/go"

	metricdefs "github.com/fllarpy/frontend-service/domain/metrics"
)

// Snapshot is a point-in-time, read-only copy of the registry's series.
type Snapshot struct {
	TotalRequests uint64
	// ResponseTimes is keyed by the http_status_code label value.
	ResponseTimes map[string]HistogramSnapshot
}

// HistogramSnapshot is one labelled response-time series.
type HistogramSnapshot struct {
	Count uint64
	SumMs float64
	// Buckets maps each upper bound (ms) to its cumulative count.
	Buckets map[float64]uint64
}

// TotalObservations sums the sample counts of every status code.
func (s Snapshot) TotalObservations() uint64 {
	var total uint64
	for _, h := range s.ResponseTimes {
		total += h.Count
	}
	return total
}

// Snapshot gathers the current state through the same path a scrape uses.
func (r *Registry) Snapshot() (Snapshot, error) {
	snapshot := Snapshot{ResponseTimes: make(map[string]HistogramSnapshot)}

	families, err := r.gatherer.Gather()
	if err != nil {
		return snapshot, fmt.Errorf("gather metrics: %w", err)
	}

	for _, mf := range families {
		switch mf.GetName() {
		case r.requestsName:
			for _, m := range mf.GetMetric() {
				snapshot.TotalRequests += uint64(m.GetCounter().GetValue())
			}
		case r.responseTimeName:
			for _, m := range mf.GetMetric() {
				snapshot.ResponseTimes[labelValue(m, metricdefs.StatusCodeLabel)] = histogramSnapshot(m.GetHistogram())
			}
		}
	}
	return snapshot, nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func histogramSnapshot(h *dto.Histogram) HistogramSnapshot {
	hs := HistogramSnapshot{
		Count:   h.GetSampleCount(),
		SumMs:   h.GetSampleSum(),
		Buckets: make(map[float64]uint64, len(h.GetBucket())),
	}
	for _, b := range h.GetBucket() {
		hs.Buckets[b.GetUpperBound()] = b.GetCumulativeCount()
	}
	return hs
}
