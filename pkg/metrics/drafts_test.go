package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestDraftMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDraftMetrics(reg)
	m.ObserveImageUpload(ResultSuccess, 250*time.Millisecond)
	m.ObserveImageUpload(ResultFailure, 10*time.Millisecond)
	m.IncVideoSlot("attach", ResultSuccess)
	m.IncVideoSlot("attach", ResultNoop)
	m.IncSubmit("submit", "")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "draft_image_uploads_total", map[string]string{"result": ResultSuccess}); err != nil || got != 1 {
		t.Fatalf("expected one successful upload, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "draft_video_slot_operations_total", map[string]string{"op": "attach", "result": ResultNoop}); err != nil || got != 1 {
		t.Fatalf("expected one noop attach, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "draft_submits_total", map[string]string{"op": "submit", "result": "unknown"}); err != nil || got != 1 {
		t.Fatalf("expected empty result normalized, got %f err=%v", got, err)
	}

	mf := findMetricFamily(mfs, "draft_image_upload_duration_seconds")
	if mf == nil || mf.GetMetric()[0].GetHistogram().GetSampleCount() != 2 {
		t.Fatalf("expected two observed upload durations")
	}
}

func TestNilDraftMetricsIsSafe(t *testing.T) {
	var m *DraftMetrics
	m.ObserveImageUpload(ResultSuccess, time.Second)
	m.IncVideoSlot("remove", ResultSuccess)
	m.IncSubmit("publish", ResultFailure)

	empty := NewDraftMetrics(nil)
	empty.IncSubmit("submit", ResultSuccess)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
