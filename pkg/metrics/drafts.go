package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultNoop    = "noop"
)

// DraftMetrics records media draft activity.
type DraftMetrics struct {
	imageUploads   *prometheus.CounterVec
	uploadDuration prometheus.Histogram
	videoSlots     *prometheus.CounterVec
	submits        *prometheus.CounterVec
}

// NewDraftMetrics registers the draft metrics on the provided registerer. A nil
// registerer yields a recorder that drops everything.
func NewDraftMetrics(reg prometheus.Registerer) *DraftMetrics {
	if reg == nil {
		return &DraftMetrics{}
	}
	imageUploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "draft_image_uploads_total",
		Help: "Image uploads attempted from media drafts.",
	}, []string{"result"})
	uploadDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "draft_image_upload_duration_seconds",
		Help:    "Duration of image uploads in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	videoSlots := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "draft_video_slot_operations_total",
		Help: "Video slot attach and remove operations.",
	}, []string{"op", "result"})
	submits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "draft_submits_total",
		Help: "Draft submits and publishes by result.",
	}, []string{"op", "result"})
	reg.MustRegister(imageUploads, uploadDuration, videoSlots, submits)
	return &DraftMetrics{
		imageUploads:   imageUploads,
		uploadDuration: uploadDuration,
		videoSlots:     videoSlots,
		submits:        submits,
	}
}

// ObserveImageUpload records one upload attempt.
func (m *DraftMetrics) ObserveImageUpload(result string, d time.Duration) {
	if m == nil || m.imageUploads == nil {
		return
	}
	m.imageUploads.WithLabelValues(normalizeLabel(result)).Inc()
	m.uploadDuration.Observe(d.Seconds())
}

// IncVideoSlot counts a video slot operation ("attach" or "remove").
func (m *DraftMetrics) IncVideoSlot(op, result string) {
	if m == nil || m.videoSlots == nil {
		return
	}
	m.videoSlots.WithLabelValues(normalizeLabel(op), normalizeLabel(result)).Inc()
}

// IncSubmit counts a submit or publish outcome.
func (m *DraftMetrics) IncSubmit(op, result string) {
	if m == nil || m.submits == nil {
		return
	}
	m.submits.WithLabelValues(normalizeLabel(op), normalizeLabel(result)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
