package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// PlaybackMetrics records playback engine activity.
type PlaybackMetrics struct {
	trackChanges  prometheus.Counter
	mediaFailures prometheus.Counter
}

// NewPlaybackMetrics registers the playback metrics on the provided registerer.
func NewPlaybackMetrics(reg prometheus.Registerer) *PlaybackMetrics {
	if reg == nil {
		return &PlaybackMetrics{}
	}
	trackChanges := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "playback_track_changes_total",
		Help: "Number of active-track transitions.",
	})
	mediaFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "playback_media_failures_total",
		Help: "Media resolution failures reported by the playback engine.",
	})
	reg.MustRegister(trackChanges, mediaFailures)
	return &PlaybackMetrics{
		trackChanges:  trackChanges,
		mediaFailures: mediaFailures,
	}
}

// IncTrackChange increments the track transition counter.
func (p *PlaybackMetrics) IncTrackChange() {
	if p == nil || p.trackChanges == nil {
		return
	}
	p.trackChanges.Inc()
}

// IncMediaFailure increments the media failure counter.
func (p *PlaybackMetrics) IncMediaFailure() {
	if p == nil || p.mediaFailures == nil {
		return
	}
	p.mediaFailures.Inc()
}

// CommerceMetrics records ledger and payment flow activity.
type CommerceMetrics struct {
	purchases prometheus.Counter
	outcomes  *prometheus.CounterVec
}

// NewCommerceMetrics registers the commerce metrics on the provided registerer.
func NewCommerceMetrics(reg prometheus.Registerer) *CommerceMetrics {
	if reg == nil {
		return &CommerceMetrics{}
	}
	purchases := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "commerce_purchases_recorded_total",
		Help: "Purchases committed to the ledger.",
	})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "commerce_payment_outcomes_total",
		Help: "Payment flow terminal outcomes.",
	}, []string{"outcome"})
	reg.MustRegister(purchases, outcomes)
	return &CommerceMetrics{
		purchases: purchases,
		outcomes:  outcomes,
	}
}

// IncPurchaseRecorded increments the recorded-purchase counter.
func (c *CommerceMetrics) IncPurchaseRecorded() {
	if c == nil || c.purchases == nil {
		return
	}
	c.purchases.Inc()
}

// IncPaymentOutcome increments the outcome counter for the given terminal state.
func (c *CommerceMetrics) IncPaymentOutcome(outcome string) {
	if c == nil || c.outcomes == nil {
		return
	}
	c.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return strings.ReplaceAll(value, " ", "_")
}
