package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(trackedConversations, conversationsEndedTotal, transcriptFragmentsTotal)
}

var trackedConversations = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "tracked_conversations",
		Help: "Number of conversations currently tracked as active.",
	},
)

var conversationsEndedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "conversations_ended_total",
		Help: "Conversations finalized by the idle sweep, labeled by summary outcome.",
	},
	[]string{"summary"}, // 'ok', 'failed'
)

var transcriptFragmentsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "transcript_fragments_total",
		Help: "Voice transcript fragments ingested, labeled by role.",
	},
	[]string{"role"},
)

func SetTrackedConversations(n int) {
	trackedConversations.Set(float64(n))
}

func IncConversationEnded(summaryOutcome string) {
	conversationsEndedTotal.WithLabelValues(norm(summaryOutcome)).Inc()
}

func IncTranscriptFragment(role string) {
	transcriptFragmentsTotal.WithLabelValues(norm(role)).Inc()
}
