package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(voiceSessionsEndedTotal) }

var voiceSessionsEndedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "voice_sessions_ended_total",
		Help: "Voice room teardowns, labeled by outcome.",
	},
	[]string{"outcome"}, // 'ended', 'already_gone', 'failed'
)

func IncVoiceSessionEnded(outcome string) {
	voiceSessionsEndedTotal.WithLabelValues(norm(outcome)).Inc()
}
