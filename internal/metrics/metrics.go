package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "opobank_sessions_started_total",
			Help: "Number of quiz sessions started",
		},
	)

	SessionsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opobank_sessions_completed_total",
			Help: "Number of quiz sessions completed, by how they ended",
		},
		[]string{"outcome"}, // finished, abandoned
	)

	AnswersRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opobank_answers_recorded_total",
			Help: "Number of answers recorded, by correctness",
		},
		[]string{"result"}, // correct, incorrect
	)

	SessionScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "opobank_session_score_percentage",
			Help:    "Accuracy of completed sessions over answered questions",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)
)

// ObserveAnswer counts one recorded answer.
func ObserveAnswer(correct bool) {
	result := "incorrect"
	if correct {
		result = "correct"
	}
	AnswersRecorded.WithLabelValues(result).Inc()
}

// ObserveCompletion counts a finished session and records its accuracy.
func ObserveCompletion(abandoned bool, percentage float64, answered int) {
	outcome := "finished"
	if abandoned {
		outcome = "abandoned"
	}
	SessionsCompleted.WithLabelValues(outcome).Inc()
	if answered > 0 {
		SessionScore.Observe(percentage)
	}
}
