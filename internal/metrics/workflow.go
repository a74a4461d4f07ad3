package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 投递结果标签值。
const (
	OutcomeApplied        = "applied"
	OutcomeNotEligible    = "not_eligible"
	OutcomeAlreadyApplied = "already_applied"
)

var (
	applicationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobportal",
			Subsystem: "workflow",
			Name:      "applications_total",
			Help:      "岗位投递次数，按结果区分。",
		},
		[]string{"outcome"},
	)

	assessmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobportal",
			Subsystem: "workflow",
			Name:      "assessments_total",
			Help:      "测评提交次数，按结论区分。",
		},
		[]string{"verdict"},
	)

	fanoutFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobportal",
			Subsystem: "workflow",
			Name:      "fanout_failures_total",
			Help:      "通知分发失败次数（主操作已提交）。",
		},
		[]string{"event"},
	)
)

// RecordApplication counts one apply attempt by outcome.
func RecordApplication(outcome string) {
	applicationsTotal.WithLabelValues(outcome).Inc()
}

// RecordAssessment counts one scored submission by verdict.
func RecordAssessment(verdict string) {
	assessmentsTotal.WithLabelValues(verdict).Inc()
}

// RecordFanoutFailure counts a degraded post-commit fan-out.
func RecordFanoutFailure(event string) {
	fanoutFailuresTotal.WithLabelValues(event).Inc()
}
