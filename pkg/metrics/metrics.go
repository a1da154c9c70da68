// Package metrics 定义业务与 HTTP 指标，经 /metrics 暴露给 Prometheus。
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "markly"

var (
	// AttendanceTransitions 考勤状态变更次数，按动作与结果统计
	AttendanceTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "attendance_transitions_total",
		Help:      "Attendance state transitions by action and outcome.",
	}, []string{"action", "outcome"})

	// MeetingsFinalized 已定稿会议数，按触发方式统计（manual / auto）
	MeetingsFinalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "meetings_finalized_total",
		Help:      "Meetings moved to COMPLETED.",
	}, []string{"trigger"})

	// ConflictResolutions 教师处理冲突次数
	ConflictResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "conflict_resolutions_total",
		Help:      "Lecture conflict resolutions by decision.",
	}, []string{"decision"})

	// PendingConflicts 最近一次检测得到的待处理冲突数
	PendingConflicts = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pending_conflicts",
		Help:      "Lecture conflicts found by the most recent detection run.",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})
)

// 结果标签
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeConflict = "conflict"
)

// ObserveHTTP 记录一次 HTTP 请求
func ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpLatency.WithLabelValues(route, method).Observe(elapsed.Seconds())
}
