package provisioning

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lambdaprov",
			Subsystem: "cluster",
			Name:      "operations_total",
			Help:      "Total number of cluster operations by result",
		},
		[]string{"operation", "result"},
	)

	operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lambdaprov",
			Subsystem: "cluster",
			Name:      "operation_duration_seconds",
			Help:      "Duration of cluster operations in seconds",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68min
		},
		[]string{"operation"},
	)

	resourcesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lambdaprov",
			Subsystem: "cloud",
			Name:      "resources_total",
			Help:      "Cloud resources touched by type and action",
		},
		[]string{"type", "action"},
	)

	quotaAvailable = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "lambdaprov",
			Subsystem: "quota",
			Name:      "available",
			Help:      "Quota available per dimension at the last admission check",
		},
		[]string{"dimension"},
	)
)

// Collectors returns every provisioning metric.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{operationsTotal, operationDuration, resourcesTotal, quotaAvailable}
}

// RegisterMetrics registers all provisioning metrics with reg.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// RecordOperation records the outcome and duration of a cluster operation.
func RecordOperation(operation string, start time.Time, err error) {
	result := "success"
	switch {
	case err == nil:
	case IsQuotaExceeded(err):
		result = "rejected"
	default:
		if _, ok := IsPartial(err); ok {
			result = "partial"
		} else {
			result = "error"
		}
	}
	operationsTotal.WithLabelValues(operation, result).Inc()
	operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// RecordResource counts an action on a cloud resource.
func RecordResource(resourceType, action string) {
	resourcesTotal.WithLabelValues(resourceType, action).Inc()
}

// SetQuotaAvailable publishes the available amount of one quota dimension.
func SetQuotaAvailable(d Dimension, available int64) {
	quotaAvailable.WithLabelValues(string(d)).Set(float64(available))
}
