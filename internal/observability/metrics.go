package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voxctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "voxctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	classifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voxctl",
			Subsystem: "jurisdiction",
			Name:      "classifications_total",
			Help:      "Jurisdiction classifications by resulting area.",
		},
		[]string{"area"},
	)
	packets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voxctl",
			Subsystem: "jurisdiction",
			Name:      "packets_total",
			Help:      "Jurisdiction packets packed or unpacked.",
		},
		[]string{"direction", "empty"},
	)
	droppedEndNodes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voxctl",
			Subsystem: "jurisdiction",
			Name:      "dropped_end_nodes_total",
			Help:      "End nodes skipped while unpacking, by reason.",
		},
		[]string{"reason"},
	)
	registryNodes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "voxctl",
			Subsystem: "registry",
			Name:      "nodes",
			Help:      "Servers with a known jurisdiction.",
		},
	)
	advertisements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voxctl",
			Subsystem: "advertise",
			Name:      "publish_total",
			Help:      "Jurisdiction advertisements published.",
		},
		[]string{"success"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			classifications,
			packets,
			droppedEndNodes,
			registryNodes,
			advertisements,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordClassification(area string) {
	RegisterMetrics()
	classifications.WithLabelValues(area).Inc()
}

// RecordPacket counts a pack ("out") or unpack ("in").
func RecordPacket(direction string, empty bool) {
	RegisterMetrics()
	packets.WithLabelValues(direction, strconv.FormatBool(empty)).Inc()
}

func RecordDroppedEndNode(reason string) {
	RegisterMetrics()
	droppedEndNodes.WithLabelValues(reason).Inc()
}

func SetRegistryNodes(n int) {
	RegisterMetrics()
	registryNodes.Set(float64(n))
}

func RecordAdvertisement(success bool) {
	RegisterMetrics()
	advertisements.WithLabelValues(strconv.FormatBool(success)).Inc()
}
