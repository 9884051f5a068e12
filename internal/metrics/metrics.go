package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Namespace = "h264viewer"

var (
	Analyses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "analyzer",
			Name:      "analyses_total",
			Help:      "The number of analyzed uploads by container and result",
		},
		[]string{"container", "result"},
	)

	AnalysisDurations = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:                   Namespace,
			Subsystem:                   "analyzer",
			Name:                        "duration_seconds",
			Help:                        "A histogram of analysis latencies.",
			Buckets:                     prometheus.DefBuckets,
			NativeHistogramBucketFactor: 1.1,
		},
	)

	NALUs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "analyzer",
			Name:      "nalus_total",
			Help:      "The number of scanned NAL units by type",
		},
		[]string{"type"},
	)

	Chunks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "analyzer",
			Name:      "chunks_total",
			Help:      "The number of assembled chunks by kind",
		},
		[]string{"kind"},
	)

	DroppedSlices = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "analyzer",
			Name:      "dropped_slices_total",
			Help:      "The number of slices dropped before the first key chunk",
		},
	)

	SPSDiagnostics = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "analyzer",
			Name:      "sps_diagnostics_total",
			Help:      "The number of recovered SPS parse failures",
		},
	)

	StoredAnalyses = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "store",
			Name:      "analyses",
			Help:      "The number of analyses kept in memory",
		},
	)

	ActiveStreams = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "streamer",
			Name:      "active_streams",
			Help:      "The number of running streams by transport",
		},
		[]string{"transport"},
	)

	DecodedFrames = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "decoder",
			Name:      "frames_total",
			Help:      "The number of decoded frames by picture type",
		},
		[]string{"picture_type"},
	)
)
