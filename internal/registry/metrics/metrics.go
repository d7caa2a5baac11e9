package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the sequence and motif registry.
type Metrics struct {
	SequencesAdded    prometheus.Counter
	SequencesRejected *prometheus.CounterVec
	SequencesRemoved  prometheus.Counter
	MotifsAdded       prometheus.Counter
	MotifsDuplicate   prometheus.Counter
	MotifsRejected    *prometheus.CounterVec
	MotifsRemoved     prometheus.Counter
	StoreSize         *prometheus.GaugeVec
	IngestDuration    *prometheus.HistogramVec
}

// New creates the registry metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SequencesAdded: f.NewCounter(prometheus.CounterOpts{
			Name: "seqreg_sequences_added_total",
			Help: "Total number of sequences added to the registry",
		}),
		SequencesRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "seqreg_sequences_rejected_total",
			Help: "Sequence adds rejected by validation, by reason",
		}, []string{"reason"}),
		SequencesRemoved: f.NewCounter(prometheus.CounterOpts{
			Name: "seqreg_sequences_removed_total",
			Help: "Total number of sequences removed from the registry",
		}),
		MotifsAdded: f.NewCounter(prometheus.CounterOpts{
			Name: "seqreg_motifs_added_total",
			Help: "Total number of motifs added to the registry",
		}),
		MotifsDuplicate: f.NewCounter(prometheus.CounterOpts{
			Name: "seqreg_motifs_duplicate_total",
			Help: "Motif adds that matched an existing pattern",
		}),
		MotifsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "seqreg_motifs_rejected_total",
			Help: "Motif adds rejected by validation, by reason",
		}, []string{"reason"}),
		MotifsRemoved: f.NewCounter(prometheus.CounterOpts{
			Name: "seqreg_motifs_removed_total",
			Help: "Total number of motifs removed from the registry",
		}),
		StoreSize: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "seqreg_store_records",
			Help: "Current number of records per store",
		}, []string{"store"}),
		IngestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "seqreg_ingest_duration_seconds",
			Help:    "Duration of ingestion operations by source (file, text, ncbi)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
	}
}

func (m *Metrics) IncrementSequenceAdded() { m.SequencesAdded.Inc() }

func (m *Metrics) IncrementSequenceRejected(reason string) {
	m.SequencesRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementSequenceRemoved() { m.SequencesRemoved.Inc() }

func (m *Metrics) IncrementMotifAdded() { m.MotifsAdded.Inc() }

func (m *Metrics) IncrementMotifDuplicate() { m.MotifsDuplicate.Inc() }

func (m *Metrics) IncrementMotifRejected(reason string) {
	m.MotifsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementMotifRemoved() { m.MotifsRemoved.Inc() }

// SetStoreSize records the current record count for store ("sequences" or "motifs").
func (m *Metrics) SetStoreSize(store string, n int) {
	m.StoreSize.WithLabelValues(store).Set(float64(n))
}

// ObserveIngest records the duration of an ingestion from source.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveIngest(source string, start time.Time) {
	m.IngestDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
}
