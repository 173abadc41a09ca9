package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EventsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ml_data_events_ingested_total",
			Help: "Raw events offered to ingestion, by outcome",
		},
		[]string{"outcome"},
	)

	FeatureRowsWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ml_data_feature_rows_written_total",
			Help: "Feature rows appended by the feature engine",
		},
	)

	LabelsCaptured = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ml_data_labels_captured_total",
			Help: "Ground-truth labels captured",
		},
	)

	TrainingRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ml_data_training_runs_total",
			Help: "Training runs finished, by job family and final status",
		},
		[]string{"job", "status"},
	)

	RetentionDeleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ml_data_retention_deleted_rows_total",
			Help: "Rows deleted by retention maintenance, by table",
		},
		[]string{"table"},
	)
)

func Init() {
	prometheus.MustRegister(EventsIngested)
	prometheus.MustRegister(FeatureRowsWritten)
	prometheus.MustRegister(LabelsCaptured)
	prometheus.MustRegister(TrainingRuns)
	prometheus.MustRegister(RetentionDeleted)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
