package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TransfersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_transfers_total",
			Help: "Committed token transfers by kind",
		},
		[]string{"kind"}, // transfer|transfer_from|mint|burn|purchase|listing_fee|withdrawal
	)
	LedgerRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_rejections_total",
			Help: "Rejected ledger calls by error code",
		},
		[]string{"code"},
	)
	ModelsListed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "models_listed_total",
			Help: "Models listed on the marketplace",
		},
	)
	ModelsPurchased = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "models_purchased_total",
			Help: "Models purchased on the marketplace",
		},
	)
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)
)

var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(TransfersTotal)
	prometheus.MustRegister(LedgerRejections)
	prometheus.MustRegister(ModelsListed)
	prometheus.MustRegister(ModelsPurchased)
	prometheus.MustRegister(WorkerQueueDepth)
}
