package export

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var exportRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "agora",
	Name:      "export_requests_total",
	Help:      "Export requests by outcome.",
}, []string{"outcome"})

var backupsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "agora",
	Name:      "backups_processed_total",
	Help:      "Backup archives built by the worker, by result.",
}, []string{"result"})
