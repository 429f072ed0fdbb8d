// Package scanmetrics exposes scan progress as Prometheus metrics, in the
// promauto package-level-var style used across the example pack (e.g.
// cartographus's internal/wal and internal/auth packages), wired to an
// Observer implementation that a caller can attach to a scanner.Driver without
// the scanner package needing to know Prometheus exists.
package scanmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/plextuner/dvbscan/internal/dvbid"
	"github.com/plextuner/dvbscan/internal/tables"
	"github.com/plextuner/dvbscan/internal/tuning"
)

var (
	transpondersStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dvbscan_transponders_started_total",
		Help: "Total number of transponders tuned to.",
	})

	transpondersFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dvbscan_transponders_failed_total",
		Help: "Total number of transponders that failed to tune or lock.",
	})

	servicesFoundTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dvbscan_services_found_total",
		Help: "Total number of services discovered, partitioned by delivery system.",
	}, []string{"system"})

	scanInProgress = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dvbscan_in_progress",
		Help: "1 while a scan is running, 0 once it has finished.",
	})
)

// systemLabel derives the delivery-system dimension for servicesFoundTotal
// from the channel's namespace, the same sentinels dvbid.BuildNamespace
// reserves for non-satellite delivery systems.
func systemLabel(ns dvbid.Namespace) string {
	switch ns {
	case dvbid.NamespaceTerrestrial:
		return "terrestrial"
	case dvbid.NamespaceCable:
		return "cable"
	default:
		return "satellite"
	}
}

// Observer implements scanner.Observer, recording every event as a metric.
// It never returns an error and never blocks, so it's safe to wrap any real
// Observer with it.
type Observer struct {
	// Next receives every event after it's been recorded, so it can be
	// composed with another Observer (e.g. one that logs progress).
	Next interface {
		Update(tuning.Params)
		NewService(tables.Service)
		Fail(tuning.Params)
		Finish()
	}
}

func (o Observer) Update(params tuning.Params) {
	scanInProgress.Set(1)
	transpondersStartedTotal.Inc()
	if o.Next != nil {
		o.Next.Update(params)
	}
}

func (o Observer) NewService(svc tables.Service) {
	servicesFoundTotal.WithLabelValues(systemLabel(svc.Ref.ChannelID.Namespace)).Inc()
	if o.Next != nil {
		o.Next.NewService(svc)
	}
}

func (o Observer) Fail(params tuning.Params) {
	transpondersFailedTotal.Inc()
	if o.Next != nil {
		o.Next.Fail(params)
	}
}

func (o Observer) Finish() {
	scanInProgress.Set(0)
	if o.Next != nil {
		o.Next.Finish()
	}
}
