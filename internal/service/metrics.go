package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	smsSendsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sms_relay",
			Name:      "sends_total",
			Help:      "Total outbound send attempts.",
		},
		[]string{"outcome"}, // "ok", "gateway_error"
	)

	smsResendsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sms_relay",
			Name:      "resends_total",
			Help:      "Total resend attempts spawned from undelivered messages.",
		},
		[]string{"outcome"},
	)

	statusRefreshCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sms_relay",
			Name:      "status_refreshes_total",
			Help:      "Total campaign status polls against the gateway.",
		},
		[]string{"outcome"},
	)

	sweepDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sms_relay",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of one full sweep over the message table.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"sweep"},
	)

	sweepRecordsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sms_relay",
			Name:      "sweep_records_total",
			Help:      "Records processed by the periodic sweeps.",
		},
		[]string{"sweep"},
	)
)
