package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Expense metrics
	ExpensesCreated *prometheus.CounterVec
	ExpenseAmount   prometheus.Histogram
	SplitRejections *prometheus.CounterVec

	// Settlement metrics
	SettlementRequests  *prometheus.CounterVec
	ParticipantsSettled prometheus.Counter
	SettlementDuration  prometheus.Histogram

	// View metrics
	ViewDuration *prometheus.HistogramVec

	// Cache metrics
	CacheLookups *prometheus.CounterVec

	// Outbox metrics
	EventsPublished *prometheus.CounterVec
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ExpensesCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gosplit_expenses_created_total",
				Help: "Total number of expenses created by split method",
			},
			[]string{"method"},
		),
		ExpenseAmount: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gosplit_expense_amount",
			Help:    "Expense totals",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),
		SplitRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gosplit_split_rejections_total",
				Help: "Total number of rejected expense creations by reason",
			},
			[]string{"reason"},
		),

		SettlementRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gosplit_settlement_requests_total",
				Help: "Total settlement requests by mode",
			},
			[]string{"mode"},
		),
		ParticipantsSettled: factory.NewCounter(prometheus.CounterOpts{
			Name: "gosplit_participants_settled_total",
			Help: "Total number of participant shares settled",
		}),
		SettlementDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gosplit_settlement_duration_seconds",
			Help:    "Duration of settlement operations",
			Buckets: prometheus.DefBuckets,
		}),

		ViewDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gosplit_view_duration_seconds",
				Help:    "Duration of balance view computation",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"view"},
		),

		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gosplit_cache_lookups_total",
				Help: "Total cache lookups by result",
			},
			[]string{"cache", "result"},
		),

		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gosplit_outbox_events_published_total",
				Help: "Total outbox events published by type",
			},
			[]string{"event_type"},
		),
	}
}

