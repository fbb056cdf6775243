package host

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cloudx-io/escrowauction/core"
)

// Call outcomes used as the metrics "outcome" label.
const (
	outcomeCommitted = "committed"
	outcomeRejected  = "rejected"
	outcomeFailed    = "failed"
)

var (
	callsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_calls_total",
			Help: "Auction calls by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	callDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "auction_call_duration_seconds",
			Help:    "Time spent executing an auction call, commit included.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
		[]string{"operation"},
	)

	transferredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_transferred_amount_total",
			Help: "Amount moved out of auction escrow by committed transfers.",
		},
		[]string{"denom"},
	)
)

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeCommitted
	case core.IsAuctionError(err):
		return outcomeRejected
	default:
		return outcomeFailed
	}
}

func observeCall(operation string, started time.Time, err error) {
	callsTotal.WithLabelValues(operation, outcomeOf(err)).Inc()
	callDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func observeTransfers(transfers []core.Transfer) {
	for _, transfer := range transfers {
		transferredTotal.WithLabelValues(transfer.Coin.Denom).Add(float64(transfer.Coin.Amount))
	}
}
