// Package metrics exposes prometheus counters for channel-lifecycle
// events, the way lnd's rpcserver wires per-RPC prometheus metrics
// without making the core logic depend on whether anyone scrapes them.
// No package in this module increments these counters.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// PaymentsTotal counts completed Pay cycles, labeled by outcome.
	PaymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "boltchan",
			Name:      "payments_total",
			Help:      "Total number of payment rounds, by outcome.",
		},
		[]string{"outcome"},
	)

	// ChannelsEstablished counts channels that reached the
	// established state.
	ChannelsEstablished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "boltchan",
			Name:      "channels_established_total",
			Help:      "Total number of channels that completed Establish.",
		},
	)

	// ReplayAttempts counts wpk reuse rejected by the revocation
	// ledger's replay guard.
	ReplayAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "boltchan",
			Name:      "replay_attempts_total",
			Help:      "Total number of payments rejected for reusing a retired wpk.",
		},
	)

	// DisputeResolutions counts Resolve calls, labeled by winner.
	DisputeResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "boltchan",
			Name:      "dispute_resolutions_total",
			Help:      "Total number of Resolve calls, by which side won.",
		},
		[]string{"winner"},
	)
)

// MustRegister registers every metric above against reg, mirroring the
// registration call an embedding daemon's rpcserver makes today for
// lnd's own metrics.
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		PaymentsTotal,
		ChannelsEstablished,
		ReplayAttempts,
		DisputeResolutions,
	)
}
