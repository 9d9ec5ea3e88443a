// Package metrics exposes Prometheus instrumentation for the protocol's
// four core components. It is read-only with respect to state: it observes
// values reported to it and never mutates any component.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles every metric this protocol reports, grouped the way a
// typical chain node's metrics package groups gauges/counters per subsystem.
type Registry struct {
	VaultLiquidity      prometheus.Gauge
	TreasuryBalance     *prometheus.GaugeVec
	ProposalsSubmitted  prometheus.Counter
	ProposalsExecuted   prometheus.Counter
	DonationsRecorded   prometheus.Counter
	SBTsMinted          prometheus.Counter
	EventsDeclared      prometheus.Counter
	DeclareEventFailure prometheus.Counter
}

// NewRegistry constructs a Registry and registers every metric with reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		VaultLiquidity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "aegis",
			Subsystem: "vault",
			Name:      "liquidity_total",
			Help:      "Current total liquidity held by the Insurance Vault.",
		}),
		TreasuryBalance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "aegis",
			Subsystem: "eventdao",
			Name:      "treasury_balance",
			Help:      "Current treasury balance, labeled by DAO id.",
		}, []string{"dao_id"}),
		ProposalsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aegis",
			Subsystem: "eventdao",
			Name:      "proposals_submitted_total",
			Help:      "Total proposals submitted across all DAOs.",
		}),
		ProposalsExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aegis",
			Subsystem: "eventdao",
			Name:      "proposals_executed_total",
			Help:      "Total proposals auto-executed across all DAOs.",
		}),
		DonationsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aegis",
			Subsystem: "eventdao",
			Name:      "donations_recorded_total",
			Help:      "Total donate calls recorded across all DAOs.",
		}),
		SBTsMinted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aegis",
			Subsystem: "ledger",
			Name:      "sbts_minted_total",
			Help:      "Total SBTs minted by the DID/SBT Ledger.",
		}),
		EventsDeclared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aegis",
			Subsystem: "factory",
			Name:      "events_declared_total",
			Help:      "Total successful Factory.DeclareEvent calls.",
		}),
		DeclareEventFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aegis",
			Subsystem: "factory",
			Name:      "events_declared_failed_total",
			Help:      "Total failed Factory.DeclareEvent calls.",
		}),
	}

	reg.MustRegister(
		r.VaultLiquidity,
		r.TreasuryBalance,
		r.ProposalsSubmitted,
		r.ProposalsExecuted,
		r.DonationsRecorded,
		r.SBTsMinted,
		r.EventsDeclared,
		r.DeclareEventFailure,
	)

	return r
}

// ObserveProposals sets the treasury gauge and bumps submitted/executed
// counters for daoID given a fresh proposal snapshot.
func (r *Registry) ObserveProposals(daoID string, treasuryBalance uint64, submittedDelta, executedDelta int) {
	r.TreasuryBalance.WithLabelValues(daoID).Set(float64(treasuryBalance))
	for i := 0; i < submittedDelta; i++ {
		r.ProposalsSubmitted.Inc()
	}
	for i := 0; i < executedDelta; i++ {
		r.ProposalsExecuted.Inc()
	}
}
