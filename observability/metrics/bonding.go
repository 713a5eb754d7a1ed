package metrics

import (
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"emberchain/core/events"
)

// BondingMetrics tracks the operational counters for the bonding engine.
type BondingMetrics struct {
	bondsOpened   *prometheus.CounterVec
	claims        prometheus.Counter
	nativeOwed    prometheus.Gauge
	nativeClaimed prometheus.Gauge
	epochID       prometheus.Gauge
}

var (
	bondingOnce     sync.Once
	bondingRegistry *BondingMetrics
)

// Bonding returns the process-wide bonding metrics, registering them on first
// use.
func Bonding() *BondingMetrics {
	bondingOnce.Do(func() {
		bondingRegistry = &BondingMetrics{
			bondsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "bonding_bonds_opened_total",
				Help: "Count of vesting positions opened by collateral asset.",
			}, []string{"asset"}),
			claims: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "bonding_claims_total",
				Help: "Count of successful claim executions.",
			}),
			nativeOwed: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "bonding_native_owed_wei",
				Help: "Cumulative EMBER owed across all positions, in wei.",
			}),
			nativeClaimed: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "bonding_native_claimed_wei",
				Help: "Cumulative EMBER claimed across all positions, in wei.",
			}),
			epochID: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "bonding_epoch_id",
				Help: "Identifier of the active rate-limit epoch.",
			}),
		}
		prometheus.MustRegister(
			bondingRegistry.bondsOpened,
			bondingRegistry.claims,
			bondingRegistry.nativeOwed,
			bondingRegistry.nativeClaimed,
			bondingRegistry.epochID,
		)
	})
	return bondingRegistry
}

// Emit implements the events.Emitter interface, turning engine events into
// metric updates so the daemon can wire metrics without coupling the engine
// to prometheus.
func (m *BondingMetrics) Emit(evt events.Event) {
	if m == nil || evt == nil {
		return
	}
	switch typed := evt.(type) {
	case events.BondingBondOpened:
		m.bondsOpened.WithLabelValues(typed.CollateralAsset).Inc()
		if typed.AmountOwed != nil {
			owed, _ := new(big.Float).SetInt(typed.AmountOwed).Float64()
			m.nativeOwed.Add(owed)
		}
	case events.BondingClaimed:
		m.claims.Inc()
		if typed.Amount != nil {
			claimed, _ := new(big.Float).SetInt(typed.Amount).Float64()
			m.nativeClaimed.Add(claimed)
		}
	case events.BondingEpochAdvanced:
		m.epochID.Set(float64(typed.EpochID))
	}
}
