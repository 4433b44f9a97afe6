package wager

import "expvar"

var (
	metricSettledTotal         = expvar.NewInt("wager_settled_total")
	metricSweepReadyExpired    = expvar.NewInt("wager_sweep_ready_expired_total")
	metricSweepConfirmExpired  = expvar.NewInt("wager_sweep_confirm_expired_total")
	metricSweepItemErrorsTotal = expvar.NewInt("wager_sweep_item_errors_total")
)
