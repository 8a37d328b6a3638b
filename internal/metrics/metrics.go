package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "ticks_total", Help: "Count of evaluation ticks executed"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Orders submitted"},
		[]string{"side", "mode"},
	)
	TickErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tick_errors_total", Help: "Ticks ended early by stage"},
		[]string{"stage"},
	)
	SignalsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "signals_dropped_total", Help: "Signals dropped while an order was in flight"},
	)
	SignalsBlocked = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "signals_blocked_total", Help: "Orders refused by the per-trade notional cap"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, OrdersTotal, TickErrors, SignalsDropped, SignalsBlocked)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
