package main

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"spacecombat/sim"
)

// MetricsCollector exposes arena counters to prometheus. Each collector
// owns its registry so several servers can live in one process.
type MetricsCollector struct {
	registry     *prometheus.Registry
	tickDuration *prometheus.HistogramVec
	liveAgents   *prometheus.GaugeVec
	wave         *prometheus.GaugeVec
	events       *prometheus.CounterVec
	missions     *prometheus.CounterVec
	spectators   *prometheus.GaugeVec
	connections  prometheus.Gauge
}

func NewMetricsCollector() *MetricsCollector {
	m := &MetricsCollector{
		registry: prometheus.NewRegistry(),
		tickDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "arena_tick_duration_seconds",
				Help:    "Time spent simulating one arena tick",
				Buckets: prometheus.ExponentialBuckets(0.00005, 2, 12),
			},
			[]string{"arena"},
		),
		liveAgents: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "arena_live_agents",
				Help: "Agents alive in the arena",
			},
			[]string{"arena"},
		),
		wave: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "arena_wave",
				Help: "Current wave number of the arena's mission",
			},
			[]string{"arena"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arena_events_total",
				Help: "Mission events by kind",
			},
			[]string{"arena", "kind"},
		),
		missions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arena_missions_finished_total",
				Help: "Finished missions by outcome",
			},
			[]string{"reason"},
		),
		spectators: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "arena_spectators",
				Help: "Connections watching the arena",
			},
			[]string{"arena"},
		),
		connections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ws_connections",
				Help: "Open websocket connections",
			},
		),
	}

	m.registry.MustRegister(m.tickDuration)
	m.registry.MustRegister(m.liveAgents)
	m.registry.MustRegister(m.wave)
	m.registry.MustRegister(m.events)
	m.registry.MustRegister(m.missions)
	m.registry.MustRegister(m.spectators)
	m.registry.MustRegister(m.connections)

	return m
}

// RecordTick observes one simulated tick and the events it produced
func (m *MetricsCollector) RecordTick(arena string, duration time.Duration, mission *sim.Mission) {
	m.tickDuration.WithLabelValues(arena).Observe(duration.Seconds())
	m.liveAgents.WithLabelValues(arena).Set(float64(mission.LiveAgents()))
	m.wave.WithLabelValues(arena).Set(float64(mission.Director().Wave))
	for _, ev := range mission.Events() {
		m.events.WithLabelValues(arena, string(ev.Kind)).Inc()
	}
}

func (m *MetricsCollector) RecordMissionEnd(reason string) {
	m.missions.WithLabelValues(reason).Inc()
}

func (m *MetricsCollector) SetSpectators(arena string, n int) {
	m.spectators.WithLabelValues(arena).Set(float64(n))
}

func (m *MetricsCollector) SetConnections(n int) {
	m.connections.Set(float64(n))
}

// Forget drops the per-arena series of a closed arena
func (m *MetricsCollector) Forget(arena string) {
	m.tickDuration.DeleteLabelValues(arena)
	m.liveAgents.DeleteLabelValues(arena)
	m.wave.DeleteLabelValues(arena)
	m.spectators.DeleteLabelValues(arena)
	m.events.DeletePartialMatch(prometheus.Labels{"arena": arena})
}

// Handler serves the collector's registry
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
