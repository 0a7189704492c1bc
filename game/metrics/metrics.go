// Package metrics exposes Prometheus collectors for the game server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wricardo/snake-engine/game/engine"
)

const (
	labelConfig = "config"
	labelCause  = "cause"
)

// Metric names follow snake_<name>; every series carries the config label.

var (
	ticksTotal = newCounter("snake_ticks_total", "Ticks processed by running games")
	foodEaten  = newCounter("snake_food_eaten_total", "Food items eaten")
	gamesOver  = newCounter("snake_games_over_total", "Games that ran out of lives")
	keyPresses = newCounter("snake_key_presses_total", "Movement keys accepted")

	livesLost = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snake_lives_lost_total",
		Help: "Lives lost, by collision cause",
	}, []string{labelConfig, labelCause})

	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snake_sessions_active",
		Help: "Sessions held in memory",
	})

	finalScore = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "snake_final_score",
		Help:    "Score at game over",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	}, []string{labelConfig})

	driverTickSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "snake_driver_round_seconds",
		Help:    "Time taken by one driver round over all running sessions",
		Buckets: prometheus.DefBuckets,
	})
)

func newCounter(name, help string) *prometheus.CounterVec {
	return promauto.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, []string{labelConfig})
}

func configLabel(configID string) prometheus.Labels {
	if configID == "" {
		configID = "custom"
	}
	return prometheus.Labels{labelConfig: configID}
}

// ObserveTicks counts ticks executed for a session
func ObserveTicks(configID string, n int) {
	if n <= 0 {
		return
	}
	ticksTotal.With(configLabel(configID)).Add(float64(n))
}

// ObserveKeyPress counts an accepted movement key
func ObserveKeyPress(configID string) {
	keyPresses.With(configLabel(configID)).Inc()
}

// ObserveNotification updates the counters matching a notification
func ObserveNotification(configID string, n engine.Notification) {
	labels := configLabel(configID)
	switch v := n.(type) {
	case engine.ScoreChanged:
		foodEaten.With(labels).Inc()
	case engine.LifeLost:
		livesLost.With(prometheus.Labels{labelConfig: labels[labelConfig], labelCause: string(v.Cause)}).Inc()
	case engine.GameEnded:
		gamesOver.With(labels).Inc()
		finalScore.With(labels).Observe(float64(v.Score))
	}
}

// SetActiveSessions records the number of sessions in memory
func SetActiveSessions(n int) {
	sessionsActive.Set(float64(n))
}

// ObserveDriverRound records the duration of one driver round
func ObserveDriverRound(seconds float64) {
	driverTickSeconds.Observe(seconds)
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
