// SPDX-License-Identifier: MIT

// Package metrics exposes the worker's prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Task engine metrics
	leasesAcquired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetnode_leases_acquired_total",
		Help: "Tasks leased from DMS per capability",
	}, []string{"capability"})

	pollErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetnode_poll_errors_total",
		Help: "Lease polls that failed at transport or HTTP level",
	})

	sessionsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetnode_sessions_finished_total",
		Help: "Sessions by terminal outcome",
	}, []string{"outcome"}) // outcome=complete|fail|abandoned

	sessionsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fleetnode_sessions_in_flight",
		Help: "Sessions currently executing",
	})

	// Heartbeat metrics
	heartbeatsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetnode_heartbeats_sent_total",
		Help: "Heartbeats dispatched to DMS",
	})

	heartbeatErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetnode_heartbeat_errors_total",
		Help: "Heartbeat posts that failed",
	})

	domainTokenRotations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetnode_domain_token_rotations_total",
		Help: "Domain access tokens hot-swapped from heartbeat responses",
	})

	// Node token metrics
	nodeTokenRotations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetnode_node_token_rotations_total",
		Help: "Node token rotation attempts by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	// Storage metrics
	storageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetnode_storage_errors_total",
		Help: "Domain storage failures by operation",
	}, []string{"operation"})

	// Registration metrics
	registrationState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fleetnode_registered",
		Help: "Whether the node currently holds a registration (1) or not (0)",
	})
)

func RecordLeaseAcquired(capability string) {
	leasesAcquired.WithLabelValues(capability).Inc()
}

func RecordPollError() {
	pollErrors.Inc()
}

func RecordSessionFinished(outcome string) {
	sessionsFinished.WithLabelValues(outcome).Inc()
}

func SessionStarted() {
	sessionsInFlight.Inc()
}

func SessionEnded() {
	sessionsInFlight.Dec()
}

func RecordHeartbeatSent() {
	heartbeatsSent.Inc()
}

func RecordHeartbeatError() {
	heartbeatErrors.Inc()
}

func RecordDomainTokenRotation() {
	domainTokenRotations.Inc()
}

func RecordNodeTokenRotation(outcome string) {
	nodeTokenRotations.WithLabelValues(outcome).Inc()
}

func RecordStorageError(operation string) {
	storageErrors.WithLabelValues(operation).Inc()
}

func SetRegistered(registered bool) {
	if registered {
		registrationState.Set(1)
	} else {
		registrationState.Set(0)
	}
}
