// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for consistent tracing across the worker.
const (
	TaskIDKey     = "task.id"
	JobIDKey      = "task.job_id"
	CapabilityKey = "task.capability"
	DomainIDKey   = "task.domain_id"

	HeartbeatProgressKey = "heartbeat.progress"
	HeartbeatEventsKey   = "heartbeat.events"

	StorageCIDKey         = "storage.cid"
	StorageLogicalPathKey = "storage.logical_path"
)

// TaskAttributes builds the span start option every session span carries.
// Empty optional fields are skipped.
func TaskAttributes(taskID, jobID, capability, domainID string) trace.SpanStartOption {
	attrs := make([]attribute.KeyValue, 0, 4)
	attrs = append(attrs, attribute.String(TaskIDKey, taskID))
	if jobID != "" {
		attrs = append(attrs, attribute.String(JobIDKey, jobID))
	}
	attrs = append(attrs, attribute.String(CapabilityKey, capability))
	if domainID != "" {
		attrs = append(attrs, attribute.String(DomainIDKey, domainID))
	}
	return trace.WithAttributes(attrs...)
}

// HeartbeatAttributes annotates a heartbeat dispatch.
func HeartbeatAttributes(progress string, events int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HeartbeatProgressKey, progress),
		attribute.Int(HeartbeatEventsKey, events),
	}
}
