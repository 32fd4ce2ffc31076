// SPDX-License-Identifier: MIT

// Package dms implements the typed HTTP client for the Dispatcher/Monitoring
// Service: leasing tasks by capability, heartbeating progress and reporting
// terminal outcomes.
package dms

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TaskSpec is the immutable description of one task as handed out by DMS.
type TaskSpec struct {
	ID                 uuid.UUID       `json:"id"`
	JobID              *uuid.UUID      `json:"job_id,omitempty"`
	Capability         string          `json:"capability"`
	CapabilityFilters  json.RawMessage `json:"capability_filters,omitempty"`
	InputsCIDs         []string        `json:"inputs_cids,omitempty"`
	OutputsPrefix      *string         `json:"outputs_prefix,omitempty"`
	Label              *string         `json:"label,omitempty"`
	Stage              *string         `json:"stage,omitempty"`
	Meta               json.RawMessage `json:"meta,omitempty"`
	Priority           int64           `json:"priority"`
	Attempts           *int            `json:"attempts,omitempty"`
	MaxAttempts        *int            `json:"max_attempts,omitempty"`
	DepsRemaining      *int            `json:"deps_remaining,omitempty"`
	Status             *string         `json:"status,omitempty"`
	Mode               *string         `json:"mode,omitempty"`
	OrganizationFilter *string         `json:"organization_filter,omitempty"`
	BillingUnits       *int64          `json:"billing_units,omitempty"`
	EstimatedCredits   *float64        `json:"estimated_credit_cost,omitempty"`
	DebitedAmount      *float64        `json:"debited_amount,omitempty"`
	DebitedAt          *time.Time      `json:"debited_at,omitempty"`
	LeaseExpiresAt     *time.Time      `json:"lease_expires_at,omitempty"`
}

// LeaseEnvelope wraps every DMS response that concerns a task: the initial
// lease and each heartbeat response. Token rotation, cancellation and lease
// extension all ride on it.
type LeaseEnvelope struct {
	AccessToken          *string    `json:"access_token,omitempty"`
	AccessTokenExpiresAt *time.Time `json:"access_token_expires_at,omitempty"`
	LeaseExpiresAt       *time.Time `json:"lease_expires_at,omitempty"`
	Cancel               bool       `json:"cancel,omitempty"`
	Status               *string    `json:"status,omitempty"`
	DomainID             *uuid.UUID `json:"domain_id,omitempty"`
	DomainServerURL      *string    `json:"domain_server_url,omitempty"`
	Task                 TaskSpec   `json:"task"`
}

// HeartbeatData is one coalesced progress report. Progress carries the latest
// opaque progress value; Events accumulates runner log events since the last
// dispatched heartbeat.
type HeartbeatData struct {
	Progress string   `json:"progress"`
	Events   []string `json:"events,omitempty"`
}

// CompleteRequest reports terminal success. OutputsIndex maps each uploaded
// artifact's logical path to the storage id returned by the domain service.
type CompleteRequest struct {
	OutputsIndex map[string]string `json:"outputs_index"`
	Result       json.RawMessage   `json:"result,omitempty"`
}

// FailRequest reports terminal failure.
type FailRequest struct {
	Reason  string            `json:"reason"`
	Details map[string]string `json:"details"`
}
