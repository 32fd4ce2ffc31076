// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldTaskID     = "task_id"
	FieldJobID      = "job_id"
	FieldDomainID   = "domain_id"
	FieldCapability = "capability"
	FieldRequestID  = "request_id"
	FieldNodeID     = "node_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldReason    = "reason"
	FieldOutcome   = "outcome"

	// Storage fields
	FieldCID         = "cid"
	FieldLogicalPath = "logical_path"
	FieldDataID      = "data_id"

	// Path / URL fields
	FieldPath    = "path"
	FieldBaseURL = "base_url"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
)
