package commands

import "dnacore/pkg/utils"

// CaptureSnapshotCommand requests an immutable capture of one entity's
// current behavioral fingerprint.
type CaptureSnapshotCommand struct {
	EntityID string `json:"entity_id" validate:"required"`
	// Retention picks the sampling cadence class the snapshot belongs to
	Retention string `json:"retention" validate:"required,oneof=daily weekly monthly quarterly yearly"`
	// RiskScore and ValueScore are the business outcomes measured at
	// capture time, stored alongside the fingerprint for drift direction.
	// Nil means the caller measured nothing; drift over such snapshots
	// reports an unknown direction instead of a flat one.
	RiskScore  *float64 `json:"risk_score,omitempty" validate:"omitempty,gte=0,lte=1"`
	ValueScore *float64 `json:"value_score,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// Validate validates the command
func (cmd CaptureSnapshotCommand) Validate() error {
	return utils.ValidateStruct(cmd)
}
