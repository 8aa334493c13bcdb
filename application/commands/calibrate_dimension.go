package commands

import (
	"errors"

	"dnacore/domain/core/entities"
	"dnacore/pkg/utils"
)

// CalibrateDimensionCommand requests a full recalibration of one
// behavioral dimension against the current population.
type CalibrateDimensionCommand struct {
	// Dimension is the behavioral axis to calibrate, e.g. "engagement"
	Dimension string `json:"dimension" validate:"required,min=1,max=100"`
	// KMin and KMax override the configured candidate cluster count range
	// when positive
	KMin int `json:"k_min" validate:"gte=0"`
	KMax int `json:"k_max" validate:"gte=0"`
	// DryRun runs the full pipeline but skips publishing, used to preview
	// what a recalibration would produce
	DryRun bool `json:"dry_run"`
	// Force recalibrates even when the current published version is younger
	// than the minimum recalibration interval
	Force bool `json:"force"`
}

// Validate validates the command
func (cmd CalibrateDimensionCommand) Validate() error {
	if err := utils.ValidateStruct(cmd); err != nil {
		return err
	}
	if cmd.KMax > 0 && cmd.KMin > cmd.KMax {
		return errors.New("minimum cluster count exceeds maximum")
	}
	return nil
}

// CalibrationResult summarizes a completed calibration run
type CalibrationResult struct {
	Dimension    *entities.Dimension
	Population   int
	Excluded     int
	SegmentCount int
	Published    bool
	// Skipped reports that the run was elided because the current version
	// is still fresh; Dimension then carries that current version.
	Skipped bool
}
