package entities

// ScalingStrategy identifies how one feature is scaled
type ScalingStrategy string

const (
	// ScalingStandard centers on the mean and divides by the standard deviation
	ScalingStandard ScalingStrategy = "standard"
	// ScalingRobust centers on the median and divides by the IQR, used for
	// features with heavy outliers or strong skew
	ScalingRobust ScalingStrategy = "robust"
)

// FeatureScaling holds the fitted scaling parameters for one feature.
// Center and Scale are mean/stddev for the standard strategy and
// median/IQR for the robust one.
type FeatureScaling struct {
	Strategy ScalingStrategy `json:"strategy"`
	Center   float64         `json:"center"`
	Scale    float64         `json:"scale"`
	Median   float64         `json:"median"` // population median, used for imputation
}

// ScalerParams is the full set of fitted scaling parameters for a dimension.
// It is persisted with the dimension version so that later categorization
// applies the exact transform the calibration was fitted with.
type ScalerParams struct {
	Features []FeatureScaling `json:"features"`
}

// FeatureCount returns the number of features the scaler was fitted on
func (p ScalerParams) FeatureCount() int {
	return len(p.Features)
}
