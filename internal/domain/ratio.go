package domain

// RatioSet holds the scalars used to derive one TTB field from another.
// A RatioSet is computed per scope (global or genre group) and never persisted.
type RatioSet struct {
	// MainExtras is the mean of Main/Extras.
	MainExtras float64 `json:"main_extras"`
	// ExtrasCompletionist is the mean of Extras/Completionist.
	ExtrasCompletionist float64 `json:"extras_completionist"`
	// ExtrasPlacement is the mean of (Extras-Main)/(Completionist-Main),
	// i.e. where Extras sits between Main and Completionist.
	ExtrasPlacement float64 `json:"extras_placement"`
}
