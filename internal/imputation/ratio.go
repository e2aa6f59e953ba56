// Package imputation fills missing TTB fields. Ratios between fields are
// estimated from observed data, candidates come from an external Inferrer,
// and every candidate is reconciled so observed values win, no field is zero,
// and Main <= Extras <= Completionist.
package imputation

import (
	"math"

	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/domain"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/errors"
)

// Tolerance is the magnitude below which an estimated ratio counts as missing.
const Tolerance = 1e-4

// EstimateRatios computes the field ratios over titles using only observed
// values. A ratio that cannot be estimated is taken from fallback; with a nil
// fallback it fails with CodeInsufficientData naming the missing ratios.
func EstimateRatios(titles []*domain.Title, fallback *domain.RatioSet) (domain.RatioSet, error) {
	var mainExtras, extrasCompletionist, placement mean

	for _, t := range titles {
		if t.Main.IsObserved() && t.Extras.IsObserved() && t.Extras.Value != 0 {
			mainExtras.add(float64(t.Main.Value) / float64(t.Extras.Value))
		}
		if t.Extras.IsObserved() && t.Completionist.IsObserved() && t.Completionist.Value != 0 {
			extrasCompletionist.add(float64(t.Extras.Value) / float64(t.Completionist.Value))
		}
		if t.Main.IsObserved() && t.Extras.IsObserved() && t.Completionist.IsObserved() &&
			t.Main.Value < t.Completionist.Value {
			placement.add(float64(t.Extras.Value-t.Main.Value) / float64(t.Completionist.Value-t.Main.Value))
		}
	}

	ratios := domain.RatioSet{
		MainExtras:          mainExtras.value(),
		ExtrasCompletionist: extrasCompletionist.value(),
		ExtrasPlacement:     placement.value(),
	}

	var missing []string
	resolve := func(name string, v *float64, fb float64) {
		if math.Abs(*v) >= Tolerance {
			return
		}
		if fallback != nil {
			*v = fb
			return
		}
		missing = append(missing, name)
	}

	var fb domain.RatioSet
	if fallback != nil {
		fb = *fallback
	}
	resolve("main_extras", &ratios.MainExtras, fb.MainExtras)
	resolve("extras_completionist", &ratios.ExtrasCompletionist, fb.ExtrasCompletionist)
	resolve("extras_placement", &ratios.ExtrasPlacement, fb.ExtrasPlacement)

	if len(missing) > 0 {
		return domain.RatioSet{}, errors.InsufficientDataf(
			"cannot estimate %d ratio(s) from %d titles", len(missing), len(titles)).
			WithDetails(map[string]any{"missing": missing})
	}
	return ratios, nil
}

// mean is a running arithmetic mean. An empty mean is 0.
type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v float64) {
	m.sum += v
	m.n++
}

func (m *mean) value() float64 {
	if m.n == 0 {
		return 0
	}
	return m.sum / float64(m.n)
}
