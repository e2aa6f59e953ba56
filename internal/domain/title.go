package domain

import "strings"

// TitleType distinguishes base games from add-on content.
// Only used to split genre groups.
type TitleType string

const (
	TitleTypeGame  TitleType = "game"
	TitleTypeDLC   TitleType = "dlc"
	TitleTypeMod   TitleType = "mod"
	TitleTypeOther TitleType = "other"
)

// ParseTitleType maps a scraped type label to a TitleType.
// Unknown labels map to TitleTypeOther.
func ParseTitleType(s string) TitleType {
	switch TitleType(strings.ToLower(strings.TrimSpace(s))) {
	case TitleTypeGame:
		return TitleTypeGame
	case TitleTypeDLC:
		return TitleTypeDLC
	case TitleTypeMod:
		return TitleTypeMod
	default:
		return TitleTypeOther
	}
}

// TTB is a single time-to-beat field in minutes, tagged with whether the
// value was observed from a source or inferred.
type TTB struct {
	Value   int  `json:"value"`
	Imputed bool `json:"imputed"`
}

// Observed returns a ground-truth field.
func Observed(minutes int) TTB {
	return TTB{Value: minutes}
}

// Imputed returns an inferred field.
func Imputed(minutes int) TTB {
	return TTB{Value: minutes, Imputed: true}
}

// Missing returns a field that has no value yet.
func Missing() TTB {
	return Imputed(0)
}

// IsObserved reports whether the value is ground truth.
func (f TTB) IsObserved() bool {
	return !f.Imputed
}

// Times is a (Main, Extras, Completionist) triple in minutes.
type Times struct {
	Main          int `json:"main"`
	Extras        int `json:"extras"`
	Completionist int `json:"completionist"`
}

// Ordered reports whether Main <= Extras <= Completionist.
func (t Times) Ordered() bool {
	return t.Main <= t.Extras && t.Extras <= t.Completionist
}

// HasZero reports whether any of the three values is zero.
func (t Times) HasZero() bool {
	return t.Main == 0 || t.Extras == 0 || t.Completionist == 0
}

// Title is a catalog entry with its three TTB fields.
type Title struct {
	ID           int64     `json:"id" validate:"gt=0"`
	Name         string    `json:"name" validate:"required"`
	PartitionKey string    `json:"partition_key" validate:"required"`
	Genres       []string  `json:"genres,omitempty"`
	Type         TitleType `json:"type" validate:"oneof=game dlc mod other"`

	Main          TTB `json:"main"`
	Extras        TTB `json:"extras"`
	Completionist TTB `json:"completionist"`
}

// IsGame reports whether the title is a base game.
func (t *Title) IsGame() bool {
	return t.Type == TitleTypeGame
}

// PrimaryGenre returns the first listed genre, or "" when none is known.
func (t *Title) PrimaryGenre() string {
	if len(t.Genres) == 0 {
		return ""
	}
	return t.Genres[0]
}

// Times returns the current values of the three fields.
func (t *Title) Times() Times {
	return Times{
		Main:          t.Main.Value,
		Extras:        t.Extras.Value,
		Completionist: t.Completionist.Value,
	}
}

// SetTimes overwrites the three values, keeping their imputed flags.
func (t *Title) SetTimes(v Times) {
	t.Main.Value = v.Main
	t.Extras.Value = v.Extras
	t.Completionist.Value = v.Completionist
}

// IsCompletelyMissing reports whether none of the three fields was observed.
func (t *Title) IsCompletelyMissing() bool {
	return t.Main.Imputed && t.Extras.Imputed && t.Completionist.Imputed
}

// IsPartial reports whether at least one field was observed.
// Fully observed titles count as partial.
func (t *Title) IsPartial() bool {
	return !t.IsCompletelyMissing()
}

// ImputedFlags returns the imputed flags in (Main, Extras, Completionist) order.
func (t *Title) ImputedFlags() [3]bool {
	return [3]bool{t.Main.Imputed, t.Extras.Imputed, t.Completionist.Imputed}
}
