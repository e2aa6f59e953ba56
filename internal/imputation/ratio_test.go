package imputation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/domain"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/errors"
)

func observed(id int64, main, extras, completionist int) *domain.Title {
	return &domain.Title{
		ID:            id,
		Name:          "t",
		PartitionKey:  "p",
		Type:          domain.TitleTypeGame,
		Main:          domain.Observed(main),
		Extras:        domain.Observed(extras),
		Completionist: domain.Observed(completionist),
	}
}

func TestEstimateRatios_Means(t *testing.T) {
	titles := []*domain.Title{
		observed(1, 60, 120, 180),
		observed(2, 30, 60, 60),
	}

	ratios, err := EstimateRatios(titles, nil)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, ratios.MainExtras, 1e-9)
	assert.InDelta(t, (120.0/180+1.0)/2, ratios.ExtrasCompletionist, 1e-9)
	assert.InDelta(t, (60.0/120+30.0/30)/2, ratios.ExtrasPlacement, 1e-9)
}

func TestEstimateRatios_IgnoresImputedFields(t *testing.T) {
	noisy := observed(2, 1000, 10, 20)
	noisy.Main = domain.Imputed(1000)

	ratios, err := EstimateRatios([]*domain.Title{observed(1, 50, 100, 200), noisy}, nil)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, ratios.MainExtras, 1e-9)
	assert.InDelta(t, (0.5+0.5)/2, ratios.ExtrasCompletionist, 1e-9)
	assert.InDelta(t, 50.0/150, ratios.ExtrasPlacement, 1e-9)
}

func TestEstimateRatios_PlacementNeedsMainBelowCompletionist(t *testing.T) {
	titles := []*domain.Title{observed(1, 60, 60, 60), observed(2, 10, 20, 30)}

	ratios, err := EstimateRatios(titles, nil)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, ratios.ExtrasPlacement, 1e-9)
}

func TestEstimateRatios_Fallback(t *testing.T) {
	onlyMain := &domain.Title{ID: 1, Main: domain.Observed(10), Extras: domain.Missing(), Completionist: domain.Missing()}
	fallback := &domain.RatioSet{MainExtras: 0.7, ExtrasCompletionist: 0.6, ExtrasPlacement: 0.3}

	ratios, err := EstimateRatios([]*domain.Title{onlyMain}, fallback)
	require.NoError(t, err)

	assert.Equal(t, *fallback, ratios)
}

func TestEstimateRatios_FallbackOnlyForMissingRatio(t *testing.T) {
	// Main and Extras observed, Completionist missing.
	title := &domain.Title{ID: 1, Main: domain.Observed(30), Extras: domain.Observed(60), Completionist: domain.Missing()}
	fallback := &domain.RatioSet{MainExtras: 0.9, ExtrasCompletionist: 0.6, ExtrasPlacement: 0.3}

	ratios, err := EstimateRatios([]*domain.Title{title}, fallback)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, ratios.MainExtras, 1e-9)
	assert.Equal(t, 0.6, ratios.ExtrasCompletionist)
	assert.Equal(t, 0.3, ratios.ExtrasPlacement)
}

func TestEstimateRatios_InsufficientData(t *testing.T) {
	title := &domain.Title{ID: 1, Main: domain.Observed(30), Extras: domain.Observed(60), Completionist: domain.Missing()}

	_, err := EstimateRatios([]*domain.Title{title}, nil)

	require.ErrorIs(t, err, errors.ErrInsufficientData)
	var domainErr *errors.Error
	require.ErrorAs(t, err, &domainErr)
	details, ok := domainErr.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []string{"extras_completionist", "extras_placement"}, details["missing"])
}

func TestEstimateRatios_Empty(t *testing.T) {
	_, err := EstimateRatios(nil, nil)
	assert.ErrorIs(t, err, errors.ErrInsufficientData)
}
