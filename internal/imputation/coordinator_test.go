package imputation

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/domain"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/errors"
)

type fakeInferrer struct {
	mu     sync.Mutex
	scopes []string
	infer  func(scope string, titles []*domain.Title) ([]domain.Times, error)
}

func (f *fakeInferrer) Infer(ctx context.Context, scope string, titles []*domain.Title) ([]domain.Times, error) {
	f.mu.Lock()
	f.scopes = append(f.scopes, scope)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.infer == nil {
		out := make([]domain.Times, len(titles))
		for i, t := range titles {
			out[i] = t.Times()
		}
		return out, nil
	}
	return f.infer(scope, titles)
}

func withGenre(t *domain.Title, genres ...string) *domain.Title {
	t.Genres = genres
	return t
}

func partialMain(id int64, main int) *domain.Title {
	return &domain.Title{
		ID:            id,
		Name:          "partial",
		PartitionKey:  "p",
		Type:          domain.TitleTypeGame,
		Main:          domain.Observed(main),
		Extras:        domain.Missing(),
		Completionist: domain.Missing(),
	}
}

func missingTitle(id int64) *domain.Title {
	return &domain.Title{
		ID:            id,
		Name:          "missing",
		PartitionKey:  "p",
		Type:          domain.TitleTypeGame,
		Main:          domain.Missing(),
		Extras:        domain.Missing(),
		Completionist: domain.Missing(),
	}
}

// byID answers every title with a fixed triple.
func byID(answers map[int64]domain.Times) func(string, []*domain.Title) ([]domain.Times, error) {
	return func(_ string, titles []*domain.Title) ([]domain.Times, error) {
		out := make([]domain.Times, len(titles))
		for i, t := range titles {
			if v, ok := answers[t.ID]; ok {
				out[i] = v
			} else {
				out[i] = t.Times()
			}
		}
		return out, nil
	}
}

func TestImputeCatalog_FillsCompletelyMissingWithGroupMean(t *testing.T) {
	reference := withGenre(observed(100, 60, 120, 180), "Action")
	a := withGenre(partialMain(1, 10), "Puzzle")
	b := withGenre(partialMain(2, 20), "Puzzle")
	m := withGenre(missingTitle(3), "Puzzle")

	inferrer := &fakeInferrer{infer: byID(map[int64]domain.Times{
		1: {Main: 10, Extras: 20, Completionist: 30},
		2: {Main: 20, Extras: 30, Completionist: 40},
	})}
	coord := NewCoordinator(inferrer, nil, nil)

	err := coord.ImputeCatalog(context.Background(), []*domain.Title{reference, a, b, m})
	require.NoError(t, err)

	assert.Equal(t, domain.Times{Main: 10, Extras: 20, Completionist: 30}, a.Times())
	assert.Equal(t, domain.Times{Main: 20, Extras: 30, Completionist: 40}, b.Times())
	assert.Equal(t, domain.Times{Main: 15, Extras: 25, Completionist: 35}, m.Times())
	assert.Equal(t, [3]bool{true, true, true}, m.ImputedFlags())
	assert.Equal(t, [3]bool{false, true, true}, a.ImputedFlags())
}

func TestImputeCatalog_GlobalRatioFailureIsFatal(t *testing.T) {
	inferrer := &fakeInferrer{}
	coord := NewCoordinator(inferrer, nil, nil)

	err := coord.ImputeCatalog(context.Background(), []*domain.Title{partialMain(1, 10), missingTitle(2)})

	assert.ErrorIs(t, err, errors.ErrInsufficientData)
	assert.Empty(t, inferrer.scopes)
}

func TestImputeCatalog_GlobalInferenceFailureIsFatal(t *testing.T) {
	inferrer := &fakeInferrer{infer: func(string, []*domain.Title) ([]domain.Times, error) {
		return nil, errors.InferenceFailedf("model unavailable")
	}}
	coord := NewCoordinator(inferrer, nil, nil)

	err := coord.ImputeCatalog(context.Background(), []*domain.Title{observed(1, 10, 20, 30), partialMain(2, 5)})

	assert.ErrorIs(t, err, errors.ErrInferenceFailed)
	assert.Equal(t, []string{GlobalScope}, inferrer.scopes)
}

func TestImputeCatalog_GlobalCountMismatchIsFatal(t *testing.T) {
	inferrer := &fakeInferrer{infer: func(string, []*domain.Title) ([]domain.Times, error) {
		return []domain.Times{{Main: 1, Extras: 2, Completionist: 3}}, nil
	}}
	coord := NewCoordinator(inferrer, nil, nil)

	err := coord.ImputeCatalog(context.Background(), []*domain.Title{observed(1, 10, 20, 30), partialMain(2, 5)})

	assert.ErrorIs(t, err, errors.ErrInferenceFailed)
}

func TestImputeCatalog_GenreFailureKeepsGlobalValues(t *testing.T) {
	reference := withGenre(observed(100, 60, 120, 180), "Action")
	a := withGenre(partialMain(1, 10), "Puzzle")
	b := withGenre(partialMain(2, 30), "Puzzle")
	m := withGenre(missingTitle(3), "Puzzle")

	global := byID(map[int64]domain.Times{
		1: {Main: 10, Extras: 20, Completionist: 30},
		2: {Main: 30, Extras: 40, Completionist: 50},
	})
	inferrer := &fakeInferrer{infer: func(scope string, titles []*domain.Title) ([]domain.Times, error) {
		if scope == GlobalScope {
			return global(scope, titles)
		}
		if scope == "puzzle/game" {
			return nil, errors.ImputationTimeoutf("job timed out")
		}
		return byID(nil)(scope, titles)
	}}
	coord := NewCoordinator(inferrer, nil, nil)

	err := coord.ImputeCatalog(context.Background(), []*domain.Title{reference, a, b, m})
	require.NoError(t, err)

	assert.Equal(t, domain.Times{Main: 10, Extras: 20, Completionist: 30}, a.Times())
	assert.Equal(t, domain.Times{Main: 30, Extras: 40, Completionist: 50}, b.Times())
	// Average fill still runs for the failed group.
	assert.Equal(t, domain.Times{Main: 20, Extras: 30, Completionist: 40}, m.Times())
}

func TestImputeCatalog_GenreFatalErrorAborts(t *testing.T) {
	reference := withGenre(observed(100, 60, 120, 180), "Action")
	a := withGenre(partialMain(1, 10), "Puzzle")

	inferrer := &fakeInferrer{infer: func(scope string, titles []*domain.Title) ([]domain.Times, error) {
		if scope == "puzzle/game" {
			return nil, errors.InsufficientData("model rejected input")
		}
		return byID(nil)(scope, titles)
	}}
	coord := NewCoordinator(inferrer, nil, nil)

	err := coord.ImputeCatalog(context.Background(), []*domain.Title{reference, a})

	assert.ErrorIs(t, err, errors.ErrInsufficientData)
}

func TestImputeCatalog_GroupsInSortedOrder(t *testing.T) {
	dlc := withGenre(observed(1, 10, 20, 30), "Action")
	dlc.Type = domain.TitleTypeDLC

	titles := []*domain.Title{
		withGenre(observed(2, 10, 20, 30), "Strategy"),
		dlc,
		withGenre(observed(3, 10, 20, 30), "Action"),
		observed(4, 10, 20, 30),
		withGenre(observed(5, 10, 20, 30), "RPG"),
	}
	inferrer := &fakeInferrer{}
	coord := NewCoordinator(inferrer, nil, nil)

	require.NoError(t, coord.ImputeCatalog(context.Background(), titles))

	assert.Equal(t, []string{
		GlobalScope,
		"action/game",
		"action/addon",
		"role-playing/game",
		"strategy/game",
		"unknown/game",
	}, inferrer.scopes)
}

func TestImputeCatalog_SkipsGroupWithoutPartialTitles(t *testing.T) {
	lonely := withGenre(missingTitle(2), "Racing")
	inferrer := &fakeInferrer{}
	coord := NewCoordinator(inferrer, nil, nil)

	err := coord.ImputeCatalog(context.Background(), []*domain.Title{
		withGenre(observed(1, 10, 20, 30), "Action"),
		lonely,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{GlobalScope, "action/game"}, inferrer.scopes)
	// Keeps the global fill.
	assert.Equal(t, domain.Times{Main: 10, Extras: 20, Completionist: 30}, lonely.Times())
}

func TestImputeCatalog_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	inferrer := &fakeInferrer{infer: func(scope string, titles []*domain.Title) ([]domain.Times, error) {
		if scope != GlobalScope {
			cancel()
			return nil, context.Canceled
		}
		return byID(nil)(scope, titles)
	}}
	coord := NewCoordinator(inferrer, nil, nil)

	err := coord.ImputeCatalog(ctx, []*domain.Title{
		withGenre(observed(1, 10, 20, 30), "Action"),
		withGenre(observed(2, 10, 20, 30), "Puzzle"),
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{GlobalScope, "action/game"}, inferrer.scopes)
}

func TestImputeCatalog_AllZeroPropagates(t *testing.T) {
	// An observed zero breaks the catalog contract and leaves nothing to derive from.
	zero := &domain.Title{ID: 2, Main: domain.Observed(0), Extras: domain.Missing(), Completionist: domain.Missing()}
	inferrer := &fakeInferrer{infer: func(_ string, titles []*domain.Title) ([]domain.Times, error) {
		return make([]domain.Times, len(titles)), nil
	}}
	coord := NewCoordinator(inferrer, nil, nil)

	err := coord.ImputeCatalog(context.Background(), []*domain.Title{observed(1, 10, 20, 30), zero})

	assert.ErrorIs(t, err, errors.ErrAllZero)
}

// After a run every title with an observed field is ordered and has no zero,
// and observed values are untouched.
func TestImputeCatalog_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	genres := []string{"Action", "RPG", "Puzzle", "Strategy", ""}

	var titles []*domain.Title
	original := map[int64][3]domain.TTB{}
	for i := range 400 {
		main := 1 + rng.IntN(300)
		extras := main + rng.IntN(300)
		completionist := extras + rng.IntN(300)

		tt := observed(int64(i+1), main, extras, completionist)
		tt.Genres = []string{genres[rng.IntN(len(genres))]}
		if rng.IntN(3) == 0 {
			tt.Type = domain.TitleTypeDLC
		}
		for _, f := range []*domain.TTB{&tt.Main, &tt.Extras, &tt.Completionist} {
			if rng.IntN(2) == 0 {
				*f = domain.Missing()
			}
		}
		original[tt.ID] = [3]domain.TTB{tt.Main, tt.Extras, tt.Completionist}
		titles = append(titles, tt)
	}
	titles = append(titles, observed(1000, 60, 90, 120), observed(1001, 30, 60, 90))

	noisy := func(_ string, in []*domain.Title) ([]domain.Times, error) {
		out := make([]domain.Times, len(in))
		for i := range in {
			out[i] = domain.Times{
				Main:          rng.IntN(600) - 50,
				Extras:        rng.IntN(600) - 50,
				Completionist: rng.IntN(600) - 50,
			}
		}
		return out, nil
	}
	coord := NewCoordinator(&fakeInferrer{infer: noisy}, nil, nil)

	require.NoError(t, coord.ImputeCatalog(context.Background(), titles))

	for _, tt := range titles {
		v := tt.Times()
		assert.False(t, v.HasZero(), "title %d: %+v", tt.ID, v)
		assert.True(t, v.Ordered(), "title %d: %+v", tt.ID, v)

		orig, ok := original[tt.ID]
		if !ok {
			continue
		}
		for j, f := range []domain.TTB{tt.Main, tt.Extras, tt.Completionist} {
			if orig[j].IsObserved() {
				assert.Equal(t, orig[j].Value, f.Value, "title %d field %d", tt.ID, j)
			}
		}
	}
}
