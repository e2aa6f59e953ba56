package imputation

import (
	"context"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/domain"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/errors"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/genre"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/logger"
)

// GlobalScope names the initial pass over the whole catalog.
const GlobalScope = "global"

// Inferrer produces candidate triples for titles from their observed fields.
// It returns one triple per title, in input order.
type Inferrer interface {
	Infer(ctx context.Context, scope string, titles []*domain.Title) ([]domain.Times, error)
}

// Coordinator imputes a whole catalog: one global pass that must succeed,
// then one pass per genre group that may fail on its own.
type Coordinator struct {
	inferrer  Inferrer
	corrector *Corrector
	logger    *slog.Logger
}

// NewCoordinator creates a coordinator.
func NewCoordinator(inferrer Inferrer, corrector *Corrector, log *slog.Logger) *Coordinator {
	if log == nil {
		log = logger.Discard()
	}
	if corrector == nil {
		corrector = NewCorrector(log)
	}
	return &Coordinator{inferrer: inferrer, corrector: corrector, logger: log}
}

// ImputeCatalog fills the missing fields of titles in place. The caller must
// not read titles until it returns.
//
// Errors from the global pass abort the run. A genre group whose inference
// fails with a non-fatal code (timeout or inference failure) keeps the values
// of the global pass and only gets the average fill. Any other error,
// context cancellation, and CodeAllZero always abort.
func (c *Coordinator) ImputeCatalog(ctx context.Context, titles []*domain.Title) error {
	start := time.Now()

	global, err := EstimateRatios(titles, nil)
	if err != nil {
		return err
	}
	c.logger.Info("global ratios estimated",
		slog.Int("titles", len(titles)),
		slog.Float64("main_extras", global.MainExtras),
		slog.Float64("extras_completionist", global.ExtrasCompletionist),
		slog.Float64("extras_placement", global.ExtrasPlacement),
	)

	if err := c.imputeScope(ctx, GlobalScope, titles, global, true); err != nil {
		return err
	}

	groups := make(map[genre.GroupKey][]*domain.Title)
	for _, t := range titles {
		key := genre.KeyOf(t.PrimaryGenre(), t.IsGame())
		groups[key] = append(groups[key], t)
	}

	keys := make([]genre.GroupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b genre.GroupKey) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		default:
			return 0
		}
	})

	skipped := 0
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}

		group := groups[key]
		ratios, err := EstimateRatios(group, &global)
		if err != nil {
			return err
		}

		if err := c.imputeScope(ctx, key.String(), group, ratios, false); err != nil {
			if errors.Is(err, errSkipped) {
				skipped++
				continue
			}
			return err
		}
	}

	c.logger.Info("catalog imputed",
		slog.Int("titles", len(titles)),
		slog.Int("groups", len(keys)),
		slog.Int("groups_failed", skipped),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// errSkipped reports a genre group whose inference step failed and was
// skipped. It never leaves ImputeCatalog.
var errSkipped = errors.New("scope skipped")

// imputeScope runs inference and reconciliation over the partial titles of
// one scope, then fills its completely-missing titles with their average.
func (c *Coordinator) imputeScope(ctx context.Context, scope string, titles []*domain.Title, ratios domain.RatioSet, initial bool) error {
	log := c.logger.With(logger.Scope(scope))

	var partial, missing []*domain.Title
	for _, t := range titles {
		if t.IsCompletelyMissing() {
			missing = append(missing, t)
		} else {
			partial = append(partial, t)
		}
	}

	if len(partial) == 0 {
		if initial {
			return errors.InsufficientDataf("scope %s has no title with an observed TTB value", scope)
		}
		log.Info("no partial titles, skipping group", slog.Int("missing", len(missing)))
		return nil
	}

	candidates, err := c.inferrer.Infer(ctx, scope, partial)
	if err == nil && len(candidates) != len(partial) {
		err = errors.InferenceFailedf("inference returned %d triples for %d titles", len(candidates), len(partial))
	}

	var inferErr error
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return ctx.Err()
	case initial, errors.CodeOf(err).Fatal():
		log.Error("inference failed", logger.Err(err))
		return err
	default:
		log.Warn("inference failed, keeping global values", logger.Err(err))
		inferErr = errSkipped
	}

	if inferErr == nil {
		for i, t := range partial {
			v, err := c.corrector.Reconcile(t, candidates[i], ratios)
			if err != nil {
				return err
			}
			t.SetTimes(v)
		}
	}

	if len(missing) > 0 {
		fill := averageOf(partial)
		for _, t := range missing {
			t.SetTimes(fill)
		}
		log.Debug("completely-missing titles filled",
			slog.Int("count", len(missing)),
			slog.Any("times", fill),
		)
	}

	log.Info("scope imputed",
		slog.Int("partial", len(partial)),
		slog.Int("missing", len(missing)),
	)
	return inferErr
}

// averageOf returns the rounded per-field mean of the titles' current values.
func averageOf(titles []*domain.Title) domain.Times {
	var m, e, cp mean
	for _, t := range titles {
		v := t.Times()
		m.add(float64(v.Main))
		e.add(float64(v.Extras))
		cp.add(float64(v.Completionist))
	}
	return domain.Times{
		Main:          int(math.Round(m.value())),
		Extras:        int(math.Round(e.value())),
		Completionist: int(math.Round(cp.value())),
	}
}
