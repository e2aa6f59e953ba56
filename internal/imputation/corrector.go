package imputation

import (
	"context"
	"log/slog"
	"math"

	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/domain"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/errors"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/logger"
)

// Corrector reconciles candidate triples against a title's observed fields.
type Corrector struct {
	logger *slog.Logger
}

// NewCorrector creates a corrector that reports repairs to log.
func NewCorrector(log *slog.Logger) *Corrector {
	if log == nil {
		log = logger.Discard()
	}
	return &Corrector{logger: log}
}

// Reconcile merges candidate into title's fields and returns the repaired
// triple. Observed fields always keep their value. Zero fields are derived
// from their neighbours through ratios, then ordering violations are fixed
// by recomputing the imputed side of each pair. The title is not modified.
func (c *Corrector) Reconcile(title *domain.Title, candidate domain.Times, ratios domain.RatioSet) (domain.Times, error) {
	v := domain.Times{
		Main:          authoritative(title.Main, candidate.Main),
		Extras:        authoritative(title.Extras, candidate.Extras),
		Completionist: authoritative(title.Completionist, candidate.Completionist),
	}

	if v == (domain.Times{}) {
		return domain.Times{}, errors.AllZerof("title %d has no non-zero TTB value to derive from", title.ID)
	}

	v = fillZeros(v, ratios)

	before := v
	v = c.repairOrder(title, v, ratios)
	if !v.Ordered() {
		// Pairwise fixes can push one field past the other neighbour.
		// Re-derive the imputed fields from the observed ones and repair once more.
		if anchors := observedOnly(title, v); anchors != (domain.Times{}) && anchors != v {
			v = c.repairOrder(title, fillZeros(anchors, ratios), ratios)
		}
	}

	if v != before {
		flags := title.ImputedFlags()
		c.logger.Warn("imputation miss",
			logger.TitleID(title.ID),
			slog.Any("before", before),
			slog.Any("after", v),
			slog.Any("imputed", flags[:]),
		)
	}
	if !v.Ordered() {
		c.logger.Warn("TTB values out of order after repair",
			logger.TitleID(title.ID),
			slog.Any("times", v),
		)
	}

	return v, nil
}

// fillZeros derives every zero field from a non-zero neighbour. Each step
// only reads a value that is already non-zero. v must not be all zero.
func fillZeros(v domain.Times, ratios domain.RatioSet) domain.Times {
	if v.Main == 0 {
		if v.Extras == 0 {
			v.Extras = derive(float64(v.Completionist) * ratios.ExtrasCompletionist)
		}
		v.Main = derive(float64(v.Extras) * ratios.MainExtras)
	}
	if v.Extras == 0 {
		v.Extras = derive(float64(v.Main) / ratios.MainExtras)
	}
	if v.Completionist == 0 {
		v.Completionist = derive(float64(v.Extras) / ratios.ExtrasCompletionist)
	}
	return v
}

func (c *Corrector) repairOrder(title *domain.Title, v domain.Times, ratios domain.RatioSet) domain.Times {
	if v.Main > v.Extras {
		switch {
		case title.Main.Imputed:
			v.Main = derive(float64(v.Extras) * ratios.MainExtras)
		case title.Extras.Imputed:
			v.Extras = derive(float64(v.Main) / ratios.MainExtras)
		default:
			c.observedViolation(title, "main", "extras", v)
		}
	}

	if v.Extras > v.Completionist {
		switch {
		case title.Completionist.Imputed:
			v.Completionist = derive(float64(v.Extras) / ratios.ExtrasCompletionist)
		case title.Extras.Imputed:
			v.Extras = derive(float64(v.Main) + ratios.ExtrasPlacement*float64(v.Completionist-v.Main))
		default:
			c.observedViolation(title, "extras", "completionist", v)
		}
	}

	return v
}

func (c *Corrector) observedViolation(title *domain.Title, lower, upper string, v domain.Times) {
	c.logger.LogAttrs(context.Background(), slog.LevelWarn, "ordering violated by observed values",
		logger.TitleID(title.ID),
		slog.String("lower", lower),
		slog.String("upper", upper),
		slog.Any("times", v),
	)
}

// observedOnly keeps the observed fields of v and zeroes the imputed ones.
func observedOnly(title *domain.Title, v domain.Times) domain.Times {
	if title.Main.Imputed {
		v.Main = 0
	}
	if title.Extras.Imputed {
		v.Extras = 0
	}
	if title.Completionist.Imputed {
		v.Completionist = 0
	}
	return v
}

// authoritative returns the observed value if there is one, otherwise the
// candidate. Negative candidates count as unknown.
func authoritative(field domain.TTB, candidate int) int {
	if field.IsObserved() {
		return field.Value
	}
	return max(candidate, 0)
}

// derive rounds a computed value half away from zero. Derived values are
// never below one minute.
func derive(x float64) int {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 1
	}
	return max(int(math.Round(x)), 1)
}
