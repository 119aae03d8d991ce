// Package routing picks action cards for a (driver, band) pair.
package routing

import (
	"github.com/ai-anxiety-coach/server/internal/coach/model"
	errx "github.com/ai-anxiety-coach/server/internal/core/error"
	"github.com/ai-anxiety-coach/server/internal/interventions"
	logx "github.com/ai-anxiety-coach/server/pkg/logger"
)

// MaxActions is how many cards a route returns at most.
const MaxActions = 2

// Route returns up to MaxActions cards. When nothing matches exactly it retries
// the same driver in the mid band, then falls back to the whole catalog.
func Route(driver model.Driver, band model.Band, lib *interventions.Library) ([]model.ActionCard, error) {
	if !driver.Valid() {
		return nil, errx.Validation("invalid driver")
	}
	if !band.Valid() {
		return nil, errx.Validation("invalid band")
	}

	candidates := lib.Filter(driver, band)
	tier := "exact"

	if len(candidates) == 0 && band != model.BandMid {
		candidates = lib.Filter(driver, model.BandMid)
		tier = "mid_band"
	}

	if len(candidates) == 0 {
		candidates = lib.All()
		tier = "catalog"
	}

	logx.Debug().
		Str("component", "router").
		Str("driver", string(driver)).
		Str("band", string(band)).
		Str("tier", tier).
		Int("candidates", len(candidates)).
		Msg("actions routed")

	return PickTwo(candidates), nil
}

// PickTwo keeps the first MaxActions candidates.
func PickTwo(candidates []model.ActionCard) []model.ActionCard {
	if len(candidates) > MaxActions {
		return candidates[:MaxActions]
	}
	return candidates
}
