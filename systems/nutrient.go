package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pelagos/reef/components"
	"github.com/pelagos/reef/config"
)

// NutrientSystem runs the bottom half of the nutrient loop: waste
// particles sink and age, food particles sink, and anything reaching the
// sea floor uneaten is recycled as ambient waste.
type NutrientSystem struct {
	wasteCfg config.WasteConfig
	foodCfg  config.FoodConfig

	wasteFilter ecs.Filter2[components.Position, components.Waste]
	foodFilter  ecs.Filter2[components.Position, components.Food]
}

// NewNutrientSystem creates the nutrient system.
func NewNutrientSystem(w *ecs.World, wasteCfg config.WasteConfig, foodCfg config.FoodConfig) *NutrientSystem {
	return &NutrientSystem{
		wasteCfg:    wasteCfg,
		foodCfg:     foodCfg,
		wasteFilter: *ecs.NewFilter2[components.Position, components.Waste](w),
		foodFilter:  *ecs.NewFilter2[components.Position, components.Food](w),
	}
}

// Update sinks and ages all particles for one tick.
func (s *NutrientSystem) Update(ctx *Context) {
	floor := ctx.Bounds.Height

	query := s.wasteFilter.Query()
	for query.Next() {
		pos, waste := query.Get()

		pos.Y += s.wasteCfg.SinkSpeed
		if pos.Y > floor {
			pos.Y = floor
		}
		waste.Age++

		// Aging is one-way. A deep particle that drifts upward stays
		// deep; a fresh one becomes aged purely by time.
		switch waste.State {
		case components.WasteFresh:
			if waste.Age >= s.wasteCfg.AgedAfterTicks {
				waste.State = components.WasteAged
			}
		case components.WasteAged:
			if ctx.Bounds.DepthFrac(pos.Y) >= s.wasteCfg.DeepDepthFrac {
				waste.State = components.WasteDeep
			}
		}

		if waste.Age >= s.wasteCfg.MaxAgeTicks {
			ctx.Queue.Consume(query.Entity())
		}
	}

	foodQuery := s.foodFilter.Query()
	for foodQuery.Next() {
		pos, _ := foodQuery.Get()

		pos.Y += s.foodCfg.SinkSpeed
		if pos.Y >= floor {
			// Uneaten food that hits the floor re-enters the loop as
			// ambient waste at the same spot.
			if ctx.Queue.Consume(foodQuery.Entity()) {
				ctx.Queue.SpawnWaste(pos.X, floor, uint8(components.OriginAmbient))
			}
		}
	}
}

// FeedValueFor returns the configured feed value for a waste origin.
func FeedValueFor(cfg config.WasteConfig, origin components.WasteOrigin) float32 {
	switch origin {
	case components.OriginAmbient:
		return cfg.FeedAmbient
	case components.OriginRegular:
		return cfg.FeedRegular
	case components.OriginTuna:
		return cfg.FeedTuna
	}
	return cfg.FeedSquid
}
