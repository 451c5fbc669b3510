package components

// WasteOrigin identifies what produced a waste particle. Feed value is
// strictly increasing with origin rank: ambient < regular < tuna < squid.
type WasteOrigin uint8

const (
	OriginAmbient WasteOrigin = iota // sunk fish food
	OriginRegular                    // schooling fish
	OriginTuna
	OriginSquid
)

// String returns the display name for a WasteOrigin.
func (o WasteOrigin) String() string {
	switch o {
	case OriginAmbient:
		return "ambient"
	case OriginRegular:
		return "regular"
	case OriginTuna:
		return "tuna"
	}
	return "squid"
}

// WasteState is the aging state of a waste particle. Transitions are
// monotonic: fresh -> aged -> deep, never backward.
type WasteState uint8

const (
	WasteFresh WasteState = iota
	WasteAged
	WasteDeep
)

// String returns the display name for a WasteState.
func (s WasteState) String() string {
	switch s {
	case WasteFresh:
		return "fresh"
	case WasteAged:
		return "aged"
	}
	return "deep"
}

// Waste is a slowly sinking particle produced by digestion. Once aged it
// becomes edible, closing the nutrient loop.
type Waste struct {
	Origin    WasteOrigin
	State     WasteState
	Age       int32   // ticks since excretion
	FeedValue float32 // energy granted to the eater
}

// Edible reports whether the particle may be eaten. Fresh waste never is.
func (w *Waste) Edible() bool {
	return w.State != WasteFresh
}

// Food is a fish-food particle sinking at constant speed. If it reaches
// maximum depth uneaten it converts into an ambient waste particle.
type Food struct {
	FeedValue float32
}
