package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for one tick window.
type WindowStats struct {
	WindowStartTick int64 `csv:"-"`
	WindowEndTick   int64 `csv:"window_end"`

	// Population counts at window end
	FishCount      int `csv:"fish"`
	KrillCount     int `csv:"krill"`
	PaleKrillCount int `csv:"pale_krill"`
	MomKrillCount  int `csv:"mom_krill"`
	TunaCount      int `csv:"tuna"`
	SquidCount     int `csv:"squid"`
	FoodCount      int `csv:"food"`
	WasteCount     int `csv:"waste"`
	ActiveClaims   int `csv:"claims"`

	// Events during the window
	FishDeaths       int `csv:"fish_deaths"`
	KrillDeaths      int `csv:"krill_deaths"`
	TunaDeaths       int `csv:"tuna_deaths"`
	SquidDeaths      int `csv:"squid_deaths"`
	KrillBirths      int `csv:"krill_births"`
	Maturations      int `csv:"maturations"`
	StageChanges     int `csv:"stage_changes"`
	ParticlesRemoved int `csv:"particles_removed"`

	// Waste production by origin
	WasteAmbient int `csv:"waste_ambient"`
	WasteRegular int `csv:"waste_regular"`
	WasteTuna    int `csv:"waste_tuna"`
	WasteSquid   int `csv:"waste_squid"`

	// Energy distribution (sampled at window end)
	FishEnergyMean float64 `csv:"fish_energy_mean"`
	FishEnergyP10  float64 `csv:"fish_energy_p10"`
	FishEnergyP50  float64 `csv:"fish_energy_p50"`
	FishEnergyP90  float64 `csv:"fish_energy_p90"`

	KrillEnergyMean float64 `csv:"krill_energy_mean"`
	KrillEnergyP10  float64 `csv:"krill_energy_p10"`
	KrillEnergyP50  float64 `csv:"krill_energy_p50"`
	KrillEnergyP90  float64 `csv:"krill_energy_p90"`
}

// ComputeEnergyStats calculates mean and percentiles from energy samples.
func ComputeEnergyStats(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean = stat.Mean(sorted, nil)
	p10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	return mean, p10, p50, p90
}

// LogValue implements slog.LogValuer so a window can be logged compactly.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_end", s.WindowEndTick),
		slog.Int("fish", s.FishCount),
		slog.Int("krill", s.KrillCount+s.PaleKrillCount+s.MomKrillCount),
		slog.Int("tuna", s.TunaCount),
		slog.Int("squid", s.SquidCount),
		slog.Int("food", s.FoodCount),
		slog.Int("waste", s.WasteCount),
		slog.Int("claims", s.ActiveClaims),
		slog.Int("fish_deaths", s.FishDeaths),
		slog.Int("krill_deaths", s.KrillDeaths),
		slog.Int("krill_births", s.KrillBirths),
		slog.Float64("fish_energy_mean", s.FishEnergyMean),
		slog.Float64("krill_energy_mean", s.KrillEnergyMean),
	)
}
