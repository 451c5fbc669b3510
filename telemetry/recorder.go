package telemetry

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Recorder persists run metadata and window stats to SQLite, so runs can
// be compared across config changes without parsing CSV files.
type Recorder struct {
	conn  *sqlx.DB
	runID uuid.UUID
}

// OpenRecorder opens or creates the run database at path and registers a
// new run. Returns nil if path is empty (recording disabled).
func OpenRecorder(path string, seed int64, configYAML string) (*Recorder, error) {
	if path == "" {
		return nil, nil
	}

	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	r := &Recorder{conn: conn, runID: uuid.New()}
	if err := r.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	_, err = conn.Exec(
		`INSERT INTO runs (id, started_at, seed, config_yaml) VALUES (?, ?, ?, ?)`,
		r.runID.String(), time.Now().UTC().Format(time.RFC3339), seed, configYAML,
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("register run: %w", err)
	}

	return r, nil
}

// RunID returns the unique identifier of this run.
func (r *Recorder) RunID() string {
	if r == nil {
		return ""
	}
	return r.runID.String()
}

// Close finalizes the run row and closes the connection.
func (r *Recorder) Close(finalTick int64) error {
	if r == nil {
		return nil
	}
	_, err := r.conn.Exec(
		`UPDATE runs SET finished_at = ?, final_tick = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), finalTick, r.runID.String(),
	)
	if cerr := r.conn.Close(); err == nil {
		err = cerr
	}
	return err
}

func (r *Recorder) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		seed INTEGER NOT NULL,
		final_tick INTEGER,
		config_yaml TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS windows (
		run_id TEXT NOT NULL,
		window_end INTEGER NOT NULL,
		fish INTEGER NOT NULL,
		krill INTEGER NOT NULL,
		pale_krill INTEGER NOT NULL,
		mom_krill INTEGER NOT NULL,
		tuna INTEGER NOT NULL,
		squid INTEGER NOT NULL,
		food INTEGER NOT NULL,
		waste INTEGER NOT NULL,
		claims INTEGER NOT NULL,
		fish_deaths INTEGER NOT NULL,
		krill_deaths INTEGER NOT NULL,
		tuna_deaths INTEGER NOT NULL,
		squid_deaths INTEGER NOT NULL,
		krill_births INTEGER NOT NULL,
		maturations INTEGER NOT NULL,
		stage_changes INTEGER NOT NULL,
		waste_ambient INTEGER NOT NULL,
		waste_regular INTEGER NOT NULL,
		waste_tuna INTEGER NOT NULL,
		waste_squid INTEGER NOT NULL,
		fish_energy_mean REAL NOT NULL,
		krill_energy_mean REAL NOT NULL,
		PRIMARY KEY (run_id, window_end)
	);

	CREATE INDEX IF NOT EXISTS idx_windows_run ON windows(run_id);
	`
	_, err := r.conn.Exec(schema)
	return err
}

// RecordWindow writes one window stats row for this run.
func (r *Recorder) RecordWindow(stats WindowStats) error {
	if r == nil {
		return nil
	}
	_, err := r.conn.Exec(
		`INSERT OR REPLACE INTO windows
		(run_id, window_end, fish, krill, pale_krill, mom_krill, tuna, squid,
		 food, waste, claims, fish_deaths, krill_deaths, tuna_deaths,
		 squid_deaths, krill_births, maturations, stage_changes,
		 waste_ambient, waste_regular, waste_tuna, waste_squid,
		 fish_energy_mean, krill_energy_mean)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.runID.String(), stats.WindowEndTick,
		stats.FishCount, stats.KrillCount, stats.PaleKrillCount, stats.MomKrillCount,
		stats.TunaCount, stats.SquidCount, stats.FoodCount, stats.WasteCount,
		stats.ActiveClaims, stats.FishDeaths, stats.KrillDeaths, stats.TunaDeaths,
		stats.SquidDeaths, stats.KrillBirths, stats.Maturations, stats.StageChanges,
		stats.WasteAmbient, stats.WasteRegular, stats.WasteTuna, stats.WasteSquid,
		stats.FishEnergyMean, stats.KrillEnergyMean,
	)
	if err != nil {
		return fmt.Errorf("record window: %w", err)
	}
	return nil
}
