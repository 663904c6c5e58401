package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"confluence-engine/internal/engine"
)

// Repository provides data access methods
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// HealthCheck performs a database health check
func (r *Repository) HealthCheck(ctx context.Context) error {
	return r.db.Pool.Ping(ctx)
}

// ============================================================================
// EVALUATIONS
// ============================================================================

// SaveEvaluation persists an engine run with its per-horizon breakdown in
// a single transaction
func (r *Repository) SaveEvaluation(ctx context.Context, eval *engine.Evaluation) (uuid.UUID, error) {
	recJSON, err := json.Marshal(eval.Recommendation)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal recommendation: %w", err)
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	defer tx.Rollback(ctx)

	id := uuid.New()
	query := `
		INSERT INTO evaluations (id, symbol, profile_version, action, confidence_tier, agreement, risk_dispersion, score, recommendation)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = tx.Exec(
		ctx, query,
		id, eval.Symbol, eval.ProfileVersion,
		string(eval.Recommendation.Action), string(eval.Recommendation.ConfidenceTier),
		string(eval.Recommendation.Agreement), string(eval.Recommendation.RiskDispersion),
		eval.Recommendation.Score, recJSON,
	)
	if err != nil {
		return uuid.Nil, err
	}

	tfQuery := `
		INSERT INTO timeframe_results (evaluation_id, horizon, direction, signal_count, calibrated_win_rate, score, multiplier_applied, actionable, signals)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, tf := range eval.Timeframes {
		sigJSON, err := json.Marshal(tf.Signals)
		if err != nil {
			return uuid.Nil, fmt.Errorf("marshal signals: %w", err)
		}
		_, err = tx.Exec(
			ctx, tfQuery,
			id, tf.Horizon, string(tf.Direction), tf.SignalCount,
			tf.CalibratedWinRate, tf.Score, tf.MultiplierApplied, tf.Actionable, sigJSON,
		)
		if err != nil {
			return uuid.Nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// GetLatestEvaluation retrieves the most recent evaluation for a symbol
func (r *Repository) GetLatestEvaluation(ctx context.Context, symbol string) (*EvaluationRow, error) {
	query := `
		SELECT id, symbol, profile_version, action, confidence_tier, agreement, risk_dispersion, score, recommendation, created_at
		FROM evaluations
		WHERE symbol = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	row := &EvaluationRow{}
	err := r.db.Pool.QueryRow(ctx, query, symbol).Scan(
		&row.ID, &row.Symbol, &row.ProfileVersion, &row.Action, &row.ConfidenceTier,
		&row.Agreement, &row.RiskDispersion, &row.Score, &row.Recommendation, &row.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return row, nil
}

// GetEvaluationHistory retrieves recent evaluations for a symbol
func (r *Repository) GetEvaluationHistory(ctx context.Context, symbol string, limit int) ([]*EvaluationRow, error) {
	query := `
		SELECT id, symbol, profile_version, action, confidence_tier, agreement, risk_dispersion, score, recommendation, created_at
		FROM evaluations
		WHERE symbol = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Pool.Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var evals []*EvaluationRow
	for rows.Next() {
		row := &EvaluationRow{}
		err := rows.Scan(
			&row.ID, &row.Symbol, &row.ProfileVersion, &row.Action, &row.ConfidenceTier,
			&row.Agreement, &row.RiskDispersion, &row.Score, &row.Recommendation, &row.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		evals = append(evals, row)
	}
	return evals, rows.Err()
}

// GetLatestRecommendations retrieves the newest evaluation per symbol
func (r *Repository) GetLatestRecommendations(ctx context.Context, limit int) ([]*EvaluationRow, error) {
	query := `
		SELECT DISTINCT ON (symbol)
		       id, symbol, profile_version, action, confidence_tier, agreement, risk_dispersion, score, recommendation, created_at
		FROM evaluations
		ORDER BY symbol, created_at DESC
		LIMIT $1
	`
	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var evals []*EvaluationRow
	for rows.Next() {
		row := &EvaluationRow{}
		err := rows.Scan(
			&row.ID, &row.Symbol, &row.ProfileVersion, &row.Action, &row.ConfidenceTier,
			&row.Agreement, &row.RiskDispersion, &row.Score, &row.Recommendation, &row.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		evals = append(evals, row)
	}
	return evals, rows.Err()
}

// GetTimeframeResults retrieves the per-horizon breakdown of an evaluation
func (r *Repository) GetTimeframeResults(ctx context.Context, evaluationID uuid.UUID) ([]*TimeframeResultRow, error) {
	query := `
		SELECT id, evaluation_id, horizon, direction, signal_count, calibrated_win_rate, score, multiplier_applied, actionable, signals
		FROM timeframe_results
		WHERE evaluation_id = $1
		ORDER BY id
	`
	rows, err := r.db.Pool.Query(ctx, query, evaluationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*TimeframeResultRow
	for rows.Next() {
		row := &TimeframeResultRow{}
		err := rows.Scan(
			&row.ID, &row.EvaluationID, &row.Horizon, &row.Direction, &row.SignalCount,
			&row.CalibratedWinRate, &row.Score, &row.MultiplierApplied, &row.Actionable, &row.Signals,
		)
		if err != nil {
			return nil, err
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// ============================================================================
// PROFILE VERSIONS
// ============================================================================

// SaveProfileVersion stores a calibration and marks it active, deactivating
// the previous one
func (r *Repository) SaveProfileVersion(ctx context.Context, ps *engine.ProfileSet) error {
	profileJSON, err := json.Marshal(ps)
	if err != nil {
		return fmt.Errorf("marshal profile set: %w", err)
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE profile_versions SET active = FALSE WHERE active`); err != nil {
		return err
	}

	query := `
		INSERT INTO profile_versions (version, profile, active)
		VALUES ($1, $2, TRUE)
		ON CONFLICT (version) DO UPDATE SET profile = EXCLUDED.profile, active = TRUE
	`
	if _, err := tx.Exec(ctx, query, ps.Version, profileJSON); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetActiveProfileVersion retrieves the active calibration, nil when none
// has been stored
func (r *Repository) GetActiveProfileVersion(ctx context.Context) (*engine.ProfileSet, error) {
	query := `SELECT profile FROM profile_versions WHERE active LIMIT 1`

	var profileJSON []byte
	err := r.db.Pool.QueryRow(ctx, query).Scan(&profileJSON)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	var ps engine.ProfileSet
	if err := json.Unmarshal(profileJSON, &ps); err != nil {
		return nil, fmt.Errorf("unmarshal stored profile: %w", err)
	}
	if err := ps.Validate(); err != nil {
		return nil, fmt.Errorf("stored profile invalid: %w", err)
	}
	return &ps, nil
}

// ListProfileVersions retrieves stored calibration metadata, newest first
func (r *Repository) ListProfileVersions(ctx context.Context) ([]*ProfileVersionRow, error) {
	query := `
		SELECT id, version, profile, active, created_at
		FROM profile_versions
		ORDER BY created_at DESC
	`
	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []*ProfileVersionRow
	for rows.Next() {
		row := &ProfileVersionRow{}
		if err := rows.Scan(&row.ID, &row.Version, &row.Profile, &row.Active, &row.CreatedAt); err != nil {
			return nil, err
		}
		versions = append(versions, row)
	}
	return versions, rows.Err()
}

// ============================================================================
// WATCHLIST
// ============================================================================

// AddWatchlistSymbol adds a symbol to the scheduler sweep
func (r *Repository) AddWatchlistSymbol(ctx context.Context, symbol string) error {
	query := `
		INSERT INTO watchlist (symbol)
		VALUES ($1)
		ON CONFLICT (symbol) DO UPDATE SET enabled = TRUE
	`
	_, err := r.db.Pool.Exec(ctx, query, symbol)
	return err
}

// RemoveWatchlistSymbol disables a symbol without losing its history
func (r *Repository) RemoveWatchlistSymbol(ctx context.Context, symbol string) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE watchlist SET enabled = FALSE WHERE symbol = $1`, symbol)
	return err
}

// GetWatchlist retrieves enabled watchlist symbols
func (r *Repository) GetWatchlist(ctx context.Context) ([]*WatchlistEntry, error) {
	query := `
		SELECT id, symbol, enabled, added_at
		FROM watchlist
		WHERE enabled
		ORDER BY symbol
	`
	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*WatchlistEntry
	for rows.Next() {
		entry := &WatchlistEntry{}
		if err := rows.Scan(&entry.ID, &entry.Symbol, &entry.Enabled, &entry.AddedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ============================================================================
// USERS
// ============================================================================

// CreateUser inserts a new user account
func (r *Repository) CreateUser(ctx context.Context, user *User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	query := `
		INSERT INTO users (id, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	return r.db.Pool.QueryRow(ctx, query, user.ID, user.Email, user.PasswordHash, user.Role).Scan(&user.CreatedAt)
}

// GetUserByEmail retrieves a user by email, nil when absent
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, email, password_hash, role, created_at, last_login_at
		FROM users
		WHERE email = $1
	`
	user := &User{}
	err := r.db.Pool.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt, &user.LastLoginAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// TouchLastLogin stamps a successful login
func (r *Repository) TouchLastLogin(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, userID, time.Now().UTC())
	return err
}
