package database

import (
	"time"

	"github.com/google/uuid"
)

// EvaluationRow is a persisted engine run
type EvaluationRow struct {
	ID             uuid.UUID `json:"id"`
	Symbol         string    `json:"symbol"`
	ProfileVersion string    `json:"profile_version"`
	Action         string    `json:"action"`
	ConfidenceTier string    `json:"confidence_tier"`
	Agreement      string    `json:"agreement"`
	RiskDispersion string    `json:"risk_dispersion"`
	Score          float64   `json:"score"`
	Recommendation []byte    `json:"recommendation"` // Full recommendation JSON
	CreatedAt      time.Time `json:"created_at"`
}

// TimeframeResultRow is the per-horizon breakdown of an evaluation
type TimeframeResultRow struct {
	ID                int64     `json:"id"`
	EvaluationID      uuid.UUID `json:"evaluation_id"`
	Horizon           string    `json:"horizon"`
	Direction         string    `json:"direction"`
	SignalCount       int       `json:"signal_count"`
	CalibratedWinRate float64   `json:"calibrated_win_rate"`
	Score             float64   `json:"score"`
	MultiplierApplied float64   `json:"multiplier_applied"`
	Actionable        bool      `json:"actionable"`
	Signals           []byte    `json:"signals"` // Signal list JSON
}

// ProfileVersionRow is a stored calibration
type ProfileVersionRow struct {
	ID        int64     `json:"id"`
	Version   string    `json:"version"`
	Profile   []byte    `json:"profile"` // ProfileSet JSON
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// WatchlistEntry is a symbol the scheduler sweeps
type WatchlistEntry struct {
	ID      int64     `json:"id"`
	Symbol  string    `json:"symbol"`
	Enabled bool      `json:"enabled"`
	AddedAt time.Time `json:"added_at"`
}

// User is an API account
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// User roles
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)
