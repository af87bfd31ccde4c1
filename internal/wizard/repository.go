package wizard

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"launchpad/student-portal/onboarding-backend/internal/steps"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, userID uuid.UUID) (State, bool, error) {
	query := `
		SELECT active, current_step, completed_steps, updated_at
		FROM wizard_states
		WHERE user_id = $1
	`

	var state State
	var completedJSON []byte

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&state.Active, &state.CurrentStep, &completedJSON, &state.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return State{}, false, nil
		}
		return State{}, false, fmt.Errorf("failed to get wizard state: %w", err)
	}

	if len(completedJSON) > 0 {
		if err := json.Unmarshal(completedJSON, &state.CompletedSteps); err != nil {
			return State{}, false, fmt.Errorf("failed to unmarshal completed steps: %w", err)
		}
	}

	return state, true, nil
}

func (r *PostgresRepository) Save(ctx context.Context, userID uuid.UUID, state State) error {
	completedJSON, err := json.Marshal(completedOrEmpty(state.CompletedSteps))
	if err != nil {
		return fmt.Errorf("failed to marshal completed steps: %w", err)
	}

	query := `
		INSERT INTO wizard_states (user_id, active, current_step, completed_steps, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), $5)
		ON CONFLICT (user_id) DO UPDATE SET
			active = EXCLUDED.active,
			current_step = EXCLUDED.current_step,
			completed_steps = EXCLUDED.completed_steps,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		userID, state.Active, state.CurrentStep, completedJSON, state.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save wizard state: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	query := `DELETE FROM wizard_states WHERE user_id = $1`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete wizard state: %w", err)
	}

	return nil
}

func (r *PostgresRepository) PurgeLegacy(ctx context.Context, userID uuid.UUID) error {
	// onboarding_progress_v1 predates the wizard_states table; rows there
	// are dead weight once the flow has been reset.
	query := `DELETE FROM onboarding_progress_v1 WHERE user_id = $1`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to purge legacy progress: %w", err)
	}

	return nil
}

// PurgeStale deletes wizard states that were abandoned mid-flow: inactive
// rows untouched for longer than the retention window. Used by the cleanup
// worker.
func (r *PostgresRepository) PurgeStale(ctx context.Context, retention time.Duration) (int64, error) {
	query := `
		DELETE FROM wizard_states
		WHERE active = false
		  AND current_step = 0
		  AND updated_at < $1
	`

	result, err := r.db.ExecContext(ctx, query, time.Now().UTC().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("failed to purge stale wizard states: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}

// completedOrEmpty keeps the stored JSON an array rather than null.
func completedOrEmpty(ids []steps.ID) []steps.ID {
	if ids == nil {
		return []steps.ID{}
	}
	return ids
}
