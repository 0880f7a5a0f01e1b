package action

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/farsign/farsign-core/internal/session"
)

// Repository defines the interface for action definition persistence.
// The abstraction enables unit testing without database dependencies.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Definition, error)
	ListAll(ctx context.Context) ([]Definition, error)
	ListBySession(ctx context.Context, sessionKey string) ([]Definition, error)
	Create(ctx context.Context, def *Definition) error
	Update(ctx context.Context, def *Definition) error
	Delete(ctx context.Context, id string) error
}

// actionColumns is the SELECT column list for action queries.
const actionColumns = `id, session_key, name, description, target_url, active,
			steps, next_action_id, legacy_trigger, legacy_effect, legacy_delay,
			created_at, updated_at`

// SQLiteRepository implements Repository using SQLite.
//
// Rows written by older deployments carry a single legacy trigger and
// effect instead of a steps array; scanning normalises those into a
// one-step sequence so the rest of the system only ever sees []Step.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves an action by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Definition, error) {
	query := `SELECT ` + actionColumns + ` FROM actions WHERE id = ?`

	def, err := scanDefinition(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying action by id: %w", err)
	}
	return def, nil
}

// ListAll retrieves every stored action, ordered by creation time then name.
func (r *SQLiteRepository) ListAll(ctx context.Context) ([]Definition, error) {
	query := `SELECT ` + actionColumns + ` FROM actions ORDER BY created_at, name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying actions: %w", err)
	}
	defer rows.Close()

	return collectDefinitions(rows)
}

// ListBySession retrieves all actions for a session key, ordered by
// creation time then name for a stable sequence.
func (r *SQLiteRepository) ListBySession(ctx context.Context, sessionKey string) ([]Definition, error) {
	query := `SELECT ` + actionColumns + ` FROM actions WHERE session_key = ? ORDER BY created_at, name`

	rows, err := r.db.QueryContext(ctx, query, session.Normalize(sessionKey))
	if err != nil {
		return nil, fmt.Errorf("querying actions: %w", err)
	}
	defer rows.Close()

	return collectDefinitions(rows)
}

// collectDefinitions drains a result set into a slice of definitions.
func collectDefinitions(rows *sql.Rows) ([]Definition, error) {
	var defs []Definition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning action row: %w", err)
		}
		defs = append(defs, *def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating actions: %w", err)
	}
	return defs, nil
}

// Create inserts a new action definition.
func (r *SQLiteRepository) Create(ctx context.Context, def *Definition) error {
	stepsJSON, err := json.Marshal(def.Steps)
	if err != nil {
		return fmt.Errorf("marshalling steps: %w", err)
	}

	now := time.Now().UTC()
	if def.CreatedAt.IsZero() {
		def.CreatedAt = now
	}
	def.UpdatedAt = now
	def.SessionKey = session.Normalize(def.SessionKey)

	query := `
		INSERT INTO actions (
			id, session_key, name, description, target_url, active,
			steps, next_action_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		def.ID, def.SessionKey, def.Name, def.Description, def.TargetURL,
		boolToInt(def.Active), string(stepsJSON), def.NextActionID,
		def.CreatedAt.Format(time.RFC3339Nano), def.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrExists
		}
		return fmt.Errorf("inserting action: %w", err)
	}
	return nil
}

// Update replaces an existing action definition.
func (r *SQLiteRepository) Update(ctx context.Context, def *Definition) error {
	stepsJSON, err := json.Marshal(def.Steps)
	if err != nil {
		return fmt.Errorf("marshalling steps: %w", err)
	}

	def.UpdatedAt = time.Now().UTC()
	def.SessionKey = session.Normalize(def.SessionKey)

	// Updates always write the normalised steps form and clear any
	// legacy columns the row still carried.
	query := `
		UPDATE actions SET
			session_key = ?, name = ?, description = ?, target_url = ?,
			active = ?, steps = ?, next_action_id = ?,
			legacy_trigger = NULL, legacy_effect = NULL, legacy_delay = 0,
			updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		def.SessionKey, def.Name, def.Description, def.TargetURL,
		boolToInt(def.Active), string(stepsJSON), def.NextActionID,
		def.UpdatedAt.Format(time.RFC3339Nano), def.ID,
	)
	if err != nil {
		return fmt.Errorf("updating action: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an action by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM actions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting action: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanDefinition.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDefinition scans one action row, normalising legacy single
// trigger/effect rows into a one-step sequence.
func scanDefinition(row rowScanner) (*Definition, error) {
	var (
		def           Definition
		active        int
		stepsJSON     string
		nextActionID  sql.NullString
		legacyTrigger sql.NullString
		legacyEffect  sql.NullString
		legacyDelay   float64
		createdAt     string
		updatedAt     string
	)

	err := row.Scan(
		&def.ID, &def.SessionKey, &def.Name, &def.Description, &def.TargetURL,
		&active, &stepsJSON, &nextActionID, &legacyTrigger, &legacyEffect,
		&legacyDelay, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	def.Active = active != 0
	if nextActionID.Valid {
		def.NextActionID = &nextActionID.String
	}

	if err := json.Unmarshal([]byte(stepsJSON), &def.Steps); err != nil {
		return nil, fmt.Errorf("unmarshalling steps: %w", err)
	}

	// Legacy dual schema: a row with no steps but a populated single
	// trigger/effect pair becomes a one-step sequence here, so the
	// engine never branches on which columns were populated.
	if len(def.Steps) == 0 && legacyTrigger.Valid && legacyEffect.Valid {
		step, err := legacyStep(legacyTrigger.String, legacyEffect.String, legacyDelay)
		if err != nil {
			return nil, err
		}
		def.Steps = []Step{step}
	}

	def.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt) //nolint:errcheck // Format is controlled
	def.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt) //nolint:errcheck // Format is controlled

	return &def, nil
}

// legacyStep builds a Step from legacy trigger/effect column JSON.
func legacyStep(triggerJSON, effectJSON string, delaySeconds float64) (Step, error) {
	var step Step
	if err := json.Unmarshal([]byte(triggerJSON), &step.Trigger); err != nil {
		return Step{}, fmt.Errorf("unmarshalling legacy trigger: %w", err)
	}
	if err := json.Unmarshal([]byte(effectJSON), &step.Effect); err != nil {
		return Step{}, fmt.Errorf("unmarshalling legacy effect: %w", err)
	}
	step.DelaySeconds = delaySeconds
	return step, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueViolation reports whether err is a SQLite unique constraint error.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
