package alert

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL alert repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get retrieves an alert by device ID and alert ID.
func (r *PostgresRepository) Get(ctx context.Context, deviceID, alertID string) (*Alert, error) {
	query := `
		SELECT device_id, alert_id, title, message, priority, ts, sent, sent_at, recipient_count, dispatch_claimed
		FROM alerts
		WHERE device_id = $1 AND alert_id = $2
	`

	var a Alert
	err := r.pool.QueryRow(ctx, query, deviceID, alertID).Scan(
		&a.DeviceID,
		&a.AlertID,
		&a.Title,
		&a.Message,
		&a.Priority,
		&a.Timestamp,
		&a.Sent,
		&a.SentAt,
		&a.RecipientCount,
		&a.DispatchClaimed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}

	return &a, nil
}

// Create creates a new alert record.
func (r *PostgresRepository) Create(ctx context.Context, a *Alert) error {
	query := `
		INSERT INTO alerts (device_id, alert_id, title, message, priority, ts, sent, sent_at, recipient_count, dispatch_claimed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		a.DeviceID,
		a.AlertID,
		a.Title,
		a.Message,
		a.Priority,
		a.Timestamp,
		a.Sent,
		a.SentAt,
		a.RecipientCount,
		a.DispatchClaimed,
	)
	return err
}

// ListByDevice retrieves all alerts for a device.
func (r *PostgresRepository) ListByDevice(ctx context.Context, deviceID string) ([]*Alert, error) {
	query := `
		SELECT device_id, alert_id, title, message, priority, ts, sent, sent_at, recipient_count, dispatch_claimed
		FROM alerts
		WHERE device_id = $1
		ORDER BY alert_id
	`

	rows, err := r.pool.Query(ctx, query, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*Alert
	for rows.Next() {
		var a Alert
		err := rows.Scan(
			&a.DeviceID,
			&a.AlertID,
			&a.Title,
			&a.Message,
			&a.Priority,
			&a.Timestamp,
			&a.Sent,
			&a.SentAt,
			&a.RecipientCount,
			&a.DispatchClaimed,
		)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return alerts, nil
}

// ListDevices enumerates every device ID that has at least one alert.
func (r *PostgresRepository) ListDevices(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT device_id FROM alerts ORDER BY device_id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		devices = append(devices, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return devices, nil
}

// ClaimDispatch atomically marks the alert as claimed for dispatch.
// The conditional update only succeeds when the claim is still unset, so
// concurrent or replayed events race for a single winner.
func (r *PostgresRepository) ClaimDispatch(ctx context.Context, deviceID, alertID string) (bool, error) {
	query := `
		UPDATE alerts SET dispatch_claimed = TRUE
		WHERE device_id = $1 AND alert_id = $2 AND dispatch_claimed = FALSE
	`

	result, err := r.pool.Exec(ctx, query, deviceID, alertID)
	if err != nil {
		return false, err
	}

	return result.RowsAffected() == 1, nil
}

// ReleaseDispatch clears the dispatch claim so a later trigger replay can
// reprocess the alert.
func (r *PostgresRepository) ReleaseDispatch(ctx context.Context, deviceID, alertID string) error {
	query := `
		UPDATE alerts SET dispatch_claimed = FALSE
		WHERE device_id = $1 AND alert_id = $2
	`

	_, err := r.pool.Exec(ctx, query, deviceID, alertID)
	return err
}

// MarkSent writes the delivery outcome onto the alert.
func (r *PostgresRepository) MarkSent(ctx context.Context, deviceID, alertID string, outcome DeliveryOutcome) error {
	query := `
		UPDATE alerts SET
			sent = TRUE,
			sent_at = $3,
			recipient_count = $4
		WHERE device_id = $1 AND alert_id = $2
	`

	result, err := r.pool.Exec(ctx, query, deviceID, alertID, outcome.SentAt, outcome.RecipientCount)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrAlertNotFound
	}

	return nil
}

// Delete removes an alert. Deleting an absent alert is a no-op.
func (r *PostgresRepository) Delete(ctx context.Context, deviceID, alertID string) error {
	query := `DELETE FROM alerts WHERE device_id = $1 AND alert_id = $2`

	_, err := r.pool.Exec(ctx, query, deviceID, alertID)
	return err
}
