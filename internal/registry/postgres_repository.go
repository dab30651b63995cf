package registry

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL token registry repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// ListByDevice retrieves every registered token for a device.
func (r *PostgresRepository) ListByDevice(ctx context.Context, deviceID string) ([]*RegisteredToken, error) {
	query := `
		SELECT token, active
		FROM fcm_tokens
		WHERE device_id = $1
		ORDER BY token_key
	`

	rows, err := r.pool.Query(ctx, query, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []*RegisteredToken
	for rows.Next() {
		var t RegisteredToken
		if err := rows.Scan(&t.Token, &t.Active); err != nil {
			return nil, err
		}
		tokens = append(tokens, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tokens, nil
}

// Register creates or replaces a token registration for a device.
func (r *PostgresRepository) Register(ctx context.Context, deviceID string, token *RegisteredToken) error {
	query := `
		INSERT INTO fcm_tokens (device_id, token_key, token, active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (device_id, token_key) DO UPDATE SET
			token = EXCLUDED.token,
			active = EXCLUDED.active
	`

	_, err := r.pool.Exec(ctx, query, deviceID, TokenKey(token.Token), token.Token, token.Active)
	return err
}

// Remove deletes the registration for the given token value.
// Removing an absent registration is a no-op.
func (r *PostgresRepository) Remove(ctx context.Context, deviceID, token string) error {
	query := `DELETE FROM fcm_tokens WHERE device_id = $1 AND token_key = $2`

	_, err := r.pool.Exec(ctx, query, deviceID, TokenKey(token))
	return err
}
