package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/remessasegura/backend/internal/core"
)

// UserRepository implements storage.UserRepository.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// FindByEmail looks the account up by normalized email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*core.User, error) {
	const query = `
		SELECT id, nome, email, senha_hash, ativo, created_at
		FROM usuarios
		WHERE lower(email) = $1
		LIMIT 1`

	var u core.User
	err := r.pool.QueryRow(ctx, query, core.NormalizeEmail(email)).Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Active, &u.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err, "user")
	}
	return &u, nil
}

// ExistsByEmail reports whether email is registered.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM usuarios WHERE lower(email) = $1)`,
		core.NormalizeEmail(email),
	).Scan(&exists)
	if err != nil {
		return false, mapError(err, "user")
	}
	return exists, nil
}

// Create inserts the user and its permission in one transaction.
func (r *UserRepository) Create(ctx context.Context, u core.User, role core.Role) (uuid.UUID, error) {
	var id uuid.UUID
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO usuarios (nome, email, senha_hash, ativo)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			u.Name, core.NormalizeEmail(u.Email), u.PasswordHash, u.Active,
		).Scan(&id)
		if err != nil {
			return mapError(err, "user")
		}
		if role == "" {
			return nil
		}

		tag, err := tx.Exec(ctx, `
			INSERT INTO usuario_permissoes (usuario_id, permissao_id)
			SELECT $1, id FROM permissoes WHERE codigo = $2
			ON CONFLICT DO NOTHING`,
			id, string(role),
		)
		if err != nil {
			return mapError(err, "permission")
		}
		if tag.RowsAffected() == 0 {
			return core.Validation("unknown permission %q", role)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// PermissionRepository implements storage.PermissionRepository.
type PermissionRepository struct {
	pool *pgxpool.Pool
}

// NewPermissionRepository creates a PermissionRepository.
func NewPermissionRepository(pool *pgxpool.Pool) *PermissionRepository {
	return &PermissionRepository{pool: pool}
}

// CodesByUser returns the user's permission codes in code order.
func (r *PermissionRepository) CodesByUser(ctx context.Context, userID uuid.UUID) ([]core.Role, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.codigo
		FROM usuario_permissoes up
		JOIN permissoes p ON p.id = up.permissao_id
		WHERE up.usuario_id = $1
		ORDER BY p.codigo`, userID)
	if err != nil {
		return nil, mapError(err, "permission")
	}
	codes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan permission codes: %w", mapError(err, "permission"))
	}

	roles := make([]core.Role, len(codes))
	for i, c := range codes {
		roles[i] = core.Role(c)
	}
	return roles, nil
}
