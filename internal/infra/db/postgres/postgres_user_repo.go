package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"pos-provisioning/internal/domain/model"
	"pos-provisioning/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*PostgresUserRepo)(nil)

type PostgresUserRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{pool: pool}
}

func (r *PostgresUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (id, name, email, password_hash, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET
  name=$2, email=$3, password_hash=$4, updated_at=$6;`
	_, err := execSQL(ctx, r.pool, tx, q, u.ID, u.Name, model.NormalizeEmail(u.Email), u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	return mapWriteErr("save user", err)
}

func (r *PostgresUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	const q = `
SELECT id, name, email, password_hash, created_at, updated_at
  FROM users WHERE id=$1;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *PostgresUserRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	const q = `
SELECT id, name, email, password_hash, created_at, updated_at
  FROM users WHERE email=$1;`
	return r.queryOne(ctx, tx, q, model.NormalizeEmail(email))
}

func (r *PostgresUserRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...any) (*model.User, error) {
	var u model.User
	err := pickRow(ctx, r.pool, tx, q, args...).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapReadErr(fmt.Sprintf("find user %v", args[0]), err)
	}
	return &u, nil
}
