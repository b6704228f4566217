package postgres

import (
	"context"

	"github.com/JandsonS/teste-sub000/internal/auth"
	"github.com/JandsonS/teste-sub000/internal/db"
)

type AdminUserRepo struct{ db *db.DB }

func NewAdminUserRepo(d *db.DB) *AdminUserRepo { return &AdminUserRepo{db: d} }

func (r *AdminUserRepo) CreateUser(ctx context.Context, email, passwordHash string) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO admin_users(email, password_hash) VALUES ($1,$2) RETURNING id`, email, passwordHash).Scan(&id)
	if db.IsUniqueViolation(err) {
		return 0, auth.ErrUserExists
	}
	return id, db.WrapNotFound(err)
}

func (r *AdminUserRepo) UserByEmail(ctx context.Context, email string) (auth.User, error) {
	var u auth.User
	err := r.db.QueryRow(ctx, `SELECT id, email, password_hash FROM admin_users WHERE email=$1`, email).Scan(&u.ID, &u.Email, &u.PasswordHash)
	if err != nil {
		if db.IsNotFound(err) {
			return auth.User{}, auth.ErrInvalidCredentials
		}
		return auth.User{}, db.WrapNotFound(err)
	}
	return u, nil
}
