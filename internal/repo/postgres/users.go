package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/gathrio/gathrio/internal/domain/user"
	"github.com/gathrio/gathrio/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")
var ErrEmailAlreadyUsed = errors.New("email already in use")

// ErrResetTokenInvalid deliberately covers both "no such token" and
// "token expired"; callers must not be able to tell them apart.
var ErrResetTokenInvalid = errors.New("reset token invalid or expired")

const userColumns = `id, email, password_hash, first_name, last_name, phone, role,
         reset_token_hash, reset_token_expiry, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

// Create inserts a new user. The unique index on email is the authority on
// duplicates: a concurrent registration race surfaces here as
// ErrEmailAlreadyUsed on the losing insert, not in any prior existence check.
func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	err := r.observe("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, email, password_hash, first_name, last_name, phone, role, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, nullIfEmpty(u.Phone), u.Role, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, ErrEmailAlreadyUsed
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.getBy(ctx, "users.get_by_email", `email = $1`, email)
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.getBy(ctx, "users.get_by_id", `id = $1`, id)
}

func (r *UsersRepo) getBy(ctx context.Context, op, where string, arg any) (user.User, error) {
	var u user.User
	var phone *string

	err := r.observe(op, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE `+where, arg,
		).Scan(
			&u.ID,
			&u.Email,
			&u.PasswordHash,
			&u.FirstName,
			&u.LastName,
			&phone,
			&u.Role,
			&u.ResetTokenHash,
			&u.ResetTokenExpiry,
			&u.CreatedAt,
			&u.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, ErrUserNotFound
		}

		return user.User{}, err
	}

	if phone != nil {
		u.Phone = *phone
	}

	return u, nil
}

// SetResetToken stores the hash and expiry of a freshly issued reset secret,
// replacing any pending reset for the user.
func (r *UsersRepo) SetResetToken(ctx context.Context, userID, tokenHash string, expiry time.Time) error {
	var tag pgconn.CommandTag
	var err error

	err = r.observe("users.set_reset_token", func() error {
		tag, err = r.pool.Exec(ctx, `
			UPDATE users
			SET reset_token_hash = $2,
			    reset_token_expiry = $3,
			    updated_at = NOW()
			WHERE id = $1
		`, userID, tokenHash, expiry)
		return err
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// ConsumeResetToken performs the whole reset in one conditional UPDATE:
// match on the still-stored hash and a strictly-future expiry, swap in the
// new password hash, and clear both reset fields. A concurrent second reset
// with the same token loses the race and sees zero rows.
func (r *UsersRepo) ConsumeResetToken(ctx context.Context, tokenHash, newPasswordHash string) error {
	var tag pgconn.CommandTag
	var err error

	err = r.observe("users.consume_reset_token", func() error {
		tag, err = r.pool.Exec(ctx, `
			UPDATE users
			SET password_hash = $2,
			    reset_token_hash = NULL,
			    reset_token_expiry = NULL,
			    updated_at = NOW()
			WHERE reset_token_hash = $1
			  AND reset_token_expiry > NOW()
		`, tokenHash, newPasswordHash)
		return err
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrResetTokenInvalid
	}

	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
