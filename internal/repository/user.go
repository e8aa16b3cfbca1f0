package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/go-storefront/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateAddress(ctx context.Context, id uuid.UUID, addr model.ShippingAddress) error
	UpdatePaymentMethod(ctx context.Context, id uuid.UUID, method model.PaymentMethod) error
	UpdateProfile(ctx context.Context, id uuid.UUID, name string) error
	UpdateByAdmin(ctx context.Context, id uuid.UUID, name, role string) error
	List(ctx context.Context, query string, limit, offset int) ([]model.User, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type pgUserRepo struct{ pool *pgxpool.Pool }

func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &pgUserRepo{pool: pool}
}

const userColumns = `id, name, email, password_hash, role, address, COALESCE(payment_method, ''), created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	var method string
	if err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.Password, &u.Role, &u.Address, &method, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.PaymentMethod = model.PaymentMethod(method)
	return u, nil
}

func (r *pgUserRepo) Create(ctx context.Context, user *model.User) error {
	user.ID = uuid.New()
	query := `INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
			  RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		user.ID, user.Name, user.Email, user.Password, user.Role,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *pgUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

func (r *pgUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (r *pgUserRepo) exec(ctx context.Context, op, query string, args ...any) error {
	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgUserRepo) UpdateAddress(ctx context.Context, id uuid.UUID, addr model.ShippingAddress) error {
	return r.exec(ctx, "update user address",
		`UPDATE users SET address = $2, updated_at = NOW() WHERE id = $1`, id, addr)
}

func (r *pgUserRepo) UpdatePaymentMethod(ctx context.Context, id uuid.UUID, method model.PaymentMethod) error {
	return r.exec(ctx, "update user payment method",
		`UPDATE users SET payment_method = $2, updated_at = NOW() WHERE id = $1`, id, string(method))
}

func (r *pgUserRepo) UpdateProfile(ctx context.Context, id uuid.UUID, name string) error {
	return r.exec(ctx, "update user profile",
		`UPDATE users SET name = $2, updated_at = NOW() WHERE id = $1`, id, name)
}

func (r *pgUserRepo) UpdateByAdmin(ctx context.Context, id uuid.UUID, name, role string) error {
	return r.exec(ctx, "update user",
		`UPDATE users SET name = $2, role = $3, updated_at = NOW() WHERE id = $1`, id, name, role)
}

func (r *pgUserRepo) List(ctx context.Context, query string, limit, offset int) ([]model.User, int, error) {
	const where = `WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users `+where, query).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users `+where+` ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		query, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, total, rows.Err()
}

func (r *pgUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, "delete user", `DELETE FROM users WHERE id = $1`, id)
}
