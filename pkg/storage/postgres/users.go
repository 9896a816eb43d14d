package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/farmops/agrifleet/pkg/api"
	"github.com/farmops/agrifleet/pkg/observability"
)

// UserStore implements api.UserStore on PostgreSQL.
type UserStore struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewUserStore wraps the shared database pool.
func NewUserStore(db *sql.DB, metrics *observability.Metrics) *UserStore {
	return &UserStore{db: db, metrics: metrics}
}

const userColumns = "id, username, password, real_name, phone, role, status, create_time, update_time"

func scanUser(row interface{ Scan(...interface{}) error }) (*api.User, error) {
	var u api.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Password,
		&u.RealName,
		&u.Phone,
		&u.Role,
		&u.Status,
		&u.CreateTime,
		&u.UpdateTime,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) Create(ctx context.Context, user *api.User) error {
	start := time.Now()

	query := `
		INSERT INTO sys_user (username, password, real_name, phone, role, status, create_time, update_time)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id, create_time, update_time
	`

	err := s.db.QueryRowContext(ctx, query,
		user.Username,
		user.Password,
		user.RealName,
		user.Phone,
		user.Role,
		user.Status,
	).Scan(&user.ID, &user.CreateTime, &user.UpdateTime)

	observe(s.metrics, "user", "create", start, err)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *UserStore) Update(ctx context.Context, user *api.User) error {
	start := time.Now()

	query := `
		UPDATE sys_user
		SET real_name = $1, phone = $2, role = $3, status = $4, update_time = NOW()
		WHERE id = $5
	`

	result, err := s.db.ExecContext(ctx, query,
		user.RealName,
		user.Phone,
		user.Role,
		user.Status,
		user.ID,
	)
	observe(s.metrics, "user", "update", start, err)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return requireRowAffected(result)
}

func (s *UserStore) Delete(ctx context.Context, id int64) error {
	start := time.Now()

	result, err := s.db.ExecContext(ctx, "DELETE FROM sys_user WHERE id = $1", id)
	observe(s.metrics, "user", "delete", start, err)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireRowAffected(result)
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*api.User, error) {
	start := time.Now()

	query := "SELECT " + userColumns + " FROM sys_user WHERE id = $1"
	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	observe(s.metrics, "user", "get", start, err)

	if err == sql.ErrNoRows {
		return nil, api.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*api.User, error) {
	start := time.Now()

	query := "SELECT " + userColumns + " FROM sys_user WHERE username = $1"
	user, err := scanUser(s.db.QueryRowContext(ctx, query, username))
	observe(s.metrics, "user", "get_by_username", start, err)

	if err == sql.ErrNoRows {
		return nil, api.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return user, nil
}

func (s *UserStore) Search(ctx context.Context, filter api.UserFilter, page api.PageRequest) ([]*api.User, int64, error) {
	start := time.Now()

	var predicates []string
	var args []interface{}

	if filter.Username != "" {
		args = append(args, likePattern(filter.Username))
		predicates = append(predicates, fmt.Sprintf("username ILIKE $%d", len(args)))
	}
	if filter.RealName != "" {
		args = append(args, likePattern(filter.RealName))
		predicates = append(predicates, fmt.Sprintf("real_name ILIKE $%d", len(args)))
	}
	if filter.Phone != "" {
		args = append(args, likePattern(filter.Phone))
		predicates = append(predicates, fmt.Sprintf("phone ILIKE $%d", len(args)))
	}
	if filter.Role != nil {
		args = append(args, *filter.Role)
		predicates = append(predicates, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		predicates = append(predicates, fmt.Sprintf("status = $%d", len(args)))
	}

	where := whereClause(predicates)

	var total int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sys_user"+where, args...).Scan(&total)
	if err != nil {
		observe(s.metrics, "user", "search", start, err)
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	args = append(args, page.Limit(), page.Offset())
	query := fmt.Sprintf(
		"SELECT %s FROM sys_user%s ORDER BY create_time DESC LIMIT $%d OFFSET $%d",
		userColumns, where, len(args)-1, len(args),
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		observe(s.metrics, "user", "search", start, err)
		return nil, 0, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	var users []*api.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			observe(s.metrics, "user", "search", start, err)
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	err = rows.Err()
	observe(s.metrics, "user", "search", start, err)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, total, nil
}

func (s *UserStore) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	start := time.Now()

	result, err := s.db.ExecContext(ctx,
		"UPDATE sys_user SET password = $1, update_time = NOW() WHERE id = $2",
		passwordHash, id,
	)
	observe(s.metrics, "user", "update_password", start, err)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return requireRowAffected(result)
}

func (s *UserStore) UpdateStatus(ctx context.Context, id int64, status int) error {
	start := time.Now()

	result, err := s.db.ExecContext(ctx,
		"UPDATE sys_user SET status = $1, update_time = NOW() WHERE id = $2",
		status, id,
	)
	observe(s.metrics, "user", "update_status", start, err)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return requireRowAffected(result)
}

// requireRowAffected maps a zero-row write onto ErrNotFound.
func requireRowAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return api.ErrNotFound
	}
	return nil
}
