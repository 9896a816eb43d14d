package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/farmops/agrifleet/pkg/api"
	"github.com/farmops/agrifleet/pkg/observability"
)

// OperateLogStore implements api.OperateLogStore on PostgreSQL.
type OperateLogStore struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewOperateLogStore wraps the shared database pool.
func NewOperateLogStore(db *sql.DB, metrics *observability.Metrics) *OperateLogStore {
	return &OperateLogStore{db: db, metrics: metrics}
}

const operateLogColumns = "id, user_id, operate_type, operate_module, operate_content, operate_ip, operate_time"

func scanOperateLog(row interface{ Scan(...interface{}) error }) (*api.OperateLog, error) {
	var l api.OperateLog
	err := row.Scan(
		&l.ID,
		&l.UserID,
		&l.OperateType,
		&l.OperateModule,
		&l.OperateContent,
		&l.OperateIP,
		&l.OperateTime,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *OperateLogStore) Insert(ctx context.Context, entry *api.OperateLog) error {
	start := time.Now()

	query := `
		INSERT INTO sys_operate_log (user_id, operate_type, operate_module, operate_content, operate_ip, operate_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	operateTime := entry.OperateTime
	if operateTime.IsZero() {
		operateTime = time.Now()
	}

	err := s.db.QueryRowContext(ctx, query,
		entry.UserID,
		entry.OperateType,
		entry.OperateModule,
		entry.OperateContent,
		entry.OperateIP,
		operateTime,
	).Scan(&entry.ID)

	observe(s.metrics, "operate_log", "insert", start, err)
	if err != nil {
		return fmt.Errorf("failed to insert operate log: %w", err)
	}
	entry.OperateTime = operateTime
	return nil
}

func (s *OperateLogStore) Search(ctx context.Context, filter api.OperateLogFilter, page api.PageRequest) ([]*api.OperateLog, int64, error) {
	start := time.Now()

	var predicates []string
	var args []interface{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		predicates = append(predicates, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.OperateType != "" {
		args = append(args, filter.OperateType)
		predicates = append(predicates, fmt.Sprintf("operate_type = $%d", len(args)))
	}
	if filter.OperateModule != "" {
		args = append(args, filter.OperateModule)
		predicates = append(predicates, fmt.Sprintf("operate_module = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		predicates = append(predicates, fmt.Sprintf("operate_time >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		predicates = append(predicates, fmt.Sprintf("operate_time <= $%d", len(args)))
	}

	where := whereClause(predicates)

	var total int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sys_operate_log"+where, args...).Scan(&total)
	if err != nil {
		observe(s.metrics, "operate_log", "search", start, err)
		return nil, 0, fmt.Errorf("failed to count operate logs: %w", err)
	}

	args = append(args, page.Limit(), page.Offset())
	query := fmt.Sprintf(
		"SELECT %s FROM sys_operate_log%s ORDER BY operate_time DESC LIMIT $%d OFFSET $%d",
		operateLogColumns, where, len(args)-1, len(args),
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		observe(s.metrics, "operate_log", "search", start, err)
		return nil, 0, fmt.Errorf("failed to search operate logs: %w", err)
	}
	defer rows.Close()

	var entries []*api.OperateLog
	for rows.Next() {
		entry, err := scanOperateLog(rows)
		if err != nil {
			observe(s.metrics, "operate_log", "search", start, err)
			return nil, 0, fmt.Errorf("failed to scan operate log: %w", err)
		}
		entries = append(entries, entry)
	}
	err = rows.Err()
	observe(s.metrics, "operate_log", "search", start, err)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to iterate operate logs: %w", err)
	}

	return entries, total, nil
}

func (s *OperateLogStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	start := time.Now()

	result, err := s.db.ExecContext(ctx, "DELETE FROM sys_operate_log WHERE operate_time < $1", cutoff)
	observe(s.metrics, "operate_log", "delete_before", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to trim operate logs: %w", err)
	}
	return result.RowsAffected()
}

var _ api.OperateLogStore = (*OperateLogStore)(nil)
