package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/farmops/agrifleet/pkg/api"
	"github.com/farmops/agrifleet/pkg/observability"
)

// DictStore implements api.DictStore on PostgreSQL.
type DictStore struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewDictStore wraps the shared database pool.
func NewDictStore(db *sql.DB, metrics *observability.Metrics) *DictStore {
	return &DictStore{db: db, metrics: metrics}
}

const dictColumns = "id, type, code, name, sort, remark, create_time"

func scanDict(row interface{ Scan(...interface{}) error }) (*api.Dict, error) {
	var d api.Dict
	err := row.Scan(
		&d.ID,
		&d.Type,
		&d.Code,
		&d.Name,
		&d.Sort,
		&d.Remark,
		&d.CreateTime,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *DictStore) Create(ctx context.Context, dict *api.Dict) error {
	start := time.Now()

	query := `
		INSERT INTO sys_dict (type, code, name, sort, remark, create_time)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, create_time
	`

	err := s.db.QueryRowContext(ctx, query,
		dict.Type,
		dict.Code,
		dict.Name,
		dict.Sort,
		dict.Remark,
	).Scan(&dict.ID, &dict.CreateTime)

	observe(s.metrics, "dict", "create", start, err)
	if err != nil {
		return fmt.Errorf("failed to create dict entry: %w", err)
	}
	return nil
}

func (s *DictStore) Update(ctx context.Context, dict *api.Dict) error {
	start := time.Now()

	query := `
		UPDATE sys_dict
		SET name = $1, sort = $2, remark = $3
		WHERE id = $4
	`

	result, err := s.db.ExecContext(ctx, query,
		dict.Name,
		dict.Sort,
		dict.Remark,
		dict.ID,
	)
	observe(s.metrics, "dict", "update", start, err)
	if err != nil {
		return fmt.Errorf("failed to update dict entry: %w", err)
	}
	return requireRowAffected(result)
}

func (s *DictStore) Delete(ctx context.Context, id int64) error {
	start := time.Now()

	result, err := s.db.ExecContext(ctx, "DELETE FROM sys_dict WHERE id = $1", id)
	observe(s.metrics, "dict", "delete", start, err)
	if err != nil {
		return fmt.Errorf("failed to delete dict entry: %w", err)
	}
	return requireRowAffected(result)
}

func (s *DictStore) GetByID(ctx context.Context, id int64) (*api.Dict, error) {
	start := time.Now()

	query := "SELECT " + dictColumns + " FROM sys_dict WHERE id = $1"
	dict, err := scanDict(s.db.QueryRowContext(ctx, query, id))
	observe(s.metrics, "dict", "get", start, err)

	if err == sql.ErrNoRows {
		return nil, api.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get dict entry: %w", err)
	}
	return dict, nil
}

func (s *DictStore) GetByTypeAndCode(ctx context.Context, dictType, code string) (*api.Dict, error) {
	start := time.Now()

	query := "SELECT " + dictColumns + " FROM sys_dict WHERE type = $1 AND code = $2"
	dict, err := scanDict(s.db.QueryRowContext(ctx, query, dictType, code))
	observe(s.metrics, "dict", "get_by_type_code", start, err)

	if err == sql.ErrNoRows {
		return nil, api.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get dict entry by code: %w", err)
	}
	return dict, nil
}

func (s *DictStore) ListByType(ctx context.Context, dictType string) ([]*api.Dict, error) {
	start := time.Now()

	query := "SELECT " + dictColumns + " FROM sys_dict WHERE type = $1 ORDER BY sort ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, dictType)
	if err != nil {
		observe(s.metrics, "dict", "list_by_type", start, err)
		return nil, fmt.Errorf("failed to list dict entries: %w", err)
	}
	defer rows.Close()

	var entries []*api.Dict
	for rows.Next() {
		dict, err := scanDict(rows)
		if err != nil {
			observe(s.metrics, "dict", "list_by_type", start, err)
			return nil, fmt.Errorf("failed to scan dict entry: %w", err)
		}
		entries = append(entries, dict)
	}
	err = rows.Err()
	observe(s.metrics, "dict", "list_by_type", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate dict entries: %w", err)
	}

	return entries, nil
}

func (s *DictStore) Search(ctx context.Context, filter api.DictFilter, page api.PageRequest) ([]*api.Dict, int64, error) {
	start := time.Now()

	var predicates []string
	var args []interface{}

	if filter.Type != "" {
		args = append(args, filter.Type)
		predicates = append(predicates, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.Name != "" {
		args = append(args, likePattern(filter.Name))
		predicates = append(predicates, fmt.Sprintf("name ILIKE $%d", len(args)))
	}

	where := whereClause(predicates)

	var total int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sys_dict"+where, args...).Scan(&total)
	if err != nil {
		observe(s.metrics, "dict", "search", start, err)
		return nil, 0, fmt.Errorf("failed to count dict entries: %w", err)
	}

	args = append(args, page.Limit(), page.Offset())
	query := fmt.Sprintf(
		"SELECT %s FROM sys_dict%s ORDER BY type ASC, sort ASC LIMIT $%d OFFSET $%d",
		dictColumns, where, len(args)-1, len(args),
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		observe(s.metrics, "dict", "search", start, err)
		return nil, 0, fmt.Errorf("failed to search dict entries: %w", err)
	}
	defer rows.Close()

	var entries []*api.Dict
	for rows.Next() {
		dict, err := scanDict(rows)
		if err != nil {
			observe(s.metrics, "dict", "search", start, err)
			return nil, 0, fmt.Errorf("failed to scan dict entry: %w", err)
		}
		entries = append(entries, dict)
	}
	err = rows.Err()
	observe(s.metrics, "dict", "search", start, err)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to iterate dict entries: %w", err)
	}

	return entries, total, nil
}
