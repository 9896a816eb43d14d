package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/farmops/agrifleet/pkg/api"
	"github.com/farmops/agrifleet/pkg/observability"
)

// MachineryStore implements api.MachineryStore on PostgreSQL.
type MachineryStore struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewMachineryStore wraps the shared database pool.
func NewMachineryStore(db *sql.DB, metrics *observability.Metrics) *MachineryStore {
	return &MachineryStore{db: db, metrics: metrics}
}

const machineryColumns = "id, machinery_code, type_code, brand, model, factory_number, buy_date, power, department, responsible_user_id, status, photo_url, remark, create_time, update_time"

func scanMachinery(row interface{ Scan(...interface{}) error }) (*api.Machinery, error) {
	var m api.Machinery
	err := row.Scan(
		&m.ID,
		&m.MachineryCode,
		&m.TypeCode,
		&m.Brand,
		&m.Model,
		&m.FactoryNumber,
		&m.BuyDate,
		&m.Power,
		&m.Department,
		&m.ResponsibleUserID,
		&m.Status,
		&m.PhotoURL,
		&m.Remark,
		&m.CreateTime,
		&m.UpdateTime,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *MachineryStore) Create(ctx context.Context, machinery *api.Machinery) error {
	start := time.Now()

	query := `
		INSERT INTO machinery (machinery_code, type_code, brand, model, factory_number, buy_date, power, department, responsible_user_id, status, photo_url, remark, create_time, update_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		RETURNING id, create_time, update_time
	`

	err := s.db.QueryRowContext(ctx, query,
		machinery.MachineryCode,
		machinery.TypeCode,
		machinery.Brand,
		machinery.Model,
		machinery.FactoryNumber,
		machinery.BuyDate,
		machinery.Power,
		machinery.Department,
		machinery.ResponsibleUserID,
		machinery.Status,
		machinery.PhotoURL,
		machinery.Remark,
	).Scan(&machinery.ID, &machinery.CreateTime, &machinery.UpdateTime)

	observe(s.metrics, "machinery", "create", start, err)
	if err != nil {
		return fmt.Errorf("failed to create machinery: %w", err)
	}
	return nil
}

func (s *MachineryStore) Update(ctx context.Context, machinery *api.Machinery) error {
	start := time.Now()

	query := `
		UPDATE machinery
		SET type_code = $1, brand = $2, model = $3, factory_number = $4, buy_date = $5, power = $6, department = $7, responsible_user_id = $8, status = $9, photo_url = $10, remark = $11, update_time = NOW()
		WHERE id = $12
	`

	result, err := s.db.ExecContext(ctx, query,
		machinery.TypeCode,
		machinery.Brand,
		machinery.Model,
		machinery.FactoryNumber,
		machinery.BuyDate,
		machinery.Power,
		machinery.Department,
		machinery.ResponsibleUserID,
		machinery.Status,
		machinery.PhotoURL,
		machinery.Remark,
		machinery.ID,
	)
	observe(s.metrics, "machinery", "update", start, err)
	if err != nil {
		return fmt.Errorf("failed to update machinery: %w", err)
	}
	return requireRowAffected(result)
}

func (s *MachineryStore) Delete(ctx context.Context, id int64) error {
	start := time.Now()

	result, err := s.db.ExecContext(ctx, "DELETE FROM machinery WHERE id = $1", id)
	observe(s.metrics, "machinery", "delete", start, err)
	if err != nil {
		return fmt.Errorf("failed to delete machinery: %w", err)
	}
	return requireRowAffected(result)
}

func (s *MachineryStore) GetByID(ctx context.Context, id int64) (*api.Machinery, error) {
	start := time.Now()

	query := "SELECT " + machineryColumns + " FROM machinery WHERE id = $1"
	machinery, err := scanMachinery(s.db.QueryRowContext(ctx, query, id))
	observe(s.metrics, "machinery", "get", start, err)

	if err == sql.ErrNoRows {
		return nil, api.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get machinery: %w", err)
	}
	return machinery, nil
}

func (s *MachineryStore) GetByCode(ctx context.Context, code string) (*api.Machinery, error) {
	start := time.Now()

	query := "SELECT " + machineryColumns + " FROM machinery WHERE machinery_code = $1"
	machinery, err := scanMachinery(s.db.QueryRowContext(ctx, query, code))
	observe(s.metrics, "machinery", "get_by_code", start, err)

	if err == sql.ErrNoRows {
		return nil, api.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get machinery by code: %w", err)
	}
	return machinery, nil
}

func (s *MachineryStore) Search(ctx context.Context, filter api.MachineryFilter, page api.PageRequest) ([]*api.Machinery, int64, error) {
	start := time.Now()

	var predicates []string
	var args []interface{}

	if filter.MachineryCode != "" {
		args = append(args, likePattern(filter.MachineryCode))
		predicates = append(predicates, fmt.Sprintf("machinery_code ILIKE $%d", len(args)))
	}
	if filter.TypeCode != "" {
		args = append(args, filter.TypeCode)
		predicates = append(predicates, fmt.Sprintf("type_code = $%d", len(args)))
	}
	if filter.Brand != "" {
		args = append(args, likePattern(filter.Brand))
		predicates = append(predicates, fmt.Sprintf("brand ILIKE $%d", len(args)))
	}
	if filter.Model != "" {
		args = append(args, likePattern(filter.Model))
		predicates = append(predicates, fmt.Sprintf("model ILIKE $%d", len(args)))
	}
	if filter.Department != "" {
		args = append(args, likePattern(filter.Department))
		predicates = append(predicates, fmt.Sprintf("department ILIKE $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		predicates = append(predicates, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.ResponsibleUserID != nil {
		args = append(args, *filter.ResponsibleUserID)
		predicates = append(predicates, fmt.Sprintf("responsible_user_id = $%d", len(args)))
	}

	where := whereClause(predicates)

	var total int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM machinery"+where, args...).Scan(&total)
	if err != nil {
		observe(s.metrics, "machinery", "search", start, err)
		return nil, 0, fmt.Errorf("failed to count machinery: %w", err)
	}

	args = append(args, page.Limit(), page.Offset())
	query := fmt.Sprintf(
		"SELECT %s FROM machinery%s ORDER BY create_time DESC LIMIT $%d OFFSET $%d",
		machineryColumns, where, len(args)-1, len(args),
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		observe(s.metrics, "machinery", "search", start, err)
		return nil, 0, fmt.Errorf("failed to search machinery: %w", err)
	}
	defer rows.Close()

	var machines []*api.Machinery
	for rows.Next() {
		machinery, err := scanMachinery(rows)
		if err != nil {
			observe(s.metrics, "machinery", "search", start, err)
			return nil, 0, fmt.Errorf("failed to scan machinery: %w", err)
		}
		machines = append(machines, machinery)
	}
	err = rows.Err()
	observe(s.metrics, "machinery", "search", start, err)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to iterate machinery: %w", err)
	}

	return machines, total, nil
}

func (s *MachineryStore) UpdateStatus(ctx context.Context, id int64, status string) error {
	start := time.Now()

	result, err := s.db.ExecContext(ctx,
		"UPDATE machinery SET status = $1, update_time = NOW() WHERE id = $2",
		status, id,
	)
	observe(s.metrics, "machinery", "update_status", start, err)
	if err != nil {
		return fmt.Errorf("failed to update machinery status: %w", err)
	}
	return requireRowAffected(result)
}
