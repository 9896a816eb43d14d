package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/farmops/agrifleet/pkg/api"
	"github.com/farmops/agrifleet/pkg/observability"
)

// FarmlandStore implements api.FarmlandStore on PostgreSQL.
type FarmlandStore struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewFarmlandStore wraps the shared database pool.
func NewFarmlandStore(db *sql.DB, metrics *observability.Metrics) *FarmlandStore {
	return &FarmlandStore{db: db, metrics: metrics}
}

const farmlandColumns = "id, land_code, name, area, location, remark, create_time, update_time"

func scanFarmland(row interface{ Scan(...interface{}) error }) (*api.Farmland, error) {
	var f api.Farmland
	err := row.Scan(
		&f.ID,
		&f.LandCode,
		&f.Name,
		&f.Area,
		&f.Location,
		&f.Remark,
		&f.CreateTime,
		&f.UpdateTime,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *FarmlandStore) Create(ctx context.Context, farmland *api.Farmland) error {
	start := time.Now()

	query := `
		INSERT INTO farmland (land_code, name, area, location, remark, create_time, update_time)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, create_time, update_time
	`

	err := s.db.QueryRowContext(ctx, query,
		farmland.LandCode,
		farmland.Name,
		farmland.Area,
		farmland.Location,
		farmland.Remark,
	).Scan(&farmland.ID, &farmland.CreateTime, &farmland.UpdateTime)

	observe(s.metrics, "farmland", "create", start, err)
	if err != nil {
		return fmt.Errorf("failed to create farmland: %w", err)
	}
	return nil
}

func (s *FarmlandStore) Update(ctx context.Context, farmland *api.Farmland) error {
	start := time.Now()

	query := `
		UPDATE farmland
		SET name = $1, area = $2, location = $3, remark = $4, update_time = NOW()
		WHERE id = $5
	`

	result, err := s.db.ExecContext(ctx, query,
		farmland.Name,
		farmland.Area,
		farmland.Location,
		farmland.Remark,
		farmland.ID,
	)
	observe(s.metrics, "farmland", "update", start, err)
	if err != nil {
		return fmt.Errorf("failed to update farmland: %w", err)
	}
	return requireRowAffected(result)
}

func (s *FarmlandStore) Delete(ctx context.Context, id int64) error {
	start := time.Now()

	result, err := s.db.ExecContext(ctx, "DELETE FROM farmland WHERE id = $1", id)
	observe(s.metrics, "farmland", "delete", start, err)
	if err != nil {
		return fmt.Errorf("failed to delete farmland: %w", err)
	}
	return requireRowAffected(result)
}

func (s *FarmlandStore) GetByID(ctx context.Context, id int64) (*api.Farmland, error) {
	start := time.Now()

	query := "SELECT " + farmlandColumns + " FROM farmland WHERE id = $1"
	farmland, err := scanFarmland(s.db.QueryRowContext(ctx, query, id))
	observe(s.metrics, "farmland", "get", start, err)

	if err == sql.ErrNoRows {
		return nil, api.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get farmland: %w", err)
	}
	return farmland, nil
}

func (s *FarmlandStore) GetByCode(ctx context.Context, landCode string) (*api.Farmland, error) {
	start := time.Now()

	query := "SELECT " + farmlandColumns + " FROM farmland WHERE land_code = $1"
	farmland, err := scanFarmland(s.db.QueryRowContext(ctx, query, landCode))
	observe(s.metrics, "farmland", "get_by_code", start, err)

	if err == sql.ErrNoRows {
		return nil, api.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get farmland by code: %w", err)
	}
	return farmland, nil
}

func (s *FarmlandStore) Search(ctx context.Context, filter api.FarmlandFilter, page api.PageRequest) ([]*api.Farmland, int64, error) {
	start := time.Now()

	var predicates []string
	var args []interface{}

	if filter.LandCode != "" {
		args = append(args, likePattern(filter.LandCode))
		predicates = append(predicates, fmt.Sprintf("land_code ILIKE $%d", len(args)))
	}
	if filter.Name != "" {
		args = append(args, likePattern(filter.Name))
		predicates = append(predicates, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if filter.Location != "" {
		args = append(args, likePattern(filter.Location))
		predicates = append(predicates, fmt.Sprintf("location ILIKE $%d", len(args)))
	}

	where := whereClause(predicates)

	var total int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM farmland"+where, args...).Scan(&total)
	if err != nil {
		observe(s.metrics, "farmland", "search", start, err)
		return nil, 0, fmt.Errorf("failed to count farmland: %w", err)
	}

	args = append(args, page.Limit(), page.Offset())
	query := fmt.Sprintf(
		"SELECT %s FROM farmland%s ORDER BY create_time DESC LIMIT $%d OFFSET $%d",
		farmlandColumns, where, len(args)-1, len(args),
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		observe(s.metrics, "farmland", "search", start, err)
		return nil, 0, fmt.Errorf("failed to search farmland: %w", err)
	}
	defer rows.Close()

	var plots []*api.Farmland
	for rows.Next() {
		farmland, err := scanFarmland(rows)
		if err != nil {
			observe(s.metrics, "farmland", "search", start, err)
			return nil, 0, fmt.Errorf("failed to scan farmland: %w", err)
		}
		plots = append(plots, farmland)
	}
	err = rows.Err()
	observe(s.metrics, "farmland", "search", start, err)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to iterate farmland: %w", err)
	}

	return plots, total, nil
}
