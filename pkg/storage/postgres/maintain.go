package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/farmops/agrifleet/pkg/api"
	"github.com/farmops/agrifleet/pkg/observability"
)

// MaintainRecordStore implements api.MaintainRecordStore on PostgreSQL.
type MaintainRecordStore struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewMaintainRecordStore wraps the shared database pool.
func NewMaintainRecordStore(db *sql.DB, metrics *observability.Metrics) *MaintainRecordStore {
	return &MaintainRecordStore{db: db, metrics: metrics}
}

const maintainColumns = "id, machinery_id, maintain_type, maintain_time, parts, cost, maintainer, next_maintain_time, next_maintain_cycle, description, create_user_id, create_time, update_time"

func scanMaintainRecord(row interface{ Scan(...interface{}) error }) (*api.MaintainRecord, error) {
	var r api.MaintainRecord
	err := row.Scan(
		&r.ID,
		&r.MachineryID,
		&r.MaintainType,
		&r.MaintainTime,
		&r.Parts,
		&r.Cost,
		&r.Maintainer,
		&r.NextMaintainTime,
		&r.NextMaintainCycle,
		&r.Description,
		&r.CreateUserID,
		&r.CreateTime,
		&r.UpdateTime,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *MaintainRecordStore) Create(ctx context.Context, record *api.MaintainRecord) error {
	start := time.Now()

	query := `
		INSERT INTO maintain_record (machinery_id, maintain_type, maintain_time, parts, cost, maintainer, next_maintain_time, next_maintain_cycle, description, create_user_id, create_time, update_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id, create_time, update_time
	`

	err := s.db.QueryRowContext(ctx, query,
		record.MachineryID,
		record.MaintainType,
		record.MaintainTime,
		record.Parts,
		record.Cost,
		record.Maintainer,
		record.NextMaintainTime,
		record.NextMaintainCycle,
		record.Description,
		record.CreateUserID,
	).Scan(&record.ID, &record.CreateTime, &record.UpdateTime)

	observe(s.metrics, "maintain_record", "create", start, err)
	if err != nil {
		return fmt.Errorf("failed to create maintain record: %w", err)
	}
	return nil
}

func (s *MaintainRecordStore) Update(ctx context.Context, record *api.MaintainRecord) error {
	start := time.Now()

	query := `
		UPDATE maintain_record
		SET maintain_type = $1, maintain_time = $2, parts = $3, cost = $4, maintainer = $5, next_maintain_time = $6, next_maintain_cycle = $7, description = $8, update_time = NOW()
		WHERE id = $9
	`

	result, err := s.db.ExecContext(ctx, query,
		record.MaintainType,
		record.MaintainTime,
		record.Parts,
		record.Cost,
		record.Maintainer,
		record.NextMaintainTime,
		record.NextMaintainCycle,
		record.Description,
		record.ID,
	)
	observe(s.metrics, "maintain_record", "update", start, err)
	if err != nil {
		return fmt.Errorf("failed to update maintain record: %w", err)
	}
	return requireRowAffected(result)
}

func (s *MaintainRecordStore) Delete(ctx context.Context, id int64) error {
	start := time.Now()

	result, err := s.db.ExecContext(ctx, "DELETE FROM maintain_record WHERE id = $1", id)
	observe(s.metrics, "maintain_record", "delete", start, err)
	if err != nil {
		return fmt.Errorf("failed to delete maintain record: %w", err)
	}
	return requireRowAffected(result)
}

func (s *MaintainRecordStore) GetByID(ctx context.Context, id int64) (*api.MaintainRecord, error) {
	start := time.Now()

	query := "SELECT " + maintainColumns + " FROM maintain_record WHERE id = $1"
	record, err := scanMaintainRecord(s.db.QueryRowContext(ctx, query, id))
	observe(s.metrics, "maintain_record", "get", start, err)

	if err == sql.ErrNoRows {
		return nil, api.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get maintain record: %w", err)
	}
	return record, nil
}

func (s *MaintainRecordStore) Search(ctx context.Context, filter api.MaintainRecordFilter, page api.PageRequest) ([]*api.MaintainRecord, int64, error) {
	start := time.Now()

	var predicates []string
	var args []interface{}

	if filter.MachineryID != nil {
		args = append(args, *filter.MachineryID)
		predicates = append(predicates, fmt.Sprintf("machinery_id = $%d", len(args)))
	}
	if filter.MaintainType != "" {
		args = append(args, filter.MaintainType)
		predicates = append(predicates, fmt.Sprintf("maintain_type = $%d", len(args)))
	}
	if filter.Maintainer != "" {
		args = append(args, likePattern(filter.Maintainer))
		predicates = append(predicates, fmt.Sprintf("maintainer ILIKE $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		predicates = append(predicates, fmt.Sprintf("maintain_time >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		predicates = append(predicates, fmt.Sprintf("maintain_time <= $%d", len(args)))
	}

	where := whereClause(predicates)

	var total int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM maintain_record"+where, args...).Scan(&total)
	if err != nil {
		observe(s.metrics, "maintain_record", "search", start, err)
		return nil, 0, fmt.Errorf("failed to count maintain records: %w", err)
	}

	args = append(args, page.Limit(), page.Offset())
	query := fmt.Sprintf(
		"SELECT %s FROM maintain_record%s ORDER BY maintain_time DESC LIMIT $%d OFFSET $%d",
		maintainColumns, where, len(args)-1, len(args),
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		observe(s.metrics, "maintain_record", "search", start, err)
		return nil, 0, fmt.Errorf("failed to search maintain records: %w", err)
	}
	defer rows.Close()

	var records []*api.MaintainRecord
	for rows.Next() {
		record, err := scanMaintainRecord(rows)
		if err != nil {
			observe(s.metrics, "maintain_record", "search", start, err)
			return nil, 0, fmt.Errorf("failed to scan maintain record: %w", err)
		}
		records = append(records, record)
	}
	err = rows.Err()
	observe(s.metrics, "maintain_record", "search", start, err)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to iterate maintain records: %w", err)
	}

	return records, total, nil
}

// ListDue keeps only the newest record per machine so one overdue machine
// produces one reminder, not one per historical record.
func (s *MaintainRecordStore) ListDue(ctx context.Context, on time.Time) ([]*api.MaintainRecord, error) {
	start := time.Now()

	query := `
		SELECT DISTINCT ON (machinery_id) ` + maintainColumns + `
		FROM maintain_record
		WHERE next_maintain_time IS NOT NULL AND next_maintain_time <= $1
		ORDER BY machinery_id, maintain_time DESC
	`

	rows, err := s.db.QueryContext(ctx, query, on)
	if err != nil {
		observe(s.metrics, "maintain_record", "list_due", start, err)
		return nil, fmt.Errorf("failed to list due maintain records: %w", err)
	}
	defer rows.Close()

	var records []*api.MaintainRecord
	for rows.Next() {
		record, err := scanMaintainRecord(rows)
		if err != nil {
			observe(s.metrics, "maintain_record", "list_due", start, err)
			return nil, fmt.Errorf("failed to scan due maintain record: %w", err)
		}
		records = append(records, record)
	}
	err = rows.Err()
	observe(s.metrics, "maintain_record", "list_due", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate due maintain records: %w", err)
	}

	return records, nil
}
