package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/farmops/agrifleet/pkg/api"
	"github.com/farmops/agrifleet/pkg/observability"
)

// OperationTaskStore implements api.OperationTaskStore on PostgreSQL.
type OperationTaskStore struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewOperationTaskStore wraps the shared database pool.
func NewOperationTaskStore(db *sql.DB, metrics *observability.Metrics) *OperationTaskStore {
	return &OperationTaskStore{db: db, metrics: metrics}
}

const taskColumns = "id, task_code, machinery_id, farmland_id, operation_type, plan_start_time, plan_end_time, plan_quantity, actual_start_time, actual_end_time, actual_quantity, fuel_consumption, status, responsible_user_id, remark, create_user_id, create_time, update_time"

func scanTask(row interface{ Scan(...interface{}) error }) (*api.OperationTask, error) {
	var t api.OperationTask
	err := row.Scan(
		&t.ID,
		&t.TaskCode,
		&t.MachineryID,
		&t.FarmlandID,
		&t.OperationType,
		&t.PlanStartTime,
		&t.PlanEndTime,
		&t.PlanQuantity,
		&t.ActualStartTime,
		&t.ActualEndTime,
		&t.ActualQuantity,
		&t.FuelConsumption,
		&t.Status,
		&t.ResponsibleUserID,
		&t.Remark,
		&t.CreateUserID,
		&t.CreateTime,
		&t.UpdateTime,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *OperationTaskStore) Create(ctx context.Context, task *api.OperationTask) error {
	start := time.Now()

	query := `
		INSERT INTO operation_task (task_code, machinery_id, farmland_id, operation_type, plan_start_time, plan_end_time, plan_quantity, actual_start_time, actual_end_time, actual_quantity, fuel_consumption, status, responsible_user_id, remark, create_user_id, create_time, update_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
		RETURNING id, create_time, update_time
	`

	err := s.db.QueryRowContext(ctx, query,
		task.TaskCode,
		task.MachineryID,
		task.FarmlandID,
		task.OperationType,
		task.PlanStartTime,
		task.PlanEndTime,
		task.PlanQuantity,
		task.ActualStartTime,
		task.ActualEndTime,
		task.ActualQuantity,
		task.FuelConsumption,
		task.Status,
		task.ResponsibleUserID,
		task.Remark,
		task.CreateUserID,
	).Scan(&task.ID, &task.CreateTime, &task.UpdateTime)

	observe(s.metrics, "operation_task", "create", start, err)
	if err != nil {
		return fmt.Errorf("failed to create operation task: %w", err)
	}
	return nil
}

func (s *OperationTaskStore) Update(ctx context.Context, task *api.OperationTask) error {
	start := time.Now()

	query := `
		UPDATE operation_task
		SET machinery_id = $1, farmland_id = $2, operation_type = $3, plan_start_time = $4, plan_end_time = $5, plan_quantity = $6, actual_start_time = $7, actual_end_time = $8, actual_quantity = $9, fuel_consumption = $10, status = $11, responsible_user_id = $12, remark = $13, update_time = NOW()
		WHERE id = $14
	`

	result, err := s.db.ExecContext(ctx, query,
		task.MachineryID,
		task.FarmlandID,
		task.OperationType,
		task.PlanStartTime,
		task.PlanEndTime,
		task.PlanQuantity,
		task.ActualStartTime,
		task.ActualEndTime,
		task.ActualQuantity,
		task.FuelConsumption,
		task.Status,
		task.ResponsibleUserID,
		task.Remark,
		task.ID,
	)
	observe(s.metrics, "operation_task", "update", start, err)
	if err != nil {
		return fmt.Errorf("failed to update operation task: %w", err)
	}
	return requireRowAffected(result)
}

func (s *OperationTaskStore) Delete(ctx context.Context, id int64) error {
	start := time.Now()

	result, err := s.db.ExecContext(ctx, "DELETE FROM operation_task WHERE id = $1", id)
	observe(s.metrics, "operation_task", "delete", start, err)
	if err != nil {
		return fmt.Errorf("failed to delete operation task: %w", err)
	}
	return requireRowAffected(result)
}

func (s *OperationTaskStore) GetByID(ctx context.Context, id int64) (*api.OperationTask, error) {
	start := time.Now()

	query := "SELECT " + taskColumns + " FROM operation_task WHERE id = $1"
	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	observe(s.metrics, "operation_task", "get", start, err)

	if err == sql.ErrNoRows {
		return nil, api.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get operation task: %w", err)
	}
	return task, nil
}

func (s *OperationTaskStore) GetByCode(ctx context.Context, taskCode string) (*api.OperationTask, error) {
	start := time.Now()

	query := "SELECT " + taskColumns + " FROM operation_task WHERE task_code = $1"
	task, err := scanTask(s.db.QueryRowContext(ctx, query, taskCode))
	observe(s.metrics, "operation_task", "get_by_code", start, err)

	if err == sql.ErrNoRows {
		return nil, api.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get operation task by code: %w", err)
	}
	return task, nil
}

func (s *OperationTaskStore) Search(ctx context.Context, filter api.OperationTaskFilter, page api.PageRequest) ([]*api.OperationTask, int64, error) {
	start := time.Now()

	var predicates []string
	var args []interface{}

	if filter.TaskCode != "" {
		args = append(args, likePattern(filter.TaskCode))
		predicates = append(predicates, fmt.Sprintf("task_code ILIKE $%d", len(args)))
	}
	if filter.MachineryID != nil {
		args = append(args, *filter.MachineryID)
		predicates = append(predicates, fmt.Sprintf("machinery_id = $%d", len(args)))
	}
	if filter.FarmlandID != nil {
		args = append(args, *filter.FarmlandID)
		predicates = append(predicates, fmt.Sprintf("farmland_id = $%d", len(args)))
	}
	if filter.OperationType != "" {
		args = append(args, filter.OperationType)
		predicates = append(predicates, fmt.Sprintf("operation_type = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		predicates = append(predicates, fmt.Sprintf("status = $%d", len(args)))
	}

	where := whereClause(predicates)

	var total int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM operation_task"+where, args...).Scan(&total)
	if err != nil {
		observe(s.metrics, "operation_task", "search", start, err)
		return nil, 0, fmt.Errorf("failed to count operation tasks: %w", err)
	}

	args = append(args, page.Limit(), page.Offset())
	query := fmt.Sprintf(
		"SELECT %s FROM operation_task%s ORDER BY create_time DESC LIMIT $%d OFFSET $%d",
		taskColumns, where, len(args)-1, len(args),
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		observe(s.metrics, "operation_task", "search", start, err)
		return nil, 0, fmt.Errorf("failed to search operation tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*api.OperationTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			observe(s.metrics, "operation_task", "search", start, err)
			return nil, 0, fmt.Errorf("failed to scan operation task: %w", err)
		}
		tasks = append(tasks, task)
	}
	err = rows.Err()
	observe(s.metrics, "operation_task", "search", start, err)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to iterate operation tasks: %w", err)
	}

	return tasks, total, nil
}

func (s *OperationTaskStore) UpdateStatus(ctx context.Context, id int64, status int) error {
	start := time.Now()

	result, err := s.db.ExecContext(ctx,
		"UPDATE operation_task SET status = $1, update_time = NOW() WHERE id = $2",
		status, id,
	)
	observe(s.metrics, "operation_task", "update_status", start, err)
	if err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}
	return requireRowAffected(result)
}
