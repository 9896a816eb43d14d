package api

import (
	"net/http"
	"time"

	"github.com/farmops/agrifleet/pkg/httputil"
)

// OperationTaskRequest is the create/update payload for a field job.
type OperationTaskRequest struct {
	TaskCode          string     `json:"taskCode" validate:"required"`
	MachineryID       int64      `json:"machineryId" validate:"required,gt=0"`
	FarmlandID        int64      `json:"farmlandId" validate:"required,gt=0"`
	OperationType     string     `json:"operationType" validate:"required"`
	PlanStartTime     time.Time  `json:"planStartTime" validate:"required"`
	PlanEndTime       time.Time  `json:"planEndTime" validate:"required"`
	PlanQuantity      float64    `json:"planQuantity" validate:"gt=0"`
	ActualStartTime   *time.Time `json:"actualStartTime"`
	ActualEndTime     *time.Time `json:"actualEndTime"`
	ActualQuantity    *float64   `json:"actualQuantity"`
	FuelConsumption   *float64   `json:"fuelConsumption"`
	ResponsibleUserID *int64     `json:"responsibleUserId"`
	Remark            string     `json:"remark"`
}

func (s *Server) handleTaskCreate(w http.ResponseWriter, r *http.Request) {
	var req OperationTaskRequest
	if !httputil.ParseAndValidate(w, r, &req) {
		return
	}
	if !req.PlanEndTime.After(req.PlanStartTime) {
		httputil.WriteBadRequest(w, "计划结束时间必须晚于开始时间")
		return
	}
	ctx := r.Context()

	if _, err := s.stores.OperationTasks.GetByCode(ctx, req.TaskCode); err == nil {
		httputil.WriteBadRequest(w, "任务编码已存在")
		return
	} else if err != ErrNotFound {
		httputil.WriteInternalError(w, err)
		return
	}
	if _, err := s.stores.Machinery.GetByID(ctx, req.MachineryID); err == ErrNotFound {
		httputil.WriteBadRequest(w, "农机不存在")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if _, err := s.stores.Farmland.GetByID(ctx, req.FarmlandID); err == ErrNotFound {
		httputil.WriteBadRequest(w, "地块不存在")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	ident, _ := GetIdentity(ctx)

	task := &OperationTask{
		TaskCode:          req.TaskCode,
		MachineryID:       req.MachineryID,
		FarmlandID:        req.FarmlandID,
		OperationType:     req.OperationType,
		PlanStartTime:     req.PlanStartTime,
		PlanEndTime:       req.PlanEndTime,
		PlanQuantity:      req.PlanQuantity,
		ActualStartTime:   req.ActualStartTime,
		ActualEndTime:     req.ActualEndTime,
		ActualQuantity:    req.ActualQuantity,
		FuelConsumption:   req.FuelConsumption,
		Status:            TaskStatusPending,
		ResponsibleUserID: req.ResponsibleUserID,
		Remark:            req.Remark,
		CreateUserID:      ident.User.ID,
	}
	if err := s.stores.OperationTasks.Create(ctx, task); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, task)
}

func (s *Server) handleTaskUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req OperationTaskRequest
	if !httputil.ParseAndValidate(w, r, &req) {
		return
	}
	if !req.PlanEndTime.After(req.PlanStartTime) {
		httputil.WriteBadRequest(w, "计划结束时间必须晚于开始时间")
		return
	}
	ctx := r.Context()

	task, err := s.stores.OperationTasks.GetByID(ctx, id)
	if err == ErrNotFound {
		httputil.WriteNotFound(w, "任务不存在")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if task.Status == TaskStatusCompleted || task.Status == TaskStatusCancelled {
		httputil.WriteBadRequest(w, "已完成或已取消的任务不可修改")
		return
	}

	task.MachineryID = req.MachineryID
	task.FarmlandID = req.FarmlandID
	task.OperationType = req.OperationType
	task.PlanStartTime = req.PlanStartTime
	task.PlanEndTime = req.PlanEndTime
	task.PlanQuantity = req.PlanQuantity
	task.ActualStartTime = req.ActualStartTime
	task.ActualEndTime = req.ActualEndTime
	task.ActualQuantity = req.ActualQuantity
	task.FuelConsumption = req.FuelConsumption
	task.ResponsibleUserID = req.ResponsibleUserID
	task.Remark = req.Remark

	if err := s.stores.OperationTasks.Update(ctx, task); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, task)
}

func (s *Server) handleTaskDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	ctx := r.Context()

	task, err := s.stores.OperationTasks.GetByID(ctx, id)
	if err == ErrNotFound {
		httputil.WriteNotFound(w, "任务不存在")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if task.Status == TaskStatusRunning {
		httputil.WriteBadRequest(w, "执行中的任务不可删除")
		return
	}

	if err := s.stores.OperationTasks.Delete(ctx, id); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, nil)
}

func (s *Server) handleTaskGet(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	task, err := s.stores.OperationTasks.GetByID(r.Context(), id)
	if err == ErrNotFound {
		httputil.WriteNotFound(w, "任务不存在")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, task)
}

func (s *Server) handleTaskPage(w http.ResponseWriter, r *http.Request) {
	pageNum, pageSize := httputil.ParsePage(r)
	filter := OperationTaskFilter{
		TaskCode:      httputil.ParseQueryString(r, "taskCode", ""),
		OperationType: httputil.ParseQueryString(r, "operationType", ""),
	}
	if v, err := httputil.ParseQueryInt64(r, "machineryId", 0); err == nil && v > 0 {
		filter.MachineryID = &v
	}
	if v, err := httputil.ParseQueryInt64(r, "farmlandId", 0); err == nil && v > 0 {
		filter.FarmlandID = &v
	}
	if v, err := httputil.ParseQueryInt(r, "status", 0); err == nil && v > 0 {
		filter.Status = &v
	}

	page := PageRequest{Num: pageNum, Size: pageSize}
	tasks, total, err := s.stores.OperationTasks.Search(r.Context(), filter, page)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, NewPage(tasks, total, page))
}

// TaskStatusRequest moves a task through its lifecycle.
type TaskStatusRequest struct {
	Status int `json:"status" validate:"required"`
}

// taskTransitions holds the allowed status moves: pending can start or be
// cancelled, running can complete or be cancelled. Completed and
// cancelled are terminal.
var taskTransitions = map[int][]int{
	TaskStatusPending: {TaskStatusRunning, TaskStatusCancelled},
	TaskStatusRunning: {TaskStatusCompleted, TaskStatusCancelled},
}

func taskTransitionAllowed(from, to int) bool {
	for _, allowed := range taskTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req TaskStatusRequest
	if !httputil.ParseAndValidate(w, r, &req) {
		return
	}
	ctx := r.Context()

	task, err := s.stores.OperationTasks.GetByID(ctx, id)
	if err == ErrNotFound {
		httputil.WriteNotFound(w, "任务不存在")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	if !taskTransitionAllowed(task.Status, req.Status) {
		httputil.WriteBadRequest(w, "无效的任务状态流转")
		return
	}

	if err := s.stores.OperationTasks.UpdateStatus(ctx, id, req.Status); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, nil)
}
