package api

import (
	"net/http"
	"time"

	"github.com/farmops/agrifleet/pkg/httputil"
)

// MaintainRecordRequest is the create/update payload for a service record.
// When NextMaintainTime is absent but a cycle is given, the next due date
// is derived from the maintenance date plus the cycle.
type MaintainRecordRequest struct {
	MachineryID       int64      `json:"machineryId" validate:"required,gt=0"`
	MaintainType      string     `json:"maintainType" validate:"required"`
	MaintainTime      time.Time  `json:"maintainTime" validate:"required"`
	Parts             string     `json:"parts"`
	Cost              float64    `json:"cost" validate:"gte=0"`
	Maintainer        string     `json:"maintainer" validate:"required"`
	NextMaintainTime  *time.Time `json:"nextMaintainTime"`
	NextMaintainCycle *int       `json:"nextMaintainCycle"`
	Description       string     `json:"description"`
}

func (req *MaintainRecordRequest) nextDue() *time.Time {
	if req.NextMaintainTime != nil {
		return req.NextMaintainTime
	}
	if req.NextMaintainCycle != nil && *req.NextMaintainCycle > 0 {
		due := req.MaintainTime.AddDate(0, 0, *req.NextMaintainCycle)
		return &due
	}
	return nil
}

func (s *Server) handleMaintainCreate(w http.ResponseWriter, r *http.Request) {
	var req MaintainRecordRequest
	if !httputil.ParseAndValidate(w, r, &req) {
		return
	}
	ctx := r.Context()

	if _, err := s.stores.Machinery.GetByID(ctx, req.MachineryID); err == ErrNotFound {
		httputil.WriteBadRequest(w, "农机不存在")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	ident, _ := GetIdentity(ctx)

	record := &MaintainRecord{
		MachineryID:       req.MachineryID,
		MaintainType:      req.MaintainType,
		MaintainTime:      req.MaintainTime,
		Parts:             req.Parts,
		Cost:              req.Cost,
		Maintainer:        req.Maintainer,
		NextMaintainTime:  req.nextDue(),
		NextMaintainCycle: req.NextMaintainCycle,
		Description:       req.Description,
		CreateUserID:      ident.User.ID,
	}
	if err := s.stores.MaintainRecords.Create(ctx, record); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, record)
}

func (s *Server) handleMaintainUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req MaintainRecordRequest
	if !httputil.ParseAndValidate(w, r, &req) {
		return
	}
	ctx := r.Context()

	record, err := s.stores.MaintainRecords.GetByID(ctx, id)
	if err == ErrNotFound {
		httputil.WriteNotFound(w, "维护记录不存在")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	record.MaintainType = req.MaintainType
	record.MaintainTime = req.MaintainTime
	record.Parts = req.Parts
	record.Cost = req.Cost
	record.Maintainer = req.Maintainer
	record.NextMaintainTime = req.nextDue()
	record.NextMaintainCycle = req.NextMaintainCycle
	record.Description = req.Description

	if err := s.stores.MaintainRecords.Update(ctx, record); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, record)
}

func (s *Server) handleMaintainDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	err := s.stores.MaintainRecords.Delete(r.Context(), id)
	if err == ErrNotFound {
		httputil.WriteNotFound(w, "维护记录不存在")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, nil)
}

func (s *Server) handleMaintainGet(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	record, err := s.stores.MaintainRecords.GetByID(r.Context(), id)
	if err == ErrNotFound {
		httputil.WriteNotFound(w, "维护记录不存在")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, record)
}

func (s *Server) handleMaintainPage(w http.ResponseWriter, r *http.Request) {
	pageNum, pageSize := httputil.ParsePage(r)
	filter := MaintainRecordFilter{
		MaintainType: httputil.ParseQueryString(r, "maintainType", ""),
		Maintainer:   httputil.ParseQueryString(r, "maintainer", ""),
	}
	if v, err := httputil.ParseQueryInt64(r, "machineryId", 0); err == nil && v > 0 {
		filter.MachineryID = &v
	}
	if from := httputil.ParseQueryString(r, "from", ""); from != "" {
		if ts, err := time.Parse(time.RFC3339, from); err == nil {
			filter.From = &ts
		}
	}
	if to := httputil.ParseQueryString(r, "to", ""); to != "" {
		if ts, err := time.Parse(time.RFC3339, to); err == nil {
			filter.To = &ts
		}
	}

	page := PageRequest{Num: pageNum, Size: pageSize}
	records, total, err := s.stores.MaintainRecords.Search(r.Context(), filter, page)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, NewPage(records, total, page))
}
