package api

import (
	"net/http"
	"time"

	"github.com/farmops/agrifleet/pkg/httputil"
)

// MachineryRequest is the create/update payload for a machine.
type MachineryRequest struct {
	MachineryCode     string     `json:"machineryCode" validate:"required"`
	TypeCode          string     `json:"typeCode" validate:"required"`
	Brand             string     `json:"brand"`
	Model             string     `json:"model"`
	FactoryNumber     string     `json:"factoryNumber"`
	BuyDate           *time.Time `json:"buyDate"`
	Power             float64    `json:"power" validate:"gte=0"`
	Department        string     `json:"department"`
	ResponsibleUserID *int64     `json:"responsibleUserId"`
	Status            string     `json:"status" validate:"required"`
	PhotoURL          string     `json:"photoUrl"`
	Remark            string     `json:"remark"`
}

func (s *Server) handleMachineryCreate(w http.ResponseWriter, r *http.Request) {
	var req MachineryRequest
	if !httputil.ParseAndValidate(w, r, &req) {
		return
	}
	ctx := r.Context()

	if _, err := s.stores.Machinery.GetByCode(ctx, req.MachineryCode); err == nil {
		httputil.WriteBadRequest(w, "农机编号已存在")
		return
	} else if err != ErrNotFound {
		httputil.WriteInternalError(w, err)
		return
	}

	machinery := &Machinery{
		MachineryCode:     req.MachineryCode,
		TypeCode:          req.TypeCode,
		Brand:             req.Brand,
		Model:             req.Model,
		FactoryNumber:     req.FactoryNumber,
		BuyDate:           req.BuyDate,
		Power:             req.Power,
		Department:        req.Department,
		ResponsibleUserID: req.ResponsibleUserID,
		Status:            req.Status,
		PhotoURL:          req.PhotoURL,
		Remark:            req.Remark,
	}
	if err := s.stores.Machinery.Create(ctx, machinery); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, machinery)
}

func (s *Server) handleMachineryUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req MachineryRequest
	if !httputil.ParseAndValidate(w, r, &req) {
		return
	}
	ctx := r.Context()

	machinery, err := s.stores.Machinery.GetByID(ctx, id)
	if err == ErrNotFound {
		httputil.WriteNotFound(w, "农机不存在")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	// The code is the machine's permanent identifier and never changes.
	machinery.TypeCode = req.TypeCode
	machinery.Brand = req.Brand
	machinery.Model = req.Model
	machinery.FactoryNumber = req.FactoryNumber
	machinery.BuyDate = req.BuyDate
	machinery.Power = req.Power
	machinery.Department = req.Department
	machinery.ResponsibleUserID = req.ResponsibleUserID
	machinery.Status = req.Status
	machinery.PhotoURL = req.PhotoURL
	machinery.Remark = req.Remark

	if err := s.stores.Machinery.Update(ctx, machinery); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, machinery)
}

func (s *Server) handleMachineryDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	err := s.stores.Machinery.Delete(r.Context(), id)
	if err == ErrNotFound {
		httputil.WriteNotFound(w, "农机不存在")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, nil)
}

func (s *Server) handleMachineryGet(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	machinery, err := s.stores.Machinery.GetByID(r.Context(), id)
	if err == ErrNotFound {
		httputil.WriteNotFound(w, "农机不存在")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, machinery)
}

func (s *Server) handleMachineryPage(w http.ResponseWriter, r *http.Request) {
	pageNum, pageSize := httputil.ParsePage(r)
	filter := MachineryFilter{
		MachineryCode: httputil.ParseQueryString(r, "machineryCode", ""),
		TypeCode:      httputil.ParseQueryString(r, "typeCode", ""),
		Brand:         httputil.ParseQueryString(r, "brand", ""),
		Model:         httputil.ParseQueryString(r, "model", ""),
		Department:    httputil.ParseQueryString(r, "department", ""),
		Status:        httputil.ParseQueryString(r, "status", ""),
	}
	if v, err := httputil.ParseQueryInt64(r, "responsibleUserId", 0); err == nil && v > 0 {
		filter.ResponsibleUserID = &v
	}

	page := PageRequest{Num: pageNum, Size: pageSize}
	machines, total, err := s.stores.Machinery.Search(r.Context(), filter, page)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, NewPage(machines, total, page))
}

// StatusRequest updates a coded status field.
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (s *Server) handleMachineryStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req StatusRequest
	if !httputil.ParseAndValidate(w, r, &req) {
		return
	}
	ctx := r.Context()

	// The status must come from the machinery_status dictionary.
	if _, err := s.stores.Dict.GetByTypeAndCode(ctx, DictTypeMachineryStatus, req.Status); err == ErrNotFound {
		httputil.WriteBadRequest(w, "无效的农机状态")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	err := s.stores.Machinery.UpdateStatus(ctx, id, req.Status)
	if err == ErrNotFound {
		httputil.WriteNotFound(w, "农机不存在")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, nil)
}
