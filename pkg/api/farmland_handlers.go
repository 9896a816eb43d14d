package api

import (
	"net/http"

	"github.com/farmops/agrifleet/pkg/httputil"
)

// FarmlandRequest is the create/update payload for a plot.
type FarmlandRequest struct {
	LandCode string  `json:"landCode" validate:"required"`
	Name     string  `json:"name" validate:"required"`
	Area     float64 `json:"area" validate:"gt=0"`
	Location string  `json:"location"`
	Remark   string  `json:"remark"`
}

func (s *Server) handleFarmlandCreate(w http.ResponseWriter, r *http.Request) {
	var req FarmlandRequest
	if !httputil.ParseAndValidate(w, r, &req) {
		return
	}
	ctx := r.Context()

	if _, err := s.stores.Farmland.GetByCode(ctx, req.LandCode); err == nil {
		httputil.WriteBadRequest(w, "地块编码已存在")
		return
	} else if err != ErrNotFound {
		httputil.WriteInternalError(w, err)
		return
	}

	farmland := &Farmland{
		LandCode: req.LandCode,
		Name:     req.Name,
		Area:     req.Area,
		Location: req.Location,
		Remark:   req.Remark,
	}
	if err := s.stores.Farmland.Create(ctx, farmland); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, farmland)
}

func (s *Server) handleFarmlandUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req FarmlandRequest
	if !httputil.ParseAndValidate(w, r, &req) {
		return
	}
	ctx := r.Context()

	farmland, err := s.stores.Farmland.GetByID(ctx, id)
	if err == ErrNotFound {
		httputil.WriteNotFound(w, "地块不存在")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	farmland.Name = req.Name
	farmland.Area = req.Area
	farmland.Location = req.Location
	farmland.Remark = req.Remark

	if err := s.stores.Farmland.Update(ctx, farmland); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, farmland)
}

func (s *Server) handleFarmlandDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	err := s.stores.Farmland.Delete(r.Context(), id)
	if err == ErrNotFound {
		httputil.WriteNotFound(w, "地块不存在")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, nil)
}

func (s *Server) handleFarmlandGet(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	farmland, err := s.stores.Farmland.GetByID(r.Context(), id)
	if err == ErrNotFound {
		httputil.WriteNotFound(w, "地块不存在")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, farmland)
}

func (s *Server) handleFarmlandPage(w http.ResponseWriter, r *http.Request) {
	pageNum, pageSize := httputil.ParsePage(r)
	filter := FarmlandFilter{
		LandCode: httputil.ParseQueryString(r, "landCode", ""),
		Name:     httputil.ParseQueryString(r, "name", ""),
		Location: httputil.ParseQueryString(r, "location", ""),
	}

	page := PageRequest{Num: pageNum, Size: pageSize}
	plots, total, err := s.stores.Farmland.Search(r.Context(), filter, page)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, NewPage(plots, total, page))
}
