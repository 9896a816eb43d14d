package api

import (
	"net/http"

	"github.com/farmops/agrifleet/pkg/httputil"
)

// DictRequest is the create/update payload for a dictionary entry.
type DictRequest struct {
	Type   string `json:"type" validate:"required"`
	Code   string `json:"code" validate:"required"`
	Name   string `json:"name" validate:"required"`
	Sort   int    `json:"sort" validate:"gte=0"`
	Remark string `json:"remark"`
}

func (s *Server) handleDictCreate(w http.ResponseWriter, r *http.Request) {
	var req DictRequest
	if !httputil.ParseAndValidate(w, r, &req) {
		return
	}
	ctx := r.Context()

	if _, err := s.stores.Dict.GetByTypeAndCode(ctx, req.Type, req.Code); err == nil {
		httputil.WriteBadRequest(w, "字典编码已存在")
		return
	} else if err != ErrNotFound {
		httputil.WriteInternalError(w, err)
		return
	}

	dict := &Dict{
		Type:   req.Type,
		Code:   req.Code,
		Name:   req.Name,
		Sort:   req.Sort,
		Remark: req.Remark,
	}
	if err := s.stores.Dict.Create(ctx, dict); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, dict)
}

func (s *Server) handleDictUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req DictRequest
	if !httputil.ParseAndValidate(w, r, &req) {
		return
	}
	ctx := r.Context()

	dict, err := s.stores.Dict.GetByID(ctx, id)
	if err == ErrNotFound {
		httputil.WriteNotFound(w, "字典项不存在")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	// Type and code are the entry's identity; only the label side moves.
	dict.Name = req.Name
	dict.Sort = req.Sort
	dict.Remark = req.Remark

	if err := s.stores.Dict.Update(ctx, dict); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, dict)
}

func (s *Server) handleDictDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	err := s.stores.Dict.Delete(r.Context(), id)
	if err == ErrNotFound {
		httputil.WriteNotFound(w, "字典项不存在")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, nil)
}

func (s *Server) handleDictByType(w http.ResponseWriter, r *http.Request) {
	dictType, ok := httputil.ParsePathStringOrError(w, r, "type")
	if !ok {
		return
	}
	entries, err := s.stores.Dict.ListByType(r.Context(), dictType)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if entries == nil {
		entries = []*Dict{}
	}
	httputil.WriteOK(w, entries)
}

func (s *Server) handleDictPage(w http.ResponseWriter, r *http.Request) {
	pageNum, pageSize := httputil.ParsePage(r)
	filter := DictFilter{
		Type: httputil.ParseQueryString(r, "type", ""),
		Name: httputil.ParseQueryString(r, "name", ""),
	}

	page := PageRequest{Num: pageNum, Size: pageSize}
	entries, total, err := s.stores.Dict.Search(r.Context(), filter, page)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, NewPage(entries, total, page))
}
