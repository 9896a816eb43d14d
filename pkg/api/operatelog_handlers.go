package api

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/farmops/agrifleet/pkg/httputil"
)

func parseOperateLogFilter(r *http.Request) OperateLogFilter {
	filter := OperateLogFilter{
		OperateType:   httputil.ParseQueryString(r, "operateType", ""),
		OperateModule: httputil.ParseQueryString(r, "operateModule", ""),
	}
	if v, err := httputil.ParseQueryInt64(r, "userId", 0); err == nil && v > 0 {
		filter.UserID = &v
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
	return filter
}

func (s *Server) handleOperateLogPage(w http.ResponseWriter, r *http.Request) {
	pageNum, pageSize := httputil.ParsePage(r)
	page := PageRequest{Num: pageNum, Size: pageSize}

	entries, total, err := s.stores.OperateLogs.Search(r.Context(), parseOperateLogFilter(r), page)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, NewPage(entries, total, page))
}

// exportPageSize caps one export request. Larger trails are exported by
// narrowing the time window.
const exportPageSize = 10000

func (s *Server) handleOperateLogExport(w http.ResponseWriter, r *http.Request) {
	format := httputil.ParseQueryString(r, "format", "csv")
	if format != "csv" && format != "json" {
		httputil.WriteBadRequest(w, "不支持的导出格式")
		return
	}

	entries, total, err := s.stores.OperateLogs.Search(r.Context(), parseOperateLogFilter(r),
		PageRequest{Num: 1, Size: exportPageSize})
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	// The cap keeps one request bounded; tell the caller when their
	// filter matched more than the file holds.
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	if total > exportPageSize {
		w.Header().Set("X-Truncated", "true")
	}

	if format == "json" {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="operate-logs.json"`)
		if err := exportOperateLogJSON(w, entries); err != nil {
			s.logger.WithError(err).Error("operate log JSON export failed")
		}
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="operate-logs.csv"`)
	if err := exportOperateLogCSV(w, entries); err != nil {
		s.logger.WithError(err).Error("operate log CSV export failed")
	}
}

// handleOperateLogCleanup trims the trail on demand, keeping the last
// `days` days. The nightly job does the same on a schedule.
func (s *Server) handleOperateLogCleanup(w http.ResponseWriter, r *http.Request) {
	days, err := httputil.ParseQueryInt64(r, "days", 90)
	if err != nil || days <= 0 {
		httputil.WriteBadRequest(w, "保留天数必须为正整数")
		return
	}

	removed, err := s.stores.OperateLogs.DeleteBefore(r.Context(), time.Now().AddDate(0, 0, -int(days)))
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteOK(w, map[string]int64{"removed": removed})
}

var operateLogCSVHeader = []string{"id", "user_id", "operate_type", "operate_module", "operate_content", "operate_ip", "operate_time"}

func exportOperateLogCSV(w io.Writer, entries []*OperateLog) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(operateLogCSVHeader); err != nil {
		return err
	}
	for _, entry := range entries {
		record := []string{
			strconv.FormatInt(entry.ID, 10),
			strconv.FormatInt(entry.UserID, 10),
			entry.OperateType,
			entry.OperateModule,
			entry.OperateContent,
			entry.OperateIP,
			entry.OperateTime.Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func exportOperateLogJSON(w io.Writer, entries []*OperateLog) error {
	if entries == nil {
		entries = []*OperateLog{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}
