package audit

import (
	"fmt"
	"net/http"
	"time"

	"github.com/farmops/agrifleet/pkg/api"
	"github.com/farmops/agrifleet/pkg/contextkeys"
	"github.com/farmops/agrifleet/pkg/httputil"
)

// Middleware records successful mutations into the operate-log trail.
// Reads are not recorded here; login and logout write their own entries
// from the auth handlers where the user is actually known.
type Middleware struct {
	recorder *Recorder
}

// NewMiddleware wraps a recorder.
func NewMiddleware(recorder *Recorder) *Middleware {
	return &Middleware{recorder: recorder}
}

// statusRecorder captures the downstream status code.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (rec *statusRecorder) WriteHeader(code int) {
	if !rec.written {
		rec.status = code
		rec.written = true
		rec.ResponseWriter.WriteHeader(code)
	}
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if !rec.written {
		rec.WriteHeader(http.StatusOK)
	}
	return rec.ResponseWriter.Write(b)
}

// Handler wraps next with trail recording.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := contextkeys.WithRequestStartTime(r.Context(), start)

		wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r.WithContext(ctx))

		if !isMutation(r.Method) || wrapped.status >= 400 {
			return
		}
		ident, ok := api.GetIdentity(ctx)
		if !ok {
			return
		}

		m.recorder.Record(ctx, &api.OperateLog{
			UserID:         ident.User.ID,
			OperateType:    OperateTypeForMethod(r.Method),
			OperateModule:  ModuleForPath(r.URL.Path),
			OperateContent: fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			OperateIP:      httputil.ClientIP(r),
		})
	})
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
