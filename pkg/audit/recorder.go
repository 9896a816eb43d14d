package audit

import (
	"context"
	"time"

	"github.com/farmops/agrifleet/pkg/api"
	"github.com/farmops/agrifleet/pkg/observability"
)

// Recorder writes audit entries to the operate-log store. Recording is
// best effort everywhere: a broken trail must never fail the operation
// it describes.
type Recorder struct {
	store  api.OperateLogStore
	logger *observability.Logger
}

// NewRecorder wraps the store.
func NewRecorder(store api.OperateLogStore, logger *observability.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Record persists one entry, logging and swallowing any store error.
func (r *Recorder) Record(ctx context.Context, entry *api.OperateLog) {
	if entry.OperateTime.IsZero() {
		entry.OperateTime = time.Now()
	}
	if err := r.store.Insert(ctx, entry); err != nil {
		r.logger.WithError(err).
			WithField("operate_type", entry.OperateType).
			WithField("operate_module", entry.OperateModule).
			Error("failed to record operate log")
	}
}

// RecordLogin writes a login trail entry.
func (r *Recorder) RecordLogin(ctx context.Context, userID int64, ip string) {
	r.Record(ctx, &api.OperateLog{
		UserID:         userID,
		OperateType:    OperateTypeLogin,
		OperateModule:  "auth",
		OperateContent: "user login",
		OperateIP:      ip,
	})
}

// RecordLogout writes a logout trail entry.
func (r *Recorder) RecordLogout(ctx context.Context, userID int64, ip string) {
	r.Record(ctx, &api.OperateLog{
		UserID:         userID,
		OperateType:    OperateTypeLogout,
		OperateModule:  "auth",
		OperateContent: "user logout",
		OperateIP:      ip,
	})
}

// Cleanup trims entries older than the retention window. The scheduler
// calls this daily.
func (r *Recorder) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return r.store.DeleteBefore(ctx, cutoff)
}
