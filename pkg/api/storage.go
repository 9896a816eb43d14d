package api

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by store lookups when no row matches. Handlers
// translate it into a 404 envelope instead of a 500.
var ErrNotFound = errors.New("record not found")

// UserFilter narrows user searches. Zero values mean "any".
type UserFilter struct {
	Username string
	RealName string
	Phone    string
	Role     *int
	Status   *int
}

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Search(ctx context.Context, filter UserFilter, page PageRequest) ([]*User, int64, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateStatus(ctx context.Context, id int64, status int) error
}

// MachineryFilter narrows machinery searches.
type MachineryFilter struct {
	MachineryCode     string
	TypeCode          string
	Brand             string
	Model             string
	Department        string
	Status            string
	ResponsibleUserID *int64
}

// MachineryStore persists the fleet register.
type MachineryStore interface {
	Create(ctx context.Context, machinery *Machinery) error
	Update(ctx context.Context, machinery *Machinery) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*Machinery, error)
	GetByCode(ctx context.Context, code string) (*Machinery, error)
	Search(ctx context.Context, filter MachineryFilter, page PageRequest) ([]*Machinery, int64, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
}

// FarmlandFilter narrows plot searches.
type FarmlandFilter struct {
	LandCode string
	Name     string
	Location string
}

// FarmlandStore persists plots.
type FarmlandStore interface {
	Create(ctx context.Context, farmland *Farmland) error
	Update(ctx context.Context, farmland *Farmland) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*Farmland, error)
	GetByCode(ctx context.Context, landCode string) (*Farmland, error)
	Search(ctx context.Context, filter FarmlandFilter, page PageRequest) ([]*Farmland, int64, error)
}

// MaintainRecordFilter narrows maintenance-record searches.
type MaintainRecordFilter struct {
	MachineryID  *int64
	MaintainType string
	Maintainer   string
	From         *time.Time
	To           *time.Time
}

// MaintainRecordStore persists service history.
type MaintainRecordStore interface {
	Create(ctx context.Context, record *MaintainRecord) error
	Update(ctx context.Context, record *MaintainRecord) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*MaintainRecord, error)
	Search(ctx context.Context, filter MaintainRecordFilter, page PageRequest) ([]*MaintainRecord, int64, error)
	// ListDue returns records whose next maintenance date falls on or
	// before the given day. The due scan runs on this.
	ListDue(ctx context.Context, on time.Time) ([]*MaintainRecord, error)
}

// OperationTaskFilter narrows task searches.
type OperationTaskFilter struct {
	TaskCode      string
	MachineryID   *int64
	FarmlandID    *int64
	OperationType string
	Status        *int
}

// OperationTaskStore persists scheduled field jobs.
type OperationTaskStore interface {
	Create(ctx context.Context, task *OperationTask) error
	Update(ctx context.Context, task *OperationTask) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*OperationTask, error)
	GetByCode(ctx context.Context, taskCode string) (*OperationTask, error)
	Search(ctx context.Context, filter OperationTaskFilter, page PageRequest) ([]*OperationTask, int64, error)
	UpdateStatus(ctx context.Context, id int64, status int) error
}

// NotificationFilter narrows notification searches.
type NotificationFilter struct {
	UserID        *int64
	IsRead        *int
	RelatedModule string
}

// NotificationStore persists per-user messages.
type NotificationStore interface {
	Create(ctx context.Context, notification *Notification) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*Notification, error)
	Search(ctx context.Context, filter NotificationFilter, page PageRequest) ([]*Notification, int64, error)
	MarkRead(ctx context.Context, id, userID int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	// HasUnreadForRelated lets the due scan avoid stacking duplicate
	// reminders for the same machine.
	HasUnreadForRelated(ctx context.Context, userID int64, relatedModule string, relatedID int64) (bool, error)
}

// DictFilter narrows dictionary searches.
type DictFilter struct {
	Type string
	Name string
}

// DictStore persists the data dictionary.
type DictStore interface {
	Create(ctx context.Context, dict *Dict) error
	Update(ctx context.Context, dict *Dict) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*Dict, error)
	GetByTypeAndCode(ctx context.Context, dictType, code string) (*Dict, error)
	ListByType(ctx context.Context, dictType string) ([]*Dict, error)
	Search(ctx context.Context, filter DictFilter, page PageRequest) ([]*Dict, int64, error)
}

// OperateLogFilter narrows audit-trail searches.
type OperateLogFilter struct {
	UserID        *int64
	OperateType   string
	OperateModule string
	From          *time.Time
	To            *time.Time
}

// OperateLogStore persists the audit trail.
type OperateLogStore interface {
	Insert(ctx context.Context, entry *OperateLog) error
	Search(ctx context.Context, filter OperateLogFilter, page PageRequest) ([]*OperateLog, int64, error)
	// DeleteBefore trims entries older than the cutoff and reports how
	// many were removed.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Stores bundles every store the HTTP layer needs.
type Stores struct {
	Users           UserStore
	Machinery       MachineryStore
	Farmland        FarmlandStore
	MaintainRecords MaintainRecordStore
	OperationTasks  OperationTaskStore
	Notifications   NotificationStore
	Dict            DictStore
	OperateLogs     OperateLogStore
}
