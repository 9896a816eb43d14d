package api

import (
	"time"

	"github.com/farmops/agrifleet/pkg/auth"
)

// User is an account in the administration console. Role 1 is an
// administrator, 2 an operator; status 0 means disabled, 1 normal.
type User struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Password   string    `json:"-"`
	RealName   string    `json:"realName"`
	Phone      string    `json:"phone"`
	Role       auth.Role `json:"role"`
	Status     int       `json:"status"`
	CreateTime time.Time `json:"createTime"`
	UpdateTime time.Time `json:"updateTime"`
}

// User status values.
const (
	UserStatusDisabled = 0
	UserStatusNormal   = 1
)

// Machinery is one machine in the fleet register. TypeCode and Status
// reference dictionary entries (types machinery_type and machinery_status).
type Machinery struct {
	ID                int64      `json:"id"`
	MachineryCode     string     `json:"machineryCode"`
	TypeCode          string     `json:"typeCode"`
	Brand             string     `json:"brand"`
	Model             string     `json:"model"`
	FactoryNumber     string     `json:"factoryNumber"`
	BuyDate           *time.Time `json:"buyDate"`
	Power             float64    `json:"power"`
	Department        string     `json:"department"`
	ResponsibleUserID *int64     `json:"responsibleUserId"`
	Status            string     `json:"status"`
	PhotoURL          string     `json:"photoUrl"`
	Remark            string     `json:"remark"`
	CreateTime        time.Time  `json:"createTime"`
	UpdateTime        time.Time  `json:"updateTime"`
}

// Farmland is a plot of land machines work on. Area is in mu.
type Farmland struct {
	ID         int64     `json:"id"`
	LandCode   string    `json:"landCode"`
	Name       string    `json:"name"`
	Area       float64   `json:"area"`
	Location   string    `json:"location"`
	Remark     string    `json:"remark"`
	CreateTime time.Time `json:"createTime"`
	UpdateTime time.Time `json:"updateTime"`
}

// MaintainRecord logs one service or repair of a machine. NextMaintainTime
// drives the due-maintenance scan; when absent it can be derived from
// NextMaintainCycle days after MaintainTime.
type MaintainRecord struct {
	ID                int64      `json:"id"`
	MachineryID       int64      `json:"machineryId"`
	MaintainType      string     `json:"maintainType"`
	MaintainTime      time.Time  `json:"maintainTime"`
	Parts             string     `json:"parts"`
	Cost              float64    `json:"cost"`
	Maintainer        string     `json:"maintainer"`
	NextMaintainTime  *time.Time `json:"nextMaintainTime"`
	NextMaintainCycle *int       `json:"nextMaintainCycle"`
	Description       string     `json:"description"`
	CreateUserID      int64      `json:"createUserId"`
	CreateTime        time.Time  `json:"createTime"`
	UpdateTime        time.Time  `json:"updateTime"`
}

// OperationTask is a scheduled field job for one machine on one plot.
type OperationTask struct {
	ID                int64      `json:"id"`
	TaskCode          string     `json:"taskCode"`
	MachineryID       int64      `json:"machineryId"`
	FarmlandID        int64      `json:"farmlandId"`
	OperationType     string     `json:"operationType"`
	PlanStartTime     time.Time  `json:"planStartTime"`
	PlanEndTime       time.Time  `json:"planEndTime"`
	PlanQuantity      float64    `json:"planQuantity"`
	ActualStartTime   *time.Time `json:"actualStartTime"`
	ActualEndTime     *time.Time `json:"actualEndTime"`
	ActualQuantity    *float64   `json:"actualQuantity"`
	FuelConsumption   *float64   `json:"fuelConsumption"`
	Status            int        `json:"status"`
	ResponsibleUserID *int64     `json:"responsibleUserId"`
	Remark            string     `json:"remark"`
	CreateUserID      int64      `json:"createUserId"`
	CreateTime        time.Time  `json:"createTime"`
	UpdateTime        time.Time  `json:"updateTime"`
}

// Operation task states.
const (
	TaskStatusPending   = 1
	TaskStatusRunning   = 2
	TaskStatusCompleted = 3
	TaskStatusCancelled = 4
)

// Notification is an in-app message for one user. IsRead 0 is unread.
type Notification struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	RelatedID     *int64    `json:"relatedId"`
	RelatedModule string    `json:"relatedModule"`
	UserID        int64     `json:"userId"`
	IsRead        int       `json:"isRead"`
	CreateTime    time.Time `json:"createTime"`
}

// Dict is one entry of the data dictionary. Entries of a type form the
// value set a coded field draws from.
type Dict struct {
	ID         int64     `json:"id"`
	Type       string    `json:"type"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	Sort       int       `json:"sort"`
	Remark     string    `json:"remark"`
	CreateTime time.Time `json:"createTime"`
}

// Known dictionary types.
const (
	DictTypeMachineryType   = "machinery_type"
	DictTypeMachineryStatus = "machinery_status"
	DictTypeMaintainType    = "maintain_type"
	DictTypeOperationType   = "operation_type"
)

// OperateLog is one row of the audit trail.
type OperateLog struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"userId"`
	OperateType    string    `json:"operateType"`
	OperateModule  string    `json:"operateModule"`
	OperateContent string    `json:"operateContent"`
	OperateIP      string    `json:"operateIp"`
	OperateTime    time.Time `json:"operateTime"`
}

// PageRequest selects one page of a listing. Num is 1-based.
type PageRequest struct {
	Num  int
	Size int
}

// Offset is the row offset this page starts at.
func (p PageRequest) Offset() int {
	if p.Num < 1 {
		return 0
	}
	return (p.Num - 1) * p.Size
}

// Limit is the maximum number of rows on this page.
func (p PageRequest) Limit() int {
	return p.Size
}

// Page is the envelope every paged listing returns.
type Page[T any] struct {
	Records  []T   `json:"records"`
	Total    int64 `json:"total"`
	PageNum  int   `json:"pageNum"`
	PageSize int   `json:"pageSize"`
	Pages    int64 `json:"pages"`
}

// NewPage assembles the envelope, deriving the page count from the total.
func NewPage[T any](records []T, total int64, req PageRequest) Page[T] {
	if records == nil {
		records = []T{}
	}
	pages := int64(0)
	if req.Size > 0 {
		pages = (total + int64(req.Size) - 1) / int64(req.Size)
	}
	return Page[T]{
		Records:  records,
		Total:    total,
		PageNum:  req.Num,
		PageSize: req.Size,
		Pages:    pages,
	}
}
