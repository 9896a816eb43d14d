package audit

import (
	"net/http"
	"strings"
)

// Operate types recorded in the audit trail.
const (
	OperateTypeAdd    = "add"
	OperateTypeUpdate = "update"
	OperateTypeDelete = "delete"
	OperateTypeQuery  = "query"
	OperateTypeLogin  = "login"
	OperateTypeLogout = "logout"
)

// moduleNames maps the first path segment under /api to the module name
// stored in the trail.
var moduleNames = map[string]string{
	"auth":             "auth",
	"users":            "user",
	"machinery":        "machinery",
	"farmland":         "farmland",
	"maintain-records": "maintain",
	"operation-tasks":  "operation",
	"notifications":    "notification",
	"dict":             "dict",
	"operate-logs":     "log",
}

// ModuleForPath derives the audit module from a request path. Unknown
// paths fall back to the raw segment so new routes are never dropped
// silently.
func ModuleForPath(path string) string {
	trimmed := strings.TrimPrefix(path, "/api/")
	if trimmed == path {
		trimmed = strings.TrimPrefix(path, "/")
	}
	segment := trimmed
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		segment = trimmed[:i]
	}
	if segment == "" {
		return "unknown"
	}
	if name, ok := moduleNames[segment]; ok {
		return name
	}
	return segment
}

// OperateTypeForMethod maps an HTTP method onto an operate type.
func OperateTypeForMethod(method string) string {
	switch method {
	case http.MethodPost:
		return OperateTypeAdd
	case http.MethodPut, http.MethodPatch:
		return OperateTypeUpdate
	case http.MethodDelete:
		return OperateTypeDelete
	default:
		return OperateTypeQuery
	}
}
