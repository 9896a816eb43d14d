// Package httputil provides HTTP utilities for standardized request/response
// handling.
//
// # Response Envelope
//
// Every endpoint answers with the same envelope:
//
//	{"code": 200, "message": "成功", "data": ...}
//
// Success:
//
//	httputil.WriteOK(w, machinery)
//	httputil.WriteOKMessage(w, "退出登录成功", nil)
//
// Failure (the envelope code doubles as the HTTP status):
//
//	httputil.WriteBadRequest(w, "用户名不能为空")
//	httputil.WriteUnauthorized(w, "用户未登录")
//	httputil.WriteInternalError(w, err)
//
// # Request Parsing
//
//	var req LoginRequest
//	if !httputil.ParseAndValidate(w, r, &req) {
//		return // failure envelope already written
//	}
//
//	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
//	pageNum, pageSize := httputil.ParsePage(r)
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//		httputil.MaxBytesMiddleware(1<<20),
//	)
package httputil
