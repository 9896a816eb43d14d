// Package api is the REST surface of the fleet console: routing, request
// DTOs, and the handlers for authentication, the fleet register, plots,
// service history, field jobs, notifications, the data dictionary,
// accounts and the audit trail. It also defines the store interfaces the
// persistence layer implements, so everything beneath it depends on this
// package and not the other way around.
//
// Responses use the uniform envelope from pkg/httputil. The global
// middleware chain (request IDs, logging, metrics, the auth gate, the
// audit middleware) is assembled by the caller and handed in through
// ServerConfig.
package api
