// Package storage holds backend configuration shared by the PostgreSQL
// store implementations and the Redis-backed session and cache layers.
// The store interfaces themselves live in pkg/api next to the types they
// persist.
package storage
