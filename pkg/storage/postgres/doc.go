// Package postgres implements the pkg/api store interfaces on PostgreSQL
// with database/sql and lib/pq. One store type per table, all sharing the
// pool opened by Connect. Searches build their WHERE clause from the
// filter's non-zero fields and always page with LIMIT/OFFSET after a
// COUNT(*) over the same predicates.
//
// CachedDictStore is the exception to the plain pass-through pattern: it
// layers an in-process LRU and Redis over the dictionary table.
package postgres
