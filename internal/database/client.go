// Package database is the KVS connection and transport layer: the
// Client contract every domain store (session, subscription, retained)
// is built on, the key schema, the two atomic scripts, and the Future
// abstraction composite operations return collections of.
package database

import "context"

// ScanPage is one page of a cursor-based set scan (spec §4.D
// scanConnectedClients).
type ScanPage struct {
	Members []string
	Cursor  uint64
}

// Client is the KVS contract spec §6 requires: hashes, sets, ordered
// lists, strings, server-side scripting, cursor scan, all non-blocking.
// A node never issues a blocking command (no BLPOP, no MULTI/EXEC) on
// this connection — every method here maps to a single non-blocking
// round trip, or to one of the two atomic scripts.
type Client interface {
	Get(ctx context.Context, key string) *Future[Optional[string]]
	Set(ctx context.Context, key, value string) *Future[struct{}]
	Del(ctx context.Context, key string) *Future[int64]

	SAdd(ctx context.Context, key, member string) *Future[int64]
	SRem(ctx context.Context, key, member string) *Future[int64]
	SScan(ctx context.Context, key string, cursor uint64, count int64) *Future[ScanPage]

	HGet(ctx context.Context, key, field string) *Future[Optional[string]]
	HSet(ctx context.Context, key, field, value string) *Future[int64]
	HSetMap(ctx context.Context, key string, values map[string]string) *Future[struct{}]
	HDel(ctx context.Context, key, field string) *Future[int64]
	HGetAll(ctx context.Context, key string) *Future[map[string]string]
	HMGet(ctx context.Context, key string, fields ...string) *Future[[]Optional[string]]
	HIncrBy(ctx context.Context, key, field string, delta int64) *Future[int64]

	RPush(ctx context.Context, key, value string) *Future[int64]
	LPop(ctx context.Context, key string) *Future[Optional[string]]
	LRange(ctx context.Context, key string, start, stop int64) *Future[[]string]
	LRem(ctx context.Context, key string, count int64, value string) *Future[int64]

	// CheckDel and IncrLimit evaluate the two atomic scripts of spec §4.C.
	CheckDel(ctx context.Context, key, expected string) *Future[int64]
	IncrLimit(ctx context.Context, key string, limit int64) *Future[int64]

	Close() error
}

// Optional distinguishes "key absent" from "key holds the zero value",
// which matters for session()/connected_node() reads (spec §3: session
// flag is "1"|"0"|absent).
type Optional[T any] struct {
	Value T
	Valid bool
}

func Some[T any](v T) Optional[T] { return Optional[T]{Value: v, Valid: true} }
func None[T any]() Optional[T]    { var z T; return Optional[T]{Value: z, Valid: false} }
