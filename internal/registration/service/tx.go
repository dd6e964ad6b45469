package service

import (
	"context"
	"sync"
	"time"

	"registrar/internal/registration/store/association"
	"registrar/internal/registration/store/entity"
	"registrar/pkg/domainerrors"
)

// Stores bundles one source's stores so a transaction boundary can hand the
// service a consistent view of both.
type Stores struct {
	Entities     entity.Store
	Associations association.Store
}

// StoreTx provides a transactional boundary for registration writes. The
// callback context carries the transaction when one exists, so stores bound to
// it see a consistent view. Implementations may wrap a database transaction
// or, in-memory, a lock.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}

// shardedTx provides fine-grained locking using sharded mutexes. Operations
// are distributed across N shards based on a hash of the program ID, reducing
// contention under concurrent load.
const numTxShards = 128

// defaultTxTimeout is the maximum duration for a registration transaction.
const defaultTxTimeout = 5 * time.Second

type shardedTx struct {
	shards  [numTxShards]sync.Mutex
	stores  Stores
	timeout time.Duration
}

// NewMemoryTx wraps in-memory stores in a lock-based transaction boundary.
// The memory stores are internally consistent on their own; the lock makes
// multi-store sequences atomic with respect to each other.
func NewMemoryTx(stores Stores) StoreTx {
	return &shardedTx{stores: stores}
}

func (t *shardedTx) RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error {
	if err := ctx.Err(); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := t.selectShard(ctx)
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	if err := ctx.Err(); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx, t.stores)
}

// selectShard picks a shard based on the program ID from context, defaulting
// to shard 0.
func (t *shardedTx) selectShard(ctx context.Context) int {
	if program, ok := ctx.Value(txProgramKeyCtx).(string); ok && program != "" {
		return int(hashString(program) % numTxShards)
	}
	return 0
}

// hashString uses FNV-1a for hash distribution.
func hashString(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}

type txProgramKey struct{}

var txProgramKeyCtx = txProgramKey{}

// WithTxProgram tags ctx with the program a transaction operates on so
// lock-based boundaries can shard by it.
func WithTxProgram(ctx context.Context, programID string) context.Context {
	return context.WithValue(ctx, txProgramKeyCtx, programID)
}
