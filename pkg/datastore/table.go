package datastore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rawbytedev/structdef"
	"github.com/rawbytedev/structdef/pkg/log"
)

// Table stores records of one StructDef in a Store. Put and Get work on a
// single record per key; Log and History treat the key as an append-only
// series of frames.
type Table struct {
	def    *structdef.StructDef
	store  Store
	logger *slog.Logger
}

type TableOption func(*Table)

func WithLogger(l *slog.Logger) TableOption {
	return func(t *Table) {
		t.logger = l
	}
}

func NewTable(def *structdef.StructDef, store Store, opts ...TableOption) *Table {
	t := &Table{def: def, store: store, logger: log.NewNop()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Table) Def() *structdef.StructDef { return t.def }

// Put replaces the content at key with one record.
func (t *Table) Put(ctx context.Context, key string, data any) error {
	s, err := t.def.Serialize(data)
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	if err := t.store.Set(ctx, key, s); err != nil {
		return err
	}
	t.logger.Debug("stored record", "key", key, "size", len(s))
	return nil
}

// Get returns the first record at key.
func (t *Table) Get(ctx context.Context, key string) (structdef.Record, error) {
	s, err := t.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	rec, err := t.def.Deserialize(s)
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return rec, nil
}

// Load decodes the first record at key into out.
func (t *Table) Load(ctx context.Context, key string, out any) error {
	s, err := t.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := t.def.Unmarshal(s, out); err != nil {
		return fmt.Errorf("load %q: %w", key, err)
	}
	return nil
}

// Log appends one record to the series at key.
func (t *Table) Log(ctx context.Context, key string, data any) error {
	s, err := t.def.Serialize(data)
	if err != nil {
		return fmt.Errorf("log %q: %w", key, err)
	}
	// leading separators are skipped on read, so no lookup of the
	// current value is needed
	if err := t.store.Append(ctx, key, t.def.Separator()+s); err != nil {
		return err
	}
	t.logger.Debug("appended record", "key", key, "size", len(s))
	return nil
}

// History returns every record at key, oldest first.
func (t *Table) History(ctx context.Context, key string) ([]structdef.Record, error) {
	s, err := t.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	recs, err := t.def.DeserializeAll(s)
	if err != nil {
		return nil, fmt.Errorf("history %q: %w", key, err)
	}
	return recs, nil
}

func (t *Table) Delete(ctx context.Context, key string) error {
	if err := t.store.Delete(ctx, key); err != nil {
		return err
	}
	t.logger.Debug("deleted", "key", key)
	return nil
}
