package datastore_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rawbytedev/structdef"
	"github.com/rawbytedev/structdef/pkg/datastore"
	"github.com/rawbytedev/structdef/pkg/geom"
	"github.com/rawbytedev/structdef/pkg/log"
)

type position struct {
	Player string
	Pos    geom.Vector3
	Tick   int64
}

func newTable(t *testing.T, store datastore.Store, enc structdef.TextEncoding, opts ...datastore.TableOption) *datastore.Table {
	t.Helper()
	schema := structdef.NewSchema().
		Field(1, "player", structdef.TypeString, structdef.Required()).
		Field(2, "pos", structdef.TypeVector3).
		Field(3, "tick", structdef.TypeInt53, structdef.WithDefault(0))
	def, err := structdef.New(schema, structdef.Options{Encoding: enc})
	require.NoError(t, err)
	return datastore.NewTable(def, store, opts...)
}

func stores(t *testing.T) map[string]datastore.Store {
	_, client := newRedis(t)
	return map[string]datastore.Store{
		"memory": datastore.NewMemoryStore(),
		"redis":  datastore.NewFromClient(client),
	}
}

func TestTable_PutGetLoad(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			table := newTable(t, store, structdef.Base64)

			in := position{Player: "ada", Pos: geom.NewVector3(1, 2, 3), Tick: 42}
			require.NoError(t, table.Put(ctx, "p:ada", in))

			rec, err := table.Get(ctx, "p:ada")
			require.NoError(t, err)
			require.Equal(t, "ada", rec["player"])
			require.Equal(t, int64(42), rec["tick"])

			var out position
			require.NoError(t, table.Load(ctx, "p:ada", &out))
			require.Equal(t, in, out)

			require.NoError(t, table.Delete(ctx, "p:ada"))
			_, err = table.Get(ctx, "p:ada")
			require.ErrorIs(t, err, datastore.ErrNotFound)
			require.ErrorIs(t, table.Load(ctx, "p:ada", &out), datastore.ErrNotFound)

			err = table.Put(ctx, "p:nobody", position{})
			require.NoError(t, err)
			err = table.Put(ctx, "p:bad", map[string]any{"tick": 1})
			require.ErrorIs(t, err, structdef.ErrMissingField)
		})
	}
}

func TestTable_LogHistory(t *testing.T) {
	for name, store := range stores(t) {
		for _, enc := range []structdef.TextEncoding{structdef.Base64, structdef.Base85, structdef.Raw} {
			t.Run(name+"/"+enc.String(), func(t *testing.T) {
				ctx := context.Background()
				table := newTable(t, store, enc)
				key := "trail:" + enc.String()

				for i := int64(0); i < 4; i++ {
					require.NoError(t, table.Log(ctx, key, position{Player: "ada", Pos: geom.NewVector3(float64(i), 0, 0), Tick: i}))
				}
				recs, err := table.History(ctx, key)
				require.NoError(t, err)
				require.Len(t, recs, 4)
				for i, rec := range recs {
					require.Equal(t, int64(i), rec["tick"])
					require.Equal(t, geom.NewVector3(float64(i), 0, 0), rec["pos"])
				}

				first, err := table.Get(ctx, key)
				require.NoError(t, err)
				require.Equal(t, int64(0), first["tick"])

				_, err = table.History(ctx, "trail:none")
				require.ErrorIs(t, err, datastore.ErrNotFound)
			})
		}
	}
}

func TestTable_CorruptValue(t *testing.T) {
	ctx := context.Background()
	store := datastore.NewMemoryStore()
	table := newTable(t, store, structdef.Base64)
	require.NoError(t, store.Set(ctx, "k", "U0QB"))

	_, err := table.Get(ctx, "k")
	require.ErrorIs(t, err, structdef.ErrMalformed)
	_, err = table.History(ctx, "k")
	require.ErrorIs(t, err, structdef.ErrMalformed)
}

func TestTable_Logging(t *testing.T) {
	var buf bytes.Buffer
	table := newTable(t, datastore.NewMemoryStore(), structdef.Base64,
		datastore.WithLogger(log.New(&buf, "debug", log.TextFormat)))
	require.NoError(t, table.Put(context.Background(), "k", position{Player: "x"}))
	require.Contains(t, buf.String(), "stored record")
	require.Contains(t, buf.String(), "key=k")
	require.NotNil(t, table.Def())
}
