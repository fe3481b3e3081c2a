package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const testSchema = `fields:
  - {id: 1, name: name, type: string, required: true}
  - {id: 2, name: level, type: int32, default: 1}
  - {id: 3, name: home, type: Vector3}
  - {id: 4, name: scores, type: "int53[]"}
`

func writeSchema(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testSchema), 0o600))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), err
}

func TestEncodeDecode(t *testing.T) {
	schema := writeSchema(t)
	for _, enc := range []string{"base64", "base85", "raw"} {
		t.Run(enc, func(t *testing.T) {
			encoded, err := run(t, "name: ada\nhome: {x: 1, y: 2, z: 3}\nscores: [10, 20]\n",
				"encode", "--schema", schema, "--encoding", enc)
			require.NoError(t, err)
			require.NotEmpty(t, encoded)

			out, err := run(t, encoded, "decode", "-s", schema, "-e", enc, "-o", "json")
			require.NoError(t, err)
			var rec map[string]any
			require.NoError(t, json.Unmarshal([]byte(out), &rec))
			require.Equal(t, "ada", rec["name"])
			require.Equal(t, float64(1), rec["level"])
			require.Equal(t, map[string]any{"x": 1.0, "y": 2.0, "z": 3.0}, rec["home"])
			require.Equal(t, []any{10.0, 20.0}, rec["scores"])
		})
	}
}

func TestEncodeAllDecodeAll(t *testing.T) {
	schema := writeSchema(t)
	encoded, err := run(t, `[{"name": "a"}, {"name": "b", "level": 9}]`, "encode", "--all", "-s", schema)
	require.NoError(t, err)

	out, err := run(t, encoded, "decode", "--all", "-s", schema)
	require.NoError(t, err)
	var recs []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &recs))
	require.Len(t, recs, 2)
	require.Equal(t, "b", recs[1]["name"])
	require.Equal(t, 9, recs[1]["level"])

	out, err = run(t, encoded, "inspect", "-s", schema)
	require.NoError(t, err)
	require.Contains(t, out, "frame 0: version=1 records=2")
}

func TestEncodeErrors(t *testing.T) {
	schema := writeSchema(t)

	_, err := run(t, "level: 3\n", "encode", "-s", schema)
	require.ErrorContains(t, err, "required field missing")

	_, err = run(t, "name: a\n", "encode")
	require.ErrorContains(t, err, "no schema")

	_, err = run(t, "name: a\nextra: 1\n", "encode", "-s", schema, "--strict")
	require.ErrorContains(t, err, "unknown field")

	_, err = run(t, "name: a\n", "encode", "-s", schema, "-e", "hex")
	require.ErrorContains(t, err, "unknown text encoding")

	_, err = run(t, "not base64", "decode", "-s", schema)
	require.ErrorContains(t, err, "malformed")
}

func TestSchemaCommand(t *testing.T) {
	schema := writeSchema(t)
	out, err := run(t, "", "schema", "-s", schema)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "# fingerprint: "))
	require.Contains(t, out, "name: scores")
	require.Contains(t, out, "int53[]")
}

func TestEnvAndConfigFile(t *testing.T) {
	schema := writeSchema(t)

	t.Setenv("STRUCTDEF_SCHEMA", schema)
	t.Setenv("STRUCTDEF_ENCODING", "base85")
	encoded, err := run(t, "name: env\n", "encode")
	require.NoError(t, err)
	out, err := run(t, encoded, "decode", "--encoding", "base85")
	require.NoError(t, err)
	require.Contains(t, out, "name: env")

	t.Setenv("STRUCTDEF_SCHEMA", "")
	t.Setenv("STRUCTDEF_ENCODING", "")
	cfg := filepath.Join(t.TempDir(), "structdef.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("schema: "+schema+"\nencoding: raw\n"), 0o600))
	encoded, err = run(t, "name: cfg\n", "encode", "--config", cfg)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(encoded, "SD"))
}

func TestStoreCommands(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	schema := writeSchema(t)
	base := []string{"-s", schema, "--redis-addr", mr.Addr()}
	store := func(stdin string, args ...string) (string, error) {
		return run(t, stdin, append(append([]string{"store"}, args...), base...)...)
	}

	_, err = store("name: ada\nlevel: 4\n", "put", "p:ada")
	require.NoError(t, err)
	require.True(t, mr.Exists("structdef:p:ada"))

	out, err := store("", "get", "p:ada", "-o", "json")
	require.NoError(t, err)
	require.Contains(t, out, `"level": 4`)

	for _, name := range []string{"a", "b", "c"} {
		_, err = store("name: "+name+"\n", "log", "trail")
		require.NoError(t, err)
	}
	out, err = store("", "history", "trail")
	require.NoError(t, err)
	var recs []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &recs))
	require.Len(t, recs, 3)
	require.Equal(t, "c", recs[2]["name"])

	_, err = store("", "delete", "p:ada")
	require.NoError(t, err)
	_, err = store("", "get", "p:ada")
	require.ErrorContains(t, err, "key not found")
}
