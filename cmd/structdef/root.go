package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rawbytedev/structdef"
	"github.com/rawbytedev/structdef/pkg/datastore"
	"github.com/rawbytedev/structdef/pkg/log"
)

const envPrefix = "STRUCTDEF"

// app carries per-invocation configuration shared by all commands.
type app struct {
	v      *viper.Viper
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), logger: log.NewNop()}

	rootCmd := &cobra.Command{
		Use:   "structdef",
		Short: "Encode and decode schema-described records",
		Long: `structdef turns YAML or JSON records into compact strings described by a
numbered, typed schema file, and back.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (yaml, json or toml)")
	flags.StringP("schema", "s", "", "Schema file (yaml)")
	flags.StringP("encoding", "e", structdef.Base64.String(), "Text encoding: base64, base85 or raw")
	flags.Bool("strict", false, "Reject unknown fields and content from other schemas")
	flags.Int("compress-threshold", 0, "Frame size above which bodies are compressed (0 default, <0 off)")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("log-format", log.TextFormat, "Log format: text or json")
	flags.String("redis-addr", "localhost:6379", "Redis address for store commands")
	flags.String("redis-password", "", "Redis password")
	flags.Int("redis-db", 0, "Redis database")
	flags.String("redis-prefix", datastore.DefaultPrefix, "Key prefix for store commands")
	flags.Duration("redis-ttl", 0, "Expiration of stored keys (0 keeps them)")

	rootCmd.AddCommand(
		a.encodeCmd(),
		a.decodeCmd(),
		a.inspectCmd(),
		a.schemaCmd(),
		a.storeCmd(),
	)
	return rootCmd
}

func (a *app) init(cmd *cobra.Command) error {
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if path := a.v.GetString("config"); path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	a.logger = log.New(cmd.ErrOrStderr(), a.v.GetString("log-level"), a.v.GetString("log-format"))
	return nil
}

func (a *app) structDef() (*structdef.StructDef, error) {
	path := a.v.GetString("schema")
	if path == "" {
		return nil, errors.New("no schema: set --schema or " + envPrefix + "_SCHEMA")
	}
	schema, err := structdef.LoadSchemaFile(path)
	if err != nil {
		return nil, err
	}
	enc, err := structdef.ParseTextEncoding(a.v.GetString("encoding"))
	if err != nil {
		return nil, err
	}
	a.logger.Debug("loaded schema", "path", path, "fields", schema.Len(), "fingerprint", fmt.Sprintf("%016x", schema.Fingerprint()))
	return structdef.New(schema, structdef.Options{
		Encoding:          enc,
		Strict:            a.v.GetBool("strict"),
		CompressThreshold: a.v.GetInt("compress-threshold"),
	})
}

func (a *app) table() (*datastore.Table, io.Closer, error) {
	def, err := a.structDef()
	if err != nil {
		return nil, nil, err
	}
	store := datastore.NewRedisStore(
		a.v.GetString("redis-addr"),
		a.v.GetString("redis-password"),
		a.v.GetInt("redis-db"),
		datastore.WithPrefix(a.v.GetString("redis-prefix")),
		datastore.WithTTL(a.v.GetDuration("redis-ttl")),
	)
	return datastore.NewTable(def, store, datastore.WithLogger(a.logger)), store, nil
}

// readInput reads the named file, or stdin when no file is given.
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) > 0 && args[0] != "-" {
		return os.ReadFile(args[0])
	}
	return io.ReadAll(cmd.InOrStdin())
}

// since reports elapsed milliseconds for debug logs.
func since(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
