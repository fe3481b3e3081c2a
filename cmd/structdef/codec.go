package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rawbytedev/structdef"
)

// parseRecords reads YAML (or JSON) input: a mapping, or a sequence of
// mappings when all is set.
func parseRecords(b []byte, all bool) (any, error) {
	if all {
		var items []map[string]any
		if err := yaml.Unmarshal(b, &items); err != nil {
			return nil, fmt.Errorf("input must be a list of records: %w", err)
		}
		return items, nil
	}
	var rec map[string]any
	if err := yaml.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("input must be a record: %w", err)
	}
	if rec == nil {
		return nil, errors.New("empty input")
	}
	return rec, nil
}

func writeOutput(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown output format %q", format)
}

// contentOf trims the trailing newline a shell adds to text content.
func contentOf(def *structdef.StructDef, b []byte) string {
	if def.Options().Encoding == structdef.Raw {
		return string(b)
	}
	return string(bytes.TrimSpace(b))
}

func (a *app) encodeCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "encode [file]",
		Short: "Serialize YAML or JSON records",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := a.structDef()
			if err != nil {
				return err
			}
			in, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			data, err := parseRecords(in, all)
			if err != nil {
				return err
			}

			start := time.Now()
			var out string
			if all {
				out, err = def.SerializeAll(data)
			} else {
				out, err = def.Serialize(data)
			}
			if err != nil {
				return err
			}
			a.logger.Debug("encoded", "bytes", len(out), "ms", since(start))

			if def.Separator() != "" {
				out += "\n"
			}
			_, err = io.WriteString(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Input is a list; write all records in one frame")
	return cmd
}

func (a *app) decodeCmd() *cobra.Command {
	var (
		all    bool
		output string
	)
	cmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "Deserialize content to YAML or JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := a.structDef()
			if err != nil {
				return err
			}
			in, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			content := contentOf(def, in)

			start := time.Now()
			var v any
			if all {
				recs, err := def.DeserializeAll(content)
				if err != nil {
					return err
				}
				if recs == nil {
					recs = []structdef.Record{}
				}
				v = recs
			} else {
				rec, err := def.Deserialize(content)
				if err != nil {
					return err
				}
				v = rec
			}
			a.logger.Debug("decoded", "bytes", len(content), "ms", since(start))
			return writeOutput(cmd.OutOrStdout(), output, v)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Decode every record of every frame")
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "Output format: yaml or json")
	return cmd
}

func (a *app) inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [file]",
		Short: "Show frame headers without decoding records",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := a.structDef()
			if err != nil {
				return err
			}
			in, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			infos, err := def.Inspect(contentOf(def, in))
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for i, info := range infos {
				fp := "none"
				if info.HasFingerprint {
					fp = fmt.Sprintf("%016x", info.Fingerprint)
				}
				fmt.Fprintf(w, "frame %d: version=%d records=%d compressed=%t fingerprint=%s body=%d raw=%d size=%d\n",
					i, info.Version, info.Records, info.Compressed, fp, info.BodySize, info.RawSize, info.Size)
			}
			return nil
		},
	}
}

func (a *app) schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Validate the schema file and print it with its fingerprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			def, err := a.structDef()
			if err != nil {
				return err
			}
			s := def.Schema()
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "# fingerprint: %016x\n", s.Fingerprint())
			return writeOutput(w, "yaml", s)
		},
	}
}
