package main

import (
	"github.com/spf13/cobra"
)

func (a *app) storeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Keep records in Redis",
	}

	var output string
	cmd.PersistentFlags().StringVarP(&output, "output", "o", "yaml", "Output format: yaml or json")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "put <key> [file]",
			Short: "Replace the record at key",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.write(cmd, args, false)
			},
		},
		&cobra.Command{
			Use:   "log <key> [file]",
			Short: "Append a record to the series at key",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.write(cmd, args, true)
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print the record at key",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				table, closer, err := a.table()
				if err != nil {
					return err
				}
				defer closer.Close()
				rec, err := table.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), output, rec)
			},
		},
		&cobra.Command{
			Use:   "history <key>",
			Short: "Print every record at key, oldest first",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				table, closer, err := a.table()
				if err != nil {
					return err
				}
				defer closer.Close()
				recs, err := table.History(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), output, recs)
			},
		},
		&cobra.Command{
			Use:   "delete <key>",
			Short: "Remove key",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				table, closer, err := a.table()
				if err != nil {
					return err
				}
				defer closer.Close()
				return table.Delete(cmd.Context(), args[0])
			},
		},
	)
	return cmd
}

func (a *app) write(cmd *cobra.Command, args []string, appendRecord bool) error {
	table, closer, err := a.table()
	if err != nil {
		return err
	}
	defer closer.Close()

	in, err := readInput(cmd, args[1:])
	if err != nil {
		return err
	}
	data, err := parseRecords(in, false)
	if err != nil {
		return err
	}
	if appendRecord {
		return table.Log(cmd.Context(), args[0], data)
	}
	return table.Put(cmd.Context(), args[0], data)
}
