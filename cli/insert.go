package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/gear6io/strata/pkg/errors"
	"github.com/gear6io/strata/server/commit"
	"github.com/spf13/cobra"
)

// Package-specific error codes for the insert command
var (
	ErrRowsFileUnreadable = errors.MustNewCode("cli.rows_file_unreadable")
)

var (
	insertRowsFile string
	insertPolicy   string
	insertStatic   string
	insertWorkerID string
)

var insertCmd = &cobra.Command{
	Use:   "insert <database.table>",
	Short: "Insert rows into a partitioned table",
	Long: `Insert rows into a table, honoring an overwrite policy.

Rows are read from a JSON-lines file (one object per line). Partition
values are taken from the static spec first, then from each row.

Policies: append, error_if_exists, overwrite_if_absent,
overwrite_all_matching, overwrite_dynamic_matching, ignore.

Examples:
  strata insert analytics.events --rows rows.json
  strata insert analytics.events --rows rows.json --policy overwrite_all_matching --static region=eu`,
	Args: cobra.ExactArgs(1),
	RunE: runInsert,
}

func readRowsFile(path string) ([]map[string]interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(ErrRowsFileUnreadable, "failed to open rows file", err).AddContext("path", path)
	}
	defer f.Close()

	var rows []map[string]interface{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var row map[string]interface{}
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, errors.New(ErrRowsFileUnreadable, "failed to parse row", err).AddContext("path", path)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.New(ErrRowsFileUnreadable, "failed to read rows file", err).AddContext("path", path)
	}
	return rows, nil
}

func runInsert(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.close(ctx)

	ident, err := parseTableIdent(args[0])
	if err != nil {
		return err
	}

	policy, err := commit.ParsePolicy(insertPolicy)
	if err != nil {
		return err
	}

	static, err := parseSpec(insertStatic)
	if err != nil {
		return err
	}

	var rows []map[string]interface{}
	if insertRowsFile != "" {
		if rows, err = readRowsFile(insertRowsFile); err != nil {
			return err
		}
	}

	outcome, err := env.executor.Insert(ctx, &commit.InsertRequest{
		Table:      ident,
		Policy:     policy,
		StaticSpec: static,
		Rows:       rows,
		WorkerID:   insertWorkerID,
	})
	if err != nil {
		return err
	}

	if outcome.Skipped {
		fmt.Printf("Skipped: matching partition already exists in %s\n", ident.String())
		return nil
	}

	fmt.Printf("Committed %d rows into %s (job %s)\n", len(rows), ident.String(), outcome.JobID)
	for _, spec := range outcome.PartitionsAdded {
		fmt.Printf("  added   %s\n", spec.CanonicalKey())
	}
	for _, spec := range outcome.PartitionsRemoved {
		fmt.Printf("  removed %s\n", spec.CanonicalKey())
	}
	return nil
}

func init() {
	insertCmd.Flags().StringVar(&insertRowsFile, "rows", "", "JSON-lines file of rows to insert")
	insertCmd.Flags().StringVar(&insertPolicy, "policy", "append", "overwrite policy")
	insertCmd.Flags().StringVar(&insertStatic, "static", "", "static partition spec, col=value pairs")
	insertCmd.Flags().StringVar(&insertWorkerID, "worker-id", "worker-0", "worker identity used in staging paths")
	rootCmd.AddCommand(insertCmd)
}
