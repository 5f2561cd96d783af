package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/gear6io/strata/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

// Package-specific error codes for the partitions command
var (
	ErrCatalogUnreadable = errors.MustNewCode("cli.catalog_unreadable")
)

var partitionsCmd = &cobra.Command{
	Use:   "partitions <database.table>",
	Short: "List a table's cataloged partitions",
	Long: `List the partitions the catalog records for a table.

For a JSON catalog the file is inspected directly; other catalog types
are queried through the catalog API.

Examples:
  strata partitions analytics.events`,
	Args: cobra.ExactArgs(1),
	RunE: runPartitions,
}

func runPartitions(cmd *cobra.Command, args []string) error {
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

	if env.cfg.GetCatalogType() == "json" {
		return printPartitionsFromJSONCatalog(env, ident.String())
	}

	entries, err := env.catalog.ListPartitions(ctx, ident, nil)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Printf("No partitions cataloged for %s\n", ident.String())
		return nil
	}
	for _, entry := range entries {
		line := entry.Spec.CanonicalKey()
		if entry.Location != "" {
			line += "  (custom location: " + entry.Location + ")"
		}
		fmt.Println(line)
	}
	return nil
}

// printPartitionsFromJSONCatalog reads the catalog file directly so the
// command works without instantiating catalog internals, and stays cheap
// on large catalogs.
func printPartitionsFromJSONCatalog(env *environment, tableKey string) error {
	uri := env.pathManager.GetCatalogURI("json")
	data, err := os.ReadFile(uri)
	if err != nil {
		return errors.New(ErrCatalogUnreadable, "failed to read catalog file", err).AddContext("path", uri)
	}

	escaped := strings.ReplaceAll(tableKey, ".", `\.`)
	table := gjson.GetBytes(data, "tables."+escaped)
	if !table.Exists() {
		fmt.Printf("Table %s is not cataloged\n", tableKey)
		return nil
	}

	partitions := table.Get("partitions")
	if !partitions.Exists() || len(partitions.Array()) == 0 {
		fmt.Printf("No partitions cataloged for %s\n", tableKey)
		return nil
	}

	partitions.ForEach(func(_, entry gjson.Result) bool {
		var parts []string
		entry.Get("spec").ForEach(func(col, value gjson.Result) bool {
			parts = append(parts, col.String()+"="+value.String())
			return true
		})
		line := strings.Join(parts, "/")
		if loc := entry.Get("location"); loc.Exists() && loc.String() != "" {
			line += "  (custom location: " + loc.String() + ")"
		}
		fmt.Println(line)
		return true
	})
	return nil
}

func init() {
	rootCmd.AddCommand(partitionsCmd)
}
