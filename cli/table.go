package cli

import (
	"fmt"
	"strings"

	catalogshared "github.com/gear6io/strata/server/catalog/shared"
	"github.com/gear6io/strata/server/index"
	"github.com/gear6io/strata/server/partition"
	"github.com/spf13/cobra"
)

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Manage tables",
	Long: `Manage tables in the catalog.

Examples:
  strata table create analytics.events --partition-by region,day
  strata table list analytics
  strata table sync analytics.events`,
}

var tablePartitionBy string

var tableCreateCmd = &cobra.Command{
	Use:   "create <database.table>",
	Short: "Register a table with its partition columns",
	Args:  cobra.ExactArgs(1),
	RunE:  runTableCreate,
}

var tableListCmd = &cobra.Command{
	Use:   "list <database>",
	Short: "List tables in a database",
	Args:  cobra.ExactArgs(1),
	RunE:  runTableList,
}

var tableSyncCmd = &cobra.Command{
	Use:   "sync <database.table>",
	Short: "Register partitions found on disk but missing from the catalog",
	Long: `Walk the table's directory tree, parse the col=value partition
directories, and register any partition the catalog does not know about.
Useful after external writes or catalog recovery.`,
	Args: cobra.ExactArgs(1),
	RunE: runTableSync,
}

func runTableCreate(cmd *cobra.Command, args []string) error {
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

	var partitionColumns []string
	if tablePartitionBy != "" {
		partitionColumns = strings.Split(tablePartitionBy, ",")
	}

	if err := env.catalog.CreateTable(ctx, ident, partitionColumns); err != nil {
		return err
	}

	fmt.Printf("Created table %s", ident.String())
	if len(partitionColumns) > 0 {
		fmt.Printf(" partitioned by (%s)", strings.Join(partitionColumns, ", "))
	}
	fmt.Println()
	return nil
}

func runTableList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.close(ctx)

	idents, err := env.catalog.ListTables(ctx, args[0])
	if err != nil {
		return err
	}

	if len(idents) == 0 {
		fmt.Printf("No tables in database %s\n", args[0])
		return nil
	}
	for _, ident := range idents {
		fmt.Println(ident.String())
	}
	return nil
}

func runTableSync(cmd *cobra.Command, args []string) error {
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

	info, err := env.catalog.GetTable(ctx, ident)
	if err != nil {
		return err
	}

	discovery := index.NewFilesystemIndex(env.fs, env.pathManager, ident, info.PartitionColumns, env.logger)
	dirs, err := discovery.ListFiles(ctx, nil, nil)
	if err != nil {
		return err
	}

	existing, err := env.catalog.ListPartitions(ctx, ident, nil)
	if err != nil {
		return err
	}
	known := partition.NewSet()
	for _, entry := range existing {
		known.Add(entry.Spec)
	}

	var missing []catalogshared.PartitionEntry
	for _, dir := range dirs {
		if dir.Spec.IsEmpty() || known.Contains(dir.Spec) {
			continue
		}
		missing = append(missing, catalogshared.PartitionEntry{Spec: dir.Spec})
	}

	if len(missing) == 0 {
		fmt.Printf("Catalog already in sync for %s\n", ident.String())
		return nil
	}

	if err := env.catalog.AddPartitions(ctx, ident, missing); err != nil {
		return err
	}
	for _, entry := range missing {
		fmt.Println(entry.Spec.CanonicalKey())
	}
	fmt.Printf("Registered %d partition(s) for %s\n", len(missing), ident.String())
	return nil
}

func init() {
	tableCreateCmd.Flags().StringVar(&tablePartitionBy, "partition-by", "", "comma-separated partition columns")
	tableCmd.AddCommand(tableCreateCmd)
	tableCmd.AddCommand(tableListCmd)
	tableCmd.AddCommand(tableSyncCmd)
	rootCmd.AddCommand(tableCmd)
}
