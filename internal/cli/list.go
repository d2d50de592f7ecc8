package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/railwatch/railwatch/internal/ledger"
	"github.com/railwatch/railwatch/internal/model"
)

var listStatus string

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List ledger incidents",
	Long: `List the incidents in the ledger, optionally filtered by status.

Example:
  railwatch list
  railwatch list --status DRAFT`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVar(&listStatus, "status", "", "only show rows with this status (e.g. DRAFT)")
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer store.Close()

	rows, err := store.Rows()
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	shown := 0
	for _, row := range rows {
		if listStatus != "" && !strings.EqualFold(row.Status, listStatus) {
			continue
		}
		shown++
		printRow(row)
	}
	fmt.Printf("\n%d of %d rows shown\n", shown, len(rows))
	return nil
}

func printRow(row model.LedgerRow) {
	fmt.Printf("row %d  %s  [%s]", row.ID, row.Date, row.Status)
	if row.IncidentNum != "" {
		fmt.Printf("  %s", row.IncidentNum)
	}
	fmt.Println()
	if row.Name != "" || row.Age != "" {
		fmt.Printf("    victim: %s", row.Name)
		if row.Age != "" {
			fmt.Printf(" (%s)", row.Age)
		}
		fmt.Println()
	}
	if row.LocationCity != "" || row.LocationFull != "" {
		fmt.Printf("    location: %s", row.LocationCity)
		if row.LocationFull != "" {
			fmt.Printf(" - %s", row.LocationFull)
		}
		fmt.Println()
	}
	if row.Sources != "" {
		for _, src := range model.SplitSources(row.Sources) {
			fmt.Printf("    source: %s\n", src)
		}
	}
}
