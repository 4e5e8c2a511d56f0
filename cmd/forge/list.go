package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bobmatnyc/edgar-sub010/internal/registry"
)

var (
	listDomain        string
	listTags          []string
	listMinConfidence float64
	listOutputJSON    bool
)

func init() {
	listCmd.Flags().StringVar(&listDomain, "domain", "", "filter by domain")
	listCmd.Flags().StringSliceVar(&listTags, "tags", nil, "filter by tags (all must match)")
	listCmd.Flags().Float64Var(&listMinConfidence, "min-confidence", 0, "minimum confidence")
	listCmd.Flags().BoolVar(&listOutputJSON, "json", false, "output as JSON")
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered artifacts",
	Long: `List prints the catalog entries, optionally filtered by domain,
tags and minimum confidence.

Examples:
  forge list
  forge list --domain filing --min-confidence 0.8
  forge list --tags finance --json`,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg, err := newRegistry(cfg)
	if err != nil {
		return err
	}

	entries := reg.List(registry.ListFilter{
		Domain:        listDomain,
		Tags:          listTags,
		MinConfidence: listMinConfidence,
	})

	if listOutputJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no artifacts registered")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tDOMAIN\tCONFIDENCE\tEXAMPLES\tSYMBOL")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%d\t%s\n",
			e.Name, e.Version, e.Domain, e.Confidence, e.ExampleCount, e.SymbolPath)
	}
	return w.Flush()
}
