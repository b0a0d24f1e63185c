package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/grievance-api/internal/grievance"
)

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Print categories, sub-categories and their required fields",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return printTaxonomy(cmd.OutOrStdout(), grievance.DefaultRegistry(), asJSON)
	},
}

func init() {
	taxonomyCmd.Flags().Bool("json", false, "Output field schemas as JSON")
}

func printTaxonomy(w io.Writer, registry *grievance.Registry, asJSON bool) error {
	var schemas []grievance.FieldSchema
	for _, category := range registry.Categories() {
		for _, sub := range registry.SubCategoriesFor(category) {
			schema, err := registry.SchemaFor(category, sub)
			if err != nil {
				return err
			}
			schemas = append(schemas, schema)
		}
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(schemas)
	}

	var current string
	for _, schema := range schemas {
		if string(schema.Category) != current {
			current = string(schema.Category)
			fmt.Fprintln(w, current)
		}
		required := schema.RequiredKeys()
		if len(required) == 0 {
			fmt.Fprintf(w, "  %s\n", schema.SubCategory)
			continue
		}
		fmt.Fprintf(w, "  %s: %s\n", schema.SubCategory, strings.Join(required, ", "))
	}
	return nil
}
