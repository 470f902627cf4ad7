package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ramkansal/dexscrape/internal/extractor"
	"github.com/ramkansal/dexscrape/pkg/plugin"
)

// newExtractCmd runs the record extractor on a saved entity page.
func newExtractCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract the record from a saved entity page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ext, err := newExtractor(opts)
			if err != nil {
				return err
			}
			page, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			res, err := ext.ExtractDetailed(page)
			if err != nil {
				return err
			}
			for _, issue := range res.Skipped {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped move row %d: %v\n", issue.Row, issue.Err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res.Record)
		},
	}
}

// newDiscoverCmd lists the links a saved page leads to.
func newDiscoverCmd(opts *rootOptions) *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "discover <file>",
		Short: "List the category or entity links on a saved page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r plugin.Role
			switch role {
			case "category":
				r = plugin.RoleCategory
			case "entity":
				r = plugin.RoleEntity
			default:
				return fmt.Errorf("unknown role %q (want category or entity)", role)
			}

			ext, err := newExtractor(opts)
			if err != nil {
				return err
			}
			page, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			links, err := ext.Discover(page, r)
			if err != nil {
				return err
			}
			for _, href := range links {
				fmt.Fprintln(cmd.OutOrStdout(), href)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&role, "role", "r", "category", "links to list: category (on the home page), entity (on a category page)")
	return cmd
}

func newExtractor(opts *rootOptions) (*extractor.Extractor, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	extOpts, err := cfg.Extractor.Options()
	if err != nil {
		return nil, err
	}
	return extractor.New(extOpts), nil
}
