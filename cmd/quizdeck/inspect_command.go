package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhad/quizdeck/internal/models"
	"github.com/xhad/quizdeck/pkg/importer"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var (
		limit   int
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <file|url>",
		Short: "Show the embedded format and cards of a set without saving anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]
			out := cmd.OutOrStdout()

			var set *models.CanonicalSet
			if _, statErr := os.Stat(target); statErr == nil {
				html, err := os.ReadFile(target)
				if err != nil {
					return fmt.Errorf("failed to read page source: %w", err)
				}
				set, err = importer.Parse(&models.RawDocument{URL: target, HTML: string(html)})
				if err != nil {
					return importFailed(cmd.ErrOrStderr(), err)
				}
			} else {
				p, err := ctx.newPipeline(ctx.logger(cmd.ErrOrStderr()), false, nil)
				if err != nil {
					return err
				}
				if p.scraper.IsFolderURL(target) {
					folder, err := p.importer.FetchFolder(cmd.Context(), target)
					if err != nil {
						return importFailed(cmd.ErrOrStderr(), err)
					}
					return printFolder(out, folder, jsonOut)
				}
				_, fetchURL, err := p.scraper.ParseDeckURL(target)
				if err != nil {
					return err
				}
				set, err = p.importer.Retrieve(cmd.Context(), fetchURL, target)
				if err != nil {
					return importFailed(cmd.ErrOrStderr(), err)
				}
			}
			return printSet(out, set, limit, jsonOut)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Number of cards to show")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON")
	return cmd
}

func printSet(w io.Writer, set *models.CanonicalSet, limit int, jsonOut bool) error {
	if jsonOut {
		return writeJSON(w, map[string]any{
			"title":   set.Title,
			"variant": set.Variant.String(),
			"items":   len(set.Items),
		})
	}

	bold := color.New(color.Bold)
	bold.Fprintf(w, "%s\n", set.Title)
	fmt.Fprintf(w, "Format: %s\n", color.CyanString(set.Variant.String()))
	fmt.Fprintf(w, "Cards:  %d\n", len(set.Items))

	for i, item := range set.Items {
		if i >= limit {
			fmt.Fprintf(w, "  ... %d more\n", len(set.Items)-limit)
			break
		}
		fmt.Fprintf(w, "  %s  %s\n", color.GreenString("%-24s", item.TermText), item.DefinitionText)
		if !item.TermAudio.IsZero() || !item.DefinitionAudio.IsZero() || !item.Image.IsZero() {
			fmt.Fprintf(w, "      %s\n", color.HiBlackString(mediaSummary(item)))
		}
	}
	return nil
}

func mediaSummary(item models.CanonicalItem) string {
	var s string
	add := func(label string, ref models.MediaRef) {
		if ref.IsZero() {
			return
		}
		if s != "" {
			s += ", "
		}
		s += label
	}
	add("term audio", item.TermAudio)
	add("definition audio", item.DefinitionAudio)
	add("image", item.Image)
	return s
}

func printFolder(w io.Writer, folder *models.Folder, jsonOut bool) error {
	if jsonOut {
		return writeJSON(w, map[string]any{
			"name": folder.Name,
			"sets": folder.SetURLs,
		})
	}
	color.New(color.Bold).Fprintf(w, "%s\n", folder.Name)
	fmt.Fprintf(w, "Sets:   %d\n", len(folder.SetURLs))
	for _, u := range folder.SetURLs {
		fmt.Fprintf(w, "  %s\n", u)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
