package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhad/quizdeck/internal/models"
	"github.com/xhad/quizdeck/internal/types"
	"github.com/xhad/quizdeck/pkg/processor"
	"github.com/xhad/quizdeck/pkg/store"
)

type importFlags struct {
	audio       bool
	noMedia     bool
	start       string
	stop        string
	format      string
	out         string
	mediaDir    string
	richText    bool
	reverse     bool
	imageOnBack bool
	htmlFile    string
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	var flags importFlags

	cmd := &cobra.Command{
		Use:   "import <url>",
		Short: "Import a set or folder into deck files",
		Long: "Import a Quizlet set or folder. Each set is written as one deck file in the export\n" +
			"directory and its media is saved to the media directory.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			f := cmd.Flags()
			if f.Changed("audio") {
				cfg.Import.DownloadAudio = flags.audio
			}
			if f.Changed("rich-text") {
				cfg.Import.RichText = flags.richText
			}
			if f.Changed("reverse") {
				cfg.Import.AddReverse = flags.reverse
			}
			if f.Changed("image-on-back") {
				cfg.Import.ImageOnBack = flags.imageOnBack
			}
			if flags.format != "" {
				cfg.Export.Format = flags.format
			}
			if flags.out != "" {
				cfg.Export.Dir = flags.out
			}
			if flags.mediaDir != "" {
				cfg.Media.Dir = flags.mediaDir
			}
			if err := validate(cfg); err != nil {
				return err
			}
			return runImport(cmd, ctx, args[0], flags)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&flags.audio, "audio", false, "Download term and definition audio")
	f.BoolVar(&flags.noMedia, "no-media", false, "Skip all media downloads")
	f.StringVar(&flags.start, "start", "", "First card to import, matched against term or definition")
	f.StringVar(&flags.stop, "stop", "", "Last card to import, matched against term or definition")
	f.StringVar(&flags.format, "format", "", "Output format: tsv, json or markdown")
	f.StringVarP(&flags.out, "out", "o", "", "Directory for deck files")
	f.StringVar(&flags.mediaDir, "media-dir", "", "Directory for downloaded media")
	f.BoolVar(&flags.richText, "rich-text", false, "Keep rich text formatting and link the stylesheet")
	f.BoolVar(&flags.reverse, "reverse", false, "Mark notes for a reverse card")
	f.BoolVar(&flags.imageOnBack, "image-on-back", false, "Append the image to the back of the card")
	f.StringVar(&flags.htmlFile, "html-file", "", "Read the set from saved page source instead of fetching it")

	return cmd
}

func runImport(cmd *cobra.Command, ctx *commandContext, sourceURL string, flags importFlags) error {
	cfg := ctx.config
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	logger := ctx.logger(errOut)

	format, err := store.ParseFormat(cfg.Export.Format)
	if err != nil {
		return err
	}

	view := newProgressView(errOut)
	defer view.finish()

	p, err := ctx.newPipeline(logger, !flags.noMedia, view.update)
	if err != nil {
		return err
	}

	opts := types.ImportOptions{
		DownloadAudio: cfg.Import.DownloadAudio,
		StartPhrase:   flags.start,
		StopPhrase:    flags.stop,
	}

	var (
		decks     []*models.Deck
		importErr error
	)
	if flags.htmlFile != "" {
		html, err := os.ReadFile(flags.htmlFile)
		if err != nil {
			return fmt.Errorf("failed to read page source: %w", err)
		}
		var deck *models.Deck
		deck, err = p.importer.ImportHTML(cmd.Context(), string(html), sourceURL, opts)
		if deck != nil {
			decks = append(decks, deck)
		}
		if err != nil {
			return importFailed(errOut, err)
		}
	} else {
		decks, importErr = p.importer.Import(cmd.Context(), sourceURL, opts)
		if importErr != nil && len(decks) == 0 {
			return importFailed(errOut, importErr)
		}
	}
	view.finish()

	proc := processor.NewWithConfig(processor.ProcessorConfig{
		RichText:    cfg.Import.RichText,
		AddReverse:  cfg.Import.AddReverse,
		ImageOnBack: cfg.Import.ImageOnBack,
	})
	if cfg.Import.RichText && p.store != nil {
		if err := processor.WriteStylesheet(p.store); err != nil {
			return fmt.Errorf("failed to write stylesheet: %w", err)
		}
	}

	deckStore, err := store.NewWithConfig(store.StoreConfig{OutputDir: cfg.Export.Dir, Format: format})
	if err != nil {
		return fmt.Errorf("failed to initialize deck store: %w", err)
	}

	for _, deck := range decks {
		path, saveErr := deckStore.SaveDeck(deck, proc.Process(deck))
		if saveErr != nil {
			return fmt.Errorf("failed to save deck %q: %w", deck.FullName(), saveErr)
		}
		color.New(color.FgGreen).Fprintf(out, "✓ %s: %d cards -> %s\n", deck.FullName(), len(deck.Items), path)
	}

	// A folder import that failed part way keeps the decks it finished.
	if importErr != nil {
		return importFailed(errOut, importErr)
	}
	if p.store != nil {
		color.New(color.FgCyan).Fprintf(out, "Media saved to %s\n", cfg.Media.Dir)
	}
	return nil
}

// importFailed prints a remediation hint; main prints the error itself.
func importFailed(w io.Writer, err error) error {
	if hint := remediation(err); hint != "" {
		color.New(color.FgYellow).Fprintln(w, hint)
	}
	return fmt.Errorf("import failed: %w", err)
}
