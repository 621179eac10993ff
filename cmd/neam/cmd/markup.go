package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/gonkalabs/neam-go/internal/app"
	"github.com/gonkalabs/neam-go/internal/markup"
)

var (
	printMentions bool
	inputDocument bool
)

var markupCmd = &cobra.Command{
	Use:   "markup [file|-]",
	Short: "Mark up a text file",
	Long: `Markup reads a text file (or stdin when the argument is "-" or missing),
annotates it and writes the marked-up text to stdout.

With --mentions the annotator's mentions are printed as JSON instead.
With --document the input is a JSON document {"text": ..., "mentions": [...]}
that is rendered without calling the annotator.`,
	Example: `  neam markup letter.txt
  neam markup --annotator gazetteer --mentions letter.txt
  cat doc.json | neam markup --document -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMarkup,
}

func init() {
	rootCmd.AddCommand(markupCmd)
	markupCmd.Flags().BoolVar(&printMentions, "mentions", false, "print the annotator's mentions as JSON")
	markupCmd.Flags().BoolVar(&inputDocument, "document", false, "input is a pre-annotated JSON document")
}

func runMarkup(cmd *cobra.Command, args []string) error {
	if printMentions && inputDocument {
		return fmt.Errorf("markup: --mentions and --document cannot be combined")
	}
	input, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := app.Build(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	switch {
	case inputDocument:
		var doc markup.Document
		if err := json.Unmarshal(input, &doc); err != nil {
			return fmt.Errorf("markup: decode document: %w", err)
		}
		return writeSigned(cmd, a, a.RenderDocument(doc))

	case printMentions:
		doc, err := a.Annotate(cmd.Context(), string(input))
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)

	default:
		rendered, err := a.Render(cmd.Context(), string(input))
		if err != nil {
			return err
		}
		return writeSigned(cmd, a, rendered)
	}
}

// writeSigned writes rendered to stdout and, when signing is enabled, the
// signer and signature to stderr.
func writeSigned(cmd *cobra.Command, a *app.App, rendered string) error {
	sig, addr, signed, err := a.Sign(rendered)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(cmd.OutOrStdout(), rendered); err != nil {
		return err
	}
	if signed {
		fmt.Fprintf(cmd.ErrOrStderr(), "signer: %s\nsignature: %s\n", addr, sig)
	}
	return nil
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("markup: %w", err)
	}
	return data, nil
}
