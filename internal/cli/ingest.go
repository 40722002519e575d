package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"askdocs/internal/domain"
	"askdocs/internal/usecase"
)

var (
	ingestTextSource string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Add documents to the knowledge base",
	Long: `Add documents to the knowledge base. Each source is extracted, split into
overlapping chunks, embedded and stored. Re-ingesting a file or URL replaces
the chunks it had before.

Examples:
  askdocs ingest file manual.pdf notes.docx
  askdocs ingest url https://example.com/faq
  askdocs ingest dir ./docs
  askdocs ingest knowledge
  echo "Our office opens at nine." | askdocs ingest text --source hours`,
}

var ingestFileCmd = &cobra.Command{
	Use:   "file <path>...",
	Short: "Ingest text, Markdown, HTML, PDF or DOCX files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngestFile,
}

var ingestURLCmd = &cobra.Command{
	Use:   "url <url>",
	Short: "Fetch a web page and ingest its text",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngestURL,
}

var ingestDirCmd = &cobra.Command{
	Use:   "dir [path]",
	Short: "Ingest every matching file under a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIngestDir,
}

var ingestKnowledgeCmd = &cobra.Command{
	Use:   "knowledge [path]",
	Short: "Ingest the knowledge file (default from config)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIngestKnowledge,
}

var ingestTextCmd = &cobra.Command{
	Use:   "text [text]",
	Short: "Ingest text from the argument or stdin",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIngestText,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.AddCommand(ingestFileCmd, ingestURLCmd, ingestDirCmd, ingestKnowledgeCmd, ingestTextCmd)
	ingestTextCmd.Flags().StringVarP(&ingestTextSource, "source", "s", "", "source label for the text (required)")
	ingestTextCmd.MarkFlagRequired("source")
}

// withIngest runs fn with a writer app and the ingest use case.
func withIngest(fn func(a *app, u *usecase.IngestUseCase) error) error {
	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.checkSchema(false); err != nil {
		return err
	}
	u, err := a.ingestUseCase()
	if err != nil {
		return err
	}
	return fn(a, u)
}

func runIngestFile(cmd *cobra.Command, args []string) error {
	return withIngest(func(a *app, u *usecase.IngestUseCase) error {
		total := 0
		for _, path := range args {
			n, err := u.IngestFile(cmd.Context(), path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ingested %s: %d chunks\n", filepath.Base(path), n)
			total += n
		}
		if len(args) > 1 {
			fmt.Fprintf(cmd.OutOrStdout(), "Total: %d chunks\n", total)
		}
		return nil
	})
}

func runIngestURL(cmd *cobra.Command, args []string) error {
	return withIngest(func(a *app, u *usecase.IngestUseCase) error {
		n, err := u.IngestURL(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Ingested %s: %d chunks\n", args[0], n)
		return nil
	})
}

func runIngestDir(cmd *cobra.Command, args []string) error {
	path := GetRootDir()
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	return withIngest(func(a *app, u *usecase.IngestUseCase) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Scanning %s...\n", path)

		result, err := u.IngestDir(cmd.Context(), path, newProgress("Ingesting"))
		if err != nil {
			return fmt.Errorf("ingestion failed: %w", err)
		}

		fmt.Fprintf(out, "\nIngestion complete:\n")
		fmt.Fprintf(out, "  Files ingested: %d\n", result.FilesIngested)
		fmt.Fprintf(out, "  Files skipped:  %d (no text)\n", result.FilesSkipped)
		fmt.Fprintf(out, "  Chunks created: %d\n", result.ChunksCreated)
		if len(result.Errors) > 0 {
			fmt.Fprintf(out, "\nWarnings:\n")
			for _, e := range result.Errors {
				fmt.Fprintf(out, "  - %s\n", e)
			}
		}
		return nil
	})
}

func runIngestKnowledge(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	return withIngest(func(a *app, u *usecase.IngestUseCase) error {
		n, err := u.IngestKnowledgeFile(cmd.Context(), path)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Ingested knowledge file: %d chunks\n", n)
		return nil
	})
}

func runIngestText(cmd *cobra.Command, args []string) error {
	text, err := argOrStdin(cmd, args)
	if err != nil {
		return err
	}
	return withIngest(func(a *app, u *usecase.IngestUseCase) error {
		n, err := u.IngestText(cmd.Context(), text, domain.Source{ID: ingestTextSource, Kind: domain.KindText})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Ingested %s: %d chunks\n", ingestTextSource, n)
		return nil
	})
}

// argOrStdin returns the first argument, or all of stdin when there is none.
func argOrStdin(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}
