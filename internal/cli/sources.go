package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"askdocs/internal/usecase"
)

var (
	sourcesJSON bool
	docName     string
	docFile     string
	urlFile     string
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List what the knowledge base is built from",
	Args:  cobra.NoArgs,
	RunE:  runSources,
}

var urlCmd = &cobra.Command{
	Use:   "url",
	Short: "Manage ingested web pages",
}

var urlRemoveCmd = &cobra.Command{
	Use:   "remove <url>",
	Short: "Remove a web page and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSources(true, func(a *app, u *usecase.SourcesUseCase) error {
			n, err := u.RemoveURL(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s (%d chunks)\n", args[0], n)
			return nil
		})
	},
}

var urlUpdateCmd = &cobra.Command{
	Use:   "update <url> [content]",
	Short: "Replace the stored content of a web page and re-ingest it",
	Long: `Replace the stored content of a web page and re-ingest it. Content is taken
from the argument, from --file, or from stdin.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := contentFrom(cmd, args[1:], urlFile)
		if err != nil {
			return err
		}
		return withSources(true, func(a *app, u *usecase.SourcesUseCase) error {
			n, err := u.UpdateURL(cmd.Context(), args[0], content)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s: %d chunks\n", args[0], n)
			return nil
		})
	},
}

var urlShowCmd = &cobra.Command{
	Use:   "show <url>",
	Short: "Print the stored content of a web page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSources(false, func(a *app, u *usecase.SourcesUseCase) error {
			content, err := u.URLContent(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), content)
			return nil
		})
	},
}

var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "Manage named documents",
}

var docSaveCmd = &cobra.Command{
	Use:   "save [id]",
	Short: "Create or replace a named document and ingest it",
	Long: `Create or replace a named document and ingest it. The id is derived from
--name when omitted. Content is read from --file or stdin.

Examples:
  askdocs doc save --name "Shipping Policy" --file shipping.txt
  cat faq.txt | askdocs doc save faq`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := ""
		if len(args) > 0 {
			id = args[0]
		}
		content, err := contentFrom(cmd, nil, docFile)
		if err != nil {
			return err
		}
		return withSources(true, func(a *app, u *usecase.SourcesUseCase) error {
			id, n, err := u.SaveDocument(cmd.Context(), id, docName, content)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved document %s: %d chunks\n", id, n)
			return nil
		})
	},
}

var docShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSources(false, func(a *app, u *usecase.SourcesUseCase) error {
			content, err := u.DocumentContent(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), content)
			return nil
		})
	},
}

var docDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSources(true, func(a *app, u *usecase.SourcesUseCase) error {
			n, err := u.DeleteDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted document %s (%d chunks)\n", args[0], n)
			return nil
		})
	},
}

var docListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSources(false, func(a *app, u *usecase.SourcesUseCase) error {
			docs, err := u.Documents()
			if err != nil {
				return err
			}
			for _, d := range docs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", d.ID, d.Name)
			}
			return nil
		})
	},
}

var qnaCmd = &cobra.Command{
	Use:   "qna",
	Short: "Manage curated question and answer pairs",
}

var qnaAddCmd = &cobra.Command{
	Use:   "add <question> <answer>",
	Short: "Add a Q&A pair and ingest it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSources(true, func(a *app, u *usecase.SourcesUseCase) error {
			n, err := u.AddQnA(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Q&A added: %d chunks\n", n)
			return nil
		})
	},
}

var qnaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List Q&A pairs with their index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSources(false, func(a *app, u *usecase.SourcesUseCase) error {
			pairs, err := u.QnA()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, p := range pairs {
				fmt.Fprintf(out, "[%d] Q: %s\n    A: %s\n", i, p.Question, p.Answer)
			}
			return nil
		})
	},
}

var qnaDeleteCmd = &cobra.Command{
	Use:   "delete <index>",
	Short: "Delete the Q&A pair at index and re-ingest the rest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid index %q: %w", args[0], err)
		}
		return withSources(true, func(a *app, u *usecase.SourcesUseCase) error {
			n, err := u.DeleteQnA(cmd.Context(), index)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Q&A deleted; %d chunks re-ingested\n", n)
			return nil
		})
	},
}

var qnaClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every Q&A pair",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSources(true, func(a *app, u *usecase.SourcesUseCase) error {
			if err := u.ClearQnA(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Q&A cleared")
			return nil
		})
	},
}

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Show or replace the knowledge file",
}

var knowledgeShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the knowledge file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSources(false, func(a *app, u *usecase.SourcesUseCase) error {
			text, err := a.library.Knowledge()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		})
	},
}

var knowledgeSetCmd = &cobra.Command{
	Use:   "set [file]",
	Short: "Replace the knowledge file from a file or stdin and rebuild the store",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) > 0 {
			path = args[0]
		}
		content, err := contentFrom(cmd, nil, path)
		if err != nil {
			return err
		}
		return withSources(true, func(a *app, u *usecase.SourcesUseCase) error {
			n, err := u.SaveKnowledge(cmd.Context(), content, newProgress("Re-ingesting"))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Knowledge saved; %d chunks in the knowledge base\n", n)
			return a.recordSchema()
		})
	},
}

var reingestCmd = &cobra.Command{
	Use:   "reingest",
	Short: "Clear the store and ingest every library source again",
	Long: `Clear the store and ingest the knowledge file, every stored URL, the Q&A file
and every document again. Run this after changing the embedding or chunking
configuration.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.checkSchema(true); err != nil {
			return err
		}
		u, err := a.sourcesUseCase()
		if err != nil {
			return err
		}
		n, err := u.ReingestAll(cmd.Context(), newProgress("Re-ingesting"))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Re-ingested all sources: %d chunks\n", n)
		return a.recordSchema()
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd, urlCmd, docCmd, qnaCmd, knowledgeCmd, reingestCmd)
	sourcesCmd.Flags().BoolVar(&sourcesJSON, "json", false, "output as JSON")

	urlCmd.AddCommand(urlRemoveCmd, urlUpdateCmd, urlShowCmd)
	urlUpdateCmd.Flags().StringVarP(&urlFile, "file", "f", "", "read content from file")

	docCmd.AddCommand(docSaveCmd, docShowCmd, docDeleteCmd, docListCmd)
	docSaveCmd.Flags().StringVarP(&docName, "name", "n", "", "display name of the document")
	docSaveCmd.Flags().StringVarP(&docFile, "file", "f", "", "read content from file")

	qnaCmd.AddCommand(qnaAddCmd, qnaListCmd, qnaDeleteCmd, qnaClearCmd)
	knowledgeCmd.AddCommand(knowledgeShowCmd, knowledgeSetCmd)
}

// withSources runs fn with the sources use case. Writers hold the store lock.
func withSources(write bool, fn func(a *app, u *usecase.SourcesUseCase) error) error {
	a, err := openApp(write)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.checkSchema(false); err != nil {
		return err
	}
	u, err := a.sourcesUseCase()
	if err != nil {
		return err
	}
	return fn(a, u)
}

// contentFrom returns args[0], the content of path, or stdin, in that order.
func contentFrom(cmd *cobra.Command, args []string, path string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}
		return string(data), nil
	}
	return argOrStdin(cmd, nil)
}

func runSources(cmd *cobra.Command, args []string) error {
	return withSources(false, func(a *app, u *usecase.SourcesUseCase) error {
		listing, err := u.List(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if sourcesJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(listing)
		}

		s := stylesFor(out)
		fmt.Fprintln(out, s.Answer.Render("Stored sources"))
		if len(listing.Stored) == 0 {
			fmt.Fprintln(out, s.Dim.Render("  (none)"))
		}
		for _, src := range listing.Stored {
			fmt.Fprintf(out, "  %-50s %-5s %s\n", src.ID, src.Kind, s.Dim.Render(fmt.Sprintf("%d chunks", src.Chunks)))
		}
		fmt.Fprintf(out, "\n%s %d\n", s.Label.Render("URLs:"), len(listing.URLs))
		for _, u := range listing.URLs {
			fmt.Fprintf(out, "  %s\n", u)
		}
		fmt.Fprintf(out, "%s %d\n", s.Label.Render("Documents:"), len(listing.Documents))
		for _, d := range listing.Documents {
			fmt.Fprintf(out, "  %s\n", d.ID)
		}
		fmt.Fprintf(out, "%s %d\n", s.Label.Render("Q&A pairs:"), listing.QnA)
		return nil
	})
}
