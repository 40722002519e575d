package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"askdocs/internal/adapter/analyzer"
	"askdocs/internal/usecase"
)

var (
	askJSON     bool
	askSnippets bool
	askTopK     int
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the knowledge base",
	Long: `Answer a question using only the ingested documents. When no stored chunk is
similar enough to the question, a fixed "nothing relevant" reply is printed
and no model is called.

Examples:
  askdocs ask "What is the refund policy?"
  askdocs ask "Do you ship abroad?" --snippets
  askdocs ask "Opening hours?" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions interactively",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

var promptCmd = &cobra.Command{
	Use:   "prompt <question>",
	Short: "Print the prompt that would be sent to the model",
	Long: `Retrieve context for a question and print the grounded prompt without
calling the generation model. Useful for checking what the model would see.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPrompt,
}

func init() {
	rootCmd.AddCommand(askCmd, chatCmd, promptCmd)
	for _, c := range []*cobra.Command{askCmd, chatCmd, promptCmd} {
		c.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	}
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
	askCmd.Flags().BoolVar(&askSnippets, "snippets", false, "print a snippet of every cited chunk")
	chatCmd.Flags().BoolVar(&askSnippets, "snippets", false, "print a snippet of every cited chunk")
}

// openAnswer opens a read-only app and builds the answer use case. Without
// generate no generation provider is configured.
func openAnswer(generate bool) (*app, *usecase.AnswerUseCase, error) {
	if askTopK > 0 {
		GetConfig().Retrieve.TopK = askTopK
	}
	a, err := openApp(false)
	if err != nil {
		return nil, nil, err
	}
	if err := a.checkSchema(false); err != nil {
		a.Close()
		return nil, nil, err
	}
	u, err := a.answerUseCase(generate)
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	return a, u, nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, u, err := openAnswer(true)
	if err != nil {
		return err
	}
	defer a.Close()

	answer, err := u.Answer(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}

	if askJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	}
	printAnswer(cmd.OutOrStdout(), answer, a.cfg.Retrieve.SnippetChars, askSnippets)
	return nil
}

func runChat(cmd *cobra.Command, args []string) error {
	a, u, err := openAnswer(true)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	s := stylesFor(out)

	n, err := a.store.Count(cmd.Context())
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("knowledge base is empty; run 'askdocs ingest' first")
	}
	fmt.Fprintf(out, "Ready (%d chunks). Ask a question (or 'quit' / 'exit' to stop).\n", n)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, s.Label.Render("\nYou: "))
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		switch strings.ToLower(question) {
		case "quit", "exit", "q":
			return nil
		}

		answer, err := u.Answer(cmd.Context(), question)
		if err != nil {
			fmt.Fprintln(out, s.Warn.Render("Error: "+err.Error()))
			continue
		}
		fmt.Fprint(out, s.Label.Render("Bot: "))
		printAnswer(out, answer, a.cfg.Retrieve.SnippetChars, askSnippets)
	}
	fmt.Fprintln(out)
	return scanner.Err()
}

func runPrompt(cmd *cobra.Command, args []string) error {
	a, u, err := openAnswer(false)
	if err != nil {
		return err
	}
	defer a.Close()

	prompt, items, ok, err := u.Prompt(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !ok {
		fmt.Fprintln(out, usecase.NoContextReply)
		return nil
	}

	fmt.Fprintln(out, prompt.Text)
	s := stylesFor(cmd.ErrOrStderr())
	tokens := analyzer.NewTokenizer(false).CountTokens(prompt.System + "\n" + prompt.Text)
	fmt.Fprintln(cmd.ErrOrStderr(), s.Dim.Render(fmt.Sprintf("~%d tokens, %d chunks", tokens, len(items))))
	for i, item := range items {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", s.Dim.Render(fmt.Sprintf("[%d] %s #%d (similarity %.3f)", i+1, item.Source, item.Index, item.Similarity)))
	}
	return nil
}
