package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"askdocs/internal/adapter/store"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the knowledge base and print its configuration",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
}

type statusReport struct {
	Status          string `json:"status"`
	Chunks          int    `json:"chunks"`
	Dimension       int    `json:"dimension"`
	Backend         string `json:"backend"`
	Store           string `json:"store"`
	Metric          string `json:"metric"`
	EmbeddingModel  string `json:"embedding_model"`
	GenerationModel string `json:"generation_model"`
	SchemaVersion   int    `json:"schema_version"`
	NeedsReingest   bool   `json:"needs_reingest"`
	UpdatedAt       string `json:"updated_at,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	u, err := a.sourcesUseCase()
	if err != nil {
		return err
	}
	stats, err := u.Stats(cmd.Context())
	if err != nil {
		return err
	}
	info, err := store.GetSchemaInfo(a.store)
	if err != nil {
		return err
	}
	migration, err := store.CheckMigration(a.store, a.cfg)
	if err != nil {
		return err
	}

	report := statusReport{
		Status:          "ok",
		Chunks:          stats.Chunks,
		Dimension:       stats.Dimension,
		Backend:         a.cfg.Store.Backend,
		Store:           a.cfg.Store.Dir,
		Metric:          a.cfg.Store.Metric,
		EmbeddingModel:  fmt.Sprintf("%s/%s", a.cfg.Embedding.Provider, a.cfg.Embedding.Model),
		GenerationModel: fmt.Sprintf("%s/%s", a.cfg.Generation.Provider, a.cfg.Generation.Model),
		SchemaVersion:   info.Version,
		NeedsReingest:   migration.NeedsRebuild,
	}
	if !stats.UpdatedAt.IsZero() {
		report.UpdatedAt = stats.UpdatedAt.Local().Format("2006-01-02 15:04:05")
	}

	out := cmd.OutOrStdout()
	if statusJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	s := stylesFor(out)
	fmt.Fprintln(out, s.OK.Render(report.Status))
	rows := [][2]string{
		{"Chunks", fmt.Sprint(report.Chunks)},
		{"Dimension", fmt.Sprint(report.Dimension)},
		{"Store", fmt.Sprintf("%s (%s, %s)", report.Store, report.Backend, report.Metric)},
		{"Embedding", report.EmbeddingModel},
		{"Generation", report.GenerationModel},
		{"Schema", fmt.Sprintf("v%d", report.SchemaVersion)},
	}
	if report.UpdatedAt != "" {
		rows = append(rows, [2]string{"Updated", report.UpdatedAt})
	}
	for _, r := range rows {
		fmt.Fprintf(out, "  %s %s\n", s.Label.Render(fmt.Sprintf("%-11s", r[0]+":")), r[1])
	}
	if report.NeedsReingest {
		fmt.Fprintf(out, "  %s\n", s.Warn.Render("configuration changed since last ingest; run 'askdocs reingest'"))
	}
	return nil
}
