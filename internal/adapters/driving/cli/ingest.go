package cli

import (
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/canon/internal/core/ports/driving"
)

var ingestWorkers int

var ingestCmd = &cobra.Command{
	Use:   "ingest [document...]",
	Short: "Extract and chunk source documents",
	Long: `Discovers source documents under the sources directory, extracts their
text page by page and replaces each document's chunk set.

With document names, only those documents are processed. A failure in one
document never stops the others; failures are listed at the end.`,
	RunE: runIngest,
}

var chunkCmd = &cobra.Command{
	Use:   "chunk [document]",
	Short: "Re-chunk a single document",
	Args:  cobra.ExactArgs(1),
	RunE:  runChunk,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-ingest sources as they change",
	Long: `Watches the sources directory and re-ingests documents when they are
added or modified. Removed documents lose their chunks. Stops on Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	ingestCmd.Flags().IntVarP(&ingestWorkers, "workers", "w", 0, "parallel documents (default from config)")
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(chunkCmd)
	rootCmd.AddCommand(watchCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errNotConfigured("ingest")
	}
	return ingest(cmd, driving.IngestRequest{Documents: args, Workers: ingestWorkers})
}

func runChunk(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errNotConfigured("ingest")
	}
	return ingest(cmd, driving.IngestRequest{Documents: args, Workers: 1})
}

func ingest(cmd *cobra.Command, req driving.IngestRequest) error {
	summary, err := ingestService.Ingest(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	if summary.Documents == 0 {
		cmd.Println("No source documents found.")
		return nil
	}

	rows := make([][]string, 0, len(summary.Stats))
	for _, s := range summary.Stats {
		rows = append(rows, []string{
			s.Document,
			strconv.Itoa(s.ChunksCreated),
			strconv.Itoa(s.MinTokens),
			strconv.Itoa(s.MaxTokens),
			strconv.Itoa(s.Forced),
		})
	}
	if len(rows) > 0 {
		cmd.Println(renderTable(
			[]string{"Document", "Chunks", "Min tokens", "Max tokens", "Forced"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
		))
	}

	cmd.Printf("Ingested %d of %d document(s): %d chunk(s), %d forced split(s) in %s\n",
		summary.Succeeded(), summary.Documents, summary.Chunks, summary.Forced, summary.Duration.Round(time.Millisecond))
	for _, f := range summary.Failures {
		cmd.PrintErrf("  FAILED %s: %v\n", f.Document, f.Err)
	}
	if len(summary.Failures) > 0 {
		return fmt.Errorf("%d document(s) failed", len(summary.Failures))
	}
	return nil
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errNotConfigured("ingest")
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.Println("Watching sources. Press Ctrl-C to stop.")
	err := ingestService.Watch(ctx, func(ev driving.WatchEvent) {
		name := ev.Change.File.Name
		switch {
		case ev.Err != nil:
			cmd.PrintErrf("  FAILED %s: %v\n", name, ev.Err)
		case ev.Change.Removed:
			cmd.Printf("  removed %s\n", name)
		case ev.Stats != nil:
			cmd.Printf("  ingested %s: %d chunk(s)\n", name, ev.Stats.ChunksCreated)
		default:
			cmd.Printf("  ingested %s\n", name)
		}
	})
	if err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	cmd.Println("Stopped.")
	return nil
}
