/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valpere/humanizer/internal"
	"github.com/valpere/humanizer/internal/document"
	"github.com/valpere/humanizer/internal/jobs"
	"github.com/valpere/humanizer/internal/pipeline"
	"github.com/valpere/humanizer/internal/store"
	"github.com/valpere/humanizer/internal/strategy"
	"github.com/valpere/humanizer/internal/validator"
)

var (
	inputFile  string
	outputFile string

	strategyName  string
	level         int
	resumeID      string
	protectTerms  []string
	protectMarkup bool
	isMarkdown    bool
	noStore       bool
	showProgress  bool
)

var rewriteCmd = &cobra.Command{
	Use:   "rewrite",
	Short: "Rewrite a document chunk by chunk",
	Long: `Rewrite a document with the chosen strategy. The document is split into chunks
at paragraph, sentence or word boundaries; each chunk is rewritten with the
style profile and the running narrative context of the chunks before it.

Available strategies:
  - identity    returns the text unchanged (transform off)
  - casual      rule-based contractions and plainer wording
  - ollama      Ollama LLM (self-hosted)
  - openrouter  OpenRouter LLM (requires API key)
  - roundtrip   Google Translate round trip through pivot languages

Protected text is copied verbatim: terms stored with "humanizer protect add",
terms given with --protect, and with --protect-markup code and HTML tags.

Interrupt with Ctrl-C to cancel after the chunks in flight; completed chunks
are checkpointed and the job can be continued with --resume <job-id>.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if inputFile == outputFile && inputFile != "-" {
			return fmt.Errorf("input file and output file cannot be the same")
		}

		text, err := readInput(inputFile)
		if err != nil {
			return err
		}

		var db *store.Store
		if !noStore {
			db, err = openStore(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()
		}

		ctx := context.Background()
		doc, err := buildDocument(ctx, db, text)
		if err != nil {
			return err
		}

		reg, err := buildRegistry(cfg)
		if err != nil {
			return err
		}
		runnerOpts := []strategy.RunnerOption{
			strategy.WithTimeout(cfg.ChunkTimeout),
			strategy.WithLogger(log),
		}
		if cfg.CheckLanguage && strategyName != "identity" {
			runnerOpts = append(runnerOpts, strategy.WithChecker(validator.New(nil)))
		}
		runner := strategy.NewRunner(reg, runnerOpts...)

		pipeOpts := []pipeline.Option{pipeline.WithLogger(log)}
		mgrOpts := []jobs.Option{jobs.WithLogger(log)}
		if db != nil {
			pipeOpts = append(pipeOpts, pipeline.WithCheckpointer(db))
			mgrOpts = append(mgrOpts, jobs.WithRecorder(db))
		}
		if showProgress {
			mgrOpts = append(mgrOpts, jobs.WithProgressListener(printProgress))
		}
		mgr := jobs.NewManager(pipeline.New(runner, cfg.Pipeline, pipeOpts...), mgrOpts...)
		defer mgr.Close()

		settings := internal.TransformSettings{Level: level, Strategy: strategyName}
		id, err := submit(ctx, mgr, db, doc, settings)
		if err != nil {
			return err
		}

		sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		finished := make(chan struct{})
		go func() {
			select {
			case <-sigCtx.Done():
				fmt.Fprintf(os.Stderr, "\nCancelling job %s after chunks in flight...\n", id)
				_ = mgr.Cancel(id)
			case <-finished:
			}
		}()

		res, runErr := mgr.Wait(ctx, id)
		close(finished)
		if res == nil {
			return runErr
		}
		if err := writeOutput(outputFile, res.Output); err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Job %s: %s\n", id, res.Status)
		fmt.Fprintf(os.Stderr, "Chunks: %d/%d completed, %d failed\n",
			res.Progress.CompletedChunks, res.Progress.TotalChunks, res.Progress.FailedChunks)
		fmt.Fprintf(os.Stderr, "Sentences modified: %d/%d\n", res.Metrics.SentencesModified, res.Metrics.TotalSentences)
		if res.Status != internal.JobCompleted && db != nil {
			fmt.Fprintf(os.Stderr, "Resume with: humanizer rewrite --resume %s ...\n", id)
		}
		return runErr
	},
}

// submit starts a new job, or continues an earlier one when --resume is set.
func submit(ctx context.Context, mgr *jobs.Manager, db *store.Store, doc internal.Document, settings internal.TransformSettings) (string, error) {
	if resumeID == "" {
		return mgr.Submit(ctx, doc, settings)
	}
	if db == nil {
		return "", fmt.Errorf("--resume needs the job database; drop --no-store")
	}
	job, err := db.GetJob(ctx, resumeID)
	if err != nil {
		return "", fmt.Errorf("cannot resume: %w", err)
	}
	if job.SourceText != doc.Text {
		log.Warn("input differs from the resumed job; changed chunks will be rewritten again", zap.String("job_id", resumeID))
	}
	log.Info("resuming job", zap.String("job_id", resumeID), zap.Int("checkpoints", job.Chunks))
	return resumeID, mgr.SubmitWithID(ctx, resumeID, doc, settings)
}

// buildDocument derives protected segments from stored terms, --protect and
// --protect-markup.
func buildDocument(ctx context.Context, db *store.Store, text string) (internal.Document, error) {
	terms := append([]string(nil), protectTerms...)
	if db != nil {
		stored, err := db.ProtectedTerms(ctx)
		if err != nil {
			return internal.Document{}, fmt.Errorf("failed to load protected terms: %w", err)
		}
		terms = append(terms, stored...)
	}

	segs := document.FindTerms(text, terms)
	if protectMarkup {
		segs = document.Merge(segs, document.DetectMarkup(text))
	}
	doc, err := document.New(text, segs)
	if err != nil {
		return internal.Document{}, err
	}
	doc.Markdown = isMarkdown
	return doc, nil
}

func readInput(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read input file: %w", err)
	}
	return string(data), nil
}

func writeOutput(path, text string) error {
	if path == "-" {
		_, err := io.WriteString(os.Stdout, text)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

func printProgress(p internal.JobProgress) {
	eta := "?"
	if p.EstimatedRemainingMs != nil {
		eta = fmt.Sprintf("%.1fs", float64(*p.EstimatedRemainingMs)/1000)
	}
	fmt.Fprintf(os.Stderr, "\r[%3d%%] %d/%d chunks, %d failed, eta %s   ",
		p.Percent(), p.CompletedChunks, p.TotalChunks, p.FailedChunks, eta)
}

func init() {
	rootCmd.AddCommand(rewriteCmd)

	rewriteCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input file to rewrite, - for stdin (required)")
	rewriteCmd.Flags().StringVarP(&outputFile, "output", "o", "-", "Output file, - for stdout")
	rewriteCmd.Flags().StringVarP(&strategyName, "strategy", "s", "casual", "Rewrite strategy")
	rewriteCmd.Flags().IntVarP(&level, "level", "l", 3, "Transformation intensity, 1 (light) to 5 (heavy)")
	rewriteCmd.Flags().StringVar(&resumeID, "resume", "", "Continue an interrupted job from its checkpoints")
	rewriteCmd.Flags().StringSliceVar(&protectTerms, "protect", nil, "Extra terms to keep verbatim (comma-separated)")
	rewriteCmd.Flags().BoolVar(&protectMarkup, "protect-markup", false, "Keep code blocks, inline code and HTML tags verbatim")
	rewriteCmd.Flags().BoolVar(&isMarkdown, "markdown", false, "Input is Markdown; profile style on its rendered text")
	rewriteCmd.Flags().BoolVar(&noStore, "no-store", false, "Do not record the job or write checkpoints")
	rewriteCmd.Flags().BoolVar(&showProgress, "progress", false, "Print progress to stderr")

	rewriteCmd.Flags().Int("max-chunk-chars", 2000, "Maximum characters per chunk")
	rewriteCmd.Flags().Int("max-retries", 3, "Retries per chunk after the first attempt")
	rewriteCmd.Flags().Duration("retry-delay", pipeline.DefaultRetryDelay, "Delay between chunk retries")
	rewriteCmd.Flags().Int("concurrency", 1, "Chunks rewritten in parallel (results are still applied in order)")
	rewriteCmd.Flags().Duration("timeout", 0, "Per-chunk rewrite timeout (default from config, 60s)")
	rewriteCmd.Flags().String("ollama-url", "", "Ollama base URL")
	rewriteCmd.Flags().String("ollama-model", "", "Ollama model name")
	rewriteCmd.Flags().String("openrouter-key", "", "OpenRouter API key")
	rewriteCmd.Flags().String("openrouter-model", "", "OpenRouter model name")
	rewriteCmd.Flags().StringP("credentials", "c", "", "Path to Google Cloud credentials (roundtrip)")
	rewriteCmd.Flags().String("source-lang", "", "Source language code for roundtrip")
	rewriteCmd.Flags().Bool("check-language", true, "Reject rewrites whose detected language drifts from the source")

	rewriteCmd.MarkFlagRequired("input")
}
