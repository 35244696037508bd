package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/galen-ai/galen/pkg/config"
	"github.com/galen-ai/galen/pkg/input"
	"github.com/galen-ai/galen/pkg/pipeline"
)

func newBatchCmd() *cobra.Command {
	var (
		flags    generateFlags
		parallel int
	)

	cmd := &cobra.Command{
		Use:   "batch <domain> <subjects-file>",
		Short: "Generate artifacts for every subject in a file, one per line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			domainName, listPath := args[0], args[1]

			cfg, err := config.LoadOrDefault(flags.configPath)
			if err != nil {
				return err
			}

			subjects, err := readSubjects(listPath)
			if err != nil {
				return err
			}
			if len(subjects) == 0 {
				fmt.Println("No subjects found.")
				return nil
			}

			p, cleanup, err := buildPipeline(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			reqs := make([]pipeline.Request, 0, len(subjects))
			for _, s := range subjects {
				subj, err := input.Load(s)
				if err != nil {
					return err
				}
				reqs = append(reqs, pipeline.Request{
					Domain:  domainName,
					Subject: subj.Text,
					Model:   flags.model,
					Force:   flags.force,
					NoCache: flags.noCache,
				})
			}

			dir := flags.outDir
			if dir == "" {
				dir = cfg.Output.Dir
			}

			var failed int
			for _, r := range p.RunBatch(cmd.Context(), reqs, parallel) {
				if r.Err != nil {
					failed++
					fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", r.Request.Subject, r.Err)
					continue
				}
				stem := artifactStem(r.Request.Subject, r.Outcome.Artifact.Fingerprint)
				if err := pipeline.WriteFiles(r.Outcome.Artifact, dir, stem); err != nil {
					failed++
					fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", r.Request.Subject, err)
					continue
				}
				status := "generated"
				if r.Outcome.CacheHit {
					status = "cached"
				}
				fmt.Printf("OK   %s (%s)\n", r.Request.Subject, status)
			}

			fmt.Printf("\n%d succeeded, %d failed\n", len(reqs)-failed, failed)
			if failed > 0 {
				return fmt.Errorf("%d of %d subjects failed", failed, len(reqs))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "galen.yaml", "path to config file")
	cmd.Flags().StringVar(&flags.model, "model", "", "override the configured model")
	cmd.Flags().StringVarP(&flags.outDir, "out", "o", "", "output directory (default from config)")
	cmd.Flags().BoolVar(&flags.force, "force", false, "regenerate even if cached artifacts exist")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "bypass the artifact cache entirely")
	cmd.Flags().IntVar(&parallel, "parallel", pipeline.DefaultParallel, "max generations in flight")
	return cmd
}

// readSubjects reads one subject per line, skipping blanks and
// #-comments.
func readSubjects(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open subjects file: %w", err)
	}
	defer f.Close()

	var subjects []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		subjects = append(subjects, line)
	}
	return subjects, sc.Err()
}
