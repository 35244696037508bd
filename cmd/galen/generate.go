package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/galen-ai/galen/pkg/audit"
	"github.com/galen-ai/galen/pkg/budget"
	cachepkg "github.com/galen-ai/galen/pkg/cache/sqlite"
	"github.com/galen-ai/galen/pkg/config"
	"github.com/galen-ai/galen/pkg/domain"
	"github.com/galen-ai/galen/pkg/input"
	"github.com/galen-ai/galen/pkg/llm"
	"github.com/galen-ai/galen/pkg/pipeline"
	"github.com/galen-ai/galen/pkg/tracker"
)

// generateFlags are shared by every per-domain generate command.
type generateFlags struct {
	configPath string
	model      string
	outDir     string
	force      bool
	noCache    bool
	stdout     bool
}

// newGenerateCmds builds one command per registered domain, so
// `galen topic "warfarin"` and `galen faq notes.md` work symmetrically.
func newGenerateCmds() []*cobra.Command {
	reg := domain.NewRegistry()
	var cmds []*cobra.Command
	for _, name := range reg.Names() {
		mod, _ := reg.Lookup(name)
		cmds = append(cmds, newDomainCmd(mod.Name, mod.Short))
	}
	return cmds
}

func newDomainCmd(name, short string) *cobra.Command {
	var flags generateFlags

	cmd := &cobra.Command{
		Use:   name + " <subject|file>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), name, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "galen.yaml", "path to config file")
	cmd.Flags().StringVar(&flags.model, "model", "", "override the configured model")
	cmd.Flags().StringVarP(&flags.outDir, "out", "o", "", "output directory (default from config)")
	cmd.Flags().BoolVar(&flags.force, "force", false, "regenerate even if a cached artifact exists")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "bypass the artifact cache entirely")
	cmd.Flags().BoolVar(&flags.stdout, "stdout", false, "print markdown to stdout instead of writing files")
	return cmd
}

func runGenerate(ctx context.Context, domainName, arg string, flags generateFlags) error {
	cfg, err := config.LoadOrDefault(flags.configPath)
	if err != nil {
		return err
	}

	subj, err := input.Load(arg)
	if err != nil {
		return err
	}

	p, cleanup, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := p.Run(ctx, pipeline.Request{
		Domain:  domainName,
		Subject: subj.Text,
		Model:   flags.model,
		Force:   flags.force,
		NoCache: flags.noCache,
	})
	if err != nil {
		return err
	}

	if flags.stdout {
		fmt.Print(out.Artifact.Markdown)
		return nil
	}

	dir := flags.outDir
	if dir == "" {
		dir = cfg.Output.Dir
	}
	stem := artifactStem(subj.Text, out.Artifact.Fingerprint)
	if err := pipeline.WriteFiles(out.Artifact, dir, stem); err != nil {
		return err
	}

	status := "generated"
	if out.CacheHit {
		status = "cached"
	}
	fmt.Printf("%s (%s): %s/%s.json\n", domainName, status, dir, stem)
	if !out.CacheHit {
		fmt.Printf("tokens: %d prompt / %d completion / %d total\n",
			out.Usage.PromptTokens, out.Usage.CompletionTokens, out.Usage.TotalTokens)
	}
	return nil
}

// buildPipeline assembles the generation pipeline from config. The
// cache is optional: if it cannot be opened the pipeline degrades to
// uncached generation with a warning instead of failing the command.
func buildPipeline(cfg *config.Config) (*pipeline.Pipeline, func(), error) {
	p := &pipeline.Pipeline{
		Registry: domain.NewRegistry(),
		Client:   llm.New(cfg),
		Model:    cfg.Generation.Model,
	}
	var closers []func()

	if cfg.Cache.Enabled {
		c, err := cachepkg.New(cfg.DBPath, cfg.Cache.TTL)
		if err != nil {
			fmt.Printf("warning: artifact cache unavailable, generating uncached: %v\n", err)
		} else {
			p.Cache = c
			closers = append(closers, func() { _ = c.Close() })
		}
	}

	tr, err := tracker.New(cfg.DBPath)
	if err != nil {
		fmt.Printf("warning: usage tracking unavailable: %v\n", err)
	} else {
		p.Tracker = tr
		closers = append(closers, func() { _ = tr.Close() })
		if cfg.Budget.Enabled {
			p.Budget = budget.New(cfg.Budget.Policies, tr)
		}
	}

	if cfg.Audit.Enabled {
		l, err := audit.New(cfg.Audit)
		if err != nil {
			fmt.Printf("warning: audit log unavailable: %v\n", err)
		} else {
			p.Audit = l
			closers = append(closers, func() { _ = l.Close() })
		}
	}

	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}
	return p, cleanup, nil
}

// artifactStem derives a filesystem-friendly stem from the subject,
// falling back to the fingerprint when nothing usable remains.
func artifactStem(subject, fingerprint string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(subject) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
		if b.Len() >= 48 {
			break
		}
	}
	stem := strings.Trim(b.String(), "-")
	if stem == "" {
		return fingerprint[:12]
	}
	return stem
}
