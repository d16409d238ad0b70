// Command cs2luac compiles CS-dialect source files to Lua (§2's entry
// point). By default it stages compiled output under .cs2lua/ rather than
// touching the destination tree; a later `cs2luac --commit` applies what
// was staged, or `--direct` writes straight through in one shot.
//
// Grounded on the teacher's cmd/morfx/main.go flag-parsing shape and
// demo/cmd/main.go's cobra.Command construction, adapted from a file-edit
// CLI to a compiler: positional arguments are glob patterns over source
// files (github.com/bmatcuk/doublestar/v4) rather than edit targets, and
// there is no DSL query to translate.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/oxhq/cs2lua/internal/cache"
	"github.com/oxhq/cs2lua/internal/config"
	"github.com/oxhq/cs2lua/internal/driver"
	"github.com/oxhq/cs2lua/internal/semmodel/treesitter"
	"github.com/oxhq/cs2lua/internal/writer"
)

var (
	flagOut     string
	flagWorkers int
	flagDefine  []string
	flagCache   string
	flagVerbose bool
	flagDirect  bool
	flagCommit  bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cs2luac [flags] <file-or-glob>...",
		Short:   "Compile CS-dialect source to Lua",
		Version: "0.1.0",
		Args:    cobra.ArbitraryArgs,
		RunE:    runCompile,
	}

	cfg := config.Load()
	cmd.Flags().StringVarP(&flagOut, "out", "o", cfg.OutputDir, "Output directory for compiled .lua files.")
	cmd.Flags().IntVarP(&flagWorkers, "workers", "w", cfg.Workers, "Number of concurrent workers, 0 means runtime.NumCPU().")
	cmd.Flags().StringSliceVarP(&flagDefine, "define", "D", cfg.CondCompSymbols, "Conditional-compilation symbols (comma-separated).")
	cmd.Flags().StringVar(&flagCache, "cache", cfg.CacheDSN, "Generic-specialization cache DSN (sqlite file), empty for in-memory.")
	cmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "List every file compiled.")
	cmd.Flags().BoolVar(&flagDirect, "direct", false, "Write compiled output straight to --out, bypassing the staging area.")
	cmd.Flags().BoolVar(&flagCommit, "commit", false, "Apply previously staged changes under .cs2lua/ and exit; no input files needed.")

	return cmd
}

func runCompile(cmd *cobra.Command, args []string) error {
	if flagCommit {
		return runCommit()
	}
	if len(args) == 0 {
		return cmd.Help()
	}

	files, err := expandGlobs(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files matched %v", args)
	}

	ch, err := openCache(flagCache)
	if err != nil {
		return err
	}
	defer ch.Close()

	condComp := symbolSet(flagDefine)

	jobs := make([]driver.FileJob, 0, len(files))
	for _, f := range files {
		src, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("reading %s: %w", f, err)
		}
		root, model, err := treesitter.Parse(src)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", f, err)
		}
		jobs = append(jobs, driver.FileJob{
			Path:    f,
			DestDir: flagOut,
			Unit: driver.Unit{
				Root:            root,
				Model:           model,
				CondCompSymbols: condComp,
				Cache:           ch,
			},
		})
	}

	var w writer.Writer
	if flagDirect {
		w = writer.NewDiskWriter()
	} else {
		w = writer.NewStagingWriter()
	}

	results := driver.Run(context.Background(), jobs, flagWorkers, w)

	var failed int
	for _, r := range results {
		if r.Error != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", r.Path, r.Error)
			continue
		}
		if flagVerbose {
			fmt.Printf("✓ %s\n", r.Path)
		}
	}

	fmt.Print(w.Summary())
	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed to compile", failed, len(results))
	}
	return nil
}

func runCommit() error {
	w := writer.NewCommitWriter()
	if err := w.ApplyStagedChanges(); err != nil {
		return err
	}
	fmt.Print(w.Summary())
	return nil
}

// expandGlobs resolves each arg as a doublestar glob pattern (plain
// filenames match themselves), de-duplicating and sorting the result so
// job ordering is deterministic across runs.
func expandGlobs(args []string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, pattern := range args {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			if stat, err := os.Stat(pattern); err == nil && !stat.IsDir() {
				matches = []string{pattern}
			}
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func openCache(dsn string) (*cache.Cache, error) {
	if dsn == "" {
		return cache.Memory(), nil
	}
	if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	return cache.Open(dsn)
}

func symbolSet(symbols []string) map[string]bool {
	set := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		set[s] = true
	}
	return set
}
