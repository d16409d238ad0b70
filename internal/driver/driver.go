// Package driver implements the Entry point / driver of spec §2/§6: it owns
// one compilation unit's traversal, wiring the Semantic Model, the Output
// Engine, and the Constraint Checker into one emit.Context, then walking the
// unit's top-level declarations in source order before closing with the
// unit's final `return <LastClassId>` (§6 "Emitted output format").
//
// Grounded on the teacher's internal/core/pipeline.go top-level
// orchestration (one stage per processing phase, operating on one file at a
// time) and internal/cli/dispatcher.go's worker-pool fan-out over files,
// adapted from file manipulation jobs to compilation units.
package driver

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/oxhq/cs2lua/internal/ast"
	"github.com/oxhq/cs2lua/internal/cache"
	"github.com/oxhq/cs2lua/internal/compilererr"
	"github.com/oxhq/cs2lua/internal/constraints"
	"github.com/oxhq/cs2lua/internal/emit"
	"github.com/oxhq/cs2lua/internal/output"
	"github.com/oxhq/cs2lua/internal/scope"
	"github.com/oxhq/cs2lua/internal/semmodel"
	"github.com/oxhq/cs2lua/internal/writer"
)

// Diagnostics mode controls whether the Constraint Checker aborts at the
// first violation or collects every violation CheckAll reports across all
// top-level declarations before giving up on the unit (§7's "the driver decides whether to
// continue with other units").
type DiagnosticsMode int

const (
	// FailFast aborts a unit at its first constraint violation (§7 default).
	FailFast DiagnosticsMode = iota
	// CollectAll walks every top-level declaration even after a violation,
	// returning every diagnostic found across the unit.
	CollectAll
)

// Unit bundles everything the driver needs to compile one compilation unit:
// the root AST node, its Semantic Model, the conditional-compilation
// symbols active for it (§6 "Driver inputs"), and the comment trivia the
// Output Engine must interleave.
type Unit struct {
	Root            *ast.Node
	Model           semmodel.Model
	CondCompSymbols map[string]bool
	Comments        []output.Comment
	Diagnostics     DiagnosticsMode

	// Cache is the process-wide generic-specialization cache shared
	// across every unit in this build (§5). Nil is valid: the unit
	// compiles without cross-unit specialization memoization.
	Cache *cache.Cache
}

// Result is one compiled unit's output plus any diagnostics CollectAll
// accumulated (empty under FailFast, where the first error aborts instead).
type Result struct {
	Lua         string
	Diagnostics []error
}

// CompileUnit runs the Constraint Checker over u.Root, then the emitter
// traversal, and returns the emitted Lua source. Under FailFast, the first
// constraint violation or emit error aborts the unit and is returned as
// err; under CollectAll, constraint violations from every top-level
// declaration are gathered into Result.Diagnostics and emission proceeds
// only if none were found.
func CompileUnit(u Unit) (Result, error) {
	if u.Root == nil {
		return Result{}, compilererr.Internal(nil, nil, "driver: nil compilation unit root")
	}

	checker := constraints.New(u.Model)
	if u.Diagnostics == CollectAll {
		var diags []error
		for _, decl := range u.Root.Children {
			diags = append(diags, checker.CheckAll(decl)...)
		}
		if len(diags) > 0 {
			return Result{Diagnostics: diags}, nil
		}
	} else if err := checker.Check(u.Root); err != nil {
		return Result{}, err
	}

	var buf bytes.Buffer
	out := output.New(&buf, u.Comments)
	ctx := emit.NewContext(u.Model, out, u.CondCompSymbols).WithCache(u.Cache)

	if _, err := ctx.Scope.Push(scope.KindTopLevelChunk, u.Root, scope.PushCtorArgs{}, nil); err != nil {
		return Result{}, err
	}

	lastClass := ""
	for i, decl := range u.Root.Children {
		if i > 0 {
			out.Newline()
			out.Newline()
		}
		if err := emit.EmitDeclaration(ctx, decl); err != nil {
			return Result{}, err
		}
		if decl.Kind == ast.KindClassDecl {
			sym := u.Model.DeclaredSymbol(decl)
			lastClass = u.Model.LookupOutputID(sym)
		} else {
			lastClass = ""
		}
	}

	if _, err := ctx.Scope.Pop(scope.KindTopLevelChunk); err != nil {
		return Result{}, err
	}

	if lastClass != "" {
		out.Newline()
		out.Write("return " + lastClass)
	}

	return Result{Lua: buf.String()}, nil
}

// FileJob is one source-to-destination compilation job handed to Run.
type FileJob struct {
	Path    string
	Unit    Unit
	DestDir string

	index int // assigned by Run so results preserve jobs' input order
}

// FileResult is one FileJob's outcome.
type FileResult struct {
	Path  string
	Error error
}

// Run compiles every job concurrently (mirroring the teacher's
// dispatcher.go worker-pool shape: a bounded set of goroutines draining a
// jobs channel, errors collected rather than aborting the whole batch) and
// hands each unit's emitted Lua source to w, keyed by its destination path.
// workers <= 0 defaults to runtime.NumCPU. w is shared across every worker
// goroutine; a StagingWriter is internally mutex-protected (§6: this lets
// the CLI default to non-destructive staged output with no change to this
// function).
func Run(ctx context.Context, jobs []FileJob, workers int, w writer.Writer) []FileResult {
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	in := make(chan FileJob)
	results := make([]FileResult, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range in {
				results[job.index] = compileAndWrite(job, w)
			}
		}()
	}

	go func() {
		for i, j := range jobs {
			j.index = i
			select {
			case in <- j:
			case <-ctx.Done():
			}
		}
		close(in)
	}()
	wg.Wait()
	return results
}

func compileAndWrite(job FileJob, w writer.Writer) FileResult {
	res, err := CompileUnit(job.Unit)
	if err != nil {
		return FileResult{Path: job.Path, Error: err}
	}
	if len(res.Diagnostics) > 0 {
		return FileResult{Path: job.Path, Error: fmt.Errorf("%d constraint violation(s) in %s: %w", len(res.Diagnostics), job.Path, res.Diagnostics[0])}
	}
	destPath := outputPath(job.DestDir, job.Path)
	if err := w.WriteFile(destPath, []byte(res.Lua), 0o644); err != nil {
		return FileResult{Path: job.Path, Error: compilererr.Internal(nil, err, "writing %s", destPath)}
	}
	return FileResult{Path: job.Path}
}

// outputPath places srcPath's base name, with its extension swapped to
// ".lua", inside destDir.
func outputPath(destDir, srcPath string) string {
	base := filepath.Base(srcPath)
	base = strings.TrimSuffix(base, filepath.Ext(base)) + ".lua"
	return filepath.Join(destDir, base)
}
