// Package orchestrator drives a conversion batch: it resolves each selected
// car's artifacts and runs stage, convert, classify, normalize, cleanup for
// every artifact in strict sequence, isolating per-artifact failures so one
// bad car never aborts the batch.
package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/pitlane/gt2garage/internal/catalog"
	"github.com/pitlane/gt2garage/internal/logging"
	"github.com/pitlane/gt2garage/internal/pipeline"
)

// Request describes one batch run.
type Request struct {
	// Cars is the selected set of entities, in UI order.
	Cars []pipeline.Entity
	// Operation names a catalog entry.
	Operation string
	// SourceRoot is the CarObj folder holding game-format sources. Ignored
	// for game-format-bound operations, which read from OutputRoot.
	SourceRoot string
	// OutputRoot is the destination tree root.
	OutputRoot string
}

// Summary reports what a batch did. RunBatch never returns an error; failed
// preconditions leave a zero summary behind a single sink notice.
type Summary struct {
	Operation string
	Artifacts int
	Succeeded int
	Failed    int
	Skipped   int
	Warnings  int
}

type outcome int

const (
	outcomeOK outcome = iota
	outcomeFailed
	outcomeSkipped
	outcomeNoOutput
)

// Orchestrator wires the pipeline stages together behind one entry point.
type Orchestrator struct {
	catalog    catalog.Catalog
	resolver   *pipeline.Resolver
	stager     *pipeline.Stager
	runner     *pipeline.Runner
	classifier *pipeline.Classifier
	normalizer *pipeline.Normalizer
	sink       pipeline.Progress
	debug      *logging.Logger
}

// New builds an orchestrator around the catalog and tools directory. confirm
// gates interactive operations; debug may be nil.
func New(cat catalog.Catalog, toolsDir string, sink pipeline.Progress, confirm pipeline.Confirmer, debug *logging.Logger) *Orchestrator {
	return &Orchestrator{
		catalog:    cat,
		resolver:   pipeline.NewResolver(sink),
		stager:     pipeline.NewStager(sink),
		runner:     pipeline.NewRunner(toolsDir, sink, confirm),
		classifier: pipeline.NewClassifier(sink),
		normalizer: pipeline.NewNormalizer(sink),
		sink:       sink,
		debug:      debug,
	}
}

// RunBatch processes every selected car in sequence. All per-artifact errors
// become sink lines; nothing propagates to the caller.
func (o *Orchestrator) RunBatch(ctx context.Context, req Request) Summary {
	summary := Summary{Operation: req.Operation}

	op, ok := o.catalog.Lookup(req.Operation)
	if !ok {
		o.sink.Error("unknown operation %q", req.Operation)
		return summary
	}
	if len(req.Cars) == 0 {
		o.sink.Error("no cars selected")
		return summary
	}
	if strings.TrimSpace(req.OutputRoot) == "" {
		o.sink.Error("no output folder selected")
		return summary
	}

	// Game-format-bound conversions re-read the editable assets that were
	// previously placed under the output root.
	sourceRoot := req.SourceRoot
	if op.Direction == pipeline.ToGameFormat {
		sourceRoot = req.OutputRoot
	}
	if strings.TrimSpace(sourceRoot) == "" {
		o.sink.Error("no source folder selected")
		return summary
	}

	exe := o.runner.ExecutablePath(op)
	if _, err := os.Stat(exe); err != nil {
		o.sink.Error("%v: %s", pipeline.ErrToolMissing, exe)
		o.sink.Error("download %s from %s", op.Executable, op.DownloadURL)
		o.debug.Printf("batch %s aborted: %v (%s)", req.Operation, pipeline.ErrToolMissing, exe)
		return summary
	}

	o.sink.Info("operation: %s", op.Name)
	o.sink.Info("source folder: %s", sourceRoot)
	o.sink.Info("output folder: %s", req.OutputRoot)

	var refs []pipeline.ArtifactRef
	for _, car := range req.Cars {
		refs = append(refs, o.resolver.Resolve(car, op, sourceRoot)...)
	}
	summary.Artifacts = len(refs)
	o.sink.Info("artifacts to process: %d", len(refs))

	for _, ref := range refs {
		if ctx.Err() != nil {
			o.sink.Warn("batch cancelled, %d artifact(s) not processed", summary.Artifacts-summary.Succeeded-summary.Failed-summary.Skipped)
			break
		}
		switch o.processArtifact(ctx, ref, op, req.OutputRoot) {
		case outcomeOK:
			summary.Succeeded++
		case outcomeFailed:
			summary.Failed++
		case outcomeSkipped:
			summary.Skipped++
		case outcomeNoOutput:
			summary.Succeeded++
			summary.Warnings++
		}
	}

	o.sink.Info("batch finished: %d succeeded, %d failed, %d skipped",
		summary.Succeeded, summary.Failed, summary.Skipped)
	return summary
}

// processArtifact runs the full pipeline for one artifact. The staging and
// decompression directories are cleaned on every exit path.
func (o *Orchestrator) processArtifact(ctx context.Context, ref pipeline.ArtifactRef, op pipeline.OperationSpec, outputRoot string) outcome {
	destDir := filepath.Join(outputRoot, ref.Entity.DisplayName(), ref.Variant.Folder())
	if op.Direction == pipeline.ToGameFormat {
		// Keep freshly converted game files apart from the editable
		// assets already staged under Day/Night.
		destDir = filepath.Join(destDir, "new")
	}

	o.sink.Info("processing %s [%s]", ref.Entity.DisplayName(), ref.Variant)
	o.sink.Info("  source: %s", filepath.Base(ref.Path))
	o.sink.Info("  destination: %s", relOrSelf(outputRoot, destDir))

	job, err := o.stager.Stage(ctx, ref, op)
	if job != nil {
		defer job.Cleanup(o.sink)
	}
	if err != nil {
		o.sink.Error("  staging failed for %s: %v", ref.Entity.ID, err)
		o.debug.Printf("stage %s [%s]: %v", ref.Entity.ID, ref.Variant, err)
		return outcomeFailed
	}

	o.sink.Info("  running %s %s (timeout %s)", op.Executable, op.Arg, job.Timeout)
	result, err := o.runner.Run(ctx, job)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrTimeout):
			o.sink.Error("  timed out after %s, converter killed", job.Timeout)
		default:
			o.sink.Error("  converter failed for %s: %v", ref.Entity.ID, err)
		}
		o.debug.Printf("run %s [%s]: %v", ref.Entity.ID, ref.Variant, err)
		return outcomeFailed
	}
	if result.Skipped {
		o.sink.Warn("  aborted by user: interactive conversion skipped")
		return outcomeSkipped
	}
	if result.ExitCode != 0 {
		o.sink.Error("  converter exited with code %d: %s", result.ExitCode, firstLine(result.Stderr))
		return outcomeFailed
	}
	if out := firstLine(result.Stdout); out != "" {
		o.sink.Info("  output: %s", out)
	}

	placed, err := o.classifier.ClassifyAndPlace(job, destDir)
	switch {
	case errors.Is(err, pipeline.ErrNoOutput):
		o.sink.Warn("  no output files generated; the tool may not support this input")
		return outcomeNoOutput
	case err != nil:
		o.sink.Error("  classification failed for %s: %v", ref.Entity.ID, err)
		o.debug.Printf("classify %s [%s]: %v", ref.Entity.ID, ref.Variant, err)
		return outcomeFailed
	}

	for _, p := range placed {
		o.sink.Info("  saved %s", relOrSelf(outputRoot, p.Path))
	}
	if err := o.normalizer.Normalize(job, destDir); err != nil {
		o.sink.Warn("  night normalization failed: %v", err)
	}
	o.sink.Info("completed %s [%s]: %d file(s)", ref.Entity.DisplayName(), ref.Variant, len(placed))
	return outcomeOK
}

// relOrSelf shortens path relative to root for log lines when possible.
func relOrSelf(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

// firstLine trims output to a single printable line for the progress stream.
func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
