// Package pipeline implements the batch conversion flow for GT2 car assets:
// resolving day/night source artifacts, staging them into isolated working
// directories, running the external pez2k converters against them, and
// classifying the produced files into the structured output tree.
package pipeline

import (
	"path/filepath"
	"strings"
	"time"
)

// Variant distinguishes the day and night versions of a car's assets.
type Variant string

const (
	VariantDay   Variant = "Day"
	VariantNight Variant = "Night"
)

// Folder returns the destination subfolder name for this variant.
func (v Variant) Folder() string {
	return string(v)
}

// ContentKind captures which family of assets an operation works on.
type ContentKind string

const (
	// KindModel covers 3D car models (.cdo/.cno and their editable
	// JSON/OBJ/MTL form).
	KindModel ContentKind = "model"
	// KindTexture covers texture archives (.cdp/.cnp and the editable
	// BMP-plus-palette folders dumped from them).
	KindTexture ContentKind = "texture"
)

// GameExt returns the game-format file extension for this kind and variant.
func (k ContentKind) GameExt(v Variant) string {
	switch k {
	case KindTexture:
		if v == VariantNight {
			return ".cnp"
		}
		return ".cdp"
	default:
		if v == VariantNight {
			return ".cno"
		}
		return ".cdo"
	}
}

// Direction says which way a conversion goes.
type Direction string

const (
	// ToEditable converts game-format assets into a human-editable form.
	ToEditable Direction = "to-editable"
	// ToGameFormat converts edited assets back into the game's binary form.
	ToGameFormat Direction = "to-game-format"
)

// Entity is a car identified by its stable ID (e.g. "x2cpn") with the
// human-friendly name used for output directory naming.
type Entity struct {
	ID   string
	Name string
}

// DisplayName returns the friendly name, falling back to the raw ID.
func (e Entity) DisplayName() string {
	if strings.TrimSpace(e.Name) == "" {
		return e.ID
	}
	return e.Name
}

// OperationSpec describes one converter invocation shape. Specs are built
// once by the catalog and passed by value; they are never mutated.
type OperationSpec struct {
	// Name is the catalog key, e.g. "ConvertToEditable".
	Name string
	// Executable is the converter binary filename inside the tools dir.
	Executable string
	// Arg is the single command-line switch handed to the converter.
	Arg string
	// Kind selects the model or texture code path.
	Kind ContentKind
	// Direction selects editable-bound or game-format-bound conversion.
	Direction Direction
	// Interactive marks operations that hand the user a live console.
	Interactive bool
	// Timeout bounds a single converter run.
	Timeout time.Duration
	// DownloadURL points at the release page for the converter, reported
	// when the executable is missing.
	DownloadURL string
}

// ArtifactRef is one resolved input: a file (models, game-format textures) or
// a directory (editable texture folders), tagged with its owner and variant.
type ArtifactRef struct {
	Path    string
	Entity  Entity
	Variant Variant
	Kind    ContentKind
	IsDir   bool
}

// BaseName returns the artifact's file or folder name without extension.
func (a ArtifactRef) BaseName() string {
	name := filepath.Base(a.Path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Job binds one artifact to an operation together with its isolated staging
// area. A job is owned by exactly one pipeline pass; Cleanup must run before
// the batch advances, whatever the outcome.
type Job struct {
	// ID is a fresh UUID, also used to name the staging directory.
	ID string
	// Artifact is the resolved input.
	Artifact ArtifactRef
	// Op is the operation driving this job.
	Op OperationSpec
	// StagingDir is the isolated working directory the converter runs in.
	StagingDir string
	// DecompDir holds the decompressed copy of a compressed source, or ""
	// when the source needed no decompression.
	DecompDir string
	// InputPath is the staged input handed to the converter.
	InputPath string
	// Timeout bounds the converter run for this job.
	Timeout time.Duration
}

// Cleanup removes the staging directory and any decompression directory.
// Failures are reported to the sink but never escalate; a leftover temp dir
// must not fail the batch.
func (j *Job) Cleanup(sink Progress) {
	if j == nil {
		return
	}
	if j.StagingDir != "" {
		if err := removeAll(j.StagingDir); err != nil && sink != nil {
			sink.Warn("could not clean staging dir %s: %v", j.StagingDir, err)
		}
		j.StagingDir = ""
	}
	if j.DecompDir != "" {
		if err := removeAll(j.DecompDir); err != nil && sink != nil {
			sink.Warn("could not clean decompression dir %s: %v", j.DecompDir, err)
		}
		j.DecompDir = ""
	}
}

// JobResult carries the outcome of one converter run.
type JobResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	// Skipped is set when the user declined the interactive gate; no
	// process was launched and the result carries no error.
	Skipped bool
}

// PlacedArtifact is the final destination of one classified output, used for
// logging and normalizer lookups.
type PlacedArtifact struct {
	Path  string
	IsDir bool
}

// Progress is the append-only, human-readable sink the pipeline reports
// through. *logbook.Logbook satisfies it, as does the TUI console feed.
type Progress interface {
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Confirmer answers the interactive-console gate. Returning false
// short-circuits the job with no process launched.
type Confirmer func(prompt string) bool
