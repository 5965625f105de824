package pipeline

import (
	"os"
	"path/filepath"
	"strings"
)

// modelEditableExts is every extension a model conversion may emit. The
// staged input shares the candidate base name, so it is excluded by path.
var modelEditableExts = []string{".json", ".obj", ".mtl", ".cdo", ".cno", ".cdp", ".cnp"}

// Classifier inspects the staging directory after the converter exits,
// decides which entries are produced output, and moves them into the
// destination tree. The original input is excluded by extension; everything
// else is matched against the operation's expected names before the loud
// move-everything fallback kicks in.
type Classifier struct {
	sink Progress
}

// NewClassifier creates a classifier reporting through the given sink.
func NewClassifier(sink Progress) *Classifier {
	return &Classifier{sink: sink}
}

// ClassifyAndPlace moves the job's outputs into destDir, creating it first.
// It returns ErrNoOutput when nothing classifiable was produced. Moves never
// overwrite: a conflicting destination entry is reported and skipped.
func (c *Classifier) ClassifyAndPlace(job *Job, destDir string) ([]PlacedArtifact, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, &StagingError{Path: destDir, Err: err}
	}

	var placed []PlacedArtifact
	var err error
	switch {
	case job.Op.Direction == ToGameFormat:
		placed, err = c.placeGameFormat(job, destDir)
	case job.Op.Kind == KindTexture:
		placed, err = c.placeEverything(job, destDir, false)
	default:
		placed, err = c.placeModelEditable(job, destDir)
	}
	if err != nil {
		return placed, err
	}
	if len(placed) == 0 {
		return placed, ErrNoOutput
	}
	return placed, nil
}

// placeGameFormat moves files carrying the operation's game-format
// extensions, plus any produced directories, skipping the staged input.
func (c *Classifier) placeGameFormat(job *Job, destDir string) ([]PlacedArtifact, error) {
	wanted := map[string]bool{
		strings.ToLower(job.Op.Kind.GameExt(VariantDay)):   true,
		strings.ToLower(job.Op.Kind.GameExt(VariantNight)): true,
	}
	entries, err := os.ReadDir(job.StagingDir)
	if err != nil {
		return nil, &StagingError{Path: job.StagingDir, Err: err}
	}
	inputExt := strings.ToLower(filepath.Ext(job.InputPath))
	inputBase := filepath.Base(job.InputPath)

	var placed []PlacedArtifact
	for _, entry := range entries {
		src := filepath.Join(job.StagingDir, entry.Name())
		if entry.IsDir() {
			// A staged texture folder is the input, not output.
			if entry.Name() == inputBase {
				continue
			}
			if p, ok := c.move(src, filepath.Join(destDir, entry.Name()), true); ok {
				placed = append(placed, p)
			}
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == inputExt || !wanted[ext] {
			continue
		}
		if p, ok := c.move(src, filepath.Join(destDir, entry.Name()), false); ok {
			placed = append(placed, p)
		}
	}
	return placed, nil
}

// placeModelEditable moves the outputs of a model-to-editable run by the
// expected naming pattern. Night runs also probe the _night-suffixed name the
// model tool emits, renaming it back to the base name in the Night folder.
// The candidate base comes from the staged input, which for a compressed
// source carries the decompressed name the tool actually saw.
func (c *Classifier) placeModelEditable(job *Job, destDir string) ([]PlacedArtifact, error) {
	input := filepath.Base(job.InputPath)
	base := strings.TrimSuffix(input, filepath.Ext(input))
	candidates := []string{base}
	if job.Artifact.Variant == VariantNight {
		candidates = append(candidates, base+"_night")
	}

	var placed []PlacedArtifact
	for _, candidate := range candidates {
		for _, ext := range modelEditableExts {
			src := filepath.Join(job.StagingDir, candidate+ext)
			if src == job.InputPath || !fileExists(src) {
				continue
			}
			destName := candidate + ext
			if strings.HasSuffix(candidate, "_night") {
				destName = base + ext
			}
			if p, ok := c.move(src, filepath.Join(destDir, destName), false); ok {
				placed = append(placed, p)
			}
		}
	}
	if len(placed) > 0 {
		return placed, nil
	}
	// Some tool versions use names we do not anticipate; move the rest so
	// the run is not lost, but say so per file.
	return c.placeEverything(job, destDir, true)
}

// placeEverything moves every staging entry except the input file. With warn
// set, each move is flagged as an unclassified result.
func (c *Classifier) placeEverything(job *Job, destDir string, warn bool) ([]PlacedArtifact, error) {
	entries, err := os.ReadDir(job.StagingDir)
	if err != nil {
		return nil, &StagingError{Path: job.StagingDir, Err: err}
	}
	inputExt := strings.ToLower(filepath.Ext(job.InputPath))
	inputBase := filepath.Base(job.InputPath)

	var placed []PlacedArtifact
	for _, entry := range entries {
		src := filepath.Join(job.StagingDir, entry.Name())
		if !entry.IsDir() {
			if entry.Name() == inputBase || strings.ToLower(filepath.Ext(entry.Name())) == inputExt {
				continue
			}
		} else if entry.Name() == inputBase {
			// A staged texture folder is the input, not output.
			continue
		}
		if warn {
			c.sink.Warn("unclassified output %s moved as-is", entry.Name())
		}
		if p, ok := c.move(src, filepath.Join(destDir, entry.Name()), entry.IsDir()); ok {
			placed = append(placed, p)
		}
	}
	return placed, nil
}

// move relocates one entry, refusing to overwrite anything already placed.
func (c *Classifier) move(src, dst string, isDir bool) (PlacedArtifact, bool) {
	if _, err := os.Stat(dst); err == nil {
		c.sink.Warn("destination already has %s, keeping the existing copy", filepath.Base(dst))
		return PlacedArtifact{}, false
	}
	if err := moveEntry(src, dst); err != nil {
		c.sink.Error("could not place %s: %v", filepath.Base(dst), err)
		return PlacedArtifact{}, false
	}
	return PlacedArtifact{Path: dst, IsDir: isDir}, true
}
