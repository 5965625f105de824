package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/mholt/archives"
)

// stagingRoot returns the parent for all staging and decompression
// directories, resolved against the current temp dir on every call.
func stagingRoot() string {
	return filepath.Join(os.TempDir(), "gt2garage")
}

// Stager prepares one isolated working directory per job: it decompresses
// compressed sources, copies the input file or folder in, and propagates the
// companion sidecars the model converter expects to find next to its input.
type Stager struct {
	sink Progress
}

// NewStager creates a stager reporting through the given sink.
func NewStager(sink Progress) *Stager {
	return &Stager{sink: sink}
}

// Stage builds the job for the artifact and fills its staging directory.
// The returned job is non-nil whenever any directory was created, so the
// caller's deferred Cleanup covers partial failures too.
func (s *Stager) Stage(ctx context.Context, ref ArtifactRef, op OperationSpec) (*Job, error) {
	job := &Job{
		ID:       uuid.NewString(),
		Artifact: ref,
		Op:       op,
		Timeout:  op.Timeout,
	}

	stagingDir := filepath.Join(stagingRoot(), "stage-"+job.ID)
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return job, &StagingError{Path: stagingDir, Err: err}
	}
	job.StagingDir = stagingDir

	input := ref.Path
	if !ref.IsDir {
		decompressed, err := s.decompress(ctx, job, input)
		if err != nil {
			return job, err
		}
		if decompressed != "" {
			input = decompressed
		}
	}

	staged := filepath.Join(stagingDir, filepath.Base(input))
	if ref.IsDir {
		if err := copyDir(input, staged); err != nil {
			return job, &StagingError{Path: input, Err: err}
		}
	} else {
		if err := copyFile(input, staged); err != nil {
			return job, &StagingError{Path: input, Err: err}
		}
	}
	job.InputPath = staged

	if op.Kind == KindModel && op.Direction == ToGameFormat {
		s.stageCompanions(job, ref)
	}

	return job, nil
}

// decompress streams a compressed source into a dedicated temp dir and
// returns the path to the plain copy. It returns "" when the source is not
// compressed.
func (s *Stager) decompress(ctx context.Context, job *Job, path string) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", &StagingError{Path: path, Err: err}
	}
	defer in.Close()

	format, stream, err := archives.Identify(ctx, path, in)
	if err != nil {
		if errors.Is(err, archives.NoMatch) {
			return "", nil
		}
		return "", &StagingError{Path: path, Err: err}
	}
	decomp, ok := format.(archives.Decompressor)
	if !ok {
		return "", nil
	}

	reader, err := decomp.OpenReader(stream)
	if err != nil {
		return "", &StagingError{Path: path, Err: err}
	}
	defer reader.Close()

	decompDir := filepath.Join(stagingRoot(), "decomp-"+job.ID)
	if err := os.MkdirAll(decompDir, 0o755); err != nil {
		return "", &StagingError{Path: decompDir, Err: err}
	}
	job.DecompDir = decompDir

	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	out := filepath.Join(decompDir, name)
	f, err := os.Create(out)
	if err != nil {
		return "", &StagingError{Path: out, Err: err}
	}
	if _, err := io.Copy(f, reader); err != nil {
		f.Close()
		return "", &StagingError{Path: out, Err: err}
	}
	if err := f.Close(); err != nil {
		return "", &StagingError{Path: out, Err: err}
	}
	s.sink.Info("decompressed %s", filepath.Base(path))
	return out, nil
}

// stageCompanions copies the OBJ/MTL sidecars the model converter looks for
// next to its JSON descriptor. When converting the night variant and only
// base-name sidecars exist, the base files are duplicated under the _night
// name the tool probes for. All of this is best-effort: a missing or
// uncopyable sidecar is logged, never fatal, because the converter itself
// decides what it truly needs.
func (s *Stager) stageCompanions(job *Job, ref ArtifactRef) {
	srcDir := filepath.Dir(ref.Path)
	base := ref.BaseName()

	for _, name := range []string{base, base + "_night"} {
		for _, ext := range []string{".obj", ".mtl"} {
			companion := filepath.Join(srcDir, name+ext)
			if !fileExists(companion) {
				continue
			}
			dst := filepath.Join(job.StagingDir, name+ext)
			if err := copyFile(companion, dst); err != nil {
				s.sink.Warn("could not stage companion %s: %v", name+ext, err)
			}
		}
	}

	if ref.Variant != VariantNight {
		return
	}
	for _, ext := range []string{".obj", ".mtl"} {
		plain := filepath.Join(job.StagingDir, base+ext)
		night := filepath.Join(job.StagingDir, base+"_night"+ext)
		if !fileExists(plain) || fileExists(night) {
			continue
		}
		if err := copyFile(plain, night); err != nil {
			s.sink.Warn("could not duplicate %s as night companion: %v", base+ext, err)
		}
	}
}
