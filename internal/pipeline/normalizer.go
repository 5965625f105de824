package pipeline

import (
	"os"
	"path/filepath"
	"strings"
)

// Normalizer patches a naming gap in the model converter: night conversions
// back to game format sometimes emit a day-format .cdo instead of the .cno
// the Night folder needs. The normalizer duplicates the day file under the
// night extension and drops the stray .cdo, so the Night destination holds
// only the correct game format. It is idempotent and applies to nothing else.
type Normalizer struct {
	sink Progress
}

// NewNormalizer creates a normalizer reporting through the given sink.
func NewNormalizer(sink Progress) *Normalizer {
	return &Normalizer{sink: sink}
}

// Normalize synthesizes missing night-format files in destDir after a model
// night conversion. A .cdo with its .cno already present is left untouched;
// running twice over the same destination changes nothing the second time.
func (n *Normalizer) Normalize(job *Job, destDir string) error {
	if job.Op.Kind != KindModel || job.Op.Direction != ToGameFormat || job.Artifact.Variant != VariantNight {
		return nil
	}
	entries, err := os.ReadDir(destDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".cdo") {
			continue
		}
		base := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		cdoPath := filepath.Join(destDir, entry.Name())
		cnoPath := filepath.Join(destDir, base+".cno")
		if fileExists(cnoPath) {
			continue
		}
		if err := copyFile(cdoPath, cnoPath); err != nil {
			n.sink.Warn("could not synthesize %s.cno: %v", base, err)
			continue
		}
		n.sink.Info("synthesized %s.cno from day-format output", base)
		if err := os.Remove(cdoPath); err != nil {
			n.sink.Warn("could not remove stray %s: %v", entry.Name(), err)
		}
	}
	return nil
}
