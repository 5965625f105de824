package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newClassifierJob(t *testing.T, op OperationSpec, variant Variant, inputName string) *Job {
	t.Helper()
	staging := t.TempDir()
	input := filepath.Join(staging, inputName)
	writeTestFile(t, input, "input")
	return &Job{
		ID:         "0123456789abcdef",
		Artifact:   ArtifactRef{Path: input, Entity: Entity{ID: "x2cpn"}, Variant: variant, Kind: op.Kind},
		Op:         op,
		StagingDir: staging,
		InputPath:  input,
		Timeout:    time.Minute,
	}
}

func TestClassifyModelEditableOutputs(t *testing.T) {
	op := modelToEditableOp()
	job := newClassifierJob(t, op, VariantDay, "x2cpn.cdo")
	for _, name := range []string{"x2cpn.json", "x2cpn.obj", "x2cpn.mtl"} {
		writeTestFile(t, filepath.Join(job.StagingDir, name), "out")
	}

	destDir := filepath.Join(t.TempDir(), "Toyota Supra", "Day")
	placed, err := NewClassifier(&recordingSink{}).ClassifyAndPlace(job, destDir)
	if err != nil {
		t.Fatalf("ClassifyAndPlace returned error: %v", err)
	}
	if len(placed) != 3 {
		t.Fatalf("expected 3 placed outputs, got %d", len(placed))
	}
	for _, name := range []string{"x2cpn.json", "x2cpn.obj", "x2cpn.mtl"} {
		if _, err := os.Stat(filepath.Join(destDir, name)); err != nil {
			t.Fatalf("expected %s in destination: %v", name, err)
		}
	}
	// The input itself must stay behind for cleanup.
	if _, err := os.Stat(job.InputPath); err != nil {
		t.Fatalf("input should remain in staging: %v", err)
	}
}

func TestClassifyNightSuffixRenamedBack(t *testing.T) {
	op := modelToEditableOp()
	job := newClassifierJob(t, op, VariantNight, "x2cpn.cno")
	writeTestFile(t, filepath.Join(job.StagingDir, "x2cpn_night.json"), "out")
	writeTestFile(t, filepath.Join(job.StagingDir, "x2cpn_night.obj"), "out")

	destDir := filepath.Join(t.TempDir(), "Night")
	placed, err := NewClassifier(&recordingSink{}).ClassifyAndPlace(job, destDir)
	if err != nil {
		t.Fatalf("ClassifyAndPlace returned error: %v", err)
	}
	if len(placed) != 2 {
		t.Fatalf("expected 2 placed outputs, got %d", len(placed))
	}
	for _, name := range []string{"x2cpn.json", "x2cpn.obj"} {
		if _, err := os.Stat(filepath.Join(destDir, name)); err != nil {
			t.Fatalf("night output should land under the base name %s: %v", name, err)
		}
	}
}

func TestClassifyGzipSourceNightRename(t *testing.T) {
	op := modelToEditableOp()
	staging := t.TempDir()
	input := filepath.Join(staging, "x2cpn.cno")
	writeTestFile(t, input, "input")
	// The resolver hands over the compressed path; the stager stages the
	// decompressed copy. Classification must key off the staged name.
	job := &Job{
		ID:         "0123456789abcdef",
		Artifact:   ArtifactRef{Path: "/carobj/x2cpn.cno.gz", Entity: Entity{ID: "x2cpn"}, Variant: VariantNight, Kind: KindModel},
		Op:         op,
		StagingDir: staging,
		InputPath:  input,
		Timeout:    time.Minute,
	}
	writeTestFile(t, filepath.Join(staging, "x2cpn_night.json"), "out")

	destDir := t.TempDir()
	sink := &recordingSink{}
	placed, err := NewClassifier(sink).ClassifyAndPlace(job, destDir)
	if err != nil {
		t.Fatalf("ClassifyAndPlace returned error: %v", err)
	}
	if len(placed) != 1 {
		t.Fatalf("expected 1 placed output, got %v", placed)
	}
	if _, err := os.Stat(filepath.Join(destDir, "x2cpn.json")); err != nil {
		t.Fatalf("night output should land under the base name: %v", err)
	}
	if len(sink.warns) != 0 {
		t.Fatalf("an expected output must not hit the fallback: %v", sink.warns)
	}
}

func TestClassifyGameFormatSkipsInput(t *testing.T) {
	op := OperationSpec{Name: "ConvertModelsToGT2", Kind: KindModel, Direction: ToGameFormat}
	job := newClassifierJob(t, op, VariantDay, "x2cpn.json")
	writeTestFile(t, filepath.Join(job.StagingDir, "x2cpn.cdo"), "game")
	writeTestFile(t, filepath.Join(job.StagingDir, "x2cpn.obj"), "sidecar")

	destDir := t.TempDir()
	placed, err := NewClassifier(&recordingSink{}).ClassifyAndPlace(job, destDir)
	if err != nil {
		t.Fatalf("ClassifyAndPlace returned error: %v", err)
	}
	if len(placed) != 1 || filepath.Base(placed[0].Path) != "x2cpn.cdo" {
		t.Fatalf("expected only the .cdo to be placed, got %v", placed)
	}
	if _, err := os.Stat(filepath.Join(destDir, "x2cpn.json")); !os.IsNotExist(err) {
		t.Fatal("the input descriptor must not be moved")
	}
}

func TestClassifyGameFormatSkipsInputFolder(t *testing.T) {
	op := OperationSpec{Name: "ConvertTexturesToGT2", Kind: KindTexture, Direction: ToGameFormat}
	staging := t.TempDir()
	inputDir := filepath.Join(staging, "x2cpn")
	writeTestFile(t, filepath.Join(inputDir, "page0.bmp"), "bmp")
	writeTestFile(t, filepath.Join(staging, "x2cpn.cdp"), "game")
	job := &Job{
		ID:         "0123456789abcdef",
		Artifact:   ArtifactRef{Path: inputDir, Entity: Entity{ID: "x2cpn"}, Variant: VariantDay, Kind: KindTexture, IsDir: true},
		Op:         op,
		StagingDir: staging,
		InputPath:  inputDir,
		Timeout:    time.Minute,
	}

	destDir := t.TempDir()
	placed, err := NewClassifier(&recordingSink{}).ClassifyAndPlace(job, destDir)
	if err != nil {
		t.Fatalf("ClassifyAndPlace returned error: %v", err)
	}
	if len(placed) != 1 || filepath.Base(placed[0].Path) != "x2cpn.cdp" {
		t.Fatalf("expected only the .cdp, got %v", placed)
	}
	if _, err := os.Stat(filepath.Join(destDir, "x2cpn")); !os.IsNotExist(err) {
		t.Fatal("the staged input folder must not be moved")
	}
}

func TestClassifyTextureDumpMovesFolder(t *testing.T) {
	op := OperationSpec{Name: "DumpTexture", Kind: KindTexture, Direction: ToEditable}
	job := newClassifierJob(t, op, VariantDay, "x2cpn.cdp")
	writeTestFile(t, filepath.Join(job.StagingDir, "x2cpn", "page0.bmp"), "bmp")

	destDir := t.TempDir()
	sink := &recordingSink{}
	placed, err := NewClassifier(sink).ClassifyAndPlace(job, destDir)
	if err != nil {
		t.Fatalf("ClassifyAndPlace returned error: %v", err)
	}
	if len(placed) != 1 || !placed[0].IsDir {
		t.Fatalf("expected the dumped folder, got %v", placed)
	}
	if _, err := os.Stat(filepath.Join(destDir, "x2cpn", "page0.bmp")); err != nil {
		t.Fatalf("folder content missing at destination: %v", err)
	}
	if len(sink.warns) != 0 {
		t.Fatalf("texture dumps are expected output, not unclassified: %v", sink.warns)
	}
}

func TestClassifyFallbackWarnsPerFile(t *testing.T) {
	op := modelToEditableOp()
	job := newClassifierJob(t, op, VariantDay, "x2cpn.cdo")
	writeTestFile(t, filepath.Join(job.StagingDir, "unexpected.txt"), "out")

	destDir := t.TempDir()
	sink := &recordingSink{}
	placed, err := NewClassifier(sink).ClassifyAndPlace(job, destDir)
	if err != nil {
		t.Fatalf("ClassifyAndPlace returned error: %v", err)
	}
	if len(placed) != 1 {
		t.Fatalf("the fallback still saves the output, got %d placed", len(placed))
	}
	if len(sink.warns) != 1 || !strings.Contains(sink.warns[0], "unexpected.txt") {
		t.Fatalf("expected one unclassified warning naming the file, got %v", sink.warns)
	}
}

func TestClassifyNoOutput(t *testing.T) {
	op := modelToEditableOp()
	job := newClassifierJob(t, op, VariantDay, "x2cpn.cdo")

	_, err := NewClassifier(&recordingSink{}).ClassifyAndPlace(job, t.TempDir())
	if !errors.Is(err, ErrNoOutput) {
		t.Fatalf("expected ErrNoOutput, got %v", err)
	}
}

func TestClassifyRefusesOverwrite(t *testing.T) {
	op := modelToEditableOp()
	job := newClassifierJob(t, op, VariantDay, "x2cpn.cdo")
	writeTestFile(t, filepath.Join(job.StagingDir, "x2cpn.json"), "fresh")

	destDir := t.TempDir()
	writeTestFile(t, filepath.Join(destDir, "x2cpn.json"), "existing")

	sink := &recordingSink{}
	_, err := NewClassifier(sink).ClassifyAndPlace(job, destDir)
	if !errors.Is(err, ErrNoOutput) {
		t.Fatalf("nothing new was placed, expected ErrNoOutput, got %v", err)
	}
	data, readErr := os.ReadFile(filepath.Join(destDir, "x2cpn.json"))
	if readErr != nil {
		t.Fatal(readErr)
	}
	if string(data) != "existing" {
		t.Fatal("the pre-existing destination file was overwritten")
	}
	if len(sink.warns) == 0 || !strings.Contains(sink.warns[0], "keeping the existing copy") {
		t.Fatalf("expected an overwrite warning, got %v", sink.warns)
	}
}
