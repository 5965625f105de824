package pipeline

import (
	"os"
	"path/filepath"
	"strings"
)

// Resolver discovers the concrete input artifacts for a car and operation.
// It never fails: a car with no matching files yields an empty list and a
// single log line so the batch can move on.
type Resolver struct {
	sink Progress
}

// NewResolver creates a resolver reporting through the given sink.
func NewResolver(sink Progress) *Resolver {
	return &Resolver{sink: sink}
}

// Resolve produces zero or more artifacts for the entity, day first.
//
// Editable-bound operations read game-format files directly from the source
// root: <root>/<id>.cdo/.cno for models, .cdp/.cnp for textures, with a .gz
// sibling accepted for either. Game-format-bound operations instead read the
// previously converted editable assets from <root>/<name>/{Day,Night}.
func (r *Resolver) Resolve(entity Entity, op OperationSpec, sourceRoot string) []ArtifactRef {
	if op.Direction == ToGameFormat {
		return r.resolveEditable(entity, op, sourceRoot)
	}
	return r.resolveGameFormat(entity, op, sourceRoot)
}

// resolveGameFormat finds the original game-format day/night pair.
func (r *Resolver) resolveGameFormat(entity Entity, op OperationSpec, sourceRoot string) []ArtifactRef {
	var refs []ArtifactRef
	var missing []string
	for _, variant := range []Variant{VariantDay, VariantNight} {
		ext := op.Kind.GameExt(variant)
		path, ok := probeFile(filepath.Join(sourceRoot, entity.ID+ext))
		if !ok {
			missing = append(missing, ext)
			continue
		}
		refs = append(refs, ArtifactRef{
			Path:    path,
			Entity:  entity,
			Variant: variant,
			Kind:    op.Kind,
		})
	}
	switch {
	case len(refs) == 0:
		r.sink.Warn("no %s (%s/%s) files found for car %s",
			op.Kind, op.Kind.GameExt(VariantDay), op.Kind.GameExt(VariantNight), entity.ID)
	case len(missing) == 1:
		r.sink.Info("car %s: %s variant not present, converting the other only", entity.ID, missing[0])
	}
	return refs
}

// resolveEditable finds previously converted editable assets under the
// per-car Day/Night folders of the output tree.
func (r *Resolver) resolveEditable(entity Entity, op OperationSpec, sourceRoot string) []ArtifactRef {
	carDir := filepath.Join(sourceRoot, entity.DisplayName())
	var refs []ArtifactRef
	var missing []Variant
	for _, variant := range []Variant{VariantDay, VariantNight} {
		variantDir := filepath.Join(carDir, variant.Folder())
		var ref *ArtifactRef
		switch op.Kind {
		case KindModel:
			descriptor := filepath.Join(variantDir, entity.ID+".json")
			if fileExists(descriptor) {
				ref = &ArtifactRef{Path: descriptor, Entity: entity, Variant: variant, Kind: KindModel}
			}
		case KindTexture:
			// Night texture folders were dumped under either the plain
			// ID or the _night-suffixed name, depending on tool version.
			candidates := []string{filepath.Join(variantDir, entity.ID)}
			if variant == VariantNight {
				candidates = append(candidates, filepath.Join(variantDir, entity.ID+"_night"))
			}
			for _, dir := range candidates {
				if dirExists(dir) && containsImage(dir) {
					ref = &ArtifactRef{Path: dir, Entity: entity, Variant: variant, Kind: KindTexture, IsDir: true}
					break
				}
			}
		}
		if ref != nil {
			refs = append(refs, *ref)
		} else {
			missing = append(missing, variant)
		}
	}
	switch {
	case len(refs) == 0:
		r.sink.Warn("no editable %s assets found for car %s under %s", op.Kind, entity.ID, carDir)
	case len(missing) == 1:
		r.sink.Info("car %s: no editable %s assets for %s, converting the other variant only", entity.ID, op.Kind, missing[0])
	}
	return refs
}

// probeFile accepts the path itself or a gzipped sibling; the stager
// decompresses the latter before the converter sees it.
func probeFile(path string) (string, bool) {
	if fileExists(path) {
		return path, true
	}
	if fileExists(path + ".gz") {
		return path + ".gz", true
	}
	return "", false
}

// containsImage reports whether the directory holds at least one BMP. A
// dumped texture folder with no images is not a convertible artifact.
func containsImage(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".bmp") {
			return true
		}
	}
	return false
}
