// Package catalog owns the static operation table for the pez2k converters
// and the CarNames registry mapping car IDs to display names.
package catalog

import (
	"sort"
	"time"

	"github.com/pitlane/gt2garage/internal/pipeline"
)

const (
	modelTool   = "GT2ModelTool.exe"
	textureTool = "GT2TextureEditor.exe"

	modelToolURL   = "https://github.com/pez2k/gt2tools/releases/tag/GT2ModelTool210"
	textureToolURL = "https://github.com/pez2k/gt2tools/releases/tag/GT2TextureEditor03"
)

// Catalog is the immutable operation lookup table, built once at startup and
// passed by value into the orchestrator.
type Catalog struct {
	ops map[string]pipeline.OperationSpec
}

// Default returns the catalog of the five supported conversions.
func Default() Catalog {
	specs := []pipeline.OperationSpec{
		{
			Name:        "ConvertToEditable",
			Executable:  modelTool,
			Arg:         "-oe",
			Kind:        pipeline.KindModel,
			Direction:   pipeline.ToEditable,
			Timeout:     60 * time.Second,
			DownloadURL: modelToolURL,
		},
		{
			Name:        "ConvertToEditableSplit",
			Executable:  modelTool,
			Arg:         "-oes",
			Kind:        pipeline.KindModel,
			Direction:   pipeline.ToEditable,
			Timeout:     60 * time.Second,
			DownloadURL: modelToolURL,
		},
		{
			Name:        "ConvertModelsToGT2",
			Executable:  modelTool,
			Arg:         "-o2",
			Kind:        pipeline.KindModel,
			Direction:   pipeline.ToGameFormat,
			Interactive: true,
			Timeout:     120 * time.Second,
			DownloadURL: modelToolURL,
		},
		{
			Name:        "DumpTexture",
			Executable:  textureTool,
			Arg:         "-oe",
			Kind:        pipeline.KindTexture,
			Direction:   pipeline.ToEditable,
			Timeout:     300 * time.Second,
			DownloadURL: textureToolURL,
		},
		{
			Name:        "ConvertTexturesToGT2",
			Executable:  textureTool,
			Arg:         "-o2",
			Kind:        pipeline.KindTexture,
			Direction:   pipeline.ToGameFormat,
			Timeout:     120 * time.Second,
			DownloadURL: textureToolURL,
		},
	}
	ops := make(map[string]pipeline.OperationSpec, len(specs))
	for _, spec := range specs {
		ops[spec.Name] = spec
	}
	return Catalog{ops: ops}
}

// Lookup returns the spec for an operation name.
func (c Catalog) Lookup(name string) (pipeline.OperationSpec, bool) {
	spec, ok := c.ops[name]
	return spec, ok
}

// Names returns the operation names in stable alphabetical order.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c.ops))
	for name := range c.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithTimeouts returns a copy of the catalog with per-operation timeout
// overrides (in seconds) applied. Unknown names and non-positive values are
// ignored.
func (c Catalog) WithTimeouts(overrides map[string]int) Catalog {
	ops := make(map[string]pipeline.OperationSpec, len(c.ops))
	for name, spec := range c.ops {
		if seconds, ok := overrides[name]; ok && seconds > 0 {
			spec.Timeout = time.Duration(seconds) * time.Second
		}
		ops[name] = spec
	}
	return Catalog{ops: ops}
}
