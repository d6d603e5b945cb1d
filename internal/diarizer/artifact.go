package diarizer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Component roles a diarization bundle must provide
const (
	componentSegmentation = "segmentation"
	componentEmbedding    = "embedding"
)

// bundleSpec mirrors the bundle's config.yaml: the serialized pipeline class
// and the component classes it references, each backed by a model file.
type bundleSpec struct {
	Version  string `yaml:"version"`
	Pipeline struct {
		Name string `yaml:"name"`
	} `yaml:"pipeline"`
	Components map[string]struct {
		Kind string `yaml:"kind"`
		File string `yaml:"file"`
	} `yaml:"components"`
	Params map[string]any `yaml:"params"`
}

// globalRefs returns every dotted class name the bundle config references,
// with the pipeline class first.
func (s *bundleSpec) globalRefs() []string {
	refs := make([]string, 0, len(s.Components)+1)
	if s.Pipeline.Name != "" {
		refs = append(refs, s.Pipeline.Name)
	}
	for name := range s.Components {
		refs = append(refs, name)
	}
	return refs
}

// Bundle is a decoded, allowlist-checked pretrained model bundle
type Bundle struct {
	Dir               string
	PipelineClass     string
	SegmentationModel string
	EmbeddingModel    string
	Params            map[string]any
}

// DecodeBundle reads and validates the bundle at dir. Every serialized class
// the bundle references must be present in the allowlist; missing classes are
// all reported in a single error so the caller can discover them in one pass.
func DecodeBundle(dir string, allowed *Allowlist) (*Bundle, error) {
	configPath := filepath.Join(dir, "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle config %s: %w", configPath, err)
	}

	var spec bundleSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse bundle config %s: %w", configPath, err)
	}

	var missing []string
	for _, ref := range spec.globalRefs() {
		if !allowed.Contains(ref) {
			missing = append(missing, ref)
		}
	}
	if len(missing) > 0 {
		var sb strings.Builder
		sb.WriteString("failed to deserialize model bundle:")
		for _, name := range missing {
			fmt.Fprintf(&sb, "\nUnsupported global: GLOBAL %s was not an allowed global", name)
		}
		return nil, fmt.Errorf("%s", sb.String())
	}

	bundle := &Bundle{
		Dir:           dir,
		PipelineClass: spec.Pipeline.Name,
		Params:        spec.Params,
	}

	for name, component := range spec.Components {
		modelPath := filepath.Join(dir, component.File)
		if _, err := os.Stat(modelPath); err != nil {
			return nil, fmt.Errorf("bundle component %s references missing file %s: %w", name, component.File, err)
		}
		switch component.Kind {
		case componentSegmentation:
			bundle.SegmentationModel = modelPath
		case componentEmbedding:
			bundle.EmbeddingModel = modelPath
		default:
			return nil, fmt.Errorf("bundle component %s has unknown kind %q", name, component.Kind)
		}
	}

	if bundle.SegmentationModel == "" {
		return nil, fmt.Errorf("bundle at %s provides no segmentation component", dir)
	}
	if bundle.EmbeddingModel == "" {
		return nil, fmt.Errorf("bundle at %s provides no embedding component", dir)
	}

	return bundle, nil
}
