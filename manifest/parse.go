package manifest

import (
	"bytes"

	"github.com/banksean/toastrun/failure"
	"gopkg.in/yaml.v3"
)

type rawManifest struct {
	Image   string             `yaml:"image"`
	Default *string            `yaml:"default"`
	Tasks   map[string]rawTask `yaml:"tasks"`
}

// Parse decodes YAML manifest data and validates it. Parsing is a pure
// function: equal input strings always yield equal manifests or equal
// errors.
func Parse(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var raw rawManifest
	if err := dec.Decode(&raw); err != nil {
		return nil, failure.NewUser(err.Error(), "")
	}

	tasks := make(map[string]Task, len(raw.Tasks))
	for name, rt := range raw.Tasks {
		tasks[name] = rt.resolve()
	}

	m := &Manifest{
		Image:   raw.Image,
		Default: raw.Default,
		Tasks:   tasks,
	}

	if err := Validate(m); err != nil {
		return nil, err
	}

	return m, nil
}
