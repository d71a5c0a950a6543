// Package pipeline generates the Buildkite pipelines that drive premerge
// checks. The documents are printed to stdout and piped into
// "buildkite-agent pipeline upload".
package pipeline

import (
	"io"

	"gopkg.in/yaml.v3"
)

// Pipeline is a Buildkite pipeline document.
type Pipeline struct {
	Steps []Step `yaml:"steps"`
}

// Step is either a command step or a trigger step. Fields that do not apply
// are omitted from the output.
type Step struct {
	Label                  string            `yaml:"label"`
	Key                    string            `yaml:"key,omitempty"`
	Trigger                string            `yaml:"trigger,omitempty"`
	Async                  *bool             `yaml:"async,omitempty"`
	DependsOn              []string          `yaml:"depends_on,omitempty"`
	AllowDependencyFailure bool              `yaml:"allow_dependency_failure,omitempty"`
	Commands               []string          `yaml:"commands,omitempty"`
	Build                  *TriggerBuild     `yaml:"build,omitempty"`
	ArtifactPaths          []string          `yaml:"artifact_paths,omitempty"`
	Agents                 map[string]string `yaml:"agents,omitempty"`
}

// TriggerBuild describes the build created by a trigger step.
type TriggerBuild struct {
	Branch string            `yaml:"branch"`
	Env    map[string]string `yaml:"env,omitempty"`
}

// Write encodes p as YAML.
func (p *Pipeline) Write(w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(p)
}

// Keys returns the step keys in order, skipping steps without one.
func (p *Pipeline) Keys() []string {
	var keys []string
	for _, s := range p.Steps {
		if s.Key != "" {
			keys = append(keys, s.Key)
		}
	}
	return keys
}

func agents(queue, os string) map[string]string {
	return map[string]string{"queue": queue, "os": os}
}
