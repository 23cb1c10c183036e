// Package manifest is the in-memory shape of a toastrun manifest: the
// declarative task graph read from YAML, together with the validator, the
// environment resolver, and the plan builder that turn it into something
// the execution engine can run.
package manifest

// DefaultLocation is the in-container working directory used when a task
// does not set one.
const DefaultLocation = "/scratch"

// DefaultUser is the in-container user used when a task does not set one.
const DefaultUser = "root"

// Task is an immutable declarative unit of work: inputs, a shell command,
// and outputs, executed inside a container built from its dependencies.
type Task struct {
	Dependencies []string           `yaml:"dependencies"`
	Cache        bool               `yaml:"cache"`
	Environment  map[string]*string `yaml:"environment"`
	Watch        bool               `yaml:"watch"`
	InputPaths   []string           `yaml:"input_paths"`
	OutputPaths  []string           `yaml:"output_paths"`
	Ports        []string           `yaml:"ports"`
	Location     string             `yaml:"location"`
	User         string             `yaml:"user"`
	Command      *string            `yaml:"command"`
}

// Manifest is the top-level document: a base image and a named task graph.
type Manifest struct {
	Image   string          `yaml:"image"`
	Default *string         `yaml:"default"`
	Tasks   map[string]Task `yaml:"tasks"`
}

// rawTask mirrors Task but with pointer/optional fields left as YAML saw
// them, so defaulting can distinguish "absent" from "explicit zero value".
type rawTask struct {
	Dependencies *[]string          `yaml:"dependencies"`
	Cache        *bool              `yaml:"cache"`
	Environment  map[string]*string `yaml:"environment"`
	Watch        *bool              `yaml:"watch"`
	InputPaths   *[]string          `yaml:"input_paths"`
	OutputPaths  *[]string          `yaml:"output_paths"`
	Ports        *[]string          `yaml:"ports"`
	Location     *string            `yaml:"location"`
	User         *string            `yaml:"user"`
	Command      *string            `yaml:"command"`
}

func (r rawTask) resolve() Task {
	t := Task{
		Cache:    true,
		Watch:    false,
		Location: DefaultLocation,
		User:     DefaultUser,
		Command:  r.Command,
	}
	if r.Dependencies != nil {
		t.Dependencies = *r.Dependencies
	}
	if r.Cache != nil {
		t.Cache = *r.Cache
	}
	if r.Environment != nil {
		t.Environment = r.Environment
	}
	if r.Watch != nil {
		t.Watch = *r.Watch
	}
	if r.InputPaths != nil {
		t.InputPaths = *r.InputPaths
	}
	if r.OutputPaths != nil {
		t.OutputPaths = *r.OutputPaths
	}
	if r.Ports != nil {
		t.Ports = *r.Ports
	}
	if r.Location != nil {
		t.Location = *r.Location
	}
	if r.User != nil {
		t.User = *r.User
	}
	return t
}
