package manifest

import (
	"os"
	"sort"
)

// Lookup resolves a single environment variable from the host, mirroring
// os.LookupEnv's (value, ok) shape so tests can substitute a fake host.
type Lookup func(key string) (string, bool)

// Resolve computes the environment a task's container should see. A host
// value always wins over the task's declared default; a variable with
// neither a host value nor a default is a violation. Violations are
// collected rather than returned on the first miss, so a manifest author
// sees every missing variable in one pass.
func Resolve(task Task, lookup Lookup) (map[string]string, []string) {
	keys := make([]string, 0, len(task.Environment))
	for key := range task.Environment {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	resolved := make(map[string]string, len(keys))
	var violations []string

	for _, key := range keys {
		if hostValue, ok := lookup(key); ok {
			resolved[key] = hostValue
			continue
		}
		if def := task.Environment[key]; def != nil {
			resolved[key] = *def
			continue
		}
		violations = append(violations, key)
	}

	return resolved, violations
}

// ResolveFromHost resolves a task's environment against the process's own
// environment variables.
func ResolveFromHost(task Task) (map[string]string, []string) {
	return Resolve(task, os.LookupEnv)
}
