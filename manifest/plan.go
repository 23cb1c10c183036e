package manifest

import (
	"fmt"

	"github.com/banksean/toastrun/failure"
)

// Plan returns the task names in the order the execution engine should run
// them to satisfy every root in roots: a post-order traversal of each root's
// dependency closure, in declaration order, deduplicated on each task's
// first completed visit. A task that multiple roots depend on appears once,
// at the position of its first completion.
func Plan(m *Manifest, roots []string) ([]string, error) {
	visited := map[string]bool{}
	visiting := map[string]bool{}
	var order []string

	var visit func(name string) error
	visit = func(name string) error {
		if visited[name] {
			return nil
		}
		if visiting[name] {
			return failure.NewSystem(
				fmt.Sprintf("Cycle detected while planning %s.", quote(name)),
				"the manifest should have been validated before planning",
			)
		}
		task, ok := m.Tasks[name]
		if !ok {
			return failure.NewUser(fmt.Sprintf("No task named %s exists.", quote(name)), "")
		}

		visiting[name] = true
		for _, dep := range task.Dependencies {
			if err := visit(dep); err != nil {
				return err
			}
		}
		delete(visiting, name)

		visited[name] = true
		order = append(order, name)
		return nil
	}

	for _, root := range roots {
		if err := visit(root); err != nil {
			return nil, err
		}
	}

	return order, nil
}

// DefaultTask returns the manifest's default task name, or an empty string
// and false if none is declared.
func DefaultTask(m *Manifest) (string, bool) {
	if m.Default == nil {
		return "", false
	}
	return *m.Default, true
}
