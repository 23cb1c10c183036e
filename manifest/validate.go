package manifest

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/banksean/toastrun/failure"
)

// Validate runs the validator passes in the load-bearing order: path kinds,
// cache consistency, then dependency existence followed by acyclicity (the
// latter assumes every dependency name already resolves).
func Validate(m *Manifest) error {
	if err := checkPaths(m); err != nil {
		return err
	}
	if err := checkCaching(m); err != nil {
		return err
	}
	if err := checkDependencies(m); err != nil {
		return err
	}
	return nil
}

func sortedTaskNames(m *Manifest) []string {
	names := make([]string, 0, len(m.Tasks))
	for name := range m.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func checkPaths(m *Manifest) error {
	for _, name := range sortedTaskNames(m) {
		task := m.Tasks[name]

		for _, p := range task.InputPaths {
			if filepath.IsAbs(p) {
				return failure.NewUser(fmt.Sprintf(
					"Task %s has an absolute %s: %s.",
					quote(name), quote("input_path"), quote(p),
				), "")
			}
		}

		for _, p := range task.OutputPaths {
			if filepath.IsAbs(p) {
				return failure.NewUser(fmt.Sprintf(
					"Task %s has an absolute %s: %s.",
					quote(name), quote("output_path"), quote(p),
				), "")
			}
		}

		if !filepath.IsAbs(task.Location) {
			return failure.NewUser(fmt.Sprintf(
				"Task %s has a relative %s: %s.",
				quote(name), quote("location"), quote(task.Location),
			), "")
		}
	}

	return nil
}

func checkCaching(m *Manifest) error {
	for _, name := range sortedTaskNames(m) {
		task := m.Tasks[name]

		if len(task.Ports) > 0 && task.Cache {
			return failure.NewUser(fmt.Sprintf(
				"Task %s exposes ports but does not disable caching. "+
					"To fix this, set %s for this task.",
				quote(name), quote("cache: false"),
			), "")
		}

		if task.Watch && task.Cache {
			return failure.NewUser(fmt.Sprintf(
				"Task %s watches the filesystem but does not disable caching. "+
					"To fix this, set %s for this task.",
				quote(name), quote("cache: false"),
			), "")
		}
	}

	return nil
}

// checkDependencies checks the default task, scans every task's
// dependencies for missing names, and (if none are missing) checks
// acyclicity. [tag:tasks_dag]
func checkDependencies(m *Manifest) error {
	validDefault := m.Default == nil || taskExists(m, *m.Default)

	type violation struct {
		task    string
		missing []string
	}
	var violations []violation

	for _, name := range sortedTaskNames(m) {
		var missing []string
		for _, dep := range m.Tasks[name].Dependencies {
			if !taskExists(m, dep) {
				missing = append(missing, dep)
			}
		}
		if len(missing) > 0 {
			violations = append(violations, violation{task: name, missing: missing})
		}
	}

	if len(violations) > 0 {
		parts := make([]string, 0, len(violations))
		for _, v := range violations {
			depQuoted := make([]string, 0, len(v.missing))
			for _, d := range v.missing {
				depQuoted = append(depQuoted, quote(d))
			}
			parts = append(parts, fmt.Sprintf("%s (%s)", quote(v.task), series(depQuoted)))
		}
		violationsSeries := series(parts)

		if validDefault {
			return failure.NewUser(fmt.Sprintf(
				"The following tasks have invalid dependencies: %s.", violationsSeries,
			), "")
		}
		return failure.NewUser(fmt.Sprintf(
			"The default task %s does not exist, and the following tasks have invalid dependencies: %s.",
			quote(*m.Default), violationsSeries,
		), "")
	}

	if !validDefault {
		return failure.NewUser(fmt.Sprintf(
			"The default task %s does not exist.", quote(*m.Default),
		), "")
	}

	return checkAcyclic(m)
}

func taskExists(m *Manifest, name string) bool {
	_, ok := m.Tasks[name]
	return ok
}

type frontierEntry struct {
	task  string
	depth int
}

// checkAcyclic runs a depth-carrying DFS from every task, tracking a global
// visited set plus, per-traversal, an ancestor set and stack. See spec §4.1.
func checkAcyclic(m *Manifest) error {
	visited := map[string]bool{}

	for _, start := range sortedTaskNames(m) {
		frontier := []frontierEntry{{task: start, depth: 0}}
		ancestorsSet := map[string]bool{}
		var ancestorsStack []string

		for len(frontier) > 0 {
			top := frontier[len(frontier)-1]
			frontier = frontier[:len(frontier)-1]

			for len(ancestorsStack) > top.depth {
				removed := ancestorsStack[len(ancestorsStack)-1]
				ancestorsStack = ancestorsStack[:len(ancestorsStack)-1]
				delete(ancestorsSet, removed)
			}

			if ancestorsSet[top.task] {
				return cycleError(ancestorsStack, top.task)
			}

			if !visited[top.task] {
				visited[top.task] = true
				ancestorsSet[top.task] = true
				ancestorsStack = append(ancestorsStack, top.task)

				for _, dep := range m.Tasks[top.task].Dependencies {
					frontier = append(frontier, frontierEntry{task: dep, depth: top.depth + 1})
				}
			}
		}
	}

	return nil
}

func cycleError(ancestorsStack []string, task string) error {
	start := 0
	for i, a := range ancestorsStack {
		if a == task {
			start = i
			break
		}
	}
	cycle := append(append([]string{}, ancestorsStack[start+1:]...), task)

	var msg string
	switch len(cycle) {
	case 1:
		msg = fmt.Sprintf("%s depends on itself.", quote(cycle[0]))
	case 2:
		msg = fmt.Sprintf("%s and %s depend on each other.", quote(cycle[0]), quote(cycle[1]))
	default:
		cycleDeps := append(append([]string{}, cycle[1:]...), cycle[0])
		pairs := make([]string, 0, len(cycle))
		for i, x := range cycle {
			pairs = append(pairs, fmt.Sprintf("%s depends on %s", quote(x), quote(cycleDeps[i])))
		}
		msg = series(pairs) + "."
	}

	return failure.NewUser(fmt.Sprintf("The dependencies are cyclic. %s", msg), "")
}
