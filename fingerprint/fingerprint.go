// Package fingerprint computes the content-addressed cache key the
// execution engine uses to decide whether a task's cached image can be
// reused. A fingerprint is a function of a task's parent fingerprint, its
// normalized definition, its resolved environment, and the content of the
// files it reads from the host, so identical inputs always produce the
// identical tag regardless of when or where they are computed.
package fingerprint

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	v1 "github.com/google/go-containerregistry/pkg/v1"

	"github.com/banksean/toastrun/manifest"
)

// canonicalTask is the part of manifest.Task that feeds the fingerprint,
// laid out in the fixed key order pinned by SPEC_FULL.md §3:
// dependencies, cache, environment, watch, input_paths, output_paths,
// ports, location, user, command. Dependencies, input_paths, output_paths
// and ports are kept in declaration order, since that order is
// semantically significant elsewhere (plan tie-breaking, port publication
// order); environment keys are sorted, since the map itself carries no
// order.
type canonicalTask struct {
	Dependencies []string          `json:"dependencies"`
	Cache        bool              `json:"cache"`
	Environment  map[string]string `json:"environment"`
	Watch        bool              `json:"watch"`
	InputPaths   []string          `json:"input_paths"`
	OutputPaths  []string          `json:"output_paths"`
	Ports        []string          `json:"ports"`
	Location     string            `json:"location"`
	User         string            `json:"user"`
	Command      string            `json:"command"`
}

// Input bundles everything a task's fingerprint is computed from.
type Input struct {
	// ParentFingerprint identifies the image this task's container was
	// created from: the manifest's base image reference for the first
	// task in the plan, or the previous task's own fingerprint thereafter.
	ParentFingerprint string
	Task              manifest.Task
	ResolvedEnv       map[string]string
	// ContentDigest is the digest of every file under the task's input
	// paths, computed by DigestDir.
	ContentDigest string
}

// Compute derives a fingerprint for a task, returned as a string of the
// form "sha256:<hex>" so it doubles as a valid OCI digest.
func Compute(in Input) (string, error) {
	command := ""
	if in.Task.Command != nil {
		command = *in.Task.Command
	}

	canon := canonicalTask{
		Dependencies: orEmpty(in.Task.Dependencies),
		Cache:        in.Task.Cache,
		Environment:  in.ResolvedEnv,
		Watch:        in.Task.Watch,
		InputPaths:   orEmpty(in.Task.InputPaths),
		OutputPaths:  orEmpty(in.Task.OutputPaths),
		Ports:        orEmpty(in.Task.Ports),
		Location:     in.Task.Location,
		User:         in.Task.User,
		Command:      command,
	}

	taskJSON, err := json.Marshal(canon)
	if err != nil {
		return "", fmt.Errorf("marshaling canonical task: %w", err)
	}

	h := sha256.New()
	fmt.Fprintf(h, "%s\n%s\n%s\n", in.ParentFingerprint, taskJSON, in.ContentDigest)

	digest := v1.Hash{
		Algorithm: "sha256",
		Hex:       fmt.Sprintf("%x", h.Sum(nil)),
	}
	return digest.String(), nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
