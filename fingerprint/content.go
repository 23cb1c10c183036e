package fingerprint

import (
	"crypto/sha256"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	v1 "github.com/google/go-containerregistry/pkg/v1"
)

// DigestDir walks every regular file reachable under the given input paths
// (relative to root, matching the task's own input_paths) and folds each
// file's path, mode bits, and content hash into a single digest. Paths are
// visited in sorted order so the result does not depend on the host
// filesystem's directory-entry ordering, and mode bits are limited to the
// portable permission bits so the digest is reproducible across platforms.
func DigestDir(root string, inputPaths []string) (string, error) {
	type entry struct {
		path string
		mode fs.FileMode
		sum  []byte
	}

	var entries []entry

	for _, inputPath := range inputPaths {
		abs := filepath.Join(root, inputPath)
		err := filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			h := sha256.New()
			if _, err := io.Copy(h, f); err != nil {
				return err
			}

			entries = append(entries, entry{
				path: filepath.ToSlash(rel),
				mode: info.Mode().Perm(),
				sum:  h.Sum(nil),
			})
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("walking input path %q: %w", inputPath, err)
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].path < entries[j].path })

	h := sha256.New()
	for _, e := range entries {
		fmt.Fprintf(h, "%s\t%o\t%x\n", e.path, e.mode, e.sum)
	}

	digest := v1.Hash{Algorithm: "sha256", Hex: fmt.Sprintf("%x", h.Sum(nil))}
	return digest.String(), nil
}
