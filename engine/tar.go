package engine

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// buildInputTar packs inputPaths, resolved relative to hostDir, into a tar
// stream rooted so each entry lands under location once extracted into the
// container with `container cp - <container>:/`. A path that names a
// directory on the host is walked recursively; a file becomes a single
// entry.
func buildInputTar(hostDir string, inputPaths []string, location string) (io.Reader, error) {
	var buf bytes.Buffer
	w := tar.NewWriter(&buf)

	for _, inputPath := range inputPaths {
		hostPath := filepath.Join(hostDir, inputPath)
		destPath := path.Join(location, filepath.ToSlash(inputPath))

		info, err := os.Stat(hostPath)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", hostPath, err)
		}

		if info.IsDir() {
			if err := addDir(w, hostPath, destPath); err != nil {
				return nil, err
			}
			continue
		}

		if err := addFile(w, hostPath, destPath, info); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing tar stream: %w", err)
	}
	return &buf, nil
}

func addDir(w *tar.Writer, hostRoot, destRoot string) error {
	return filepath.WalkDir(hostRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(hostRoot, p)
		if err != nil {
			return err
		}
		dest := destRoot
		if rel != "." {
			dest = path.Join(destRoot, filepath.ToSlash(rel))
		}

		if d.IsDir() {
			return w.WriteHeader(&tar.Header{
				Typeflag: tar.TypeDir,
				Name:     dest + "/",
				Mode:     0o755,
			})
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		return addFile(w, p, dest, info)
	})
}

func addFile(w *tar.Writer, hostPath, destPath string, info fs.FileInfo) error {
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("building tar header for %s: %w", hostPath, err)
	}
	header.Name = destPath

	if err := w.WriteHeader(header); err != nil {
		return fmt.Errorf("writing tar header for %s: %w", hostPath, err)
	}

	f, err := os.Open(hostPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", hostPath, err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("copying %s into tar stream: %w", hostPath, err)
	}
	return nil
}
