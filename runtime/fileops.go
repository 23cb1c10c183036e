package runtime

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/banksean/toastrun/failure"
)

// FileOps is the host-filesystem surface the copy-out idempotency
// workaround needs. It is a field of Adapter, so an Adapter can be given an
// in-memory implementation instead of touching the real filesystem.
type FileOps interface {
	MkdirAll(path string) error
	Rename(oldPath, newPath string) error
	Stat(path string) (fs.FileInfo, error)
	MkdirTemp() (string, error)
	Walk(root string, fn filepath.WalkFunc) error
}

type osFileOps struct{}

// NewOSFileOps returns a FileOps backed by the real filesystem.
func NewOSFileOps() FileOps { return osFileOps{} }

func (osFileOps) MkdirAll(path string) error { return os.MkdirAll(path, 0o755) }

func (osFileOps) Rename(oldPath, newPath string) error { return os.Rename(oldPath, newPath) }

func (osFileOps) Stat(path string) (fs.FileInfo, error) { return os.Stat(path) }

func (osFileOps) MkdirTemp() (string, error) { return os.MkdirTemp("", "toastrun-copy-out-") }

func (osFileOps) Walk(root string, fn filepath.WalkFunc) error { return filepath.Walk(root, fn) }

// placeStagedResult implements the copy-out idempotency workaround: given
// the path the runtime just copied a container path into (guaranteed not
// to have preexisted before the copy), move it into its final destination.
// A staged file is renamed directly; a staged directory is walked and its
// contents mirrored in, directory by directory and file by file, so an
// already-populated destination is merged into rather than nested inside.
func placeStagedResult(ops FileOps, staged, destination string) error {
	info, err := ops.Stat(staged)
	if err != nil {
		return failure.NewSystem(
			fmt.Sprintf("Unable to retrieve filesystem metadata for path %s.", staged),
			err.Error(),
		)
	}

	if !info.IsDir() {
		if err := ops.MkdirAll(filepath.Dir(destination)); err != nil {
			return failure.NewSystem(fmt.Sprintf("Unable to create directory %s.", filepath.Dir(destination)), err.Error())
		}
		if err := ops.Rename(staged, destination); err != nil {
			return failure.NewSystem(fmt.Sprintf("Unable to move file %s to destination %s.", staged, destination), err.Error())
		}
		return nil
	}

	return ops.Walk(staged, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return failure.NewSystem(fmt.Sprintf("Unable to traverse directory %s.", staged), err.Error())
		}
		rel, err := filepath.Rel(staged, path)
		if err != nil {
			return err
		}
		dest := filepath.Join(destination, rel)

		if info.IsDir() {
			if err := ops.MkdirAll(dest); err != nil {
				return failure.NewSystem(fmt.Sprintf("Unable to create directory %s.", dest), err.Error())
			}
			return nil
		}
		if err := ops.Rename(path, dest); err != nil {
			return failure.NewSystem(fmt.Sprintf("Unable to move file %s to destination %s.", path, dest), err.Error())
		}
		return nil
	})
}
