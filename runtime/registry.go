package runtime

import (
	"context"
	"fmt"

	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"
)

// RegistryIndex does a HEAD-only manifest existence check against a
// configured remote registry, without shelling out to the container
// runtime CLI. It is strictly an optimization of the engine's cache-probe
// step (spec step 3): a positive result still requires a real pull through
// the subprocess adapter before the image can be used, and a negative or
// error result always falls back to the adapter's own ImageExists.
type RegistryIndex struct {
	Options []remote.Option
}

// NewRegistryIndex returns a RegistryIndex using the default remote
// transport and anonymous authentication unless overridden by opts.
func NewRegistryIndex(opts ...remote.Option) *RegistryIndex {
	return &RegistryIndex{Options: opts}
}

// Exists reports whether ref's manifest is present in its registry. A
// false result does not necessarily mean the image is absent — it can
// also mean the registry couldn't be reached — so callers must still
// consult the authoritative adapter check.
func (r *RegistryIndex) Exists(ctx context.Context, ref string) bool {
	tag, err := name.ParseReference(ref)
	if err != nil {
		return false
	}
	opts := append([]remote.Option{remote.WithContext(ctx)}, r.Options...)
	desc, err := remote.Head(tag, opts...)
	return err == nil && desc != nil
}

func (r *RegistryIndex) String() string {
	return fmt.Sprintf("registry fast path (%d options)", len(r.Options))
}
