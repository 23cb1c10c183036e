package runtime

import (
	"strings"

	"github.com/goombaio/namegenerator"
	"github.com/google/uuid"
)

// RandomTag returns a 32-character lowercase-hex ephemeral image tag
// derived from a random UUID v4, matching the runtime CLI's accepted tag
// format.
func RandomTag() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// FriendlyLabel returns a human-readable label for logging and diagnostic
// output alongside a RandomTag. It is cosmetic only — never used as the
// actual image tag. The label is generated from seed, so the same seed
// yields the same label.
func FriendlyLabel(seed int64) string {
	return namegenerator.NewNameGenerator(seed).Generate()
}
