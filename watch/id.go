package watch

import (
	"strings"

	"github.com/google/uuid"
)

// generateIDWithPrefix returns a short random subscription id such as
// "sl_1f0c9a2b7d4e".
func generateIDWithPrefix(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "_" + id[:12]
}
