package compress

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UniqueName derives a collision-resistant stored file name from the
// original one: "{base}_{UTC timestamp}_{8 hex chars}{ext}". The random
// token keeps two calls within the same second distinct.
func UniqueName(originalName string) string {
	ext := filepath.Ext(originalName)
	base := strings.TrimSuffix(filepath.Base(originalName), ext)
	token := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	timestamp := time.Now().UTC().Format("20060102150405")
	return fmt.Sprintf("%s_%s_%s%s", base, timestamp, token, ext)
}
