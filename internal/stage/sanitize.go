package stage

import (
	"fmt"
	"path/filepath"
	"strings"
)

var unsafeNameChars = strings.NewReplacer(
	"<", "_",
	">", "_",
	":", "_",
	`"`, "_",
	"/", "_",
	`\`, "_",
	"|", "_",
	"?", "_",
	"*", "_",
)

// Sanitize replaces each of < > : " / \ | ? * with _ and trims surrounding
// whitespace. Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(name string) string {
	return strings.TrimSpace(unsafeNameChars.Replace(name))
}

// pathComponent sanitizes name for use as a single path element. Names that
// would be empty or refer to the current or parent directory fall back to
// <kind>_<id>.
func pathComponent(name, kind string, id int64) string {
	s := Sanitize(name)
	switch s {
	case "", ".", "..":
		return fmt.Sprintf("%s_%d", kind, id)
	}
	return s
}

// splitExt splits a file name into base and extension. A leading dot does not
// start an extension.
func splitExt(name string) (string, string) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if base == "" || strings.Trim(base, ".") == "" {
		return name, ""
	}
	return base, ext
}
