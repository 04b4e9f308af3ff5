package watchfile

import "embed"

// EmbeddedStaticFS provides the preview page and its assets. A static/
// directory next to the process takes precedence when present.
//
//go:embed static
var EmbeddedStaticFS embed.FS
