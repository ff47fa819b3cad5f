package preview

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

// TemplatesFS exposes the built-in preview templates so callers can
// serve or extend them.
func TemplatesFS() fs.FS {
	return embeddedTemplates
}
