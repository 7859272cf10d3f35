// Package static embeds the upload page served at /.
package static

import "embed"

//go:embed index.html
var FS embed.FS

// ReadFile reads name from the embedded files.
func ReadFile(name string) ([]byte, error) {
	return FS.ReadFile(name)
}
