// Package web bundles the HTML templates and static assets into the binary.
package web

import (
	"embed"
	"io/fs"
)

// Templates holds layouts and pages.
//
//go:embed templates/**/*.html
var Templates embed.FS

//go:embed static/**/*
var static embed.FS

// Assets returns the static files rooted at the asset directory, ready for
// http.FS under /static/.
func Assets() (fs.FS, error) {
	return fs.Sub(static, "static")
}
