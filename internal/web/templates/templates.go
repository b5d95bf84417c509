// Package templates embeds the HTML served by the web package.
package templates

import "embed"

//go:embed *.html pages/*.html partials/*.html
var FS embed.FS
