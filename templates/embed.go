package templates

import "embed"

// FS embeds the page templates so the server can run with
// templates.embedded and no templates directory on disk
//
//go:embed *.html
var FS embed.FS
