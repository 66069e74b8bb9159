package static

import "embed"

// FS embeds the stylesheet and scripts served under /static/
//
//go:embed css js
var FS embed.FS
