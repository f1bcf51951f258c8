package display

import (
	"io"

	"github.com/fatih/color"
)

var bannerColor = color.New(color.FgHiMagenta, color.Bold)

// PrintBanner prints the ASCII art banner to w; magenta if colors are enabled.
func PrintBanner(w io.Writer) {
	bannerColor.Fprint(w, `     _           _ _ _
  __| |___ _ __ | (_) |_
 / _`+"`"+` / __| '_ \| | | __|
| (_| \__ \ |_) | | | |_
 \__,_|___/ .__/|_|_|\__|
          |_|
`)
}
