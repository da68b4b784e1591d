// Package ui provides semantic text formatting for CLI output.
//
// Formatters render with color when the terminal supports it. When NO_COLOR
// is set or the terminal cannot show colors, plain decorations are used
// instead:
//
//	ui.Code.Sprint("ctx-sync sync")          // `ctx-sync sync`
//	ui.Bucket.Sprint("secrets")              // [secrets]
//	ui.Fingerprint.Sprint("AB12-CD34-...")   // <AB12-CD34-...>
//	ui.Highlight.Sprint("bob")               // 'bob'
//	ui.Muted.Sprint("no remote")             // (no remote)
//
// Path, Success, Error, Warning and Info carry no decoration without color.
package ui
