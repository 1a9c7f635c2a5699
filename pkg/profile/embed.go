package profile

import "embed"

// builtinFS embeds the built-in profiles and profile sets.
//
//go:embed profiles/*.yml profilesets/*.yml
var builtinFS embed.FS
