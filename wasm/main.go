//go:build wasm

package main

import (
	"syscall/js"
)

func main() {
	// Export functions to JavaScript
	js.Global().Set("FramerNew", js.FuncOf(newFramer))
	js.Global().Set("FramerOpen", js.FuncOf(openChannel))
	js.Global().Set("FramerFeed", js.FuncOf(feed))
	js.Global().Set("FramerCloseChannel", js.FuncOf(closeChannel))
	js.Global().Set("FramerDispose", js.FuncOf(dispose))
	js.Global().Set("FramerGetBuiltinProfiles", js.FuncOf(getBuiltinProfiles))

	// Keep WASM running
	<-make(chan struct{})
}
