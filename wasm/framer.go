//go:build wasm

package main

import (
	"context"
	"encoding/json"
	"sync"
	"syscall/js"

	"github.com/praetorian-inc/framer/pkg/pipeline"
	"github.com/praetorian-inc/framer/pkg/profile"
)

var (
	framers   = make(map[int]*pipeline.Pipeline)
	framersMu sync.RWMutex
	nextID    int
)

func errorResult(msg string) map[string]interface{} {
	return map[string]interface{}{"error": msg}
}

func lookup(handle int) (*pipeline.Pipeline, bool) {
	framersMu.RLock()
	defer framersMu.RUnlock()
	p, ok := framers[handle]
	return p, ok
}

// newFramer creates a framer for a builtin profile.
// JS: FramerNew(profileID, resync?) -> {handle} or {error}
func newFramer(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("profileID argument required")
	}

	profiles, err := profile.NewLoader().LoadBuiltinProfiles()
	if err != nil {
		return errorResult("failed to load builtin profiles: " + err.Error())
	}
	p, ok := profile.Find(profiles, args[0].String())
	if !ok {
		return errorResult("unknown profile: " + args[0].String())
	}

	f, err := profile.NewFramer(p)
	if err != nil {
		return errorResult("failed to create framer: " + err.Error())
	}

	resync := len(args) > 1 && args[1].Truthy()

	framersMu.Lock()
	id := nextID
	nextID++
	framers[id] = pipeline.New(f, p.ID, pipeline.WithResync(resync))
	framersMu.Unlock()

	return map[string]interface{}{"handle": id}
}

// openChannel registers a channel, e.g. one per Web Serial port.
// JS: FramerOpen(handle, key) -> null or {error}
func openChannel(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("handle and key arguments required")
	}

	p, ok := lookup(args[0].Int())
	if !ok {
		return errorResult("invalid framer handle")
	}
	if err := p.Open(args[1].String()); err != nil {
		return errorResult(err.Error())
	}
	return nil
}

// feed frames a chunk of bytes.
// JS: FramerFeed(handle, key, Uint8Array) -> JSON packets or {error}
func feed(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return errorResult("handle, key and data arguments required")
	}

	p, ok := lookup(args[0].Int())
	if !ok {
		return errorResult("invalid framer handle")
	}

	data := make([]byte, args[2].Get("length").Int())
	js.CopyBytesToGo(data, args[2])

	packets, err := p.Feed(context.Background(), args[1].String(), data)
	if err != nil {
		return errorResult("framing failed: " + err.Error())
	}

	jsonBytes, err := json.Marshal(packets)
	if err != nil {
		return errorResult("failed to marshal packets: " + err.Error())
	}
	return string(jsonBytes)
}

// closeChannel removes a channel.
// JS: FramerCloseChannel(handle, key) -> {packets} or {error}
func closeChannel(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("handle and key arguments required")
	}

	p, ok := lookup(args[0].Int())
	if !ok {
		return errorResult("invalid framer handle")
	}
	n, ok := p.Close(args[1].String())
	if !ok {
		return errorResult("channel not found: " + args[1].String())
	}
	return map[string]interface{}{"packets": int(n)}
}

// dispose releases a framer and all of its channels.
// JS: FramerDispose(handle)
func dispose(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("handle argument required")
	}

	handle := args[0].Int()

	framersMu.Lock()
	p, ok := framers[handle]
	if ok {
		delete(framers, handle)
	}
	framersMu.Unlock()

	if !ok {
		return errorResult("invalid framer handle")
	}

	p.CloseAll()
	p.Framer().Dispose()

	return nil
}

// getBuiltinProfiles returns the built-in profiles as JSON.
// JS: FramerGetBuiltinProfiles() -> JSON profiles array
func getBuiltinProfiles(this js.Value, args []js.Value) interface{} {
	profiles, err := profile.NewLoader().LoadBuiltinProfiles()
	if err != nil {
		return errorResult("failed to load builtin profiles: " + err.Error())
	}

	jsonBytes, err := json.Marshal(profiles)
	if err != nil {
		return errorResult("failed to marshal profiles: " + err.Error())
	}

	return string(jsonBytes)
}
