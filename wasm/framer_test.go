//go:build wasm

package main

import (
	"encoding/json"
	"syscall/js"
	"testing"

	"github.com/praetorian-inc/framer/pkg/types"
)

func uint8Array(b []byte) js.Value {
	arr := js.Global().Get("Uint8Array").New(len(b))
	js.CopyBytesToJS(arr, b)
	return arr
}

func mustFramer(t *testing.T, profileID string) int {
	t.Helper()
	result := newFramer(js.Value{}, []js.Value{js.ValueOf(profileID)})

	resultMap, ok := result.(map[string]interface{})
	if !ok {
		t.Fatalf("Expected map result, got %T", result)
	}
	if errMsg, hasError := resultMap["error"]; hasError {
		t.Fatalf("Failed to create framer: %v", errMsg)
	}
	return resultMap["handle"].(int)
}

// TestFramerCreation tests creating a framer from a builtin profile
func TestFramerCreation(t *testing.T) {
	handle := mustFramer(t, "crlf")
	if result := dispose(js.Value{}, []js.Value{js.ValueOf(handle)}); result != nil {
		t.Fatalf("dispose failed: %v", result)
	}
}

func TestFramerUnknownProfile(t *testing.T) {
	result := newFramer(js.Value{}, []js.Value{js.ValueOf("nope")})
	resultMap := result.(map[string]interface{})
	if _, hasError := resultMap["error"]; !hasError {
		t.Fatal("Expected error for unknown profile")
	}
}

// TestFeedAcrossChunks tests that a packet split over two chunks is framed once
func TestFeedAcrossChunks(t *testing.T) {
	handle := mustFramer(t, "lines")
	defer dispose(js.Value{}, []js.Value{js.ValueOf(handle)})

	if result := openChannel(js.Value{}, []js.Value{js.ValueOf(handle), js.ValueOf("port-1")}); result != nil {
		t.Fatalf("open failed: %v", result)
	}

	first := feed(js.Value{}, []js.Value{js.ValueOf(handle), js.ValueOf("port-1"), uint8Array([]byte("hel"))})
	var packets []*types.Packet
	if err := json.Unmarshal([]byte(first.(string)), &packets); err != nil {
		t.Fatalf("Failed to parse packets: %v", err)
	}
	if len(packets) != 0 {
		t.Fatalf("Expected no packets, got %d", len(packets))
	}

	second := feed(js.Value{}, []js.Value{js.ValueOf(handle), js.ValueOf("port-1"), uint8Array([]byte("lo\nworld\n"))})
	if err := json.Unmarshal([]byte(second.(string)), &packets); err != nil {
		t.Fatalf("Failed to parse packets: %v", err)
	}
	if len(packets) != 2 {
		t.Fatalf("Expected 2 packets, got %d", len(packets))
	}
	if string(packets[0].Data) != "hello" || packets[1].Seq != 2 {
		t.Errorf("Unexpected packets: %q seq %d", packets[0].Data, packets[1].Seq)
	}

	closed := closeChannel(js.Value{}, []js.Value{js.ValueOf(handle), js.ValueOf("port-1")})
	if closed.(map[string]interface{})["packets"] != 2 {
		t.Errorf("Expected 2 packets on close, got %v", closed)
	}
}

func TestFeedUnknownChannel(t *testing.T) {
	handle := mustFramer(t, "lines")
	defer dispose(js.Value{}, []js.Value{js.ValueOf(handle)})

	result := feed(js.Value{}, []js.Value{js.ValueOf(handle), js.ValueOf("missing"), uint8Array([]byte("x\n"))})
	if _, ok := result.(map[string]interface{}); !ok {
		t.Fatalf("Expected error map, got %T", result)
	}
}

func TestInvalidHandle(t *testing.T) {
	result := openChannel(js.Value{}, []js.Value{js.ValueOf(9999), js.ValueOf("k")})
	if result.(map[string]interface{})["error"] != "invalid framer handle" {
		t.Errorf("Expected invalid handle error, got %v", result)
	}
}

// TestGetBuiltinProfiles tests retrieving builtin profiles
func TestGetBuiltinProfiles(t *testing.T) {
	result := getBuiltinProfiles(js.Value{}, []js.Value{})

	jsonStr, ok := result.(string)
	if !ok {
		t.Fatalf("Expected string result, got %T", result)
	}

	var profiles []*types.Profile
	if err := json.Unmarshal([]byte(jsonStr), &profiles); err != nil {
		t.Fatalf("Failed to parse profiles: %v", err)
	}
	if len(profiles) == 0 {
		t.Error("Expected builtin profiles")
	}
}
