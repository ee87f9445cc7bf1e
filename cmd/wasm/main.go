//go:build js && wasm

package main

import (
	"fmt"
	"syscall/js"
	"time"

	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/synctone"
	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/tracker"
)

// Error codes returned to JavaScript
const (
	ErrorNone = iota
	ErrorInvalidArgs
	ErrorProcessing
)

// One tracker per page; it is rebuilt when the sample rate changes so the
// smoothed trace never mixes rates.
var (
	track     *tracker.Tracker
	trackRate float64
)

// Tracks one block of local and remote frames.
// Returns: {error: number, data: object | string}
func trackFrames(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected 3 arguments: localArray, remoteArray, sampleRate")
	}
	if args[2].Type() != js.TypeNumber || args[2].Float() <= 0 {
		return makeErrorResponse(ErrorInvalidArgs, "sampleRate must be a positive number")
	}

	local, err := toSamples(args[0], "localArray")
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}
	remote, err := toSamples(args[1], "remoteArray")
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}

	rate := args[2].Float()
	if track == nil || rate != trackRate {
		cfg := tracker.DefaultConfig()
		cfg.SampleRate = rate
		track = tracker.New(cfg)
		trackRate = rate
	}

	r, err := track.Process(local, remote, time.Now())
	if err != nil {
		return makeErrorResponse(ErrorProcessing, fmt.Sprintf("Tracking failed: %v", err))
	}

	data := js.Global().Get("Object").New()
	data.Set("peak", r.Peak)
	data.Set("seconds", r.Seconds())
	data.Set("valid", r.Valid)
	data.Set("magnitude", r.Magnitude)

	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", data)
	return result
}

// Returns the sync tone as {error, data: Array}.
func generateSyncTone(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 || args[0].Type() != js.TypeNumber || args[1].Type() != js.TypeNumber {
		return makeErrorResponse(ErrorInvalidArgs, "Expected 2 arguments: sampleRate, seconds")
	}
	samples := synctone.Generate(args[0].Int(), args[1].Float())
	if len(samples) == 0 {
		return makeErrorResponse(ErrorInvalidArgs, "sampleRate and seconds must be positive")
	}

	arr := js.Global().Get("Array").New(len(samples))
	for i, v := range samples {
		arr.SetIndex(i, v)
	}
	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", arr)
	return result
}

func toSamples(v js.Value, name string) ([]float64, error) {
	if v.Type() != js.TypeObject {
		return nil, fmt.Errorf("%s must be an Array or Float64Array", name)
	}
	length := v.Length()
	if length == 0 {
		return nil, fmt.Errorf("%s is empty", name)
	}
	samples := make([]float64, length)
	for i := 0; i < length; i++ {
		val := v.Index(i)
		if val.Type() != js.TypeNumber {
			return nil, fmt.Errorf("%s element %d is not a number", name, i)
		}
		samples[i] = val.Float()
	}
	return samples, nil
}

func makeErrorResponse(errorCode int, message string) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", errorCode)
	result.Set("data", message)
	return result
}

func main() {
	console := js.Global().Get("console")
	if !console.IsUndefined() {
		console.Call("log", "🔧 AcousticSync WASM module initializing...")
	}

	done := make(chan struct{})

	js.Global().Set("trackFrames", js.FuncOf(trackFrames))
	js.Global().Set("generateSyncTone", js.FuncOf(generateSyncTone))

	window := js.Global().Get("window")
	if !window.IsUndefined() {
		event := js.Global().Get("CustomEvent").New("wasmReady", js.Global().Get("Object").New())
		window.Call("dispatchEvent", event)
	} else if !console.IsUndefined() {
		console.Call("error", "❌ window object is undefined!")
	}

	if !console.IsUndefined() {
		console.Call("log", "✅ AcousticSync WASM module loaded and ready")
	}

	<-done
}
