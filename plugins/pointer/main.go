// Package main provides a pointer plugin for X11 desktops.
// It moves, clicks and scrolls the host pointer via xdotool.
package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action  string          `json:"action"`
	Gesture string          `json:"gesture"`
	Config  json.RawMessage `json:"config"`
	Params  json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// PointerParams is the pointer position in screen pixels. DY is the scroll
// delta; positive scrolls down.
type PointerParams struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	DY float64 `json:"dy"`
}

// scrollStep is how many pixels of delta make one wheel click.
const scrollStep = 40

type actionHandler func(p PointerParams) error

var actionHandlers = map[string]actionHandler{
	"move":         move,
	"click":        func(p PointerParams) error { return click(p, "1") },
	"context-menu": func(p PointerParams) error { return click(p, "3") },
	"scroll":       scroll,
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	handler, ok := actionHandlers[req.Action]
	if !ok {
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	var params PointerParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid params: %v", err))
			return
		}
	}

	if err := handler(params); err != nil {
		writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
		return
	}

	writeSuccessResponse()
}

func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}

func xdotool(args ...string) error {
	cmd := exec.Command("xdotool", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

func coords(p PointerParams) (string, string) {
	return strconv.Itoa(int(math.Round(p.X))), strconv.Itoa(int(math.Round(p.Y)))
}

func move(p PointerParams) error {
	x, y := coords(p)
	return xdotool("mousemove", x, y)
}

func click(p PointerParams, button string) error {
	x, y := coords(p)
	return xdotool("mousemove", x, y, "click", button)
}

// scroll maps the delta onto wheel buttons 4 (up) and 5 (down).
func scroll(p PointerParams) error {
	clicks := int(math.Round(p.DY / scrollStep))
	if clicks == 0 {
		return nil
	}
	button := "5"
	if clicks < 0 {
		button = "4"
		clicks = -clicks
	}
	x, y := coords(p)
	return xdotool("mousemove", x, y, "click", "--repeat", strconv.Itoa(clicks), button)
}
