package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image/png"
	"net/http"
	"strings"
	"testing"
)

type sseEvent struct {
	name string
	data string
}

func parseEvents(t *testing.T, body string) []sseEvent {
	t.Helper()
	var events []sseEvent
	for _, block := range strings.Split(strings.TrimSpace(body), "\n\n") {
		var event sseEvent
		for _, line := range strings.Split(block, "\n") {
			switch {
			case strings.HasPrefix(line, "event: "):
				event.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				event.data = strings.TrimPrefix(line, "data: ")
			}
		}
		if event.name == "" {
			t.Fatalf("Malformed event block %q", block)
		}
		events = append(events, event)
	}
	return events
}

func TestHandleRenderStream(t *testing.T) {
	rec := get(t, NewServer(0, t.TempDir()), "/api/render/stream?scene=single-sphere&width=16&aspectRatio=2&spp=3&depth=2&passes=3&tiles=true")

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected text/event-stream, got %q", ct)
	}

	var passes []PassUpdate
	tiles, totalTiles := 0, 0
	events := parseEvents(t, rec.Body.String())
	for _, event := range events {
		switch event.name {
		case "pass":
			var update PassUpdate
			if err := json.Unmarshal([]byte(event.data), &update); err != nil {
				t.Fatal(err)
			}
			passes = append(passes, update)
		case "tile":
			var update TileUpdate
			if err := json.Unmarshal([]byte(event.data), &update); err != nil {
				t.Fatal(err)
			}
			tiles++
			totalTiles = update.TotalTiles
		case "complete", "error":
		default:
			t.Errorf("Unexpected event %q", event.name)
		}
	}

	if last := events[len(events)-1]; last.name != "complete" {
		t.Fatalf("Expected the stream to end with complete, got %q: %s", last.name, last.data)
	}
	if len(passes) != 3 {
		t.Fatalf("Expected 3 pass events, got %d", len(passes))
	}
	for i, pass := range passes {
		if pass.PassNumber != i+1 || pass.TotalPasses != 3 || pass.SamplesPerPixel != i+1 || pass.IsLast != (i == 2) {
			t.Errorf("Unexpected pass event %+v", pass)
		}
		if pass.Stats.TotalSamples != 16*8*(i+1) {
			t.Errorf("Pass %d: expected %d samples, got %d", i+1, 16*8*(i+1), pass.Stats.TotalSamples)
		}
	}
	if totalTiles == 0 || tiles != totalTiles*3 {
		t.Errorf("Expected %d tile events, got %d", totalTiles*3, tiles)
	}

	data, err := base64.StdEncoding.DecodeString(passes[2].ImageData)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to decode pass image: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 8 {
		t.Errorf("Expected 16x8 image, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestHandleRenderStream_NoTiles(t *testing.T) {
	rec := get(t, NewServer(0, t.TempDir()), "/api/render/stream?scene=single-sphere&width=8&spp=2&depth=1")

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "event: tile\n") {
		t.Error("Tile events should be off by default")
	}
	if n := strings.Count(body, "event: pass\n"); n != 2 {
		t.Errorf("Expected 2 pass events for 2 spp, got %d", n)
	}
}

func TestHandleRenderStream_Errors(t *testing.T) {
	srv := NewServer(0, t.TempDir())

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{"bad passes", "scene=single-sphere&width=8&spp=1&passes=0", http.StatusBadRequest},
		{"ppm", "scene=single-sphere&width=8&spp=1&format=ppm", http.StatusBadRequest},
		{"upload", "scene=single-sphere&width=8&spp=1&upload=true", http.StatusBadRequest},
		{"unknown scene", "scene=nonexistent&width=8&spp=1", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, srv, "/api/render/stream?"+tt.query)
			if rec.Code != tt.status {
				t.Errorf("Expected %d, got %d", tt.status, rec.Code)
			}
		})
	}
}
