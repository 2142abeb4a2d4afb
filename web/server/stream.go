package server

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/df07/go-pathtracer/pkg/output"
	"github.com/df07/go-pathtracer/pkg/renderer"
)

// PassUpdate is the payload of a "pass" event
type PassUpdate struct {
	PassNumber      int    `json:"passNumber"`
	TotalPasses     int    `json:"totalPasses"`
	SamplesPerPixel int    `json:"samplesPerPixel"`
	ImageData       string `json:"imageData"` // Base64 encoded PNG
	Stats           Stats  `json:"stats"`
	IsLast          bool   `json:"isLast"`
}

// TileUpdate is the payload of a "tile" event
type TileUpdate struct {
	TileX       int    `json:"tileX"`
	TileY       int    `json:"tileY"`
	ImageData   string `json:"imageData"` // Base64 encoded PNG of just this tile
	PassNumber  int    `json:"passNumber"`
	TileNumber  int    `json:"tileNumber"`
	TotalTiles  int    `json:"totalTiles"`
	TotalPasses int    `json:"totalPasses"`
}

// handleRenderStream renders progressively and streams every pass as a
// Server-Sent Event. Events are "pass", optionally "tile", then either
// "complete" or "error".
func (s *Server) handleRenderStream(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRenderRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	if req.Format != output.FormatPNG || req.Thumbnail > 0 || req.Upload {
		writeError(w, http.StatusBadRequest, "Streamed renders are full size png only")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	sceneObj, config, ok := s.prepareRender(w, req)
	if !ok {
		return
	}
	pr, err := sceneObj.NewProgressiveRenderer(config, renderer.ProgressiveConfig{InitialSamples: 1, MaxPasses: req.Passes}, req.UseBVH)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	setSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	start := time.Now()
	passChan, tileChan, errChan := pr.RenderProgressive(ctx, renderer.RenderOptions{TileUpdates: req.TileUpdates})

	// Single writer: events are written from this goroutine only
	for passChan != nil || tileChan != nil {
		select {
		case pass, ok := <-passChan:
			if !ok {
				passChan = nil
				continue
			}
			err = writePassEvent(w, pass, pr.Passes())
		case tile, ok := <-tileChan:
			if !ok {
				tileChan = nil
				continue
			}
			err = writeTileEvent(w, tile)
		case <-ctx.Done():
			logger.Infof("streamed render of %q cancelled by client", req.Scene)
			return
		}
		if err != nil {
			logger.Warningf("failed to write event: %v", err)
			return
		}
		flusher.Flush()
	}

	if err := <-errChan; err != nil {
		logger.Errorf("streamed render of %q failed: %v", req.Scene, err)
		writeEvent(w, "error", map[string]string{"error": err.Error()})
		flusher.Flush()
		return
	}

	logger.Infof("streamed %q in %d passes, %s", req.Scene, pr.Passes(), time.Since(start))
	writeEvent(w, "complete", map[string]int64{"totalTimeMs": time.Since(start).Milliseconds()})
	flusher.Flush()
}

// setSSEHeaders sets the required headers for Server-Sent Events
func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

func writePassEvent(w io.Writer, pass renderer.PassResult, totalPasses int) error {
	data, err := imageToBase64PNG(pass.Image)
	if err != nil {
		return err
	}
	return writeEvent(w, "pass", PassUpdate{
		PassNumber:      pass.PassNumber,
		TotalPasses:     totalPasses,
		SamplesPerPixel: pass.Stats.SamplesPerPixel,
		ImageData:       data,
		Stats:           statsOf(pass.Stats),
		IsLast:          pass.IsLast,
	})
}

func writeTileEvent(w io.Writer, tile renderer.TileCompletionResult) error {
	data, err := imageToBase64PNG(tile.TileImage)
	if err != nil {
		return err
	}
	return writeEvent(w, "tile", TileUpdate{
		TileX:       tile.TileX,
		TileY:       tile.TileY,
		ImageData:   data,
		PassNumber:  tile.PassNumber,
		TileNumber:  tile.TileNumber,
		TotalTiles:  tile.TotalTiles,
		TotalPasses: tile.TotalPasses,
	})
}

// writeEvent writes one event with a JSON payload
func writeEvent(w io.Writer, event string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

func imageToBase64PNG(img *renderer.Image) (string, error) {
	data, err := output.EncodePNG(img)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
