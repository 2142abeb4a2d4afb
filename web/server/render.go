package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/df07/go-pathtracer/pkg/output"
	"github.com/df07/go-pathtracer/pkg/renderer"
	"github.com/df07/go-pathtracer/pkg/scene"
)

// RenderRequest represents a render request from the client
type RenderRequest struct {
	Scene           string  // Built-in scene name or JSON scene file
	Width           int     // Image width
	AspectRatio     float64 // Width / height; 0 keeps the scene's ratio
	SamplesPerPixel int     // Rays per pixel
	MaxDepth        int     // Maximum bounce depth
	Seed            int64   // Base random seed
	Format          output.Format
	Thumbnail       int  // Maximum thumbnail edge; 0 = full size
	UseBVH          bool // Render through a BVH instead of the plain list
	Upload          bool // Upload to S3 instead of returning the image
	Passes          int  // Maximum passes of a streamed render
	TileUpdates     bool // Stream tile events between passes
}

// UploadResponse is returned for ?upload=true renders
type UploadResponse struct {
	Key   string `json:"key"`
	Stats Stats  `json:"stats"`
}

// Stats represents render statistics
type Stats struct {
	TotalPixels    int     `json:"totalPixels"`
	TotalSamples   int     `json:"totalSamples"`
	AverageSamples float64 `json:"averageSamples"`
	Workers        int     `json:"workers"`
	Passes         int     `json:"passes,omitempty"`
	ElapsedMs      int64   `json:"elapsedMs"`
}

func statsOf(stats renderer.RenderStats) Stats {
	return Stats{
		TotalPixels:    stats.TotalPixels,
		TotalSamples:   stats.TotalSamples,
		AverageSamples: stats.AverageSamples,
		Workers:        stats.Workers,
		Passes:         stats.Passes,
		ElapsedMs:      stats.Duration.Milliseconds(),
	}
}

// parseRenderRequest parses request parameters
func (s *Server) parseRenderRequest(r *http.Request) (*RenderRequest, error) {
	query := r.URL.Query()
	req := &RenderRequest{Scene: "default", Format: output.FormatPNG}

	if name := query.Get("scene"); name != "" {
		req.Scene = name
	}

	var err error
	if req.Width, err = parseIntParam(query, "width", 400, 8, 2000); err != nil {
		return nil, err
	}
	if req.AspectRatio, err = parseFloatParam(query, "aspectRatio", 0, 0.1, 10); err != nil {
		return nil, err
	}
	if req.SamplesPerPixel, err = parseIntParam(query, "spp", 20, 1, 10000); err != nil {
		return nil, err
	}
	if req.MaxDepth, err = parseIntParam(query, "depth", 50, 1, 500); err != nil {
		return nil, err
	}
	seed, err := parseIntParam(query, "seed", 42, 0, 1<<31-1)
	if err != nil {
		return nil, err
	}
	req.Seed = int64(seed)
	if req.Thumbnail, err = parseIntParam(query, "thumbnail", 0, 0, 2000); err != nil {
		return nil, err
	}
	if req.UseBVH, err = parseBoolParam(query, "bvh", true); err != nil {
		return nil, err
	}
	if req.Upload, err = parseBoolParam(query, "upload", false); err != nil {
		return nil, err
	}
	if req.Passes, err = parseIntParam(query, "passes", 7, 1, 50); err != nil {
		return nil, err
	}
	if req.TileUpdates, err = parseBoolParam(query, "tiles", false); err != nil {
		return nil, err
	}

	switch format := query.Get("format"); format {
	case "", "png":
	case "ppm":
		req.Format = output.FormatPPM
	default:
		return nil, fmt.Errorf("invalid format: %s", format)
	}
	if req.Format == output.FormatPPM && req.Thumbnail > 0 {
		return nil, fmt.Errorf("thumbnails are only available as png")
	}

	if req.Width > 800 && req.SamplesPerPixel > 100 {
		logger.Warning("large image with high samples may render slowly")
	}

	return req, nil
}

// handleRender renders a scene and returns the image, or uploads it
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRenderRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	if req.Upload && s.uploader == nil {
		writeError(w, http.StatusBadRequest, "Uploads are not configured")
		return
	}

	sceneObj, config, ok := s.prepareRender(w, req)
	if !ok {
		return
	}

	rt, err := sceneObj.NewRenderer(config, req.UseBVH)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Use request context to stop rendering when the client disconnects
	img, stats, err := rt.Render(r.Context())
	if errors.Is(err, context.Canceled) {
		logger.Infof("render of %q cancelled by client", req.Scene)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Infof("rendered %q %dx%d in %s", req.Scene, img.Width, img.Height, stats.Duration)

	if req.Upload {
		s.uploadRender(w, r, req, img, stats)
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("X-Render-Time-Ms", strconv.FormatInt(stats.Duration.Milliseconds(), 10))
	w.Header().Set("X-Total-Samples", strconv.Itoa(stats.TotalSamples))

	switch {
	case req.Format == output.FormatPPM:
		w.Header().Set("Content-Type", "image/x-portable-pixmap")
		err = output.WritePPM(w, img)
	case req.Thumbnail > 0:
		w.Header().Set("Content-Type", "image/png")
		err = output.WriteThumbnail(w, img, uint(req.Thumbnail))
	default:
		w.Header().Set("Content-Type", "image/png")
		err = output.WritePNG(w, img)
	}
	if err != nil {
		logger.Warningf("failed to write image: %v", err)
	}
}

// prepareRender opens the requested scene and applies the request settings
// to its render configuration. On failure it writes the error response.
func (s *Server) prepareRender(w http.ResponseWriter, req *RenderRequest) (*scene.Scene, renderer.Config, bool) {
	sceneObj, err := s.openScene(req.Scene, req.Seed)
	if errors.Is(err, scene.ErrUnknownScene) || errors.Is(err, fs.ErrNotExist) {
		writeError(w, http.StatusNotFound, "Unknown scene: "+req.Scene)
		return nil, renderer.Config{}, false
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, renderer.Config{}, false
	}

	config := sceneObj.RenderConfig
	config.Width = req.Width
	if req.AspectRatio > 0 {
		config.AspectRatio = req.AspectRatio
	}
	config.SamplesPerPixel = req.SamplesPerPixel
	config.MaxDepth = req.MaxDepth
	config.Seed = req.Seed
	config.NumWorkers = 0

	return sceneObj, config, true
}

// uploadRender stores the rendered PNG in S3 and reports the object key
func (s *Server) uploadRender(w http.ResponseWriter, r *http.Request, req *RenderRequest, img *renderer.Image, stats renderer.RenderStats) {
	data, err := output.EncodePNG(img)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	name := fmt.Sprintf("%s/render_%s.png", sceneKey(req.Scene), time.Now().Format("20060102_150405"))
	key, err := s.uploader.Upload(r.Context(), name, data, "image/png")
	if err != nil {
		logger.Errorf("upload failed: %v", err)
		writeError(w, http.StatusBadGateway, "Upload failed")
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{Key: key, Stats: statsOf(stats)})
}

// sceneKey strips directories and the .json extension from a scene reference
func sceneKey(ref string) string {
	base := filepath.Base(ref)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
