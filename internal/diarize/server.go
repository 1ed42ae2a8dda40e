package diarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/snarg/va-engine/internal/analyzer"
)

// ServerClient calls a self-hosted diarization sidecar (a pyannote
// pipeline behind a small HTTP wrapper). Implements the Provider
// interface.
type ServerClient struct {
	url     string
	model   string
	timeout time.Duration
	client  *http.Client
}

// serverResponse is the JSON response from the sidecar's /diarize endpoint.
type serverResponse struct {
	Segments    []serverSegment `json:"segments"`
	NumSpeakers int             `json:"num_speakers"`
}

// serverSegment is one speaker turn from the sidecar.
type serverSegment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// NewServerClient creates a diarization client for a self-hosted server.
func NewServerClient(url, model string, timeout time.Duration) *ServerClient {
	return &ServerClient{
		url:     url,
		model:   model,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name returns the provider name.
func (sc *ServerClient) Name() string { return "server" }

// Model returns the configured model identifier.
func (sc *ServerClient) Model() string { return sc.model }

// Diarize uploads the audio file to the sidecar and returns its speaker
// turns. Uses multipart/form-data with field name "file"; optional
// speaker-count hints are sent only when set, so servers without those
// parameters keep working.
func (sc *ServerClient) Diarize(ctx context.Context, audioPath string, opts Opts) ([]analyzer.Turn, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("copy audio data: %w", err)
	}

	if sc.model != "" {
		w.WriteField("model", sc.model)
	}
	if opts.NumSpeakers > 0 {
		w.WriteField("num_speakers", strconv.Itoa(opts.NumSpeakers))
	}
	if opts.MinSpeakers > 0 {
		w.WriteField("min_speakers", strconv.Itoa(opts.MinSpeakers))
	}
	if opts.MaxSpeakers > 0 {
		w.WriteField("max_speakers", strconv.Itoa(opts.MaxSpeakers))
	}

	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sc.url+"/diarize", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := sc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("diarize request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("diarize server error (status %d): %s", resp.StatusCode, string(body))
	}

	var result serverResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	turns := make([]analyzer.Turn, len(result.Segments))
	for i, seg := range result.Segments {
		turns[i] = analyzer.Turn{
			Speaker: seg.Speaker,
			Start:   seg.Start,
			End:     seg.End,
		}
	}
	return turns, nil
}
