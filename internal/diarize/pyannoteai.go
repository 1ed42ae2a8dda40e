package diarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/snarg/va-engine/internal/analyzer"
)

const pyannoteAIBaseURL = "https://api.pyannote.ai/v1"

// PyannoteAIClient calls the hosted pyannote.ai diarization API.
// Implements the Provider interface.
//
// The API is asynchronous: the audio is uploaded to a presigned media
// slot, a diarization job is submitted, and the job is polled until it
// settles. Polling uses exponential backoff capped by the configured
// timeout.
type PyannoteAIClient struct {
	baseURL string
	apiKey  string
	model   string
	timeout time.Duration
	client  *http.Client
	log     zerolog.Logger
}

// JobError reports a diarization job that settled in a non-success state.
type JobError struct {
	JobID  string
	Status string
}

func (e *JobError) Error() string {
	return fmt.Sprintf("diarization job %s %s", e.JobID, e.Status)
}

// pyannoteJob is the job envelope returned by submit and poll calls.
type pyannoteJob struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"` // created, running, succeeded, failed, canceled
	Output struct {
		Diarization []struct {
			Speaker string  `json:"speaker"`
			Start   float64 `json:"start"`
			End     float64 `json:"end"`
		} `json:"diarization"`
	} `json:"output"`
}

// NewPyannoteAIClient creates a hosted pyannote.ai client.
func NewPyannoteAIClient(apiKey, model string, timeout time.Duration, log zerolog.Logger) *PyannoteAIClient {
	return &PyannoteAIClient{
		baseURL: pyannoteAIBaseURL,
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "pyannoteai").Logger(),
	}
}

// Name returns the provider name.
func (pc *PyannoteAIClient) Name() string { return "pyannoteai" }

// Model returns the configured model identifier.
func (pc *PyannoteAIClient) Model() string { return pc.model }

// Diarize uploads the audio, submits a diarization job, and polls until
// the job settles.
func (pc *PyannoteAIClient) Diarize(ctx context.Context, audioPath string, opts Opts) ([]analyzer.Turn, error) {
	mediaURL := fmt.Sprintf("media://va-engine/%s%s", uuid.NewString(), filepath.Ext(audioPath))

	if err := pc.uploadMedia(ctx, mediaURL, audioPath); err != nil {
		return nil, err
	}

	jobID, err := pc.submitJob(ctx, mediaURL, opts)
	if err != nil {
		return nil, err
	}
	pc.log.Debug().Str("job_id", jobID).Str("media", mediaURL).Msg("diarization job submitted")

	job, err := pc.pollJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	turns := make([]analyzer.Turn, len(job.Output.Diarization))
	for i, seg := range job.Output.Diarization {
		turns[i] = analyzer.Turn{
			Speaker: seg.Speaker,
			Start:   seg.Start,
			End:     seg.End,
		}
	}
	return turns, nil
}

// uploadMedia reserves a presigned media slot and PUTs the audio bytes.
func (pc *PyannoteAIClient) uploadMedia(ctx context.Context, mediaURL, audioPath string) error {
	var reserved struct {
		URL string `json:"url"`
	}
	if err := pc.post(ctx, "/media/input", map[string]any{"url": mediaURL}, &reserved); err != nil {
		return fmt.Errorf("reserve media slot: %w", err)
	}

	f, err := os.Open(audioPath)
	if err != nil {
		return fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat audio file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, reserved.URL, f)
	if err != nil {
		return fmt.Errorf("create upload request: %w", err)
	}
	req.ContentLength = info.Size()

	resp, err := pc.client.Do(req)
	if err != nil {
		return fmt.Errorf("upload media: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("media upload rejected (status %d)", resp.StatusCode)
	}
	return nil
}

// submitJob starts a diarization job for an uploaded media URL.
func (pc *PyannoteAIClient) submitJob(ctx context.Context, mediaURL string, opts Opts) (string, error) {
	payload := map[string]any{"url": mediaURL}
	if pc.model != "" {
		payload["model"] = pc.model
	}
	if opts.NumSpeakers > 0 {
		payload["numSpeakers"] = opts.NumSpeakers
	}
	if opts.MinSpeakers > 0 {
		payload["minSpeakers"] = opts.MinSpeakers
	}
	if opts.MaxSpeakers > 0 {
		payload["maxSpeakers"] = opts.MaxSpeakers
	}

	var job pyannoteJob
	if err := pc.post(ctx, "/diarize", payload, &job); err != nil {
		return "", fmt.Errorf("submit diarization job: %w", err)
	}
	if job.JobID == "" {
		return "", fmt.Errorf("submit diarization job: empty job id")
	}
	return job.JobID, nil
}

// pollJob polls the job endpoint with exponential backoff until the job
// settles. A failed or canceled job is permanent, not retried.
func (pc *PyannoteAIClient) pollJob(ctx context.Context, jobID string) (*pyannoteJob, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 2 * time.Second
	bo.MaxInterval = 15 * time.Second
	bo.MaxElapsedTime = pc.timeout

	var settled *pyannoteJob
	operation := func() error {
		var job pyannoteJob
		if err := pc.get(ctx, "/jobs/"+jobID, &job); err != nil {
			return err
		}
		switch job.Status {
		case "succeeded":
			settled = &job
			return nil
		case "failed", "canceled":
			return backoff.Permanent(&JobError{JobID: jobID, Status: job.Status})
		default:
			return fmt.Errorf("job %s still %s", jobID, job.Status)
		}
	}

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return settled, nil
}

func (pc *PyannoteAIClient) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pc.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return pc.do(req, out)
}

func (pc *PyannoteAIClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pc.baseURL+path, nil)
	if err != nil {
		return err
	}
	return pc.do(req, out)
}

func (pc *PyannoteAIClient) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+pc.apiKey)

	resp, err := pc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("pyannote.ai API error (status %d): %s", resp.StatusCode, string(body))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}
