package hunyuan

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra"
)

// ErrMissingBaseURL indicates the client was configured without a space URL.
var ErrMissingBaseURL = errors.New("hunyuan: space url is required")

// Error is a failure reported by the Gradio space. The message is kept
// verbatim: the backend classifies quota errors by matching its wording.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Options configures the Hunyuan3D space client.
type Options struct {
	// BaseURL is the root of the Gradio space, e.g.
	// https://bton-hunyuan3d-2-1.hf.space.
	BaseURL string
	// Token is an optional Hugging Face token for gated spaces.
	Token      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client talks to a Hunyuan3D-2.1 Gradio space: upload the image, invoke the
// generation_all endpoint, then follow the event stream until the job
// completes. Generation is slow (minutes); no deadline is imposed beyond the
// caller's context.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *infra.Logger
}

// Model is the generated asset reference returned by the space. The URL
// points at provider-hosted storage and is time limited.
type Model struct {
	URL string
}

// NewClient constructs a client with injected dependencies. The default HTTP
// client carries no timeout because the result stream stays open for the
// whole generation.
func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		baseURL:    baseURL,
		token:      strings.TrimSpace(opts.Token),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

type fileRef struct {
	Path string         `json:"path"`
	Meta map[string]any `json:"meta"`
}

func newFileRef(path string) fileRef {
	return fileRef{Path: path, Meta: map[string]any{"_type": "gradio.FileData"}}
}

type callRequest struct {
	Data []any `json:"data"`
}

type callResponse struct {
	EventID string `json:"event_id"`
}

// GenerateModel runs one full generation: the single source photo fills all
// five of the endpoint's image-view slots, a deliberate simplification since
// only one photo is collected from the user.
func (c *Client) GenerateModel(ctx context.Context, img domain.SourceImage, opts domain.Options) (*Model, error) {
	path, err := c.upload(ctx, img)
	if err != nil {
		return nil, err
	}

	ref := newFileRef(path)
	req := callRequest{Data: []any{
		ref, ref, ref, ref, ref, // image, front, back, left, right
		opts.Steps,
		opts.GuidanceScale,
		opts.Seed,
		opts.OctreeResolution,
		opts.RemoveBackground,
		opts.NumChunks,
		opts.RandomizeSeed,
	}}

	eventID, err := c.call(ctx, req)
	if err != nil {
		return nil, err
	}
	c.logger.Debug().Str("event_id", eventID).Msg("hunyuan: generation queued")

	modelURL, err := c.awaitResult(ctx, eventID)
	if err != nil {
		return nil, err
	}
	c.logger.Debug().Str("url", modelURL).Msg("hunyuan: generation complete")
	return &Model{URL: modelURL}, nil
}

// upload transfers the image bytes to the space and returns the server-side
// file path referenced by the generation call.
func (c *Client) upload(ctx context.Context, img domain.SourceImage) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("files", img.Name)
	if err != nil {
		return "", fmt.Errorf("hunyuan: build upload: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return "", fmt.Errorf("hunyuan: build upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("hunyuan: build upload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/gradio_api/upload", &buf)
	if err != nil {
		return "", fmt.Errorf("hunyuan: build upload request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("hunyuan: upload: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("hunyuan: read upload response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", &Error{Message: fmt.Sprintf("upload failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))}
	}

	var paths []string
	if err := json.Unmarshal(raw, &paths); err != nil || len(paths) == 0 {
		return "", fmt.Errorf("hunyuan: unexpected upload response: %s", strings.TrimSpace(string(raw)))
	}
	return paths[0], nil
}

func (c *Client) call(ctx context.Context, req callRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("hunyuan: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/gradio_api/call/generation_all", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("hunyuan: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("hunyuan: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("hunyuan: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", &Error{Message: strings.TrimSpace(string(raw))}
	}

	var decoded callResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("hunyuan: decode response: %w", err)
	}
	if decoded.EventID == "" {
		return "", fmt.Errorf("hunyuan: empty event id")
	}
	return decoded.EventID, nil
}

// awaitResult follows the server-sent event stream for the queued job. The
// stream carries heartbeat and progress events until a terminal "complete"
// or "error" event arrives.
func (c *Client) awaitResult(ctx context.Context, eventID string) (string, error) {
	endpoint := fmt.Sprintf("%s/gradio_api/call/generation_all/%s", c.baseURL, eventID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("hunyuan: build result request: %w", err)
	}
	httpReq.Header.Set("Accept", "text/event-stream")
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("hunyuan: result stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return "", &Error{Message: strings.TrimSpace(string(raw))}
	}

	var event string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			switch event {
			case "complete":
				return parseResultData(data)
			case "error":
				return "", &Error{Message: errorMessage(data)}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("hunyuan: result stream: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("hunyuan: result stream ended without a terminal event")
}

// parseResultData extracts the model file URL from a completion payload. The
// endpoint returns an array whose first entry is the generated file.
func parseResultData(data string) (string, error) {
	var entries []struct {
		URL  string `json:"url"`
		Path string `json:"path"`
	}
	if err := json.Unmarshal([]byte(data), &entries); err != nil {
		return "", fmt.Errorf("hunyuan: decode result: %w", err)
	}
	if len(entries) == 0 || entries[0].URL == "" {
		return "", fmt.Errorf("hunyuan: result carried no model url")
	}
	return entries[0].URL, nil
}

func errorMessage(data string) string {
	if data == "" || data == "null" {
		return "3D generation failed upstream"
	}
	var msg string
	if err := json.Unmarshal([]byte(data), &msg); err == nil && msg != "" {
		return msg
	}
	return data
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
