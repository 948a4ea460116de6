// Package client implements the boundary-facing conversion client: it turns
// an (image, options) pair into a call against the orchestration backend and
// normalizes every outcome into a ConversionResult. It never panics or
// returns a transport error to its caller.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra"
)

// Options configures the conversion client.
type Options struct {
	// BaseURL is the backend root, e.g. http://localhost:3001.
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client submits conversions to the backend. It is an explicit constructed
// value: build one and hand it to whatever drives the orchestrator.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// New builds a conversion client. The default HTTP client has no timeout:
// generation runs for minutes and the backend holds the response open for
// the duration.
func New(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "http://localhost:3001"
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
	return &Client{baseURL: baseURL, httpClient: httpClient, logger: logger}
}

type successEnvelope struct {
	ModelURL string `json:"modelUrl"`
}

type errorEnvelope struct {
	Error string `json:"error"`
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Submit posts one multipart request to the backend and resolves to a
// ConversionResult, success or classified failure. Transport problems become
// network failures rather than returned errors.
func (c *Client) Submit(ctx context.Context, img domain.SourceImage, opts domain.Options) domain.ConversionResult {
	body, contentType, err := encodeRequest(img, opts)
	if err != nil {
		return domain.Failed(domain.ErrorNetwork, fmt.Sprintf("failed to encode request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate3d", body)
	if err != nil {
		return domain.Failed(domain.ErrorNetwork, fmt.Sprintf("failed to build request: %v", err))
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Msg("conversion request failed in transport")
		return domain.Failed(domain.ErrorNetwork, "Failed to reach the 3D generation service.")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Failed(domain.ErrorNetwork, "Failed to read the service response.")
	}

	if resp.StatusCode != http.StatusOK {
		return c.failureFromResponse(resp.StatusCode, raw)
	}

	var success successEnvelope
	if err := json.Unmarshal(raw, &success); err != nil || success.ModelURL == "" {
		return domain.Failed(domain.ErrorProvider, "The service returned an unusable response.")
	}
	return domain.Succeeded(success.ModelURL, nil)
}

// failureFromResponse maps the backend's error envelope onto the result
// vocabulary. Classification already happened server-side; only the status
// code is consulted here.
func (c *Client) failureFromResponse(status int, raw []byte) domain.ConversionResult {
	message := "An unknown error occurred"
	var envelope errorEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != "" {
		message = envelope.Error
	}

	kind := domain.ErrorProvider
	if status == http.StatusTooManyRequests {
		kind = domain.ErrorQuotaExceeded
	}
	result := domain.Failed(kind, message)
	if kind == domain.ErrorQuotaExceeded {
		if delay, ok := domain.ParseRetryDelay(message); ok {
			result.Failure.RetryAfter = delay
		}
	}
	return result
}

// encodeRequest builds the multipart body: the image bytes under field
// "image" with the declared MIME type, plus the generation options as plain
// fields for backends that honor them.
func encodeRequest(img domain.SourceImage, opts domain.Options) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, quoteEscaper.Replace(img.Name)))
	header.Set("Content-Type", img.MIME)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", err
	}

	fields := map[string]string{
		domain.KeySteps:            strconv.Itoa(opts.Steps),
		domain.KeyGuidanceScale:    strconv.FormatFloat(opts.GuidanceScale, 'f', -1, 64),
		domain.KeySeed:             strconv.Itoa(opts.Seed),
		domain.KeyOctreeResolution: strconv.Itoa(opts.OctreeResolution),
		domain.KeyRemoveBackground: strconv.FormatBool(opts.RemoveBackground),
		domain.KeyNumChunks:        strconv.Itoa(opts.NumChunks),
		domain.KeyRandomizeSeed:    strconv.FormatBool(opts.RandomizeSeed),
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}
