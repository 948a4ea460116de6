package handlers

import (
	"errors"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"server/internal/domain"
	"server/internal/providers/hunyuan"
)

const (
	msgNoImage          = "No image file uploaded."
	msgGenerationFailed = "3D generation failed."
	msgQuotaExceeded    = "You have exceeded the free usage limit for the 3D generation service."

	quotaMarker = "exceeded your GPU quota"
)

var quotaRetryPattern = regexp.MustCompile(`Try again in ([\d:]+)`)

type generateResponse struct {
	ModelURL string `json:"modelUrl"`
}

// Generate3D accepts a multipart upload carrying one jewelry photo, forwards
// it to the Hunyuan3D space and returns the provider-hosted model URL. The
// provider call blocks until generation finishes; there is no queue, cache or
// retry here, and the provider's own quota is the sole backpressure.
func (a *App) Generate3D(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("image")
	if err != nil {
		a.error(w, http.StatusBadRequest, msgNoImage)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil || len(data) == 0 {
		a.error(w, http.StatusBadRequest, msgNoImage)
		return
	}

	mime := header.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/png"
	}
	img := domain.SourceImage{Name: header.Filename, MIME: mime, Data: data}

	opts := a.generationOptions(r)

	a.Logger.Info().
		Str("filename", header.Filename).
		Int("bytes", len(data)).
		Msg("received image, forwarding to provider")

	model, err := a.Generator.GenerateModel(r.Context(), img, opts)
	if err != nil {
		status, message := classifyGenerationError(err)
		a.Logger.Error().Err(err).Int("status", status).Msg("generation failed")
		a.error(w, status, message)
		return
	}

	a.json(w, http.StatusOK, generateResponse{ModelURL: model.URL})
}

// generationOptions returns the parameters forwarded to the provider. The
// demo proxy pins fixed low-cost values; with FORWARD_CLIENT_OPTIONS set,
// caller-supplied form fields are honored after clamping.
func (a *App) generationOptions(r *http.Request) domain.Options {
	if a.Config == nil || !a.Config.ForwardClientOptions {
		return domain.LowCostOptions()
	}
	opts := domain.LowCostOptions()
	for _, key := range []string{
		domain.KeySteps, domain.KeyGuidanceScale, domain.KeySeed,
		domain.KeyOctreeResolution, domain.KeyRemoveBackground,
		domain.KeyNumChunks, domain.KeyRandomizeSeed,
	} {
		raw := strings.TrimSpace(r.FormValue(key))
		if raw == "" {
			continue
		}
		value, ok := parseOptionValue(key, raw)
		if !ok {
			continue
		}
		if next, err := opts.Set(key, value); err == nil {
			opts = next
		}
	}
	return opts
}

func parseOptionValue(key, raw string) (any, bool) {
	switch key {
	case domain.KeyRemoveBackground, domain.KeyRandomizeSeed:
		b, err := strconv.ParseBool(raw)
		return b, err == nil
	case domain.KeyGuidanceScale:
		f, err := strconv.ParseFloat(raw, 64)
		return f, err == nil
	default:
		n, err := strconv.Atoi(raw)
		return n, err == nil
	}
}

// classifyGenerationError maps a provider failure onto the fixed response
// vocabulary. Quota detection is a substring match against the provider's
// current wording; when that wording changes, classification degrades to the
// generic failure.
func classifyGenerationError(err error) (int, string) {
	message := err.Error()
	var provErr *hunyuan.Error
	if errors.As(err, &provErr) {
		message = provErr.Message
	}

	if strings.Contains(message, quotaMarker) {
		if m := quotaRetryPattern.FindStringSubmatch(message); m != nil {
			return http.StatusTooManyRequests,
				msgQuotaExceeded + " Please try again in approximately " + m[1] + "."
		}
		return http.StatusTooManyRequests, msgQuotaExceeded + " Please try again later."
	}

	return http.StatusInternalServerError, msgGenerationFailed
}
