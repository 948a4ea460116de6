package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrorKind classifies a failed conversion into the fixed vocabulary exposed
// to users. Classification happens exactly once, at the backend boundary for
// provider/network errors and locally for validation errors.
type ErrorKind string

const (
	// ErrorValidation covers local precondition failures (no image selected,
	// empty upload). These never reach the network.
	ErrorValidation ErrorKind = "validation"
	// ErrorQuotaExceeded maps the provider's GPU quota / rate limit errors.
	ErrorQuotaExceeded ErrorKind = "quota_exceeded"
	// ErrorProvider is any other upstream generation failure.
	ErrorProvider ErrorKind = "provider_failure"
	// ErrorNetwork is a transport-level failure reaching the backend.
	ErrorNetwork ErrorKind = "network"
	// ErrorDownload indicates the asset re-fetch for download failed.
	ErrorDownload ErrorKind = "download_failed"
	// ErrorPersistence marks a failed history write. It is logged and
	// swallowed, never surfaced to the user.
	ErrorPersistence ErrorKind = "persistence_failure"
)

// MeshStats carries optional geometry counts reported for a generated asset.
type MeshStats struct {
	Vertices int `json:"vertices,omitempty"`
	Faces    int `json:"faces,omitempty"`
}

// Failure describes a failed conversion. RetryAfter is populated only for
// quota errors that carried an extractable wait time.
type Failure struct {
	Kind       ErrorKind
	Message    string
	RetryAfter time.Duration
}

// Error implements the error interface.
func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// ConversionResult is the single outcome of a submission: either a usable
// asset URL or a classified failure, never both.
type ConversionResult struct {
	AssetURL string
	Stats    *MeshStats
	Failure  *Failure
}

// Succeeded builds a successful result pointing at the provider-hosted asset.
func Succeeded(assetURL string, stats *MeshStats) ConversionResult {
	return ConversionResult{AssetURL: assetURL, Stats: stats}
}

// Failed builds a failed result of the given kind.
func Failed(kind ErrorKind, message string) ConversionResult {
	return ConversionResult{Failure: &Failure{Kind: kind, Message: message}}
}

// OK reports whether the conversion produced an asset.
func (r ConversionResult) OK() bool {
	return r.Failure == nil && r.AssetURL != ""
}

var retryDelayPattern = regexp.MustCompile(`(\d+):([0-5]?\d):([0-5]?\d)`)

// ParseRetryDelay extracts an HH:MM:SS wait time embedded in a quota error
// message. It returns false when the message carries no recognizable time.
func ParseRetryDelay(message string) (time.Duration, bool) {
	m := retryDelayPattern.FindStringSubmatch(message)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	sec, _ := strconv.Atoi(m[3])
	d := time.Duration(h)*time.Hour + time.Duration(min)*time.Minute + time.Duration(sec)*time.Second
	return d, true
}

// FormatRetryDelay renders a duration in the HH:MM:SS form used by quota
// messages.
func FormatRetryDelay(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total%3600/60, total%60)
}
