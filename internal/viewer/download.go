package viewer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"server/internal/storage"
)

// ErrDownloadFailed reports that the generated asset could not be fetched.
// Callers keep whatever result they already hold; a failed save never
// invalidates a finished conversion.
var ErrDownloadFailed = errors.New("viewer: model download failed")

// DownloaderOptions configures a Downloader.
type DownloaderOptions struct {
	Store      *storage.FileStore
	HTTPClient *http.Client
	Logger     *zerolog.Logger
	// Now overrides the clock used to name downloads. Tests set it.
	Now func() time.Time
}

// Downloader saves a finished model to local storage by re-fetching its
// asset URL.
type Downloader struct {
	store  *storage.FileStore
	client *http.Client
	log    zerolog.Logger
	now    func() time.Time
}

// NewDownloader builds a Downloader. Store is required.
func NewDownloader(opts DownloaderOptions) (*Downloader, error) {
	if opts.Store == nil {
		return nil, errors.New("viewer: downloader requires a file store")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Downloader{store: opts.Store, client: client, log: log, now: now}, nil
}

// Save fetches the asset at url and writes it through the store, returning
// the storage key. The key embeds a millisecond timestamp so repeated saves
// of the same model never collide.
func (d *Downloader) Save(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		d.log.Warn().Err(err).Str("url", url).Msg("model download transport failure")
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		d.log.Warn().Int("status", resp.StatusCode).Str("url", url).Msg("model download rejected")
		return "", fmt.Errorf("%w: unexpected status %d", ErrDownloadFailed, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	key := fmt.Sprintf("jewelry-3d-model-%d.glb", d.now().UnixMilli())
	key, err = d.store.Write(ctx, key, data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	d.log.Info().Str("key", key).Int("bytes", len(data)).Msg("model saved")
	return key, nil
}
