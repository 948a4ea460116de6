package viewer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"server/internal/domain"
	"server/internal/session"
	"server/internal/storage"
)

func testDownloader(t *testing.T, dir string) *Downloader {
	t.Helper()
	store, err := storage.NewFileStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	d, err := NewDownloader(DownloaderOptions{
		Store: store,
		Now:   func() time.Time { return time.UnixMilli(1700000000000) },
	})
	if err != nil {
		t.Fatalf("new downloader: %v", err)
	}
	return d
}

func TestSaveWritesTimestampedFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("binary-model-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := testDownloader(t, dir)

	key, err := d.Save(context.Background(), srv.URL+"/model.glb")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if key != "jewelry-3d-model-1700000000000.glb" {
		t.Fatalf("key = %q", key)
	}
	data, err := os.ReadFile(filepath.Join(dir, key))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "binary-model-bytes" {
		t.Fatalf("data = %q", data)
	}
}

func TestSaveNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	d := testDownloader(t, t.TempDir())
	if _, err := d.Save(context.Background(), srv.URL); !errors.Is(err, ErrDownloadFailed) {
		t.Fatalf("err = %v, want ErrDownloadFailed", err)
	}
}

func TestSaveTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	d := testDownloader(t, t.TempDir())
	if _, err := d.Save(context.Background(), srv.URL); !errors.Is(err, ErrDownloadFailed) {
		t.Fatalf("err = %v, want ErrDownloadFailed", err)
	}
}

func TestDownloaderRequiresStore(t *testing.T) {
	if _, err := NewDownloader(DownloaderOptions{}); err == nil {
		t.Fatalf("expected error without store")
	}
}

type fixedSubmitter struct {
	result domain.ConversionResult
}

func (f fixedSubmitter) Submit(ctx context.Context, img domain.SourceImage, opts domain.Options) domain.ConversionResult {
	return f.result
}

func TestSaveFailureLeavesConversionResultUntouched(t *testing.T) {
	// Saving happens after a conversion already finished; a failed save must
	// not disturb the result the session holds.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "expired", http.StatusForbidden)
	}))
	defer srv.Close()

	assetURL := srv.URL + "/model.glb"
	sess := session.New(fixedSubmitter{result: domain.Succeeded(assetURL, nil)}, nil, "")
	if err := sess.SelectImage("ring.png", "image/png", []byte{0x89}); err != nil {
		t.Fatalf("select image: %v", err)
	}
	if _, err := sess.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	d := testDownloader(t, t.TempDir())
	if _, err := d.Save(context.Background(), assetURL); !errors.Is(err, ErrDownloadFailed) {
		t.Fatalf("save err = %v, want ErrDownloadFailed", err)
	}

	result := sess.Result()
	if result == nil || !result.OK() || result.AssetURL != assetURL {
		t.Fatalf("result after failed save = %+v, want untouched success", result)
	}
	if sess.Phase() != session.PhaseSucceeded {
		t.Fatalf("phase = %q, want succeeded", sess.Phase())
	}
}
