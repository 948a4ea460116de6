package hunyuan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"server/internal/domain"
)

func testImage() domain.SourceImage {
	return domain.SourceImage{Name: "ring.png", MIME: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}
}

func newSpace(t *testing.T, streamBody string) (*httptest.Server, *callRequest) {
	t.Helper()
	captured := &callRequest{}
	mux := http.NewServeMux()
	mux.HandleFunc("/gradio_api/upload", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("parse upload: %v", err)
		}
		if _, _, err := r.FormFile("files"); err != nil {
			t.Errorf("upload missing files field: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `["/tmp/gradio/ring.png"]`)
	})
	mux.HandleFunc("/gradio_api/call/generation_all", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(captured); err != nil {
			t.Errorf("decode call: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"event_id":"ev-1"}`)
	})
	mux.HandleFunc("/gradio_api/call/generation_all/ev-1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, streamBody)
	})
	return httptest.NewServer(mux), captured
}

func TestGenerateModelSuccess(t *testing.T) {
	stream := "event: heartbeat\ndata: null\n\n" +
		"event: complete\ndata: [{\"url\":\"https://cdn/x.glb\",\"path\":\"/tmp/out.glb\"},{\"url\":\"https://cdn/x.html\"}]\n\n"
	srv, captured := newSpace(t, stream)
	defer srv.Close()

	client, err := NewClient(Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	model, err := client.GenerateModel(context.Background(), testImage(), domain.LowCostOptions())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if model.URL != "https://cdn/x.glb" {
		t.Fatalf("model url = %q, want https://cdn/x.glb", model.URL)
	}

	if len(captured.Data) != 12 {
		t.Fatalf("call carried %d args, want 12", len(captured.Data))
	}
	// The single photo must fill all five image-view slots.
	first, _ := json.Marshal(captured.Data[0])
	for i := 1; i < 5; i++ {
		slot, _ := json.Marshal(captured.Data[i])
		if string(slot) != string(first) {
			t.Fatalf("image slot %d differs from slot 0: %s vs %s", i, slot, first)
		}
	}
	if steps, ok := captured.Data[5].(float64); !ok || int(steps) != domain.LowCostOptions().Steps {
		t.Fatalf("steps arg = %v", captured.Data[5])
	}
}

func TestGenerateModelErrorEvent(t *testing.T) {
	stream := "event: error\ndata: \"You have exceeded your GPU quota. Try again in 00:03:12\"\n\n"
	srv, _ := newSpace(t, stream)
	defer srv.Close()

	client, err := NewClient(Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.GenerateModel(context.Background(), testImage(), domain.LowCostOptions())
	var provErr *Error
	if !errors.As(err, &provErr) {
		t.Fatalf("err = %v, want *hunyuan.Error", err)
	}
	if provErr.Message != "You have exceeded your GPU quota. Try again in 00:03:12" {
		t.Fatalf("message = %q", provErr.Message)
	}
}

func TestGenerateModelNullErrorEvent(t *testing.T) {
	stream := "event: error\ndata: null\n\n"
	srv, _ := newSpace(t, stream)
	defer srv.Close()

	client, err := NewClient(Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.GenerateModel(context.Background(), testImage(), domain.LowCostOptions())
	var provErr *Error
	if !errors.As(err, &provErr) {
		t.Fatalf("err = %v, want *hunyuan.Error", err)
	}
	if provErr.Message == "" {
		t.Fatalf("expected a fallback error message")
	}
}

func TestGenerateModelStreamEndsWithoutTerminal(t *testing.T) {
	srv, _ := newSpace(t, "event: heartbeat\ndata: null\n\n")
	defer srv.Close()

	client, err := NewClient(Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err = client.GenerateModel(context.Background(), testImage(), domain.LowCostOptions()); err == nil {
		t.Fatalf("expected error when stream ends without terminal event")
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Options{}); !errors.Is(err, ErrMissingBaseURL) {
		t.Fatalf("err = %v, want ErrMissingBaseURL", err)
	}
}
