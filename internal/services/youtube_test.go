package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{"standard watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"watch with extra params", "https://www.youtube.com/watch?list=PL123&v=dQw4w9WgXcQ&t=42", "dQw4w9WgXcQ", false},
		{"short link", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"embed", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"shorts", "https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"no scheme", "youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"not youtube", "https://vimeo.com/12345678", "", true},
		{"channel page", "https://www.youtube.com/@somechannel", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractVideoID(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractVideoID: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFetchMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") != "json" {
			t.Errorf("format = %q", r.URL.Query().Get("format"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"title":"Lecture 1","author_name":"MIT OCW","thumbnail_url":"https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg"}`))
	}))
	defer server.Close()

	svc := NewYouTubeService()
	svc.oembedBase = server.URL

	meta, err := svc.FetchMetadata(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("FetchMetadata: %v", err)
	}
	if meta.VideoID != "dQw4w9WgXcQ" {
		t.Errorf("video id = %q", meta.VideoID)
	}
	if meta.Title != "Lecture 1" || meta.ChannelName != "MIT OCW" {
		t.Errorf("metadata = %+v", meta)
	}
}

func TestFetchMetadataUnavailableVideo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	}))
	defer server.Close()

	svc := NewYouTubeService()
	svc.oembedBase = server.URL

	if _, err := svc.FetchMetadata(context.Background(), "https://youtu.be/dQw4w9WgXcQ"); err == nil {
		t.Fatal("expected error for unavailable video")
	}
}

func TestParseCaptionsXML(t *testing.T) {
	data := []byte(`<transcript><text start="0" dur="2">Hello &amp; welcome</text><text start="2" dur="3">to the lecture</text></transcript>`)

	got, err := parseCaptionsXML(data)
	if err != nil {
		t.Fatalf("parseCaptionsXML: %v", err)
	}
	if got != "Hello & welcome to the lecture" {
		t.Errorf("transcript = %q", got)
	}
}

func TestExtractCaptionURL(t *testing.T) {
	page := `{"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[{"baseUrl":"https:\/\/www.youtube.com\/api\/timedtext?v=abc&lang=en","name":"English"}],"audioTracks":[]}},"`

	u, err := extractCaptionURL(page)
	if err != nil {
		t.Fatalf("extractCaptionURL: %v", err)
	}
	if u != "https://www.youtube.com/api/timedtext?v=abc&lang=en" {
		t.Errorf("url = %q", u)
	}
}
