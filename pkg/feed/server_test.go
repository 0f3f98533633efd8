package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/haivivi/ambient/pkg/ambient"
	"github.com/haivivi/ambient/pkg/audio/analysis"
)

type fakeSource struct {
	mu       sync.Mutex
	triggers int
	failNext bool
	pulls    int
}

func (f *fakeSource) Snapshot() ambient.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulls++
	return ambient.Snapshot{
		Time:    float64(f.pulls),
		State:   "running",
		Key:     ambient.KeyInfo{Name: "C major", Root: 60, Mode: "major", Scale: []string{"C", "D", "E", "F", "G", "A", "B"}},
		Phrases: 1,
		Voices: []ambient.VoiceState{
			{ID: "a", Frequency: 440.1, PitchClass: "A", Gain: 0.12, Pan: -0.3, Waveform: "sine", TimeRemaining: 9.5},
			{ID: "b", Frequency: 261.6, PitchClass: "C", Gain: 0.05, Pan: 0.4, Waveform: "triangle", TimeRemaining: 2},
		},
	}
}

func (f *fakeSource) Status() ambient.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return ambient.Status{State: "running", Started: f.triggers > 0, Phrases: 1}
}

func (f *fakeSource) PitchClasses() analysis.PitchClassDistribution {
	return analysis.PitchClasses([]analysis.PitchClassWeight{{PitchClass: 9, Gain: 0.12}, {PitchClass: 0, Gain: 0.05}})
}

func (f *fakeSource) Spectrum() analysis.Spectrum {
	return analysis.Spectrum{SampleRate: 48000, BinHz: 23.4375, Decibels: []float64{-100, -40, -60}}
}

func (f *fakeSource) Trigger() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers++
	if f.failNext {
		f.failNext = false
		return errors.New("device busy")
	}
	return nil
}

func newTestServer(t *testing.T, src Source) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ts := httptest.NewServer(NewServer(src, WithLogger(logger)).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestVoices(t *testing.T) {
	ts := newTestServer(t, &fakeSource{})
	for _, codec := range []Codec{CodecJSON, CodecMsgpack} {
		t.Run(string(codec), func(t *testing.T) {
			snap, err := NewClient(ts.URL, codec).Voices(context.Background())
			if err != nil {
				t.Fatalf("Voices: %v", err)
			}
			if len(snap.Voices) != 2 {
				t.Fatalf("len(Voices) = %d, want 2", len(snap.Voices))
			}
			if v := snap.Voices[0]; v.PitchClass != "A" || v.Frequency != 440.1 || v.Waveform != "sine" {
				t.Errorf("Voices[0] = %+v", v)
			}
			if snap.Key.Name != "C major" || len(snap.Key.Scale) != 7 {
				t.Errorf("Key = %+v", snap.Key)
			}
		})
	}
}

func TestContentType(t *testing.T) {
	ts := newTestServer(t, &fakeSource{})
	tests := []struct {
		query, accept string
		want          string
	}{
		{"", "", "application/json"},
		{"?codec=msgpack", "", "application/msgpack"},
		{"", "application/x-msgpack", "application/msgpack"},
		{"?codec=json", "application/msgpack", "application/json"},
	}
	for _, tt := range tests {
		req, _ := http.NewRequest(http.MethodGet, ts.URL+"/voices"+tt.query, nil)
		if tt.accept != "" {
			req.Header.Set("Accept", tt.accept)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if got := resp.Header.Get("Content-Type"); got != tt.want {
			t.Errorf("GET /voices%s Accept %q: Content-Type = %q, want %q", tt.query, tt.accept, got, tt.want)
		}
	}

	resp, err := http.Get(ts.URL + "/voices?codec=xml")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown codec status = %d, want 400", resp.StatusCode)
	}
}

func TestStart(t *testing.T) {
	src := &fakeSource{failNext: true}
	ts := newTestServer(t, src)
	c := NewClient(ts.URL, CodecJSON)

	resp, err := c.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if resp.DeviceError == "" {
		t.Error("DeviceError empty after failed resume")
	}
	if !resp.Status.Started {
		t.Error("Status.Started = false")
	}
	resp, err = c.Start(context.Background())
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if resp.DeviceError != "" {
		t.Errorf("DeviceError = %q on retry", resp.DeviceError)
	}
	src.mu.Lock()
	if src.triggers != 2 {
		t.Errorf("triggers = %d, want 2", src.triggers)
	}
	src.mu.Unlock()

	get, err := http.Get(ts.URL + "/start")
	if err != nil {
		t.Fatal(err)
	}
	get.Body.Close()
	if get.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /start status = %d, want 405", get.StatusCode)
	}
}

func TestPitchClassesAndSpectrum(t *testing.T) {
	ts := newTestServer(t, &fakeSource{})
	c := NewClient(ts.URL, CodecMsgpack)

	d, err := c.PitchClasses(context.Background())
	if err != nil {
		t.Fatalf("PitchClasses: %v", err)
	}
	if pc, ok := d.Dominant(); !ok || pc != 9 {
		t.Errorf("Dominant() = %d, %v, want 9, true", pc, ok)
	}

	var spec analysis.Spectrum
	if err := c.Get(context.Background(), "/spectrum", &spec); err != nil {
		t.Fatalf("Get spectrum: %v", err)
	}
	if spec.SampleRate != 48000 || len(spec.Decibels) != 3 {
		t.Errorf("spectrum = %+v", spec)
	}
}

func TestStreamPull(t *testing.T) {
	src := &fakeSource{}
	ts := newTestServer(t, src)
	for _, codec := range []Codec{CodecJSON, CodecMsgpack} {
		t.Run(string(codec), func(t *testing.T) {
			stream, err := NewClient(ts.URL, codec).Dial(context.Background())
			if err != nil {
				t.Fatalf("Dial: %v", err)
			}
			defer stream.Close()

			var last float64
			for i := 0; i < 3; i++ {
				snap, err := stream.Snapshot()
				if err != nil {
					t.Fatalf("Snapshot %d: %v", i, err)
				}
				if snap.Time <= last {
					t.Errorf("pull %d returned stale time %v", i, snap.Time)
				}
				last = snap.Time
			}

			var st ambient.Status
			if err := stream.Pull(RequestStatus, &st); err != nil {
				t.Fatalf("Pull status: %v", err)
			}
			if st.State != "running" {
				t.Errorf("status State = %q", st.State)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, &fakeSource{})
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/status", nil)
	req.Header.Set("Origin", "http://visualizer.local")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestNewClientAddr(t *testing.T) {
	tests := []struct {
		addr, want string
	}{
		{":8080", "http://localhost:8080"},
		{"studio:9000", "http://studio:9000"},
		{"https://feed.example.com/", "https://feed.example.com"},
	}
	for _, tt := range tests {
		if got := NewClient(tt.addr, "").baseURL; got != tt.want {
			t.Errorf("NewClient(%q) base = %q, want %q", tt.addr, got, tt.want)
		}
	}
	if _, err := ParseCodec("yaml"); err == nil || !strings.Contains(err.Error(), "yaml") {
		t.Errorf("ParseCodec(yaml) error = %v", err)
	}
}
