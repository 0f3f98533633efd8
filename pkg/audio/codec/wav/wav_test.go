package wav

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gowav "github.com/go-audio/wav"

	"github.com/haivivi/ambient/pkg/audio/pcm"
)

func TestWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}

	w := NewWriter(f, pcm.L16Stereo48K)
	frames := []float32{0.5, -0.5, 0.25, -0.25}
	if err := w.Write(pcm.L16Stereo48K.FloatChunk(frames)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Write(pcm.L16Stereo48K.SilenceChunk(10 * time.Millisecond)); err != nil {
		t.Fatalf("Write silence failed: %v", err)
	}
	if err := w.Write(pcm.L16Stereo44K1.FloatChunk(frames)); err == nil {
		t.Error("Write with mismatched format should fail")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	f.Close()

	r, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	dec := gowav.NewDecoder(r)
	if !dec.IsValidFile() {
		t.Fatal("invalid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatal(err)
	}
	if dec.SampleRate != 48000 || dec.NumChans != 2 || dec.BitDepth != 16 {
		t.Errorf("header = %d Hz, %d ch, %d bit", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	wantSamples := len(frames) + 480*2
	if len(buf.Data) != wantSamples {
		t.Fatalf("samples = %d, want %d", len(buf.Data), wantSamples)
	}
	if buf.Data[0] != int(pcm.FloatToInt16(0.5)) || buf.Data[1] != int(pcm.FloatToInt16(-0.5)) {
		t.Errorf("first frame = %v", buf.Data[:2])
	}
}
