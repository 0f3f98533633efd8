// Package resampler converts the sample rate of a pcm chunk stream using a
// pure Go resampler (github.com/tphakala/go-audio-resampling).
//
// The engine always renders at its own rate; Writer sits between the engine
// and an output writer that needs another rate.
//
// Example usage:
//
//	w, err := resampler.NewWriter(wavWriter, pcm.L16Stereo48K, pcm.L16Stereo44K1)
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//	w.Write(chunk) // 48 kHz in, 44.1 kHz out
package resampler
