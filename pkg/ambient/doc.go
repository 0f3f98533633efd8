// Package ambient generates an endless ambient performance.
//
// A Session cycles through 24 keys, one phrase per key. Each phrase plays a
// fixed scale-degree progression as arpeggiated chord voices over a
// colored-noise bed, with a short melodic lead before the final measure. The
// last note of every arpeggio resolves toward the next chord.
//
// All timing is on the audio clock of a synth.Engine. Voices are scheduled
// into the engine ahead of time; bookkeeping (registry sweeps, display
// evictions, the next phrase) is queued on a Timeline and runs at block
// granularity from Session.Process. Nothing advances until the session is
// triggered and its output device is rendering.
//
// Example usage:
//
//	s, err := ambient.NewSession(ambient.DefaultConfig(), ambient.WithDevice(out))
//	if err != nil {
//		return err
//	}
//	go s.Run(ctx)
//	if err := s.Trigger(); err != nil {
//		slog.Warn("audio device not ready", "error", err)
//	}
//	snap := s.Snapshot() // voices currently on display
package ambient
