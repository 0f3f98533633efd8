// Package midiout mirrors scheduled chord voices as MIDI notes, either live
// to an output port or recorded into a Standard MIDI File.
package midiout
