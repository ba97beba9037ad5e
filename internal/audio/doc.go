// Package audio provides the single looping audio output used by the
// atmosphere controller. It uses the beep library to play WAV, OGG, and
// MP3 tracks with seeking, pausing and linear volume control.
package audio
