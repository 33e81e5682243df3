// Package scheduler runs the animation loop around a map engine.
//
// Each cycle mounts the current frame on a Presenter, generates the next
// frame into the second buffer right away, and arms two timers: one that
// unmounts the current frame after fade, reveal, fade and overlap, and one
// that mounts the next frame after fade, reveal and fade. A size class
// change cancels both timers and restarts from a fresh generation.
//
// Timer callbacks are serialized and carry the epoch of the schedule that
// armed them, so a callback from a cancelled schedule does nothing.
package scheduler
