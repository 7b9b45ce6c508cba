// Package slot owns the single accelerator-resident model position.
//
// At most one model is loaded at any instant. Role switches are always a
// full reclaim-then-load; the reclaimer provides a deterministic, blocking
// teardown with a completion barrier. All load/generate/unload sequences
// are serialized through one process-wide gate.
package slot
