package engine

// This file documents the dispatch core's plugin registry. Unlike the
// teacher's internal/plugins registry (a global map populated by each
// plugin's init() function, looked up by name at request time), the
// registry here is the Engine struct itself: each of the eight plugin
// kinds is a named, typed field set once in New and never looked up
// by string. The dispatch specification requires this — a
// fixed, compile-time-closed registry — because each plugin kind has
// its own Parameters/Result types that a name-keyed map of
// interface{} handlers cannot express without casting at every call
// site. Adding a ninth plugin kind means adding a field, a
// constructor call, and a typed method; it can never be done by
// runtime registration.
