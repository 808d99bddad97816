// Package session hosts a match engine for interactive and simulated play.
//
// Session runs an engine on a wall-clock ticker with claims arriving from
// any goroutine, the way a UI would drive it. Simulate runs an engine
// against a scripted Player with no clock at all.
package session
