// Package daemon provides the hot-reload plumbing for atmosd and adapts
// the controller to the D-Bus server.
package daemon
