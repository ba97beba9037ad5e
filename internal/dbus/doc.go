// Package dbus exposes the atmosphere controller on the session bus as
// io.github.nomadstudio.Atmos, and provides the client the CLI uses to
// reach it.
package dbus
