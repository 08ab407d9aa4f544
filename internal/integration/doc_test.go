// Package integration runs cascade commands end to end against real
// repositories, reading like terminal sessions.
package integration
