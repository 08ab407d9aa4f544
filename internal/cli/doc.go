// Package cli defines the cascade cobra commands. Commands parse flags and
// hand off to the actions package through helpers.Run.
package cli
