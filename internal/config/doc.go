// Package config manages cascade configuration and state persistence.
//
// It handles:
//   - Repository-specific configuration (trunks, fork point and sync policy)
//   - The persisted state of a halted cascade, so `continue` and `abort`
//     can pick it up from a later process
package config
