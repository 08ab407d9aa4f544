// Package runtime provides the execution context for cascade commands.
//
// It encapsulates shared dependencies needed by actions: the repository,
// its configuration, the cascade engine and the logger.
package runtime
