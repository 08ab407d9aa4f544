// Package git is the version-control adapter for cascade.
//
// Object and ref reads and writes (tips, ancestry, merge bases, the graph
// blob) go through go-git. Operations that need git's own porcelain (reflog,
// rev-list, rebase and anything touching the working tree) shell out to the
// git CLI through CommandRunner.
package git
