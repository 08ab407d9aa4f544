// Package engine runs restack cascades over the branch graph.
//
// A cascade starts at a trigger branch (or trunk) and replays every tracked
// descendant onto its parent's current tip, parents before children. Each
// completed step is persisted before the next one starts, so a run that halts
// on a conflict can be continued or aborted later without losing work:
//
//	Building -> Running -> Completed
//	                    -> Halted -> (Resume) Running
//	                              -> (Abort) Aborted
//
// Pull request base updates are dispatched on a background worker and never
// change the outcome of a run.
package engine
