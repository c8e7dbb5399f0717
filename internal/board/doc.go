// Package board holds the in-memory state of a project's kanban board and the
// logic that reorders cards and toggles completion against the remote store.
//
// Every user action follows the same two phases: the Cache is mutated
// optimistically and listeners are notified, then the change is written
// through a repository.BoardStore. A failed write restores the snapshot taken
// before the mutation. Nothing in this package retries.
package board
