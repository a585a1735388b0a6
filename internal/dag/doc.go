// Package dag provides a small directed acyclic graph keyed by string IDs.
//
// The task registry records every group-to-member reference as an edge,
// uses DetectCycles to reject groups that reach themselves, and builds
// groups in TopologicalOrder so members always exist before the group that
// composes them.
package dag
