// Package runtime holds the stateful side of navigation.
//
// A Traversal owns one BranchState per active branch level, from the
// assessment root down to the section holding the current step. Each level
// asks its navigator for the next point, records the visit in its branch
// result and reports back to its owner with a returned signal instead of a
// parent reference: moved, finished or bubbleBack.
package runtime
