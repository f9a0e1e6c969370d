/*
Package navigation decides where a run goes next within one container.

A Navigator is a pure function of the container's children, the current node
and the container's result. NodeAfter applies, in order, the node's direct
jump, its survey rules (first match wins) and the declared sibling order.
NodeBefore follows the recorded path, so moving back after a skip returns to
the node that skipped rather than to its declared predecessor.

A Point with a nil Node tells the caller that the move leaves the container;
the owner of the container then continues at its own level.
*/
package navigation
