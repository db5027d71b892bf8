// Package overlay compiles danmaku comments into an ASS subtitle document.
//
// Each comment is routed to a lane pool by its motion mode: scrolling comments
// cross the screen right to left, top and bottom comments stay centred for a
// fixed four seconds. Tracks assigns lanes greedily so concurrent comments in
// the same pool do not overlap until every lane is busy, at which point the
// lane that frees up earliest is reused.
//
// Build is a pure function of its inputs: lane state is created fresh for every
// call, so identical comments and shift always yield byte-identical output.
package overlay
