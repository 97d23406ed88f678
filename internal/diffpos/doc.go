// Package diffpos maps added-line ordinals onto unified-diff positions.
//
// A diff position is the 1-based index of a line within a file's patch text,
// counting every line: hunk headers, context, additions, and deletions. The
// completion service refers to changed code as "the Nth added line"; the
// change host anchors inline comments by diff position. [Index] bridges the
// two. An ordinal that cannot be resolved is reported with ok == false and is
// the caller's cue to publish the comment unanchored.
package diffpos
