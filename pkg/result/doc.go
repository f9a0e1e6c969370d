/*
Package result defines the output tree produced while an assessment runs.

The tree mirrors the part of the node tree actually visited: every step
yields a Base or AnswerResult, every section a BranchResult and the root an
AssessmentResult. A BranchResult keeps the result of each visit in
PathHistory together with a PathMarker in Path, so the two slices always have
the same length.

Results serialize to JSON with a "type" discriminator and decode back with
Unmarshal into an equal tree.
*/
package result
