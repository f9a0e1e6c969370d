/*
Package domain contains the declarative model of an assessment.

An assessment is a tree: the Assessment root and its Sections are branch
nodes with an ordered list of children, and Steps and Questions are the
leaves. Sibling order is traversal-significant. Every node creates its own
result the first time it becomes current.

This package is kept pure and free of I/O, following Hexagonal Architecture
principles. Decoding definitions lives in the compiler and traversal in the
runtime.

# Key Entities

  - Node: the closed set of Step, Question, Section and Assessment.
  - SurveyRule: a conditional skip attached to a question.
  - AsyncActionConfig: a background action started and stopped by navigation.
  - LifecycleHooks: callbacks fired while a run moves through the tree.
*/
package domain
