/*
Package dsl provides a Go DSL for building assessment trees in code.

It is an alternative to YAML or JSON definitions with a fluent builder
pattern, useful for generated assessments, unit tests and IDE
autocompletion. Build validates the tree with the same rules the loaders
apply.

Example usage:

	b := dsl.New("checkin").Title("Daily check-in")

	b.Instruction("hello").Title("Welcome back!")

	b.Question("slept", answer.Boolean()).
		Title("Did you sleep well?").
		SkipIf(domain.OpEqual, true, "bye")

	b.Question("hours", answer.Integer()).
		Title("How many hours?")

	b.Completion("bye")

	a, err := b.Build()
	// ... pass a to Engine.Start
*/
package dsl
