/*
Package arbor runs research assessments: declarative trees of steps,
questions and sections that a participant walks through one step at a time.

An assessment is written in YAML or JSON. Questions declare a typed answer
and may carry survey rules that skip ahead depending on the answer given.
The engine decodes and validates the tree, and a Run owns the position of
one participant in it, including the backward history across nested
sections. Partial results can be cached and resumed later, in this process
or another one.

# Usage

	eng, err := arbor.New("./assessments")
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	a, err := eng.Load(ctx, "intake")
	if err != nil {
		log.Fatal(err)
	}

	run, err := eng.Start(ctx, a, "")
	if err != nil {
		log.Fatal(err)
	}

	for !run.Finished() {
		step := run.CurrentStep()
		fmt.Println(step.Common().Identifier)
		if _, ok := step.(*domain.Question); ok {
			_ = run.Answer(true)
		}
		if err := run.GoForward(ctx); err != nil {
			log.Fatal(err)
		}
	}

	out, _ := json.Marshal(run.Result())
	fmt.Println(string(out))

Hosts that serve many participants use Service, which keeps live runs in
memory and writes each change through a session.Manager to a result cache.
*/
package arbor
