package result

// FindAnswer searches the tree rooted at root for the newest answer with the
// given identifier. Branch histories are searched newest entry first and
// nested branches are descended into, so an answer recorded after a backward
// truncation is never shadowed by a stale one.
func FindAnswer(root Result, identifier string) (*AnswerResult, bool) {
	var found *AnswerResult
	Walk(root, func(r Result) bool {
		if a, ok := r.(*AnswerResult); ok && a.Identifier == identifier {
			found = a
			return false
		}
		return true
	})
	return found, found != nil
}

// Walk visits r and its descendants, newest first, until fn returns false.
func Walk(r Result, fn func(Result) bool) bool {
	if r == nil {
		return true
	}
	if !fn(r) {
		return false
	}
	switch v := r.(type) {
	case *CollectionResult:
		return walkAll(v.Children, fn)
	case *BranchResult:
		return walkBranch(v, fn)
	case *AssessmentResult:
		return walkBranch(&v.BranchResult, fn)
	}
	return true
}

func walkBranch(b *BranchResult, fn func(Result) bool) bool {
	if !walkAll(b.PathHistory, fn) {
		return false
	}
	return walkAll(b.Children, fn)
}

func walkAll(results []Result, fn func(Result) bool) bool {
	for i := len(results) - 1; i >= 0; i-- {
		if !Walk(results[i], fn) {
			return false
		}
	}
	return true
}
