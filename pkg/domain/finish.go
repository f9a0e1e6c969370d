package domain

import "fmt"

// FinishKind classifies how a run ended.
type FinishKind string

const (
	FinishComplete   FinishKind = "complete"
	FinishIncomplete FinishKind = "incomplete"
	FinishFailed     FinishKind = "failed"
)

// SaveResult tells the host when the results of a finished run should be uploaded.
type SaveResult string

const (
	SaveNow                SaveResult = "now"
	SaveWhenSessionExpires SaveResult = "whenSessionExpires"
	SaveNever              SaveResult = "never"
)

// FinishReason describes why a run ended.
type FinishReason struct {
	Kind         FinishKind `json:"kind"`
	SaveResult   SaveResult `json:"saveResult"`
	MarkFinished bool       `json:"markFinished"`
	// Declined is set when the participant chose not to take part.
	Declined bool `json:"declined,omitempty"`
	// Err is set for failed runs.
	Err error `json:"-"`
}

// Complete is the reason for a run that reached the end of the tree.
func Complete() FinishReason {
	return FinishReason{Kind: FinishComplete, SaveResult: SaveNow, MarkFinished: true}
}

// Incomplete is the reason for a run that ended before the end of the tree.
func Incomplete(save SaveResult) FinishReason {
	return FinishReason{Kind: FinishIncomplete, SaveResult: save}
}

// Declined is the reason for a participant who opted out.
func Declined() FinishReason {
	return FinishReason{Kind: FinishIncomplete, SaveResult: SaveNow, MarkFinished: true, Declined: true}
}

// Failed is the reason for a run aborted by an error.
func Failed(err error) FinishReason {
	return FinishReason{Kind: FinishFailed, SaveResult: SaveNever, Err: err}
}

func (r FinishReason) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: %v", r.Kind, r.Err)
	}
	return string(r.Kind)
}
