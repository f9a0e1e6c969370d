package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/answer"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// Commands understood at every prompt.
const (
	CommandBack    = "back"
	CommandExit    = "exit"
	CommandDecline = "decline"
)

// SessionOptions configures an interactive run.
type SessionOptions struct {
	Assessment string
	RunID      string
	Plain      bool
	In         io.Reader
	Out        io.Writer
	Logger     *slog.Logger
}

// RunSession drives one run of an assessment on a terminal. An empty line
// moves forward, back goes back, decline ends the run and anything else
// answers the current question. Exit, end of input or cancelling ctx leave
// the run open in the cache so that it can be resumed with its id.
func RunSession(ctx context.Context, svc ports.RunService, opts SessionOptions) (*ports.RunSnapshot, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	r, err := tui.NewRenderer(opts.Plain)
	if err != nil {
		return nil, err
	}

	snap, err := svc.Start(ctx, opts.Assessment, opts.RunID)
	if err != nil {
		return nil, err
	}
	runID := snap.RunID
	logger.Info("run active", "run_id", runID, "assessment", snap.AssessmentID)
	fmt.Fprintln(opts.Out, r.Notice("Run '%s' active. Type '%s' to go back, '%s' to save and quit.", runID, CommandBack, CommandExit))

	lines := readLines(ctx, opts.In)
	for !snap.Finished {
		out, err := r.Step(snap)
		if err != nil {
			return snap, err
		}
		fmt.Fprint(opts.Out, out)
		fmt.Fprint(opts.Out, r.Prompt(snap))

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(opts.Out)
			return suspend(opts.Out, r, snap, logger), nil
		case l, ok := <-lines:
			if !ok {
				return suspend(opts.Out, r, snap, logger), nil
			}
			line = strings.TrimSpace(l)
		}
		if strings.EqualFold(line, CommandExit) {
			return suspend(opts.Out, r, snap, logger), nil
		}

		next, err := step(ctx, svc, snap, line)
		switch {
		case err == nil:
			snap = next
		case errors.Is(err, answer.ErrTypeMismatch):
			fmt.Fprintln(opts.Out, r.Notice("That answer does not fit: %v", err))
		case errors.Is(err, domain.ErrBackNotAllowed):
			fmt.Fprintln(opts.Out, r.Notice("Going back is not allowed here."))
		case errors.Is(err, domain.ErrNotAQuestion):
			fmt.Fprintln(opts.Out, r.Notice("This step takes no answer; press enter to continue."))
		default:
			return snap, err
		}
	}

	reason := "finished"
	if snap.Reason != nil {
		reason = string(snap.Reason.Kind)
	}
	fmt.Fprintln(opts.Out, r.Notice("Run '%s' ended: %s.", runID, reason))
	return snap, nil
}

// step applies one line of input to the run.
func step(ctx context.Context, svc ports.RunService, snap *ports.RunSnapshot, line string) (*ports.RunSnapshot, error) {
	switch strings.ToLower(line) {
	case "":
		return svc.Forward(ctx, snap.RunID)
	case CommandBack:
		return svc.Backward(ctx, snap.RunID)
	case CommandDecline:
		return svc.Exit(ctx, snap.RunID, domain.Declined())
	}
	if _, err := svc.Answer(ctx, snap.RunID, ParseInput(line, snap.Step)); err != nil {
		return nil, err
	}
	return svc.Forward(ctx, snap.RunID)
}

// ParseInput converts a typed line into a raw answer. Lines are read as
// JSON when they parse, except for text-like answer types; "null" clears.
func ParseInput(line string, view *ports.StepView) any {
	if view != nil && view.AnswerType != nil {
		switch answer.Kind(fmt.Sprint(view.AnswerType["type"])) {
		case answer.KindString, answer.KindDateTime, answer.KindTime:
			if line == "null" {
				return nil
			}
			return line
		}
	}
	var v any
	if err := json.Unmarshal([]byte(line), &v); err != nil {
		return line
	}
	return v
}

// suspend leaves the run as last persisted.
func suspend(w io.Writer, r *tui.Renderer, snap *ports.RunSnapshot, logger *slog.Logger) *ports.RunSnapshot {
	logger.Info("run suspended", "run_id", snap.RunID)
	fmt.Fprintln(w, r.Notice("Saved for later. Resume with --run-id %s", snap.RunID))
	return snap
}

func readLines(ctx context.Context, in io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case ch <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
