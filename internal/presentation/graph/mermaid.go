package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/result"
)

// GraphOverlay contains run state to highlight on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// OverlayFromResult marks every node with a result in res as visited and the
// newest leaf result as current when the run is still open.
func OverlayFromResult(res *result.AssessmentResult) *GraphOverlay {
	o := &GraphOverlay{}
	if res == nil {
		return o
	}
	result.Walk(res, func(r result.Result) bool {
		switch r.(type) {
		case *result.AssessmentResult, *result.BranchResult:
		default:
			if o.CurrentNode == "" && res.IsOpen() {
				o.CurrentNode = r.Common().Identifier
			}
		}
		o.VisitedNodes = append(o.VisitedNodes, r.Common().Identifier)
		return true
	})
	return o
}

// GenerateMermaid produces a Mermaid flowchart of an assessment.
// Node shapes follow the node kind:
// - Instruction and overview: [Rectangle]
// - Completion: ((Circle))
// - Question: [/Parallelogram/]
// - Section: subgraph
// Default navigation is a solid arrow, skip rules are dotted arrows labelled
// with their condition. Overlay styles are applied if provided.
func GenerateMermaid(a *domain.Assessment, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	if a == nil {
		return sb.String()
	}

	writeChildren(&sb, a, "", "    ")

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" && safeID != sanitizeMermaidID(a.Identifier) {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}
		if overlay.CurrentNode != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode)))
		}
	}

	return sb.String()
}

// writeChildren emits the children of b and the edges between them. next is
// the node that follows b in its parent; it is empty at the root.
func writeChildren(sb *strings.Builder, b domain.BranchNode, next, indent string) {
	children := b.ChildNodes()
	for i, child := range children {
		id := child.Common().Identifier
		following := next
		if i+1 < len(children) {
			following = children[i+1].Common().Identifier
		}

		if sec, ok := child.(*domain.Section); ok {
			sb.WriteString(fmt.Sprintf("%ssubgraph %s[\"%s\"]\n", indent, sanitizeMermaidID(id), label(sec)))
			writeChildren(sb, sec, following, indent+"    ")
			sb.WriteString(indent + "end\n")
		} else {
			opener, closer := shape(child)
			sb.WriteString(fmt.Sprintf("%s%s%s\"%s\"%s\n", indent, sanitizeMermaidID(id), opener, label(child), closer))
		}

		if jump := child.Common().NextNodeIdentifier; jump != "" {
			following = jump
		}
		if following != "" {
			sb.WriteString(fmt.Sprintf("%s%s --> %s\n", indent, sanitizeMermaidID(id), sanitizeMermaidID(following)))
		}

		if q, ok := child.(*domain.Question); ok {
			for _, rule := range q.SurveyRules {
				target := rule.SkipToIdentifier
				if target == domain.SkipNextSection {
					target = next
				}
				if target == "" {
					continue
				}
				// Escape double quotes in the condition for the Mermaid label
				cond := strings.ReplaceAll(condition(rule), "\"", "'")
				sb.WriteString(fmt.Sprintf("%s%s -. \"%s\" .-> %s\n", indent, sanitizeMermaidID(id), cond, sanitizeMermaidID(target)))
			}
		}
	}
}

func shape(n domain.Node) (string, string) {
	switch v := n.(type) {
	case *domain.Question:
		return "[/", "/]"
	case *domain.Step:
		if v.StepType == domain.StepCompletion {
			return "((", "))"
		}
	}
	return "[", "]"
}

func label(n domain.Node) string {
	if title := domain.ContentOf(n).Title; title != "" {
		return strings.ReplaceAll(title, "\"", "'")
	}
	return n.Common().Identifier
}

func condition(r domain.SurveyRule) string {
	if r.Operator() == domain.OpAlways {
		return "always"
	}
	return fmt.Sprintf("%s %v", r.Operator(), r.MatchingValue)
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	// "end" is a Mermaid keyword.
	if s == "end" {
		s = "end_"
	}
	return s
}
