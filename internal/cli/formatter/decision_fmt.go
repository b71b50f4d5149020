package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/choicetree/internal/catalog"
	"github.com/alexanderramin/choicetree/internal/consistency"
	"github.com/alexanderramin/choicetree/internal/domain"
)

// FormatDecision renders a consistency verdict. For a pending confirmation
// it lists the choices whose reassignments would be deleted.
func FormatDecision(d consistency.Decision) string {
	var b strings.Builder
	switch d.Outcome {
	case consistency.RequireConfirmation:
		b.WriteString(StyleRed.Render("⚠ Attribute reassignments will be removed"))
		b.WriteString("\n")
		for _, label := range d.AffectedLabels {
			b.WriteString("  " + StyleYellow.Render("• "+label) + "\n")
		}
	case consistency.ProceedWithCascade:
		b.WriteString(StyleYellow.Render(fmt.Sprintf("Removed %d attribute reassignment(s)", len(d.Reassignments))))
		b.WriteString("\n")
	default:
		b.WriteString(Dim("No attribute reassignments affected."))
		b.WriteString("\n")
	}
	return b.String()
}

// ConfirmPrompt is the question asked before a cascading mutation.
func ConfirmPrompt(d consistency.Decision) string {
	return fmt.Sprintf("Delete reassignments for %s?", strings.Join(d.AffectedLabels, ", "))
}

// FormatImpact renders which rule-presence flags a tree delete touched.
func FormatImpact(impact domain.DeleteImpact, labels Labeler) string {
	var b strings.Builder
	b.WriteString(StyleGreen.Render(fmt.Sprintf("✔ Deleted %d item(s)", len(impact.RemovedItemIDs))))
	b.WriteString("\n")
	if len(impact.AffectedPoints) > 0 {
		names := make([]string, len(impact.AffectedPoints))
		for i, id := range impact.AffectedPoints {
			names[i] = labels.Label(id)
		}
		b.WriteString(Dim("  rules updated on: ") + strings.Join(names, ", ") + "\n")
	}
	if len(impact.AffectedIntegrationKeys) > 0 {
		b.WriteString(Dim("  plan options updated: ") + strings.Join(impact.AffectedIntegrationKeys, ", ") + "\n")
	}
	return b.String()
}

// FormatSortBatch renders the items a sort commit renumbered.
func FormatSortBatch(batch catalog.SortBatch) string {
	if batch.Empty() {
		return Dim("Nothing to reorder.") + "\n"
	}
	rows := make([][]string, 0, len(batch.Points)+len(batch.Choices))
	add := func(diffs []catalog.SortDiff) {
		for _, d := range diffs {
			id := "new"
			if d.ID != 0 {
				id = fmt.Sprintf("%d", d.ID)
			}
			rows = append(rows, []string{id, string(d.Kind), d.Label, fmt.Sprintf("%d", d.SortOrder)})
		}
	}
	add(batch.Points)
	add(batch.Choices)
	return RenderTable([]string{"ID", "KIND", "LABEL", "ORDER"}, rows)
}
