package cli

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/alexanderramin/choicetree/internal/cli/formatter"
	"github.com/alexanderramin/choicetree/internal/consistency"
	"github.com/alexanderramin/choicetree/internal/service"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var errConfirmationRequired = errors.New("confirmation required: rerun with --yes to delete the listed reassignments")

// choicetreeHuhTheme returns a huh theme using the formatter palette.
func choicetreeHuhTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(formatter.ColorHeader).Bold(true)
	t.Focused.Description = lipgloss.NewStyle().Foreground(formatter.ColorYellow)
	t.Focused.FocusedButton = lipgloss.NewStyle().Foreground(formatter.ColorFg).Background(formatter.ColorRed).Padding(0, 1)
	t.Focused.BlurredButton = lipgloss.NewStyle().Foreground(formatter.ColorDim).Padding(0, 1)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.Description = lipgloss.NewStyle().Foreground(formatter.ColorDim)

	return t
}

// huhConfirm shows a yes/no prompt listing the affected choices. An aborted
// prompt counts as a decline.
func huhConfirm(title string, d consistency.Decision) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(strings.Join(d.AffectedLabels, "\n")).
				Affirmative("Delete").
				Negative("Keep").
				Value(&ok),
		),
	).WithTheme(choicetreeHuhTheme()).WithShowHelp(false)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

// runConfirmed runs a destructive mutation. When the checker asks for
// confirmation the decision is shown and, unless --yes was given, the user
// is prompted. An accepted prompt re-checks first: the cascade only runs
// when it still covers exactly the approved reassignments, otherwise the
// new decision is shown and asked again. A decline leaves everything
// unchanged and is not an error.
func runConfirmed(cmd *cobra.Command, app *App, opts *rootOptions, mutate func(confirm bool) (*service.MutationResult, error)) (*service.MutationResult, error) {
	out := cmd.OutOrStdout()
	assumeYes := opts.yes || app.AssumeYes

	res, err := mutate(assumeYes)
	if err != nil || res.Applied {
		return res, err
	}

	ask := app.Confirm
	if ask == nil {
		ask = huhConfirm
	}
	for {
		fmt.Fprint(out, formatter.FormatDecision(res.Decision))
		if app.IsInteractive == nil || !app.IsInteractive() {
			return res, errConfirmationRequired
		}

		ok, err := ask(formatter.ConfirmPrompt(res.Decision), res.Decision)
		if err != nil {
			return res, fmt.Errorf("confirmation prompt: %w", err)
		}
		if !ok {
			fmt.Fprintln(out, formatter.Dim("Aborted. Nothing was changed."))
			return res, nil
		}

		approved := res.Decision
		res, err = mutate(false)
		if err != nil || res.Applied {
			return res, err
		}
		if sameCascade(approved, res.Decision) {
			return mutate(true)
		}
		fmt.Fprintln(out, formatter.Dim("The affected reassignments changed while you were deciding."))
	}
}

func sameCascade(a, b consistency.Decision) bool {
	return slices.Equal(a.ReassignmentIDs(), b.ReassignmentIDs()) &&
		slices.Equal(a.AffectedLabels, b.AffectedLabels)
}
