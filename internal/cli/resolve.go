package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/alexanderramin/choicetree/internal/service"
)

// resolveVersionID resolves a tree version identifier which can be:
//   - empty (the most recently created version)
//   - a full version id
//   - a version name (case-insensitive)
//   - a unique id prefix
func resolveVersionID(ctx context.Context, app *App, input string) (string, error) {
	versions, err := app.Trees.ListVersions(ctx)
	if err != nil {
		return "", err
	}
	if len(versions) == 0 {
		return "", fmt.Errorf("no tree versions found; run 'choicetree import' first")
	}

	if input == "" {
		return versions[len(versions)-1].ID, nil
	}

	for _, v := range versions {
		if v.ID == input {
			return v.ID, nil
		}
	}
	for _, v := range versions {
		if strings.EqualFold(v.Name, input) {
			return v.ID, nil
		}
	}

	var matches []string
	for _, v := range versions {
		if strings.HasPrefix(v.ID, input) {
			matches = append(matches, v.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("tree version not found: %q", input)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("tree version prefix %q is ambiguous (%d matches)", input, len(matches))
	}
}

// loadWorkspace resolves the --tree flag and loads that version.
func loadWorkspace(ctx context.Context, app *App, opts *rootOptions) (*service.Workspace, error) {
	versionID, err := resolveVersionID(ctx, app, opts.tree)
	if err != nil {
		return nil, err
	}
	return app.Trees.Load(ctx, versionID)
}

// parseID parses a positive numeric item or rule id.
func parseID(what, input string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(input, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, input)
	}
	return id, nil
}
