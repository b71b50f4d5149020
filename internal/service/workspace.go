package service

import (
	"github.com/alexanderramin/choicetree/internal/catalog"
	"github.com/alexanderramin/choicetree/internal/consistency"
	"github.com/alexanderramin/choicetree/internal/domain"
	"github.com/alexanderramin/choicetree/internal/rules"
)

// Workspace is the in-memory state of one loaded tree version: the catalog
// tree and the committed rule set. Services mutate it only after the
// matching persistence call succeeded.
type Workspace struct {
	Version domain.TreeVersion
	Tree    *catalog.Tree
	Rules   *rules.Store
}

// NewWorkspace assembles a workspace from loaded rows.
func NewWorkspace(version domain.TreeVersion, items []domain.TreeItem, loaded []domain.Rule) (*Workspace, error) {
	tree, err := catalog.Build(version.ID, items)
	if err != nil {
		return nil, err
	}
	ws := &Workspace{
		Version: version,
		Tree:    tree,
		Rules:   rules.NewStore(version.ID, loaded),
	}
	ws.refreshHasRules()
	return ws, nil
}

// VersionID returns the id of the loaded tree version.
func (w *Workspace) VersionID() string { return w.Version.ID }

// Checker returns a consistency checker over the committed rule set.
func (w *Workspace) Checker() *consistency.Checker {
	return consistency.NewChecker(w.Rules.Index(), w.Tree)
}

// HasOptionRules reports whether any option rule is keyed on key.
func (w *Workspace) HasOptionRules(key string) bool {
	for _, r := range w.Rules.Family(domain.FamilyOptionToChoice) {
		if r.IntegrationKey == key {
			return true
		}
	}
	return false
}

// refreshHasRules recomputes the rule-presence flag of every tree item: a
// point or choice carries rules when it parents at least one.
func (w *Workspace) refreshHasRules() {
	parents := make(map[int64]bool)
	for _, r := range w.Rules.All() {
		if r.Family.ParentKind() != "" {
			parents[r.ParentID] = true
		}
	}
	for _, item := range w.Tree.Items() {
		if item.ID != 0 {
			w.Tree.SetHasRules(item.ID, parents[item.ID])
		}
	}
}
