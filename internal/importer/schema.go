package importer

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CatalogSchema is the top-level YAML structure for catalog import.
type CatalogSchema struct {
	Version       VersionImport        `yaml:"version"`
	Groups        []GroupImport        `yaml:"groups" validate:"required,min=1,dive"`
	Rules         []RuleImport         `yaml:"rules,omitempty" validate:"dive"`
	Reassignments []ReassignmentImport `yaml:"reassignments,omitempty" validate:"dive"`
}

// VersionImport names the tree version the import creates.
type VersionImport struct {
	Name string `yaml:"name" validate:"required"`
}

// ItemImport holds the fields shared by every tree level. Ref is the
// file-local handle rules and reassignments use to point at the item.
type ItemImport struct {
	Ref            string `yaml:"ref" validate:"required"`
	Label          string `yaml:"label" validate:"required"`
	Active         *bool  `yaml:"active,omitempty"`
	IntegrationKey string `yaml:"integration_key,omitempty"`
}

type GroupImport struct {
	ItemImport `yaml:",inline"`
	SubGroups  []SubGroupImport `yaml:"subgroups,omitempty" validate:"dive"`
}

type SubGroupImport struct {
	ItemImport `yaml:",inline"`
	Points     []PointImport `yaml:"points,omitempty" validate:"dive"`
}

type PointImport struct {
	ItemImport `yaml:",inline"`
	Choices    []ItemImport `yaml:"choices,omitempty" validate:"dive"`
}

// RuleImport defines one rule. Parent is an item ref for choice and point
// rules; option rules name their plan option in Option instead.
type RuleImport struct {
	Ref    string           `yaml:"ref" validate:"required"`
	Family string           `yaml:"family" validate:"required,oneof=choice_to_choice point_to_point point_to_choice option_to_choice"`
	Parent string           `yaml:"parent,omitempty"`
	Option string           `yaml:"option,omitempty"`
	Type   string           `yaml:"type,omitempty" validate:"omitempty,oneof=must_have optional"`
	Items  []RuleItemImport `yaml:"items" validate:"required,min=1,dive"`
}

// RuleItemImport references a tree item. Type defaults to the rule type.
type RuleItemImport struct {
	Ref     string `yaml:"ref" validate:"required"`
	Mapping int    `yaml:"mapping,omitempty" validate:"min=0"`
	Type    string `yaml:"type,omitempty" validate:"omitempty,oneof=must_have optional"`
}

// ReassignmentImport redirects an attribute group from the association of
// Item (under Mapping) in Rule to the choice To.
type ReassignmentImport struct {
	Rule           string `yaml:"rule" validate:"required"`
	Item           string `yaml:"item" validate:"required"`
	Mapping        int    `yaml:"mapping,omitempty" validate:"min=0"`
	To             string `yaml:"to" validate:"required"`
	AttributeGroup int64  `yaml:"attribute_group" validate:"required,gt=0"`
}

// LoadCatalogSchema reads and parses a catalog import YAML file.
func LoadCatalogSchema(path string) (*CatalogSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseCatalogSchema(data)
}

// ParseCatalogSchema parses catalog import YAML. Unknown fields are errors.
func ParseCatalogSchema(data []byte) (*CatalogSchema, error) {
	var schema CatalogSchema
	if err := yamlStrict(data, &schema); err != nil {
		return nil, fmt.Errorf("parsing import file: %w", err)
	}
	return &schema, nil
}

func yamlStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(out)
}
