package deploy

import "path/filepath"

// Category is an activation-mode grouping of rule documents.
type Category string

const (
	CategoryAlways         Category = "always"
	CategoryAutoAttached   Category = "auto-attached"
	CategoryAgentRequested Category = "agent-requested"
	CategoryManual         Category = "manual"
)

// Categories lists every category in install order.
var Categories = []Category{
	CategoryAlways,
	CategoryAutoAttached,
	CategoryAgentRequested,
	CategoryManual,
}

const (
	// ReferencePrefix marks a cross-document link inside a rule document.
	// It is stripped on install so links resolve from the target tree.
	ReferencePrefix = "@universal-rules/"

	// TemplateName is the customizable document provisioned under manual/.
	TemplateName = "project-context.mdc"

	// DefaultCountPattern selects the files counted by the reporter,
	// relative to the rules root.
	DefaultCountPattern = "**/*.{md,mdc}"

	// homeTreeDir is the per-user distribution directory under $HOME.
	homeTreeDir = ".universal-rules"
)

// RulesRoot returns the rule tree root inside a project directory.
func RulesRoot(project string) string {
	return filepath.Join(project, ".cursor", "rules")
}

// CategoryDir returns the directory of category c under a rules root.
func CategoryDir(rulesRoot string, c Category) string {
	return filepath.Join(rulesRoot, string(c))
}

// TemplatePath returns the path of the customizable template in a target.
func TemplatePath(target string) string {
	return filepath.Join(CategoryDir(RulesRoot(target), CategoryManual), TemplateName)
}
