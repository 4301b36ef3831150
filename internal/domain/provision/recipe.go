package provision

// ShellStep is a named command run through the toolchain's interpreter.
type ShellStep struct {
	// Name identifies the step in logs, diagnostics and the journal.
	Name string `yaml:"name"`
	// Command is passed verbatim to the interpreter.
	Command string `yaml:"command"`
}

// Recipe is the data-driven part of the bootstrap: what to run once the
// toolchain is ready and what to do with the downloaded installer.
type Recipe struct {
	// Name is the recipe identifier used by --recipe.
	Name string `yaml:"name"`
	// Description is a one-line summary printed by the recipes command.
	Description string `yaml:"description"`
	// Steps run in order; the first failure stops the pipeline.
	Steps []ShellStep `yaml:"steps"`
	// CleanupInstaller removes the toolchain installer after a ready install.
	CleanupInstaller bool `yaml:"cleanup_installer"`
}

// Clone returns a deep copy so callers never share the steps slice.
func (r *Recipe) Clone() *Recipe {
	if r == nil {
		return nil
	}

	cloned := *r
	cloned.Steps = append([]ShellStep(nil), r.Steps...)

	return &cloned
}
