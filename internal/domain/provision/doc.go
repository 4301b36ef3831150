// Package provision contains the domain types of the bootstrap recipe.
//
// It defines release assets, the recipe (an ordered list of named shell steps
// plus the installer cleanup policy), the run journal, and the error taxonomy
// shared by every step of the pipeline.
package provision
