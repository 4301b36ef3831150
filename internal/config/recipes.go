package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/oshokin/gtk-bootstrap/internal/domain/provision"
)

// DefaultRecipe is used when neither the flag nor the settings file pick one.
const DefaultRecipe = "full"

// errUnknownRecipe is returned by LookupRecipe for names it does not know.
var errUnknownRecipe = errors.New("unknown recipe")

// builtinRecipes returns fresh copies of the recipes shipped with the binary.
func builtinRecipes() map[string]*provision.Recipe {
	return map[string]*provision.Recipe{
		"full": {
			Name:        "full",
			Description: "full system upgrade, GTK4 with Glade, UCRT toolchain and pkg-config; installer removed",
			Steps: []provision.ShellStep{
				{
					Name:    "update-msys2",
					Command: "pacman -Syu --noconfirm",
				},
				{
					Name: "install-gtk4",
					Command: "pacman -S --noconfirm " + strings.Join([]string{
						"mingw-w64-ucrt-x86_64-gtk4",
						"mingw-w64-ucrt-x86_64-glade",
						"mingw-w64-ucrt-x86_64-toolchain",
						"mingw-w64-ucrt-x86_64-pkg-config",
					}, " "),
				},
			},
			CleanupInstaller: true,
		},
		"minimal": {
			Name:        "minimal",
			Description: "package database refresh only, GTK4 and UCRT toolchain; installer kept",
			Steps: []provision.ShellStep{
				{
					Name:    "update-msys2",
					Command: "pacman -Sy --noconfirm",
				},
				{
					Name: "install-gtk4",
					Command: "pacman -S --noconfirm --needed " + strings.Join([]string{
						"mingw-w64-ucrt-x86_64-gtk4",
						"mingw-w64-ucrt-x86_64-toolchain",
					}, " "),
				},
			},
			CleanupInstaller: false,
		},
	}
}

// LookupRecipe returns a copy of the built-in recipe with the given name.
func LookupRecipe(name string) (*provision.Recipe, error) {
	recipe, ok := builtinRecipes()[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("%q: %w (known: %s)", name, errUnknownRecipe, strings.Join(RecipeNames(), ", "))
	}

	return recipe, nil
}

// RecipeNames lists the built-in recipe names in sorted order.
func RecipeNames() []string {
	recipes := builtinRecipes()

	names := make([]string, 0, len(recipes))
	for name := range recipes {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// ApplyRecipe replaces the configured recipe with the named built-in one.
// An empty name keeps whatever the defaults or the settings file selected.
func (c *Config) ApplyRecipe(name string) error {
	if strings.TrimSpace(name) == "" {
		return nil
	}

	recipe, err := LookupRecipe(name)
	if err != nil {
		return err
	}

	c.Recipe = *recipe

	return nil
}
