package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestLookupRecipe covers both built-in variants and unknown names.
func TestLookupRecipe(t *testing.T) {
	t.Parallel()

	full, err := LookupRecipe("full")
	require.NoError(t, err)
	require.True(t, full.CleanupInstaller)
	require.Equal(t, "pacman -Syu --noconfirm", full.Steps[0].Command)
	require.Contains(t, full.Steps[1].Command, "mingw-w64-ucrt-x86_64-glade")

	minimal, err := LookupRecipe("minimal")
	require.NoError(t, err)
	require.False(t, minimal.CleanupInstaller)
	require.Equal(t, "pacman -Sy --noconfirm", minimal.Steps[0].Command)
	require.NotContains(t, minimal.Steps[1].Command, "glade")

	_, err = LookupRecipe("nightly")
	require.ErrorIs(t, err, errUnknownRecipe)

	require.Equal(t, []string{"full", "minimal"}, RecipeNames())
}

// TestApplyRecipe ensures an empty name keeps the current recipe.
func TestApplyRecipe(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.ApplyRecipe(""))
	require.Equal(t, "full", cfg.Recipe.Name)

	require.NoError(t, cfg.ApplyRecipe("minimal"))
	require.Equal(t, "minimal", cfg.Recipe.Name)

	require.Error(t, cfg.ApplyRecipe("nightly"))
}
