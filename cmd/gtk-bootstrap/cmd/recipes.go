package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/oshokin/gtk-bootstrap/internal/config"
)

func newRecipesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "recipes",
		Short: "List the built-in recipes.",
		Long:  "Lists the recipes accepted by --recipe together with the package-manager steps each one runs.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printRecipes(cmd.OutOrStdout())
		},
	}
}

func printRecipes(w io.Writer) error {
	for _, name := range config.RecipeNames() {
		recipe, err := config.LookupRecipe(name)
		if err != nil {
			return err
		}

		marker := ""
		if name == config.DefaultRecipe {
			marker = " (default)"
		}

		_, _ = fmt.Fprintf(w, "%s%s: %s\n", recipe.Name, marker, recipe.Description)

		for _, step := range recipe.Steps {
			_, _ = fmt.Fprintf(w, "  %s: %s\n", step.Name, step.Command)
		}
	}

	return nil
}
