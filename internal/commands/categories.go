package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cuentas-dev/cuentas/internal/categories"
)

func newCategoriesCommand(cfgPath func() string) *cobra.Command {
	catCmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage categories",
	}
	catCmd.AddCommand(
		newCategoriesListCommand(cfgPath),
		newCategoriesAddCommand(cfgPath),
		newCategoriesUpdateCommand(cfgPath),
		newCategoriesDeleteCommand(cfgPath),
		newCategoriesExportCommand(cfgPath),
		newCategoriesImportCommand(cfgPath),
	)
	return catCmd
}

func newCategoriesListCommand(cfgPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cfgPath())
			if err != nil {
				return err
			}
			defer e.Close()

			cats, err := e.categories.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range cats {
				if c.Description != "" {
					printf(cmd, "%d\t%s\t%s\n", c.ID, c.Name, c.Description)
				} else {
					printf(cmd, "%d\t%s\n", c.ID, c.Name)
				}
			}
			return nil
		},
	}
}

func newCategoriesAddCommand(cfgPath func() string) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cfgPath())
			if err != nil {
				return err
			}
			defer e.Close()

			c, err := e.categories.Create(cmd.Context(), args[0], description)
			if err != nil {
				return fmt.Errorf("creating category %q: %w", args[0], err)
			}
			printf(cmd, "Created category %d %s\n", c.ID, c.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "category description")

	return cmd
}

func newCategoriesUpdateCommand(cfgPath func() string) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "update <id> <name>",
		Short: "Rename a category and replace its description",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			e, err := openEnv(cfgPath())
			if err != nil {
				return err
			}
			defer e.Close()

			c, err := e.categories.Update(cmd.Context(), id, args[1], description)
			if err != nil {
				return fmt.Errorf("updating category %d: %w", id, err)
			}
			printf(cmd, "Updated category %d %s\n", c.ID, c.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "category description")

	return cmd
}

func newCategoriesDeleteCommand(cfgPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a category and its transaction links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			e, err := openEnv(cfgPath())
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.categories.Delete(cmd.Context(), id); err != nil {
				return fmt.Errorf("deleting category %d: %w", id, err)
			}
			printf(cmd, "Deleted category %d\n", id)
			return nil
		},
	}
}

func newCategoriesExportCommand(cfgPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file.csv]",
		Short: "Write categories as CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cfgPath())
			if err != nil {
				return err
			}
			defer e.Close()

			cats, err := e.categories.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return categories.WriteCSV(cmd.OutOrStdout(), cats)
			}

			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("creating %s: %w", args[0], err)
			}
			if err := categories.WriteCSV(f, cats); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
}

func newCategoriesImportCommand(cfgPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Create categories from CSV, skipping names that exist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()

			cats, err := categories.ReadCSV(f)
			if err != nil {
				return err
			}

			e, err := openEnv(cfgPath())
			if err != nil {
				return err
			}
			defer e.Close()

			res, err := e.categories.Import(cmd.Context(), cats)
			if err != nil {
				return err
			}
			printf(cmd, "Imported %d categories, skipped %d\n", res.Created, res.Skipped)
			return nil
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
