package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newCategoriesCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage spending categories",
	}
	cmd.AddCommand(
		newCategoriesListCommand(opts),
		newCategoriesAddCommand(opts),
		newCategoriesParentCommand(opts),
		newCategoriesSeedCommand(opts),
		newCategoriesExportCommand(opts),
		newCategoriesImportCommand(opts),
	)
	return cmd
}

func newCategoriesListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			cats, err := a.categories().List(ctx, a.user)
			if err != nil {
				return err
			}
			names := make(map[int64]string, len(cats))
			for _, c := range cats {
				names[c.ID] = c.Name
			}
			tw := newTable(a.out)
			fmt.Fprintln(tw, "ID\tNAME\tCOLOR\tPARENT")
			for _, c := range cats {
				parent := "-"
				if c.ParentID != nil {
					parent = names[*c.ParentID]
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", c.ID, c.Name, c.Color, parent)
			}
			return tw.Flush()
		},
	}
}

func newCategoriesAddCommand(opts *options) *cobra.Command {
	var color, parent string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var parentID *int64
			if parent != "" {
				if parentID, err = a.categoryRef(ctx, parent); err != nil {
					return err
				}
			}
			c, err := a.categories().Create(ctx, a.user, args[0], color, parentID)
			if err != nil {
				return err
			}
			success.Fprintf(a.out, "Added category %d: %s\n", c.ID, c.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&color, "color", "", "hex color, e.g. #28a745")
	cmd.Flags().StringVar(&parent, "parent", "", "parent category (id or name)")

	return cmd
}

func newCategoriesParentCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "parent <category> <parent|none>",
		Short: "Move a category under another, or to the top level",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			child, err := a.categoryRef(ctx, args[0])
			if err != nil {
				return err
			}
			if child == nil {
				return fmt.Errorf("category is required")
			}
			parentID, err := a.categoryRef(ctx, args[1])
			if err != nil {
				return err
			}
			if err := a.categories().SetParent(ctx, a.user, *child, parentID); err != nil {
				return err
			}
			success.Fprintf(a.out, "%s is now under %s\n", args[0], args[1])
			return nil
		},
	}
}

func newCategoriesSeedCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create any missing default categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.categories().Seed(ctx, a.user)
			if err != nil {
				return err
			}
			success.Fprintf(a.out, "Created %d categories\n", n)
			return nil
		},
	}
}

func newCategoriesExportCommand(opts *options) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write categories as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if file == "" {
				return a.categories().Export(ctx, a.user, a.out)
			}
			f, err := os.Create(file)
			if err != nil {
				return fmt.Errorf("creating %s: %w", file, err)
			}
			if err := a.categories().Export(ctx, a.user, f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}

	cmd.Flags().StringVarP(&file, "output", "o", "", "output file (default: stdout)")

	return cmd
}

func newCategoriesImportCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Create categories from a name,color,parent CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()

			n, err := a.categories().Import(ctx, a.user, f)
			if err != nil {
				return err
			}
			success.Fprintf(a.out, "Created %d categories\n", n)
			return nil
		},
	}
}
