package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Joseda-hg/taskdock/internal/model"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Manage tags",
}

var tagsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tags",
	Args:  cobra.NoArgs,
	RunE:  runTagsList,
}

var tagsAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Create a tag",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTagsAdd,
}

var tagsUpdateCmd = &cobra.Command{
	Use:   "update [tag-id]",
	Short: "Rename or recolor a tag",
	Args:  cobra.ExactArgs(1),
	RunE:  runTagsUpdate,
}

var tagsRmCmd = &cobra.Command{
	Use:   "rm [tag-id]",
	Short: "Delete a tag and detach it from its tasks",
	Args:  cobra.ExactArgs(1),
	RunE:  runTagsRm,
}

func init() {
	tagsCmd.AddCommand(tagsListCmd)
	tagsCmd.AddCommand(tagsAddCmd)
	tagsCmd.AddCommand(tagsUpdateCmd)
	tagsCmd.AddCommand(tagsRmCmd)

	tagsAddCmd.Flags().String("color", "", "hex color, e.g. #10B981")
	tagsUpdateCmd.Flags().String("name", "", "new name")
	tagsUpdateCmd.Flags().String("color", "", "new hex color")
}

func runTagsList(cmd *cobra.Command, _ []string) error {
	e, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	if message := e.App.Tags.Err(); message != "" {
		return errors.New(message)
	}
	tags := e.App.Tags.Tags()
	out := cmd.OutOrStdout()
	if len(tags) == 0 {
		fmt.Fprintln(out, "No tags yet.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCOLOR")
	for _, tag := range tags {
		fmt.Fprintf(w, "%s\t%s\t%s\n", tag.ID, tag.Name, tag.Color)
	}
	return w.Flush()
}

func runTagsAdd(cmd *cobra.Command, args []string) error {
	e, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	color, _ := cmd.Flags().GetString("color")
	tag, err := e.App.Tags.Create(cmd.Context(), model.TagInput{Name: strings.Join(args, " "), Color: color})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created tag %s (%s)\n", tag.Name, tag.ID)
	return nil
}

func runTagsUpdate(cmd *cobra.Command, args []string) error {
	e, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	patch := model.Patch{}
	for _, name := range []string{"name", "color"} {
		if cmd.Flags().Changed(name) {
			value, _ := cmd.Flags().GetString(name)
			patch[name] = value
		}
	}
	if len(patch) == 0 {
		return errors.New("nothing to update, pass --name or --color")
	}

	tag, err := e.App.Tags.Update(cmd.Context(), args[0], patch)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated tag %s\n", tag.Name)
	return nil
}

func runTagsRm(cmd *cobra.Command, args []string) error {
	e, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.App.Tags.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted tag %s\n", args[0])
	return nil
}
