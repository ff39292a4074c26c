package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Joseda-hg/taskdock/internal/export"
	"github.com/Joseda-hg/taskdock/internal/model"
)

const dueLayout = "2006-01-02"

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List and change tasks",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, newest first",
	Args:  cobra.NoArgs,
	RunE:  runTasksList,
}

var tasksShowCmd = &cobra.Command{
	Use:   "show [task-id]",
	Short: "Show one task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksShow,
}

var tasksAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Create a task",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTasksAdd,
}

var tasksUpdateCmd = &cobra.Command{
	Use:   "update [task-id]",
	Short: "Change fields of a task",
	Long: `Change fields of a task. Only the flags given are sent.
Pass --due "" to clear the due date and --tags "" to remove all tags.`,
	Args: cobra.ExactArgs(1),
	RunE: runTasksUpdate,
}

var tasksDoneCmd = &cobra.Command{
	Use:   "done [task-id]",
	Short: "Mark a task completed",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksDone,
}

var tasksRmCmd = &cobra.Command{
	Use:   "rm [task-id]",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksRm,
}

var tasksExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the matching tasks to an .xlsx workbook",
	Args:  cobra.NoArgs,
	RunE:  runTasksExport,
}

func init() {
	tasksCmd.AddCommand(tasksListCmd)
	tasksCmd.AddCommand(tasksShowCmd)
	tasksCmd.AddCommand(tasksAddCmd)
	tasksCmd.AddCommand(tasksUpdateCmd)
	tasksCmd.AddCommand(tasksDoneCmd)
	tasksCmd.AddCommand(tasksRmCmd)
	tasksCmd.AddCommand(tasksExportCmd)

	addFilterFlags(tasksListCmd)
	addFilterFlags(tasksExportCmd)
	tasksExportCmd.Flags().StringP("out", "o", "tasks.xlsx", "output file")

	for _, cmd := range []*cobra.Command{tasksAddCmd, tasksUpdateCmd} {
		cmd.Flags().String("description", "", "task description")
		cmd.Flags().String("priority", "", "HIGH, MEDIUM or LOW")
		cmd.Flags().String("status", "", "PENDING, IN_PROGRESS, COMPLETED or CANCELLED")
		cmd.Flags().String("due", "", "due date (YYYY-MM-DD)")
		cmd.Flags().String("tags", "", "comma separated tag names")
	}
	tasksUpdateCmd.Flags().String("title", "", "task title")
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("priority", model.FilterAll, "filter by priority")
	cmd.Flags().String("status", model.FilterAll, "filter by status")
	cmd.Flags().String("search", "", "search title and description")
	cmd.Flags().String("tags", "", "only tasks carrying one of these comma separated tags")
	cmd.Flags().Int("page", 1, "page number")
	cmd.Flags().Int("limit", 0, "tasks per page (default from config)")
}

// filterFromFlags builds the filter and server query for list and export.
func filterFromFlags(cmd *cobra.Command, e *env) (model.FilterState, model.TaskQuery, error) {
	priority, _ := cmd.Flags().GetString("priority")
	status, _ := cmd.Flags().GetString("status")
	search, _ := cmd.Flags().GetString("search")
	tagNames, _ := cmd.Flags().GetString("tags")
	page, _ := cmd.Flags().GetInt("page")
	limit, _ := cmd.Flags().GetInt("limit")

	filter := model.NewFilterState()
	filter.Search = search
	if priority = normalizeFilter(priority); priority != model.FilterAll {
		if !model.Priority(priority).Valid() {
			return filter, model.TaskQuery{}, fmt.Errorf("invalid priority %q", priority)
		}
		filter.Priority = priority
	}
	if status = normalizeFilter(status); status != model.FilterAll {
		if !model.Status(status).Valid() {
			return filter, model.TaskQuery{}, fmt.Errorf("invalid status %q", status)
		}
		filter.Status = status
	}

	ids, err := tagIDs(e, tagNames)
	if err != nil {
		return filter, model.TaskQuery{}, err
	}
	for _, id := range ids {
		filter.ToggleTag(id)
	}

	query := filter.Query()
	query.Page = page
	query.Limit = limit
	if query.Limit <= 0 {
		query.Limit = e.App.Config.PageSize
	}
	return filter, query, nil
}

func normalizeFilter(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, model.FilterAll) {
		return model.FilterAll
	}
	return strings.ToUpper(value)
}

// tagIDs resolves comma separated tag names against the loaded tags.
func tagIDs(e *env, names string) ([]string, error) {
	byName := make(map[string]string)
	for _, tag := range e.App.Tags.Tags() {
		byName[strings.ToLower(tag.Name)] = tag.ID
	}

	ids := make([]string, 0)
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		id, ok := byName[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown tag %q", name)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseDue(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	due, err := time.ParseInLocation(dueLayout, value, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid due date %q, want YYYY-MM-DD", value)
	}
	return &due, nil
}

func fetchTasks(cmd *cobra.Command, e *env) ([]model.Task, error) {
	filter, query, err := filterFromFlags(cmd, e)
	if err != nil {
		return nil, err
	}
	e.App.Tasks.Fetch(cmd.Context(), query)
	if message := e.App.Tasks.Err(); message != "" {
		return nil, errors.New(message)
	}
	return filter.Visible(e.App.Tasks.Tasks()), nil
}

func runTasksList(cmd *cobra.Command, _ []string) error {
	e, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	tasks, err := fetchTasks(cmd, e)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks found.")
	} else {
		printTasks(out, tasks)
	}
	pagination := e.App.Tasks.Pagination()
	fmt.Fprintf(out, "\nPage %d/%d, %d tasks\n", pagination.Page, max(pagination.Pages, 1), pagination.Total)
	return nil
}

func printTasks(out io.Writer, tasks []model.Task) {
	now := time.Now()
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPRIORITY\tDUE\tTITLE\tTAGS")
	for _, task := range tasks {
		due := "-"
		if task.DueDate != nil {
			due = model.RelativeDue(*task.DueDate, now)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", task.ID, task.Status, task.Priority, due, task.Title, tagNames(task.Tags))
	}
	_ = w.Flush()
}

func tagNames(tags []model.Tag) string {
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}

func runTasksShow(cmd *cobra.Command, args []string) error {
	e, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	task, err := e.App.API.GetTask(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, task.Title)
	fmt.Fprintf(out, "id:        %s\n", task.ID)
	fmt.Fprintf(out, "status:    %s\n", task.Status)
	fmt.Fprintf(out, "priority:  %s\n", task.Priority)
	if task.DueDate != nil {
		due := task.DueDate.Local().Format(dueLayout)
		if model.IsOverdue(*task.DueDate, time.Now()) {
			due += " (overdue)"
		}
		fmt.Fprintf(out, "due:       %s\n", due)
	}
	fmt.Fprintf(out, "tags:      %s\n", tagNames(task.Tags))
	fmt.Fprintf(out, "created:   %s\n", task.CreatedAt.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(out, "updated:   %s\n", task.UpdatedAt.Local().Format("2006-01-02 15:04"))
	if task.Description != "" {
		fmt.Fprintf(out, "\n%s\n", task.Description)
	}
	return nil
}

func runTasksAdd(cmd *cobra.Command, args []string) error {
	e, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	input := model.TaskInput{Title: strings.Join(args, " ")}
	input.Description, _ = cmd.Flags().GetString("description")

	priority, _ := cmd.Flags().GetString("priority")
	input.Priority = model.Priority(strings.ToUpper(strings.TrimSpace(priority)))
	status, _ := cmd.Flags().GetString("status")
	input.Status = model.Status(strings.ToUpper(strings.TrimSpace(status)))

	due, _ := cmd.Flags().GetString("due")
	if input.DueDate, err = parseDue(due); err != nil {
		return err
	}
	names, _ := cmd.Flags().GetString("tags")
	if input.TagIDs, err = tagIDs(e, names); err != nil {
		return err
	}

	task, err := e.App.Tasks.Create(cmd.Context(), input)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created task %s\n", task.ID)
	return nil
}

// updatePatch holds only the flags the user set.
func updatePatch(cmd *cobra.Command, e *env) (model.Patch, error) {
	flags := cmd.Flags()
	patch := model.Patch{}

	for _, name := range []string{"title", "description"} {
		if flags.Changed(name) {
			value, _ := flags.GetString(name)
			patch[name] = value
		}
	}
	if flags.Changed("priority") {
		value, _ := flags.GetString("priority")
		patch["priority"] = model.Priority(strings.ToUpper(strings.TrimSpace(value)))
	}
	if flags.Changed("status") {
		value, _ := flags.GetString("status")
		patch["status"] = model.Status(strings.ToUpper(strings.TrimSpace(value)))
	}
	if flags.Changed("due") {
		value, _ := flags.GetString("due")
		due, err := parseDue(value)
		if err != nil {
			return nil, err
		}
		if due == nil {
			patch["dueDate"] = nil
		} else {
			patch["dueDate"] = due.Format(time.RFC3339)
		}
	}
	if flags.Changed("tags") {
		value, _ := flags.GetString("tags")
		ids, err := tagIDs(e, value)
		if err != nil {
			return nil, err
		}
		patch["tagIds"] = ids
	}
	return patch, nil
}

func runTasksUpdate(cmd *cobra.Command, args []string) error {
	e, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	patch, err := updatePatch(cmd, e)
	if err != nil {
		return err
	}
	if len(patch) == 0 {
		return errors.New("nothing to update, pass at least one field flag")
	}

	task, err := e.App.Tasks.Update(cmd.Context(), args[0], patch)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated task %s\n", task.ID)
	return nil
}

func runTasksDone(cmd *cobra.Command, args []string) error {
	e, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	task, err := e.App.Tasks.Update(cmd.Context(), args[0], model.Patch{"status": model.StatusCompleted})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Completed %q\n", task.Title)
	return nil
}

func runTasksRm(cmd *cobra.Command, args []string) error {
	e, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.App.Tasks.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", args[0])
	return nil
}

func runTasksExport(cmd *cobra.Command, _ []string) error {
	e, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	tasks, err := fetchTasks(cmd, e)
	if err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("out")
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.Tasks(file, tasks); err != nil {
		_ = file.Close()
		return fmt.Errorf("export tasks: %w", err)
	}
	if err := file.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d tasks to %s\n", len(tasks), path)
	return nil
}
