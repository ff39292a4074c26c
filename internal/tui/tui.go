package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"
	"github.com/rs/zerolog"

	"github.com/Joseda-hg/taskdock/internal/model"
	"github.com/Joseda-hg/taskdock/internal/state"
)

const (
	viewHeader    = "header"
	viewFooter    = "footer"
	viewOpen      = "open"
	viewClosed    = "closed"
	viewTags      = "tags"
	viewDetail    = "detail"
	viewSearch    = "search"
	viewForm      = "form"
	viewHelp      = "help"
	viewTagCreate = "tagCreate"
	viewLogin     = "login"
)

type Options struct {
	Session  *state.Session
	Tasks    *state.Tasks
	Tags     *state.Tags
	PageSize int
	Logger   zerolog.Logger
}

type UI struct {
	ctx     context.Context
	session *state.Session
	tasks   *state.Tasks
	tags    *state.Tags
	log     zerolog.Logger
	now     func() time.Time

	// dispatch runs fn on the UI goroutine. Nil runs async work inline.
	dispatch func(fn func())

	pageSize int
	page     int
	filter   model.FilterState
	userID   string

	open       []model.Task
	closed     []model.Task
	tagEntries []tagCountEntry

	selectedOpen   int
	selectedClosed int
	selectedTags   int
	focus          string

	login           *loginState
	form            *formState
	formEditor      *formEditor
	formTagIndex    int
	searchActive    bool
	helpActive      bool
	tagCreateActive bool
	pending         int
	status          string
}

type formState struct {
	task   *model.Task
	fields []formField
	index  int
}

type formEditor struct {
	ui *UI
}

func newUI(ctx context.Context, opts Options) *UI {
	ui := &UI{
		ctx:      ctx,
		session:  opts.Session,
		tasks:    opts.Tasks,
		tags:     opts.Tags,
		log:      opts.Logger,
		now:      time.Now,
		pageSize: opts.PageSize,
		page:     1,
		filter:   model.NewFilterState(),
		focus:    viewOpen,
	}
	ui.formEditor = &formEditor{ui: ui}
	return ui
}

// Run owns the terminal until the user quits. The session is validated in
// the background so the first frame does not wait on the network.
func Run(ctx context.Context, opts Options) error {
	gui, err := gocui.NewGui(gocui.NewGuiOpts{OutputMode: gocui.OutputNormal})
	if err != nil {
		return err
	}
	defer gui.Close()

	ui := newUI(ctx, opts)
	ui.dispatch = func(fn func()) {
		gui.Update(func(*gocui.Gui) error {
			fn()
			return nil
		})
	}
	gui.Mouse = true

	gui.SetManagerFunc(ui.layout)
	if err := ui.bindKeys(gui); err != nil {
		return err
	}

	redraw := func() {
		gui.Update(func(*gocui.Gui) error { return nil })
	}
	defer ui.tasks.Subscribe(redraw)()
	defer ui.tags.Subscribe(redraw)()
	defer ui.session.OnChange(func(state.AuthChange) { redraw() })()

	go func() {
		ui.session.Init(ctx)
		redraw()
	}()

	if err := gui.MainLoop(); err != nil && !goerrors.Is(err, gocui.ErrQuit) {
		ui.log.Error().Str("stack", goerrors.Wrap(err, 0).ErrorStack()).Msg("ui stopped")
		return err
	}
	return nil
}

// busy reports whether any async call is still running.
func (u *UI) busy() bool {
	return u.pending > 0
}

// async runs work off the UI goroutine and hands its result back on it.
// Without a dispatcher both run inline.
func (u *UI) async(work func() error, done func(error)) {
	if u.dispatch == nil {
		done(work())
		return
	}
	u.pending++
	go func() {
		err := work()
		u.dispatch(func() {
			u.pending--
			done(err)
		})
	}()
}

func (u *UI) bindKeys(gui *gocui.Gui) error {
	if err := gui.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, u.quit); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'q', gocui.ModNone, u.quitKey); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'r', gocui.ModNone, u.reload); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'g', gocui.ModNone, u.clearFilters); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'p', gocui.ModNone, u.cyclePriority); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 's', gocui.ModNone, u.cycleStatus); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'n', gocui.ModNone, u.nextPage); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'N', gocui.ModNone, u.prevPage); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'a', gocui.ModNone, u.addTask); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'e', gocui.ModNone, u.editTask); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'd', gocui.ModNone, u.deleteTask); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'c', gocui.ModNone, u.toggleInProgress); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'x', gocui.ModNone, u.toggleCompleted); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'L', gocui.ModNone, u.logout); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", '/', gocui.ModNone, u.startSearch); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", '?', gocui.ModNone, u.toggleHelp); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", gocui.KeyTab, gocui.ModNone, u.switchFocus); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", '1', gocui.ModNone, u.focusOpen); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", '2', gocui.ModNone, u.focusClosed); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", '3', gocui.ModNone, u.focusTags); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", '4', gocui.ModNone, u.focusDetail); err != nil {
		return err
	}
	for _, name := range []string{viewOpen, viewClosed, viewTags} {
		if err := gui.SetKeybinding(name, gocui.KeyArrowDown, gocui.ModNone, u.moveDown); err != nil {
			return err
		}
		if err := gui.SetKeybinding(name, 'j', gocui.ModNone, u.moveDown); err != nil {
			return err
		}
		if err := gui.SetKeybinding(name, gocui.KeyArrowUp, gocui.ModNone, u.moveUp); err != nil {
			return err
		}
		if err := gui.SetKeybinding(name, 'k', gocui.ModNone, u.moveUp); err != nil {
			return err
		}
	}
	if err := gui.SetKeybinding(viewOpen, gocui.KeyEnter, gocui.ModNone, u.editTask); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewClosed, gocui.KeyEnter, gocui.ModNone, u.editTask); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTags, gocui.KeySpace, gocui.ModNone, u.toggleTagFilter); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTags, gocui.KeyEnter, gocui.ModNone, u.toggleTagFilter); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTags, 'a', gocui.ModNone, u.openTagCreate); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTags, 'd', gocui.ModNone, u.deleteTag); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewSearch, gocui.KeyEnter, gocui.ModNone, u.submitSearch); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewSearch, gocui.KeyEsc, gocui.ModNone, u.cancelSearch); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyEnter, gocui.ModNone, u.submitForm); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyCtrlJ, gocui.ModNone, u.submitForm); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyTab, gocui.ModNone, u.nextFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyBacktab, gocui.ModNone, u.prevFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyArrowDown, gocui.ModNone, u.nextFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyArrowUp, gocui.ModNone, u.prevFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyEsc, gocui.ModNone, u.cancelForm); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewLogin, gocui.KeyEnter, gocui.ModNone, u.submitLogin); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewLogin, gocui.KeyTab, gocui.ModNone, u.nextLoginField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewLogin, gocui.KeyBacktab, gocui.ModNone, u.prevLoginField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewLogin, gocui.KeyArrowDown, gocui.ModNone, u.nextLoginField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewLogin, gocui.KeyArrowUp, gocui.ModNone, u.prevLoginField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewHelp, gocui.KeyEsc, gocui.ModNone, u.closeHelp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewHelp, 'q', gocui.ModNone, u.closeHelp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewHelp, '?', gocui.ModNone, u.closeHelp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTagCreate, gocui.KeyEnter, gocui.ModNone, u.submitTagCreate); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTagCreate, gocui.KeyEsc, gocui.ModNone, u.cancelTagCreate); err != nil {
		return err
	}
	for _, name := range []string{viewOpen, viewClosed, viewTags} {
		viewName := name
		if err := gui.SetViewClickBinding(&gocui.ViewMouseBinding{ViewName: viewName, Key: gocui.MouseLeft, Handler: func(opts gocui.ViewMouseBindingOpts) error {
			return u.onListClick(gui, viewName, opts)
		}}); err != nil {
			return err
		}
	}
	return u.bindMouseScroll(gui)
}

func (u *UI) layout(gui *gocui.Gui) error {
	u.refresh()

	maxX, maxY := gui.Size()
	if maxX <= 0 || maxY <= 0 {
		return nil
	}

	headerView, err := gui.SetView(viewHeader, 0, 0, maxX-1, 1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	headerView.Frame = false
	headerView.Wrap = true
	headerView.FgColor = gocui.ColorDefault
	u.renderHeader(headerView)

	footerY1 := max(maxY-1, 1)
	footerY0 := max(footerY1-3, 1)
	footerView, err := gui.SetView(viewFooter, 0, footerY0, maxX-1, footerY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	footerView.Frame = false
	footerView.Wrap = true
	footerView.FgColor = gocui.ColorDefault | gocui.AttrDim
	footerView.BgColor = gocui.ColorDefault
	u.renderFooter(footerView)

	bodyTop := 2
	bodyBottom := footerY0 - 1
	if bodyBottom < bodyTop {
		return nil
	}

	layout := computeLayout(maxX, bodyBottom-bodyTop+1)
	leftX0 := 0
	leftX1 := leftX0 + layout.leftWidth - 1
	rightX0 := leftX1 + 1
	if rightX0 >= maxX {
		rightX0 = leftX1
	}
	rightX1 := maxX - 1

	openY0 := bodyTop
	openY1 := openY0 + layout.openHeight - 1
	closedY0 := openY1 + 1
	closedY1 := closedY0 + layout.closedHeight - 1
	tagsY0 := closedY1 + 1
	tagsY1 := bodyBottom

	openView, err := gui.SetView(viewOpen, leftX0, openY0, leftX1, openY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		openView.Title = "1 Open"
		openView.TitleColor = gocui.ColorRed
	}
	applyViewStyle(openView, u.focus == viewOpen, true)
	u.renderTaskList(openView, u.open, u.selectedOpen, u.focus == viewOpen)

	closedView, err := gui.SetView(viewClosed, leftX0, closedY0, leftX1, closedY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		closedView.Title = "2 Closed"
		closedView.TitleColor = gocui.ColorGreen
	}
	applyViewStyle(closedView, u.focus == viewClosed, true)
	u.renderTaskList(closedView, u.closed, u.selectedClosed, u.focus == viewClosed)

	tagsView, err := gui.SetView(viewTags, leftX0, tagsY0, leftX1, tagsY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		tagsView.Title = "3 Tags"
		tagsView.TitleColor = gocui.ColorCyan
	}
	applyViewStyle(tagsView, u.focus == viewTags, false)
	u.renderTags(tagsView)

	detailView, err := gui.SetView(viewDetail, rightX0, bodyTop, rightX1, bodyBottom, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		detailView.Title = "4 Detail"
		detailView.Wrap = true
	}
	applyViewStyle(detailView, u.focus == viewDetail, false)
	u.renderDetail(detailView)

	_, _ = gui.SetViewOnTop(viewHeader)
	_, _ = gui.SetViewOnTop(viewFooter)

	modals := []struct {
		name   string
		active bool
		show   func(*gocui.Gui) error
	}{
		{viewSearch, u.searchActive, u.showSearch},
		{viewForm, u.form != nil, u.showForm},
		{viewTagCreate, u.tagCreateActive, u.showTagCreate},
		{viewHelp, u.helpActive, u.showHelp},
		{viewLogin, u.login != nil, u.showLogin},
	}
	for _, modal := range modals {
		if modal.active {
			if err := modal.show(gui); err != nil {
				return err
			}
			continue
		}
		_ = gui.DeleteView(modal.name)
	}

	if !u.inputActive() {
		if current := gui.CurrentView(); current == nil || current.Name() != u.focus {
			_, _ = gui.SetCurrentView(u.focus)
		}
	}

	gui.Cursor = u.searchActive || u.form != nil || u.tagCreateActive || u.login != nil
	return nil
}

type layout struct {
	leftWidth    int
	openHeight   int
	closedHeight int
	tagsHeight   int
}

func computeLayout(width, height int) layout {
	safeWidth := max(width-2, 20)
	safeHeight := max(height, 8)

	leftWidth := safeWidth / 2
	if leftWidth < 30 {
		leftWidth = 30
	}
	if leftWidth > safeWidth-18 {
		leftWidth = safeWidth / 2
	}

	openHeight := max(int(float64(safeHeight)*0.5), 4)
	closedHeight := max(int(float64(safeHeight)*0.25), 3)
	tagsHeight := safeHeight - openHeight - closedHeight
	if tagsHeight < 3 {
		tagsHeight = 3
		closedHeight = max(safeHeight-openHeight-tagsHeight, 3)
	}

	return layout{
		leftWidth:    leftWidth,
		openHeight:   openHeight,
		closedHeight: closedHeight,
		tagsHeight:   tagsHeight,
	}
}

// refresh rebuilds the panes from the stores and follows the session: the
// login form opens when nobody is signed in and filters reset when the
// identity changes.
func (u *UI) refresh() {
	u.syncSession()

	visible := u.filter.Visible(u.tasks.Tasks())
	u.open, u.closed = splitTasks(visible)
	u.tagEntries = buildTagEntries(u.tags.Tags(), visible)

	u.selectedOpen = clampIndex(u.selectedOpen, len(u.open))
	u.selectedClosed = clampIndex(u.selectedClosed, len(u.closed))
	u.selectedTags = clampIndex(u.selectedTags, len(u.tagEntries))
	u.formTagIndex = clampIndex(u.formTagIndex, len(u.tagEntries))
}

func (u *UI) syncSession() {
	if u.session.Checking() {
		return
	}

	user, ok := u.session.User()
	if !ok {
		if u.login == nil {
			u.resetView()
			u.login = newLoginState()
		}
		u.userID = ""
		return
	}
	if user.ID == u.userID {
		return
	}

	u.resetView()
	u.userID = user.ID
	u.login = nil
	u.status = fmt.Sprintf("Signed in as %s", user.Email)
}

func (u *UI) resetView() {
	u.filter = model.NewFilterState()
	u.page = 1
	u.selectedOpen = 0
	u.selectedClosed = 0
	u.selectedTags = 0
	u.focus = viewOpen
	u.form = nil
	u.searchActive = false
	u.tagCreateActive = false
	u.helpActive = false
	u.status = ""
}

func clampIndex(index, length int) int {
	if index >= length {
		index = length - 1
	}
	return max(index, 0)
}

func (u *UI) fetchTasks() {
	query := u.filter.Query()
	query.Page = u.page
	query.Limit = u.pageSize
	u.async(func() error {
		u.tasks.Fetch(u.ctx, query)
		return nil
	}, func(error) {
		u.refresh()
	})
}

func (u *UI) renderHeader(view *gocui.View) {
	view.Clear()
	if u.session.Checking() {
		fmt.Fprint(view, "Checking session...")
		return
	}
	user, ok := u.session.User()
	if !ok {
		fmt.Fprint(view, "Not signed in")
		return
	}

	search := strings.TrimSpace(u.filter.Search)
	if search == "" {
		search = "type / to search"
	}
	tagsLabel := "none"
	if selected := u.selectedTagNames(); len(selected) > 0 {
		tagsLabel = strings.Join(selected, ",")
	}

	snapshot := u.tasks.Snapshot()
	pages := max(snapshot.Pagination.Pages, 1)
	fmt.Fprintf(view, "%s <%s> | Priority: %s | Status: %s | Search: %s | Tags: %s\n",
		user.Name, user.Email, filterLabel(u.filter.Priority), filterLabel(u.filter.Status), search, tagsLabel)
	fmt.Fprintf(view, "Page %d/%d | %d tasks", snapshot.Pagination.Page, pages, snapshot.Pagination.Total)
	if snapshot.Loading || u.tags.Loading() || u.busy() {
		fmt.Fprint(view, " | loading...")
	}
}

func (u *UI) renderFooter(view *gocui.View) {
	view.Clear()
	view.SetOrigin(0, 0)
	view.SetCursor(0, 0)

	if u.login != nil {
		fmt.Fprintln(view, "enter submit | tab/↑↓ field | space/←→ switch login/register | ctrl+c quit")
	} else {
		fmt.Fprintln(view, "a add | e edit | d delete | c in progress | x done | p priority | s status | / search | g clear")
		fmt.Fprintln(view, "space tag filter | n/N page | r reload | L logout | tab cycle | 1-4 panes | ? help | q quit")
	}
	if message := u.statusLine(); message != "" {
		fmt.Fprint(view, message)
	}
}

func (u *UI) statusLine() string {
	if u.status != "" {
		return u.status
	}
	if message := u.tasks.Err(); message != "" {
		return "Error: " + message
	}
	if message := u.tags.Err(); message != "" {
		return "Error: " + message
	}
	return ""
}

func (u *UI) renderTaskList(view *gocui.View, tasks []model.Task, selected int, focused bool) {
	view.Clear()
	now := u.now()
	for i, task := range tasks {
		prefix := " "
		if i == selected {
			if focused {
				prefix = ">"
			} else {
				prefix = "*"
			}
		}
		fmt.Fprintf(view, "%s %s\n", prefix, formatTaskSummary(task, now))
	}
	if focused {
		view.SetCursor(0, min(selected, len(tasks)-1))
	}
}

func (u *UI) renderTags(view *gocui.View) {
	view.Clear()
	for index, entry := range u.tagEntries {
		prefix := " "
		if index == u.selectedTags {
			prefix = ">"
		}
		marker := " "
		if u.filter.TagSelected(entry.ID) {
			marker = "x"
		}
		fmt.Fprintf(view, "%s [%s] %s (%d) %s\n", prefix, marker, entry.Name, entry.Count, entry.Color)
	}
	if u.focus == viewTags {
		view.SetCursor(0, min(u.selectedTags, len(u.tagEntries)-1))
	}
}

func (u *UI) renderDetail(view *gocui.View) {
	view.Clear()
	selected := u.selectedTask()
	if selected == nil {
		fmt.Fprint(view, "No task selected")
		return
	}

	now := u.now()
	lines := []string{
		selected.Title,
		fmt.Sprintf("Status: %s", selected.Status),
		fmt.Sprintf("Priority: %s", selected.Priority),
		fmt.Sprintf("Due: %s", formatDue(*selected, now)),
		fmt.Sprintf("Tags: %s", formatTags(selected.Tags)),
		fmt.Sprintf("Created: %s", selected.CreatedAt.Local().Format("2006-01-02 15:04")),
		fmt.Sprintf("Updated: %s", selected.UpdatedAt.Local().Format("2006-01-02 15:04")),
		"",
		selected.Description,
	}

	others := u.otherInProgress(selected.ID)
	if len(others) > 0 {
		lines = append(lines, "", "Also in progress:")
		for _, task := range others {
			lines = append(lines,
				fmt.Sprintf("- %s", task.Title),
				fmt.Sprintf("  Due: %s", formatDue(task, now)),
				fmt.Sprintf("  Tags: %s", formatTags(task.Tags)),
			)
		}
	}

	fmt.Fprint(view, strings.Join(lines, "\n"))
}

func (u *UI) otherInProgress(selectedID string) []model.Task {
	others := make([]model.Task, 0)
	for _, task := range u.open {
		if task.ID == selectedID || task.Status != model.StatusInProgress {
			continue
		}
		others = append(others, task)
	}
	return others
}

func (u *UI) selectedTask() *model.Task {
	switch u.focus {
	case viewClosed:
		if u.selectedClosed >= 0 && u.selectedClosed < len(u.closed) {
			return &u.closed[u.selectedClosed]
		}
	default:
		if u.selectedOpen >= 0 && u.selectedOpen < len(u.open) {
			return &u.open[u.selectedOpen]
		}
	}
	return nil
}

func (u *UI) selectedTagNames() []string {
	names := make([]string, 0, len(u.filter.SelectedTags))
	for _, tag := range u.tags.Tags() {
		if u.filter.TagSelected(tag.ID) {
			names = append(names, tag.Name)
		}
	}
	return names
}

func (u *UI) onListClick(gui *gocui.Gui, viewName string, opts gocui.ViewMouseBindingOpts) error {
	if u.inputActive() {
		return nil
	}
	view, err := gui.View(viewName)
	if err != nil {
		return nil
	}

	_, y0, _, _ := view.Dimensions()
	_, oy := view.Origin()
	row := max(opts.Y-y0-1+oy, 0)

	switch viewName {
	case viewOpen:
		u.selectedOpen = clampIndex(row, len(u.open))
	case viewClosed:
		u.selectedClosed = clampIndex(row, len(u.closed))
	case viewTags:
		u.selectedTags = clampIndex(row, len(u.tagEntries))
	default:
		return nil
	}
	return u.setFocus(gui, viewName)
}

func (u *UI) bindMouseScroll(gui *gocui.Gui) error {
	for _, name := range []string{viewOpen, viewClosed, viewTags, viewDetail} {
		if err := gui.SetKeybinding(name, gocui.MouseWheelUp, gocui.ModNone, u.scrollUp); err != nil {
			return err
		}
		if err := gui.SetKeybinding(name, gocui.MouseWheelDown, gocui.ModNone, u.scrollDown); err != nil {
			return err
		}
	}
	return nil
}

func (u *UI) scrollUp(gui *gocui.Gui, view *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if view == nil {
		view = gui.CurrentView()
	}
	if view != nil {
		view.ScrollUp(1)
	}
	return nil
}

func (u *UI) scrollDown(gui *gocui.Gui, view *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if view == nil {
		view = gui.CurrentView()
	}
	if view != nil {
		view.ScrollDown(1)
	}
	return nil
}

func (u *UI) switchFocus(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	switch u.focus {
	case viewOpen:
		u.focus = viewClosed
	case viewClosed:
		u.focus = viewTags
	case viewTags:
		u.focus = viewDetail
	default:
		u.focus = viewOpen
	}
	return nil
}

func (u *UI) focusOpen(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewOpen)
}

func (u *UI) focusClosed(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewClosed)
}

func (u *UI) focusTags(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewTags)
}

func (u *UI) focusDetail(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewDetail)
}

func (u *UI) setFocus(gui *gocui.Gui, name string) error {
	if u.inputActive() {
		return nil
	}
	u.focus = name
	if gui != nil {
		_, _ = gui.SetCurrentView(name)
	}
	return nil
}

func (u *UI) moveDown(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	switch u.focus {
	case viewOpen:
		if u.selectedOpen < len(u.open)-1 {
			u.selectedOpen++
		}
	case viewClosed:
		if u.selectedClosed < len(u.closed)-1 {
			u.selectedClosed++
		}
	case viewTags:
		if u.selectedTags < len(u.tagEntries)-1 {
			u.selectedTags++
		}
	}
	return nil
}

func (u *UI) moveUp(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	switch u.focus {
	case viewOpen:
		if u.selectedOpen > 0 {
			u.selectedOpen--
		}
	case viewClosed:
		if u.selectedClosed > 0 {
			u.selectedClosed--
		}
	case viewTags:
		if u.selectedTags > 0 {
			u.selectedTags--
		}
	}
	return nil
}

func (u *UI) reload(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.status = ""
	u.fetchTasks()
	u.async(func() error {
		u.tags.Fetch(u.ctx)
		return nil
	}, func(error) {
		u.refresh()
	})
	return nil
}

func (u *UI) clearFilters(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.filter = model.NewFilterState()
	u.page = 1
	u.status = ""
	u.fetchTasks()
	return nil
}

func (u *UI) cyclePriority(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.filter.Priority = cycleValue(priorityFilterOrder(), filterLabel(u.filter.Priority), 1)
	u.page = 1
	u.fetchTasks()
	return nil
}

func (u *UI) cycleStatus(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.filter.Status = cycleValue(statusFilterOrder(), filterLabel(u.filter.Status), 1)
	u.page = 1
	u.fetchTasks()
	return nil
}

func (u *UI) nextPage(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	pagination := u.tasks.Pagination()
	if pagination.Page >= pagination.Pages {
		return nil
	}
	u.page = pagination.Page + 1
	u.fetchTasks()
	return nil
}

func (u *UI) prevPage(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	pagination := u.tasks.Pagination()
	if pagination.Page <= 1 {
		return nil
	}
	u.page = pagination.Page - 1
	u.fetchTasks()
	return nil
}

func (u *UI) startSearch(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.searchActive = true
	return nil
}

func (u *UI) showSearch(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(30, maxX/2)
	height := 2
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewSearch, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "Search title and description"
		view.Wrap = true
		view.Clear()
		fmt.Fprint(view, u.filter.Search)
	}
	view.Editable = true
	view.Editor = gocui.DefaultEditor
	_, _ = gui.SetCurrentView(viewSearch)
	return nil
}

func (u *UI) submitSearch(_ *gocui.Gui, view *gocui.View) error {
	u.applySearch(view.Buffer())
	return nil
}

func (u *UI) applySearch(value string) {
	u.filter.Search = strings.TrimSpace(value)
	u.searchActive = false
	u.page = 1
	u.status = ""
	u.fetchTasks()
}

func (u *UI) cancelSearch(_ *gocui.Gui, _ *gocui.View) error {
	u.searchActive = false
	return nil
}

func (u *UI) toggleHelp(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() && !u.helpActive {
		return nil
	}
	u.helpActive = !u.helpActive
	return nil
}

func (u *UI) closeHelp(_ *gocui.Gui, _ *gocui.View) error {
	u.helpActive = false
	return nil
}

func (u *UI) showHelp(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(64, maxX/2)
	height := min(maxY-2, 28)
	x0 := (maxX - width) / 2
	y0 := max((maxY-height)/2, 0)

	view, err := gui.SetView(viewHelp, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "Help"
		view.Wrap = true
	}
	view.Clear()
	fmt.Fprint(view, helpText())
	_, _ = gui.SetCurrentView(viewHelp)
	return nil
}

func (u *UI) addTask(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	fields := buildFormFields(nil)
	if u.filter.Priority != model.FilterAll && u.filter.Priority != "" {
		fields[fieldPriority].Value = u.filter.Priority
	}
	u.form = &formState{fields: fields}
	u.formTagIndex = 0
	return nil
}

func (u *UI) editTask(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	task := *selected
	u.form = &formState{task: &task, fields: buildFormFields(&task)}
	u.formTagIndex = 0
	return nil
}

func (u *UI) showForm(gui *gocui.Gui) error {
	if u.form == nil {
		return nil
	}

	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	height := min(10, max(8, maxY/2))
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewForm, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Wrap = true
	}
	view.Title = "New Task"
	if u.form.task != nil {
		view.Title = "Edit Task"
	}
	view.Editable = true
	view.KeybindOnEdit = true
	view.Editor = u.formEditor
	u.renderForm(view)
	_, _ = gui.SetCurrentView(viewForm)
	return nil
}

// submitForm sends the form to the task store. The form stays open with the
// error in the status line when the store rejects it.
func (u *UI) submitForm(_ *gocui.Gui, _ *gocui.View) error {
	if u.form == nil || u.busy() {
		return nil
	}

	parsed, err := parseFormFields(u.form.fields, u.tags.Tags())
	if err != nil {
		u.status = err.Error()
		return nil
	}

	form := u.form
	u.status = "Saving..."
	u.async(func() error {
		if form.task == nil {
			_, err := u.tasks.Create(u.ctx, parsed.input())
			return err
		}
		_, err := u.tasks.Update(u.ctx, form.task.ID, parsed.patch(*form.task))
		return err
	}, func(err error) {
		if err != nil {
			u.status = err.Error()
			return
		}
		if u.form == form {
			u.form = nil
		}
		u.status = "Task saved"
		u.refresh()
	})
	return nil
}

func (u *UI) cancelForm(_ *gocui.Gui, _ *gocui.View) error {
	u.form = nil
	u.status = ""
	return nil
}

func (u *UI) nextFormField(_ *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index < len(u.form.fields)-1 {
		u.form.index++
	}
	u.renderForm(view)
	return nil
}

func (u *UI) prevFormField(_ *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index > 0 {
		u.form.index--
	}
	u.renderForm(view)
	return nil
}

func (u *UI) renderForm(view *gocui.View) {
	if u.form == nil || view == nil {
		return
	}
	view.Clear()
	for index, field := range u.form.fields {
		prefix := "  "
		if index == u.form.index {
			prefix = "> "
		}
		value := field.Value
		if index == fieldTags {
			if candidate := u.currentTagOption(); candidate != "" {
				value = fmt.Sprintf("%s [pick: %s]", value, candidate)
			}
		}
		fmt.Fprintf(view, "%s%s: %s\n", prefix, field.Label, value)
	}
	label := u.form.fields[u.form.index].Label + ": "
	cursorX := len([]rune(label)) + len([]rune(u.form.fields[u.form.index].Value)) + 2
	view.SetCursor(cursorX, u.form.index)
}

func (e *formEditor) Edit(view *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	ui := e.ui
	if ui == nil || ui.form == nil || view == nil {
		return false
	}
	index := ui.form.index
	field := &ui.form.fields[index]

	switch index {
	case fieldTags:
		switch key {
		case gocui.KeyArrowRight:
			ui.formTagIndex = min(ui.formTagIndex+1, len(ui.tagEntries)-1)
		case gocui.KeyArrowLeft:
			ui.formTagIndex = max(ui.formTagIndex-1, 0)
		case gocui.KeySpace:
			if candidate := ui.currentTagOption(); candidate != "" {
				field.Value = toggleTagName(field.Value, candidate)
			}
		}
		ui.renderForm(view)
		return true
	case fieldPriority, fieldStatus:
		order := priorityOrder()
		if index == fieldStatus {
			order = statusOrder()
		}
		switch key {
		case gocui.KeyArrowRight, gocui.KeySpace:
			field.Value = cycleValue(order, field.Value, 1)
		case gocui.KeyArrowLeft:
			field.Value = cycleValue(order, field.Value, -1)
		}
		ui.renderForm(view)
		return true
	}

	editText(field, key, ch, mod)
	ui.renderForm(view)
	return true
}

func editText(field *formField, key gocui.Key, ch rune, mod gocui.Modifier) {
	switch key {
	case gocui.KeyBackspace, gocui.KeyBackspace2:
		runes := []rune(field.Value)
		if len(runes) > 0 {
			field.Value = string(runes[:len(runes)-1])
		}
	case gocui.KeySpace:
		field.Value += " "
	case gocui.KeyCtrlU:
		field.Value = ""
	}

	if ch != 0 && ch != '\n' && ch != '\r' && mod == gocui.ModNone {
		field.Value += string(ch)
	}
}

func priorityOrder() []string {
	return priorityFilterOrder()[1:]
}

func statusOrder() []string {
	return statusFilterOrder()[1:]
}

func (u *UI) currentTagOption() string {
	if len(u.tagEntries) == 0 {
		return ""
	}
	u.formTagIndex = clampIndex(u.formTagIndex, len(u.tagEntries))
	return u.tagEntries[u.formTagIndex].Name
}

func (u *UI) toggleStatus(target model.Status) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}

	edited := *selected
	if edited.Status == target {
		edited.Status = model.StatusPending
	} else {
		edited.Status = target
	}
	u.async(func() error {
		_, err := u.tasks.Update(u.ctx, edited.ID, model.TaskPatch(edited))
		return err
	}, func(err error) {
		u.setResult(err, "")
	})
	return nil
}

func (u *UI) toggleInProgress(_ *gocui.Gui, _ *gocui.View) error {
	return u.toggleStatus(model.StatusInProgress)
}

func (u *UI) toggleCompleted(_ *gocui.Gui, _ *gocui.View) error {
	return u.toggleStatus(model.StatusCompleted)
}

func (u *UI) deleteTask(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	id, title := selected.ID, selected.Title
	u.async(func() error {
		return u.tasks.Delete(u.ctx, id)
	}, func(err error) {
		u.setResult(err, fmt.Sprintf("Deleted %q", title))
	})
	return nil
}

func (u *UI) setResult(err error, success string) {
	if err != nil {
		u.status = err.Error()
	} else {
		u.status = success
	}
	u.refresh()
}

func (u *UI) toggleTagFilter(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.focus != viewTags {
		return nil
	}
	if u.selectedTags < 0 || u.selectedTags >= len(u.tagEntries) {
		return nil
	}
	u.filter.ToggleTag(u.tagEntries[u.selectedTags].ID)
	u.refresh()
	return nil
}

func (u *UI) openTagCreate(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.focus != viewTags {
		return nil
	}
	u.tagCreateActive = true
	return nil
}

func (u *UI) showTagCreate(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(40, maxX/3)
	height := 2
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewTagCreate, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "New Tag (name [#color])"
		view.Wrap = true
		view.Clear()
	}
	view.Editable = true
	view.Editor = gocui.DefaultEditor
	_, _ = gui.SetCurrentView(viewTagCreate)
	return nil
}

func (u *UI) submitTagCreate(_ *gocui.Gui, view *gocui.View) error {
	return u.createTag(view.Buffer())
}

func (u *UI) createTag(value string) error {
	if !u.tagCreateActive || u.busy() {
		return nil
	}
	input := parseTagInput(value)
	if input.Name == "" {
		u.tagCreateActive = false
		return nil
	}
	u.async(func() error {
		_, err := u.tags.Create(u.ctx, input)
		return err
	}, func(err error) {
		if err == nil {
			u.tagCreateActive = false
		}
		u.setResult(err, fmt.Sprintf("Created tag %q", input.Name))
	})
	return nil
}

func (u *UI) cancelTagCreate(_ *gocui.Gui, _ *gocui.View) error {
	u.tagCreateActive = false
	return nil
}

// deleteTag removes the selected tag and reloads the page, since the server
// detaches it from every task.
func (u *UI) deleteTag(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.focus != viewTags {
		return nil
	}
	if u.selectedTags < 0 || u.selectedTags >= len(u.tagEntries) {
		return nil
	}
	entry := u.tagEntries[u.selectedTags]
	u.async(func() error {
		return u.tags.Delete(u.ctx, entry.ID)
	}, func(err error) {
		if err != nil {
			u.setResult(err, "")
			return
		}
		if u.filter.TagSelected(entry.ID) {
			u.filter.ToggleTag(entry.ID)
		}
		u.status = fmt.Sprintf("Deleted tag %q", entry.Name)
		u.fetchTasks()
	})
	return nil
}

func (u *UI) logout(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if err := u.session.Logout(); err != nil {
		u.status = err.Error()
		return nil
	}
	u.refresh()
	return nil
}

func (u *UI) inputActive() bool {
	return u.searchActive || u.form != nil || u.helpActive || u.tagCreateActive || u.login != nil
}

func (u *UI) quitKey(gui *gocui.Gui, view *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	return u.quit(gui, view)
}

func (u *UI) quit(_ *gocui.Gui, _ *gocui.View) error {
	return gocui.ErrQuit
}

func helpText() string {
	return strings.Join([]string{
		"Navigation:",
		"  Tab cycle panes | 1 Open | 2 Closed | 3 Tags | 4 Detail",
		"  j/k or arrows move selection | enter edit task",
		"  mouse click to focus/select | mouse wheel scrolls hovered pane",
		"",
		"Tasks:",
		"  a add | e edit | d delete",
		"  c toggle in progress | x toggle completed",
		"  enter save (form) | tab next field | esc cancel",
		"",
		"Filters:",
		"  p cycle priority | s cycle status | / search | g clear filters",
		"  n next page | N previous page | r reload",
		"",
		"Tags:",
		"  space toggle tag filter (Tags pane)",
		"  a add tag | d delete tag (Tags pane)",
		"  space/left/right pick tags (form)",
		"",
		"Other:",
		"  L log out | ? help | esc/q close help | q quit",
	}, "\n")
}

func applyViewStyle(view *gocui.View, focused bool, highlight bool) {
	view.Frame = true
	view.Highlight = focused && highlight
	view.HighlightInactive = false
	view.SelBgColor = gocui.ColorBlue
	view.SelFgColor = gocui.ColorBlack
	view.InactiveViewSelBgColor = gocui.ColorDefault
	if focused {
		view.FrameColor = gocui.ColorCyan
		view.TitleColor = gocui.ColorCyan
	} else {
		view.FrameColor = gocui.ColorDefault
	}
}
