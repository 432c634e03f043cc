package tui

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"

	"github.com/Joseda-hg/lazydesk/internal/access"
	"github.com/Joseda-hg/lazydesk/internal/filter"
	"github.com/Joseda-hg/lazydesk/internal/helpdesk"
	"github.com/Joseda-hg/lazydesk/internal/model"
)

const (
	viewHeader  = "header"
	viewFooter  = "footer"
	viewFilters = "filters"
	viewTasks   = "tasks"
	viewDetail  = "detail"
	viewPrompt  = "prompt"
	viewForm    = "form"
	viewHelp    = "help"
)

type UI struct {
	service   *helpdesk.Service
	principal *access.Principal
	gui       *gocui.Gui

	filters  []model.Filter
	tasks    []model.Task
	comments []model.Comment

	// expression, when set, replaces the selected saved filter.
	expression string
	page       int
	total      *int
	pageCount  *int

	selectedFilter int
	selectedTask   int
	focus          string

	form         *formState
	formEditor   *formEditor
	promptActive bool
	helpActive   bool
	status       string
}

type formState struct {
	fields []formField
	index  int
}

type formEditor struct {
	ui *UI
}

func newUI(service *helpdesk.Service, principal *access.Principal) *UI {
	ui := &UI{
		service:   service,
		principal: principal,
		focus:     viewFilters,
		page:      1,
	}
	ui.formEditor = &formEditor{ui: ui}
	return ui
}

// Run opens the console for principal until the user quits.
func Run(service *helpdesk.Service, principal *access.Principal) error {
	gui, err := gocui.NewGui(gocui.NewGuiOpts{OutputMode: gocui.OutputNormal})
	if err != nil {
		return err
	}
	defer gui.Close()

	ui := newUI(service, principal)
	ui.gui = gui

	gui.SetManagerFunc(ui.layout)
	if err := ui.bindKeys(gui); err != nil {
		return err
	}
	if err := ui.loadFilters(); err != nil {
		return err
	}

	if err := gui.MainLoop(); err != nil && err != gocui.ErrQuit {
		return err
	}

	return nil
}

// actionKeys maps single-key shortcuts to console actions.
var actionKeys = map[rune]string{
	'q': "quit",
	'r': "reload",
	'g': "clear-expression",
	'/': "expression",
	'?': "help",
	'n': "save",
	'm': "remember",
	'a': "toggle-active",
	'd': "delete",
	']': "next-page",
	'[': "prev-page",
	'1': "focus-filters",
	'2': "focus-tasks",
}

func (u *UI) actions() map[string]func(*gocui.Gui, *gocui.View) error {
	return map[string]func(*gocui.Gui, *gocui.View) error{
		"quit":             u.quit,
		"reload":           u.reload,
		"clear-expression": u.clearExpression,
		"expression":       u.startPrompt,
		"help":             u.toggleHelp,
		"save":             u.newFilter,
		"remember":         u.rememberFilter,
		"toggle-active":    u.toggleFilterActive,
		"delete":           u.deleteFilter,
		"next-page":        u.nextPage,
		"prev-page":        u.prevPage,
		"focus-filters":    u.focusFilters,
		"focus-tasks":      u.focusTasks,
	}
}

func (u *UI) bindKeys(gui *gocui.Gui) error {
	actions := u.actions()
	for key, action := range actionKeys {
		handler, ok := actions[action]
		if !ok {
			return fmt.Errorf("no handler for action %q", action)
		}
		if err := gui.SetKeybinding("", key, gocui.ModNone, handler); err != nil {
			return err
		}
	}
	if err := gui.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, u.quit); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", gocui.KeyTab, gocui.ModNone, u.switchFocus); err != nil {
		return err
	}

	for _, name := range []string{viewFilters, viewTasks} {
		for _, key := range []any{gocui.KeyArrowDown, 'j'} {
			if err := gui.SetKeybinding(name, key, gocui.ModNone, u.moveDown); err != nil {
				return err
			}
		}
		for _, key := range []any{gocui.KeyArrowUp, 'k'} {
			if err := gui.SetKeybinding(name, key, gocui.ModNone, u.moveUp); err != nil {
				return err
			}
		}
	}

	if err := gui.SetKeybinding(viewPrompt, gocui.KeyEnter, gocui.ModNone, u.submitPrompt); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewPrompt, gocui.KeyEsc, gocui.ModNone, u.cancelPrompt); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyEnter, gocui.ModNone, u.submitForm); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyEsc, gocui.ModNone, u.cancelForm); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyTab, gocui.ModNone, u.nextFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyArrowDown, gocui.ModNone, u.nextFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyArrowUp, gocui.ModNone, u.prevFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewHelp, gocui.KeyEsc, gocui.ModNone, u.toggleHelp); err != nil {
		return err
	}
	return nil
}

func (u *UI) layout(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	if maxX <= 0 || maxY <= 0 {
		return nil
	}

	headerView, err := gui.SetView(viewHeader, 0, 0, maxX-1, 0, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	headerView.Frame = false
	headerView.Wrap = true
	headerView.FgColor = gocui.ColorDefault
	u.renderHeader(headerView)

	footerY1 := max(maxY-2, 1)
	footerY0 := max(footerY1-2, 1)
	footerView, err := gui.SetView(viewFooter, 0, footerY0, maxX-1, footerY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	footerView.Frame = false
	footerView.Wrap = true
	footerView.FgColor = gocui.ColorDefault | gocui.AttrDim
	footerView.BgColor = gocui.ColorDefault
	u.renderFooter(footerView)

	bodyTop := 1
	bodyBottom := footerY0 - 1
	if bodyBottom < bodyTop {
		return nil
	}

	l := computeLayout(maxX, bodyBottom-bodyTop+1)
	leftX1 := l.leftWidth - 1
	rightX0 := min(leftX1+1, maxX-1)
	tasksY1 := bodyTop + l.tasksHeight - 1

	filtersView, err := gui.SetView(viewFilters, 0, bodyTop, leftX1, bodyBottom, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		filtersView.Title = "1 Filters"
		filtersView.TitleColor = gocui.ColorYellow
	}
	applyViewStyle(filtersView, u.focus == viewFilters, true)
	u.renderFilters(filtersView)

	tasksView, err := gui.SetView(viewTasks, rightX0, bodyTop, maxX-1, tasksY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	tasksView.Title = u.tasksTitle()
	applyViewStyle(tasksView, u.focus == viewTasks, true)
	u.renderTasks(tasksView)

	detailView, err := gui.SetView(viewDetail, rightX0, tasksY1+1, maxX-1, bodyBottom, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		detailView.Title = "Task"
		detailView.Wrap = true
	}
	applyViewStyle(detailView, false, false)
	u.renderDetail(detailView)

	_, _ = gui.SetViewOnTop(viewHeader)
	_, _ = gui.SetViewOnTop(viewFooter)

	if u.promptActive {
		if err := u.showPrompt(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewPrompt)
	}

	if u.form != nil {
		if err := u.showForm(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewForm)
	}

	if u.helpActive {
		if err := u.showHelp(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewHelp)
	}

	if gui.CurrentView() == nil {
		_, _ = gui.SetCurrentView(u.focus)
	}

	gui.Cursor = u.promptActive || u.form != nil

	return nil
}

type layout struct {
	leftWidth   int
	tasksHeight int
}

func computeLayout(width, height int) layout {
	safeWidth := max(width-2, 20)
	safeHeight := max(height, 8)

	leftWidth := safeWidth / 3
	if leftWidth < 26 {
		leftWidth = 26
	}
	if leftWidth > safeWidth-18 {
		leftWidth = safeWidth / 2
	}

	tasksHeight := int(float64(safeHeight) * 0.6)
	if tasksHeight < 4 {
		tasksHeight = 4
	}
	if safeHeight-tasksHeight < 4 {
		tasksHeight = max(safeHeight-4, 4)
	}

	return layout{leftWidth: leftWidth, tasksHeight: tasksHeight}
}

// loadFilters refreshes every filter the principal can list, active ones
// first, then the task pane.
func (u *UI) loadFilters() error {
	ctx := context.Background()
	active, err := u.service.ListFilters(ctx, u.principal, url.Values{"limit": {"999"}})
	if err != nil {
		return err
	}
	inactive, err := u.service.ListFilters(ctx, u.principal, url.Values{"limit": {"999"}, "isActive": {"FALSE"}})
	if err != nil {
		return err
	}
	// Remembered filters match both listings.
	seen := make(map[int64]bool, len(active.Data))
	u.filters = active.Data
	for _, f := range active.Data {
		seen[f.ID] = true
	}
	for _, f := range inactive.Data {
		if !seen[f.ID] {
			u.filters = append(u.filters, f)
		}
	}
	if u.selectedFilter >= len(u.filters) {
		u.selectedFilter = max(len(u.filters)-1, 0)
	}
	return u.loadTasks()
}

func (u *UI) loadTasks() error {
	params := url.Values{"page": {strconv.Itoa(u.page)}}

	var (
		page helpdesk.Page[model.Task]
		err  error
	)
	ctx := context.Background()
	switch selected := u.selectedFilterEntry(); {
	case u.expression != "":
		page, err = u.service.ListTasksForExpression(ctx, u.principal, u.expression, params)
	case selected != nil:
		page, err = u.service.ListTasksForFilter(ctx, u.principal, selected.ID, params)
	default:
		page, err = u.service.ListTasks(ctx, u.principal, params)
	}
	if err != nil {
		u.tasks = nil
		u.total = nil
		u.pageCount = nil
		u.comments = nil
		u.status = err.Error()
		return nil
	}

	u.tasks = page.Data
	u.total = page.Total
	u.pageCount = page.PageCount
	if u.selectedTask >= len(u.tasks) {
		u.selectedTask = max(len(u.tasks)-1, 0)
	}
	return u.loadComments()
}

func (u *UI) loadComments() error {
	task := u.selectedTaskEntry()
	if task == nil {
		u.comments = nil
		return nil
	}
	comments, err := u.service.ListComments(context.Background(), u.principal, task.ID)
	if err != nil {
		u.comments = nil
		u.status = err.Error()
		return nil
	}
	u.comments = comments
	return nil
}

func (u *UI) selectedFilterEntry() *model.Filter {
	if u.selectedFilter >= 0 && u.selectedFilter < len(u.filters) {
		return &u.filters[u.selectedFilter]
	}
	return nil
}

func (u *UI) selectedTaskEntry() *model.Task {
	if u.selectedTask >= 0 && u.selectedTask < len(u.tasks) {
		return &u.tasks[u.selectedTask]
	}
	return nil
}

func (u *UI) renderHeader(view *gocui.View) {
	view.Clear()
	source := "all tasks"
	if u.expression != "" {
		source = "expression " + u.expression
	} else if f := u.selectedFilterEntry(); f != nil {
		source = fmt.Sprintf("filter %q (%s)", f.Title, f.Expression)
	}
	fmt.Fprintf(view, "User: %s | Showing: %s", u.principal.Username, source)
}

func (u *UI) renderFooter(view *gocui.View) {
	view.Clear()
	view.SetOrigin(0, 0)
	view.SetCursor(0, 0)

	fmt.Fprintln(view, "/ expression | g clear | n save filter | m remember | a (de)activate | d delete | ] [ page")
	fmt.Fprintln(view, "tab cycle | 1-2 panes | r reload | ? help | q quit")
	if u.status != "" {
		fmt.Fprint(view, u.status)
	}
}

func (u *UI) tasksTitle() string {
	if u.total == nil {
		return fmt.Sprintf("2 Tasks (%d)", len(u.tasks))
	}
	return fmt.Sprintf("2 Tasks (%d) page %d/%d", *u.total, u.page, max(*u.pageCount, 1))
}

func (u *UI) renderFilters(view *gocui.View) {
	view.Clear()
	focused := u.focus == viewFilters
	for i, f := range u.filters {
		prefix := " "
		if i == u.selectedFilter && u.expression == "" {
			if focused {
				prefix = ">"
			} else {
				prefix = "*"
			}
		}
		fmt.Fprintf(view, "%s %s\n", prefix, formatFilterSummary(f, u.principal.UserID))
	}
	if focused {
		view.SetCursor(0, min(u.selectedFilter, len(u.filters)-1))
	}
}

func (u *UI) renderTasks(view *gocui.View) {
	view.Clear()
	focused := u.focus == viewTasks
	for i, task := range u.tasks {
		prefix := " "
		if i == u.selectedTask {
			if focused {
				prefix = ">"
			} else {
				prefix = "*"
			}
		}
		fmt.Fprintf(view, "%s %s\n", prefix, formatTaskSummary(task))
	}
	if focused {
		view.SetCursor(0, min(u.selectedTask, len(u.tasks)-1))
	}
}

func (u *UI) renderDetail(view *gocui.View) {
	view.Clear()
	task := u.selectedTaskEntry()
	if task == nil {
		fmt.Fprint(view, "No task selected")
		return
	}
	fmt.Fprint(view, strings.Join(taskDetailLines(*task, u.comments), "\n"))
}

func (u *UI) switchFocus(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.focus == viewFilters {
		return u.setFocus(gui, viewTasks)
	}
	return u.setFocus(gui, viewFilters)
}

func (u *UI) focusFilters(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewFilters)
}

func (u *UI) focusTasks(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewTasks)
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
	case viewFilters:
		if u.selectedFilter < len(u.filters)-1 {
			u.selectedFilter++
			return u.selectFilter()
		}
	case viewTasks:
		if u.selectedTask < len(u.tasks)-1 {
			u.selectedTask++
			return u.loadComments()
		}
	}
	return nil
}

func (u *UI) moveUp(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	switch u.focus {
	case viewFilters:
		if u.selectedFilter > 0 {
			u.selectedFilter--
			return u.selectFilter()
		}
	case viewTasks:
		if u.selectedTask > 0 {
			u.selectedTask--
			return u.loadComments()
		}
	}
	return nil
}

// selectFilter switches the task pane to the highlighted saved filter.
func (u *UI) selectFilter() error {
	u.expression = ""
	u.page = 1
	u.selectedTask = 0
	u.status = ""
	return u.loadTasks()
}

func (u *UI) nextPage(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.pageCount == nil || u.page >= *u.pageCount {
		return nil
	}
	u.page++
	u.selectedTask = 0
	return u.loadTasks()
}

func (u *UI) prevPage(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.page <= 1 {
		return nil
	}
	u.page--
	u.selectedTask = 0
	return u.loadTasks()
}

func (u *UI) reload(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.status = ""
	return u.loadFilters()
}

func (u *UI) clearExpression(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	return u.selectFilter()
}

// applyExpression runs an unsaved expression in the task pane. Parse
// failures stay in the status line and leave the pane untouched.
func (u *UI) applyExpression(expression string) error {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return u.selectFilter()
	}
	if _, err := filter.ParseExpression(expression); err != nil {
		u.status = err.Error()
		return nil
	}
	u.expression = expression
	u.page = 1
	u.selectedTask = 0
	u.status = ""
	return u.loadTasks()
}

func (u *UI) rememberFilter(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedFilterEntry()
	if selected == nil {
		return nil
	}
	remembered, err := u.service.RememberFilter(context.Background(), u.principal, selected.ID)
	if err != nil {
		u.status = err.Error()
		return nil
	}
	u.status = fmt.Sprintf("remembered %q", remembered.Title)
	return u.reloadKeepStatus()
}

func (u *UI) toggleFilterActive(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedFilterEntry()
	if selected == nil {
		return nil
	}
	updated, err := u.service.SetFilterActive(context.Background(), u.principal, selected.ID, !selected.Active)
	if err != nil {
		u.status = err.Error()
		return nil
	}
	if updated.Active {
		u.status = fmt.Sprintf("activated %q", updated.Title)
	} else {
		u.status = fmt.Sprintf("deactivated %q", updated.Title)
	}
	return u.reloadKeepStatus()
}

func (u *UI) deleteFilter(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.focus != viewFilters {
		return nil
	}
	selected := u.selectedFilterEntry()
	if selected == nil {
		return nil
	}
	if err := u.service.DeleteFilter(context.Background(), u.principal, selected.ID); err != nil {
		u.status = err.Error()
		return nil
	}
	u.status = fmt.Sprintf("deleted %q", selected.Title)
	return u.reloadKeepStatus()
}

func (u *UI) reloadKeepStatus() error {
	status := u.status
	if err := u.loadFilters(); err != nil {
		return err
	}
	if u.status == "" {
		u.status = status
	}
	return nil
}

func (u *UI) startPrompt(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.promptActive = true
	return nil
}

func (u *UI) showPrompt(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(40, maxX/2)
	height := 3
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewPrompt, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "Filter expression"
		view.Wrap = true
		view.Clear()
		fmt.Fprint(view, u.expression)
	}
	view.Editable = true
	view.Editor = gocui.DefaultEditor
	_, _ = gui.SetCurrentView(viewPrompt)
	return nil
}

func (u *UI) submitPrompt(gui *gocui.Gui, view *gocui.View) error {
	value := view.Buffer()
	u.promptActive = false
	u.closeOverlay(gui, viewPrompt)
	return u.applyExpression(value)
}

func (u *UI) cancelPrompt(gui *gocui.Gui, _ *gocui.View) error {
	u.promptActive = false
	u.closeOverlay(gui, viewPrompt)
	return nil
}

func (u *UI) newFilter(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	expression := u.expression
	if expression == "" {
		if f := u.selectedFilterEntry(); f != nil {
			expression = f.Expression
		}
	}
	u.form = &formState{fields: buildFormFields(expression)}
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
	view.Title = "Save Filter"
	view.Editable = true
	view.KeybindOnEdit = true
	view.Editor = u.formEditor
	u.renderForm(view)
	_, _ = gui.SetCurrentView(viewForm)
	return nil
}

func (u *UI) submitForm(gui *gocui.Gui, _ *gocui.View) error {
	if u.form == nil {
		return nil
	}

	input, err := parseFormFields(u.form.fields)
	if err != nil {
		u.status = err.Error()
		return nil
	}
	created, err := u.service.CreateFilter(context.Background(), u.principal, input)
	if err != nil {
		u.status = err.Error()
		return nil
	}

	u.form = nil
	u.closeOverlay(gui, viewForm)
	u.status = fmt.Sprintf("saved %q", created.Title)
	return u.reloadKeepStatus()
}

func (u *UI) cancelForm(gui *gocui.Gui, _ *gocui.View) error {
	u.form = nil
	u.closeOverlay(gui, viewForm)
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
		fmt.Fprintf(view, "%s%s: %s\n", prefix, field.Label, field.Value)
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
	field := &ui.form.fields[ui.form.index]

	if field.Toggle {
		switch key {
		case gocui.KeySpace, gocui.KeyArrowLeft, gocui.KeyArrowRight:
			field.Value = toggleValue(field.Value)
		}
		ui.renderForm(view)
		return true
	}

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

	if ch != 0 && ch != '\n' && ch != '\r' && mod == 0 {
		field.Value += string(ch)
	}

	ui.renderForm(view)
	return true
}

func (u *UI) toggleHelp(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() && !u.helpActive {
		return nil
	}
	u.helpActive = !u.helpActive
	return nil
}

func (u *UI) showHelp(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	height := 14
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

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

func (u *UI) closeOverlay(gui *gocui.Gui, name string) {
	if gui == nil {
		return
	}
	_ = gui.DeleteView(name)
	_, _ = gui.SetCurrentView(u.focus)
}

func (u *UI) inputActive() bool {
	return u.promptActive || u.form != nil || u.helpActive
}

func (u *UI) quit(_ *gocui.Gui, _ *gocui.View) error {
	return gocui.ErrQuit
}

func helpText() string {
	return strings.Join([]string{
		"Navigation:",
		"  Tab cycle panes | 1 Filters | 2 Tasks",
		"  j/k or arrows move selection",
		"  ] / [ next/previous page of tasks",
		"",
		"Filters:",
		"  / run an expression, e.g. status=1&assigned=current-user",
		"  g back to the selected saved filter",
		"  n save the current expression as a filter",
		"  m remember | a activate/deactivate | d delete (Filters pane)",
		"",
		"Other:",
		"  r reload | ? help | esc close help | q quit",
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
