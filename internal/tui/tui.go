package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"
	"unsafe"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"strider/internal/state"
	"strider/internal/ui"
)

// listItem adapts a model.Todo to bubbles/list.Item
type listItem struct {
	ID   string
	Text string
	Done bool
}

func (i listItem) TitleText() string {
	box := ui.BoxUnchecked
	if i.Done {
		box = ui.BoxChecked
	}
	return fmt.Sprintf("%s %s", box, i.Text)
}

// Implement list.Item interface
func (i listItem) Title() string       { return i.TitleText() }
func (i listItem) Description() string { return "" }
func (i listItem) FilterValue() string { return i.Text }

// refreshMsg tells the model to re-read the container snapshot. Remote
// calls run in command goroutines; the container applies optimistic
// changes and rollbacks, and every command lands here when it resolves.
type refreshMsg struct{}

type modelTUI struct {
	list list.Model
	lst  *state.List

	// Inline add
	adding bool
	ti     textinput.Model
	addErr string
}

// Custom delegate to control how items render (single line)
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, _ := item.(listItem)
	boxStyled := ui.Muted.Render(ui.BoxUnchecked)
	textStyled := it.Text
	if it.Done {
		boxStyled = ui.Success.Render(ui.BoxChecked)
		textStyled = ui.Done.Render(it.Text)
	}

	line := fmt.Sprintf("%s %s", boxStyled, textStyled)
	prefix := "  "
	if index == m.Index() {
		prefix = ui.Selected.Render("> ")
	}
	fmt.Fprintln(w, prefix+line)
}

// Run starts the Bubble Tea list over the container. The container is
// loaded on startup and every mutation goes through it, so quitting loses
// nothing: the server already holds the truth.
func Run(lst *state.List) error {
	l := list.New(nil, itemDelegate{}, 0, 0)
	l.Title = "Todos"
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(false)
	l.Styles.Title = ui.Title
	l.Styles.HelpStyle = ui.Help
	l.Styles.PaginationStyle = ui.Help
	l.SetStatusBarItemName("todo", "todos")

	// Extend help with our bindings
	binds := []key.Binding{
		key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter")),
		key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear done")),
		key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	}
	l.AdditionalShortHelpKeys = func() []key.Binding { return binds }
	l.AdditionalFullHelpKeys = func() []key.Binding { return binds }

	m := modelTUI{list: l, lst: lst}
	m.ti = textinput.New()
	m.ti.Prompt = "> "
	m.ti.Placeholder = "New todo..."
	m.ti.CharLimit = 200

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m modelTUI) Init() tea.Cmd {
	return m.opCmd(m.lst.Load)
}

// opCmd runs a remote operation off the Update loop and reports back.
// Errors stay inside the container; the refresh picks them up.
func (m modelTUI) opCmd(op func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		_ = op(context.Background())
		return refreshMsg{}
	}
}

// refreshSoon repaints shortly after dispatch so optimistic changes show
// before the remote call resolves.
func refreshSoon() tea.Cmd {
	return tea.Tick(20*time.Millisecond, func(time.Time) tea.Msg { return refreshMsg{} })
}

func (m modelTUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(refreshMsg); ok {
		m.syncItems()
		return m, nil
	}

	// add mode
	if m.adding {
		var cmd tea.Cmd
		switch x := msg.(type) {
		case tea.KeyMsg:
			switch x.String() {
			case "enter":
				text := strings.TrimSpace(m.ti.Value())
				if text == "" {
					m.addErr = "Todo text cannot be empty"
					return m, nil
				}
				m.ti.SetValue("")
				m.ti.Blur()
				m.adding = false
				m.lst.SetInput(text)
				return m, m.opCmd(func(ctx context.Context) error {
					return m.lst.Add(ctx, text)
				})
			case "esc":
				m.adding = false
				m.ti.SetValue("")
				m.ti.Blur()
				return m, nil
			}
		}
		m.ti, cmd = m.ti.Update(msg)
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc":
			return m, tea.Quit
		case " ":
			if id, ok := m.selectedID(); ok {
				return m, tea.Batch(m.opCmd(func(ctx context.Context) error {
					return m.lst.Toggle(ctx, id)
				}), refreshSoon())
			}
			return m, nil
		case "d":
			if id, ok := m.selectedID(); ok {
				return m, tea.Batch(m.opCmd(func(ctx context.Context) error {
					return m.lst.Delete(ctx, id)
				}), refreshSoon())
			}
			return m, nil
		case "a":
			m.adding = true
			m.addErr = ""
			m.ti.SetValue("")
			m.ti.Focus()
			return m, nil
		case "f":
			m.lst.SetFilter(m.lst.Filter().Next())
			m.syncItems()
			return m, nil
		case "c":
			m.lst.ClearCompleted()
			m.syncItems()
			return m, nil
		case "r":
			return m, m.opCmd(m.lst.Load)
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *modelTUI) selectedID() (string, bool) {
	i := m.list.Index()
	if i < 0 || i >= len(m.list.Items()) {
		return "", false
	}
	li, ok := m.list.Items()[i].(listItem)
	return li.ID, ok
}

// syncItems rebuilds the visible list from the container snapshot.
func (m *modelTUI) syncItems() {
	snap := m.lst.Snapshot()
	items := make([]list.Item, 0, len(snap.Todos))
	for _, t := range snap.Todos {
		if !snap.Filter.Match(t) {
			continue
		}
		items = append(items, listItem{ID: t.ID, Text: t.Text, Done: t.Done})
	}
	m.list.SetItems(items)

	done := 0
	for _, t := range snap.Todos {
		if t.Done {
			done++
		}
	}
	m.list.Title = fmt.Sprintf("%s   %s %d  %s %d  %s %s",
		ui.Title.Render("Todos"),
		ui.Success.Render("✔"), done,
		ui.Pending.Render("•"), len(snap.Todos)-done,
		ui.Accent.Render("Filter"), snap.Filter,
	)
}

func (m modelTUI) View() string {
	w, h := widthHeight()
	listHeight := h - 4
	if m.adding {
		listHeight = h - 6
	}
	snap := m.lst.Snapshot()
	if snap.Err != "" || snap.Loading {
		listHeight--
	}
	m.list.SetSize(w-2, listHeight)

	content := m.list.View()
	if snap.Loading {
		content += "\n" + ui.Muted.Render("loading…")
	} else if snap.Err != "" {
		content += "\n" + ui.Error.Render(snap.Err)
	}
	if m.adding {
		bar := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1)
		title := "Add new todo"
		if m.addErr != "" {
			title += " — " + ui.Error.Render(m.addErr)
		}
		content = content + "\n" + bar.Render(title+"\n"+m.ti.View())
	}
	return panelString(content)
}

// helpers for View
func panelString(inner string) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(0, 1)
	return border.Render(inner)
}

func widthHeight() (int, int) {
	w, h := 80, 24
	if tw, th, err := termSize(); err == nil {
		w, h = tw, th
	}
	return w, h
}

// portable terminal size
func termSize() (int, int, error) {
	fd := int(os.Stdout.Fd())
	type winsize struct {
		Row, Col, Xpixel, Ypixel uint16
	}
	ws := &winsize{}
	_, _, err := syscall.Syscall(syscall.SYS_IOCTL,
		uintptr(fd), uintptr(syscall.TIOCGWINSZ), uintptr(unsafe.Pointer(ws)))
	if err != 0 {
		return 0, 0, fmt.Errorf("ioctl: %v", err)
	}
	return int(ws.Col), int(ws.Row), nil
}
