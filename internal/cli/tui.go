package cli

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	taskerr "github.com/matzehuels/taskmap/pkg/errors"
	"github.com/matzehuels/taskmap/pkg/graph"
	"github.com/matzehuels/taskmap/pkg/store"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	listEditStyle     = lipgloss.NewStyle().Foreground(colorYellow)
)

const tuiHelp = "↑/↓ move · a add child · n add task · enter edit · space done · p pin · K/J reorder · d delete · f format · u/U undo/redo · s save · q quit"

// tuiCommand creates the interactive editor command.
func (c *CLI) tuiCommand() *cobra.Command {
	var saveOnExit bool

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Edit the task map interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTUI(cmd.Context(), saveOnExit)
		},
	}

	cmd.Flags().BoolVar(&saveOnExit, "save-on-exit", true, "save unsaved changes on quit")
	return cmd
}

func (c *CLI) runTUI(ctx context.Context, saveOnExit bool) error {
	sess, err := c.openSession(ctx, true)
	if err != nil {
		return err
	}
	defer sess.close()

	save := func() (string, error) {
		return sess.name, sess.save(ctx)
	}
	m := NewMapModel(sess.store, sess.name, save)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	unsubscribe := sess.store.Subscribe(func(e store.Event) {
		if e.Kind == store.EventAutoFormat {
			// The store emits from inside Update; Send must not block it.
			go p.Send(storeEventMsg(e))
		}
	})
	defer unsubscribe()

	final, err := p.Run()
	if err != nil {
		return err
	}

	if fm, ok := final.(MapModel); ok && fm.Dirty() && saveOnExit {
		if err := sess.save(ctx); err != nil {
			return err
		}
		printSuccess("Saved %s", StyleValue.Render(sess.name))
	}
	return nil
}

// =============================================================================
// MapModel - Interactive task map editing
// =============================================================================

// storeEventMsg forwards a store event into the program.
type storeEventMsg store.Event

// savedMsg reports the outcome of a save.
type savedMsg struct {
	name string
	err  error
}

// treeRow is one visible line of the map.
type treeRow struct {
	node   graph.Node
	depth  int
	pinned bool
}

// MapModel is the bubbletea model for editing a store.
type MapModel struct {
	Store *store.Store
	Name  string

	Rows   []treeRow
	Cursor int
	Height int
	Offset int

	Editing string // id of the node whose label is being typed
	Input   []rune

	Status     string
	Formatting bool

	save  func() (string, error)
	saved []byte
}

// NewMapModel creates a model over s. save persists the store and returns
// the name it was saved under.
func NewMapModel(s *store.Store, name string, save func() (string, error)) MapModel {
	m := MapModel{
		Store:  s,
		Name:   name,
		Height: 20,
		save:   save,
	}
	m.saved, _ = s.SaveJSON()
	m.refresh()
	return m
}

func (m MapModel) Init() tea.Cmd {
	return nil
}

// Dirty reports whether the store differs from what was last saved.
func (m MapModel) Dirty() bool {
	data, err := m.Store.SaveJSON()
	return err == nil && !bytes.Equal(data, m.saved)
}

func (m MapModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-5, 3)
		m.scroll()
		return m, nil

	case storeEventMsg:
		if msg.Kind == store.EventAutoFormat {
			m.Formatting = msg.AutoFormatting
		}
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.Status = "save failed: " + taskerr.UserMessage(msg.err)
			return m, nil
		}
		m.saved, _ = m.Store.SaveJSON()
		m.Status = "saved as " + msg.name
		return m, nil

	case tea.KeyMsg:
		if m.Editing != "" {
			return m.updateEditing(msg)
		}
		return m.updateBrowsing(msg)
	}
	return m, nil
}

func (m MapModel) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.Status = ""
	id := m.current()

	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
		m.Store.SelectNode(m.current())
	case "down", "j":
		if m.Cursor < len(m.Rows)-1 {
			m.Cursor++
		}
		m.Store.SelectNode(m.current())
	case "n":
		m.startEditing(m.Store.AddNode("", graph.LevelRoot), true)
	case "a":
		if id == "" {
			break
		}
		child := m.Store.AddNode(id, graph.LevelRoot)
		if child == "" {
			m.Status = "todos cannot have children"
			break
		}
		m.startEditing(child, true)
	case "enter", "e":
		m.startEditing(id, false)
	case " ":
		m.Store.ToggleNodeCompleted(id)
	case "p":
		switch {
		case id == "":
		case m.Store.UnpinNode(id):
			m.Status = "unpinned"
		case m.Store.PinNode(id):
			m.Status = "pinned"
		default:
			m.Status = "only tasks without children can be pinned"
		}
	case "P":
		m.Store.ToggleAllPinnedCompleted()
	case "K", "shift+up":
		m.shift(id, -1)
	case "J", "shift+down":
		m.shift(id, 1)
	case "d", "x", "delete":
		if n := m.Store.DeleteNode(id); n > 0 {
			m.Status = fmt.Sprintf("deleted %d %s", n, plural(n, "node", "nodes"))
		}
	case "f":
		m.Store.ApplyAutoLayout()
	case "u":
		if !m.Store.Undo() {
			m.Status = "nothing to undo"
		}
	case "U", "ctrl+r":
		if !m.Store.Redo() {
			m.Status = "nothing to redo"
		}
	case "s", "ctrl+s":
		save := m.save
		return m, func() tea.Msg {
			name, err := save()
			return savedMsg{name: name, err: err}
		}
	}

	m.refreshKeeping(m.current())
	return m, nil
}

func (m MapModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyRunes:
		m.Input = append(m.Input, msg.Runes...)
		return m, nil
	case tea.KeySpace:
		m.Input = append(m.Input, ' ')
		return m, nil
	}

	id := m.Editing
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "backspace":
		if len(m.Input) > 0 {
			m.Input = m.Input[:len(m.Input)-1]
		}
		return m, nil
	case "esc":
		m.stopEditing()
	case "enter":
		label := strings.TrimSpace(string(m.Input))
		if err := taskerr.ValidateLabel(label); err != nil {
			m.Status = taskerr.UserMessage(err)
			return m, nil
		}
		if label != "" {
			m.Store.UpdateNodeLabel(id, label)
		}
		m.stopEditing()
	}

	m.refreshKeeping(id)
	return m, nil
}

// startEditing opens the label editor on id. A fresh node starts with an
// empty input so typing replaces its placeholder label.
func (m *MapModel) startEditing(id string, fresh bool) {
	n, ok := m.Store.Node(id)
	if !ok {
		return
	}
	m.Store.SelectNode(id)
	m.Store.SetEditing(id, true)
	m.Editing = id
	m.Input = nil
	if !fresh {
		m.Input = []rune(n.Data.Label)
	}
	m.refreshKeeping(id)
}

func (m *MapModel) stopEditing() {
	m.Store.SetEditing(m.Editing, false)
	m.Editing = ""
	m.Input = nil
}

// shift swaps id with its neighbour in slot order and re-lays the map.
func (m *MapModel) shift(id string, by int) {
	n, ok := m.Store.Node(id)
	if !ok {
		return
	}
	if m.Store.SwapNodeSlots(id, n.Data.Slot+by) {
		m.Store.Reflow()
	}
}

func (m MapModel) current() string {
	if m.Cursor < 0 || m.Cursor >= len(m.Rows) {
		return ""
	}
	return m.Rows[m.Cursor].node.ID
}

func (m *MapModel) refresh() {
	snap := m.Store.Snapshot()
	var rows []treeRow
	newForest(snap).walk(func(n graph.Node, depth int) {
		rows = append(rows, treeRow{node: n, depth: depth, pinned: snap.IsPinned(n.ID)})
	})
	m.Rows = rows
	m.Cursor = min(max(m.Cursor, 0), max(len(m.Rows)-1, 0))
	m.scroll()
}

// refreshKeeping rebuilds the rows and moves the cursor to id if it still
// exists.
func (m *MapModel) refreshKeeping(id string) {
	m.refresh()
	for i, r := range m.Rows {
		if r.node.ID == id {
			m.Cursor = i
			break
		}
	}
	m.scroll()
}

func (m *MapModel) scroll() {
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

func (m MapModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Store.BatchTitle()))
	b.WriteString(listDimStyle.Render("  [" + m.Name + "]"))
	if m.Formatting {
		b.WriteString(listDimStyle.Render("  formatting…"))
	}
	b.WriteString("\n\n")

	if len(m.Rows) == 0 {
		b.WriteString(listDimStyle.Render("  No tasks yet. Press n to add one."))
		b.WriteString("\n")
	}

	end := min(m.Offset+m.Height, len(m.Rows))
	for i := m.Offset; i < end; i++ {
		b.WriteString(m.renderRow(i))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.Status != "" {
		b.WriteString(StyleWarning.Render(m.Status))
		b.WriteString("\n")
	}
	b.WriteString(listDimStyle.Render(tuiHelp))
	return b.String()
}

func (m MapModel) renderRow(i int) string {
	r := m.Rows[i]
	n := r.node

	cursor := "  "
	style := listNormalStyle
	if i == m.Cursor {
		cursor = listSelectedStyle.Render("› ")
		style = listSelectedStyle
	}

	label, _, multi := strings.Cut(n.Data.Label, "\n")
	if multi {
		label += " …"
	}
	if n.ID == m.Editing {
		label = listEditStyle.Render(string(m.Input) + "▏")
	} else if n.Data.Completed {
		label = styleDone.Render(label)
	} else {
		label = style.Render(label)
	}

	line := cursor + strings.Repeat("  ", r.depth)
	if n.Data.Level == graph.LevelTodo {
		box := checkboxOpen
		if n.Data.Completed {
			box = checkboxDone
		}
		line += listDimStyle.Render(box) + " "
	}
	line += label
	if r.pinned {
		line += " " + StyleWarning.Render(iconPin)
	}
	return line
}
