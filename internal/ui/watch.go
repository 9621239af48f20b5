package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lxdmxwifi/espdmx/internal/discovery"
	"github.com/lxdmxwifi/espdmx/internal/nodeconfig"
)

// Messages sent into the watch program from the engine and search goroutines.
type (
	// RegistryChangedMsg carries a fresh registry listing
	RegistryChangedMsg struct{ Records []*discovery.Record }

	// SearchProgressMsg is the text of a search progress event
	SearchProgressMsg string

	// SearchDoneMsg ends a search
	SearchDoneMsg struct{ Err error }

	// SendFailedMsg reports a failed upload or command send
	SendFailedMsg struct{ Err error }
)

// watchKeyMap defines key bindings for the watch screen
type watchKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Details key.Binding
	Rescan  key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Details, k.Rescan, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down, k.Details}, {k.Rescan, k.Quit}}
}

func newWatchKeyMap() watchKeyMap {
	return watchKeyMap{
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "move up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "move down")),
		Details: key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "details")),
		Rescan:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "search again")),
		Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// WatchColumns are the node table columns.
var WatchColumns = []table.Column{
	{Title: "IP Address", Width: 16},
	{Title: "Name", Width: 24},
	{Title: "Mode", Width: 13},
	{Title: "Addressing", Width: 18},
}

// WatchModel shows the registry as a live table. It never changes the
// registry; it redraws from RegistryChangedMsg snapshots.
type WatchModel struct {
	// Search starts a new search and reports SearchDoneMsg when it ends
	Search func() tea.Cmd

	// DisplayName maps an address and reported name to the shown name
	DisplayName func(addr, name string) string

	records     []*discovery.Record
	table       table.Model
	spinner     spinner.Model
	help        help.Model
	keys        watchKeyMap
	searching   bool
	status      string
	lastErr     error
	showDetails bool
	width       int
	height      int
}

// NewWatchModel creates a watch screen. search may be nil.
func NewWatchModel(search func() tea.Cmd) WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(PrimaryColor)

	t := table.New(
		table.WithColumns(WatchColumns),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(MutedColor).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(TextColor).
		Background(PrimaryColor)
	t.SetStyles(styles)

	return WatchModel{
		Search:  search,
		table:   t,
		spinner: s,
		help:    help.New(),
		keys:    newWatchKeyMap(),
		status:  "waiting for nodes",
	}
}

// Init implements tea.Model
func (m WatchModel) Init() tea.Cmd {
	if m.Search == nil {
		return nil
	}
	return m.Search()
}

// Update implements tea.Model
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Details):
			m.showDetails = !m.showDetails
			return m, nil
		case key.Matches(msg, m.keys.Rescan):
			if m.searching || m.Search == nil {
				return m, nil
			}
			m.searching = true
			m.lastErr = nil
			return m, tea.Batch(m.Search(), m.spinner.Tick)
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if h := msg.Height - 12; h > 3 {
			m.table.SetHeight(h)
		}
		return m, nil

	case RegistryChangedMsg:
		m.records = msg.Records
		m.table.SetRows(RowsFromRecords(m.records, m.DisplayName))
		return m, nil

	case SearchProgressMsg:
		m.status = string(msg)
		if !m.searching {
			m.searching = true
			return m, m.spinner.Tick
		}
		return m, nil

	case SearchDoneMsg:
		m.searching = false
		m.lastErr = msg.Err
		m.status = fmt.Sprintf("search finished, %d node(s)", len(m.records))
		return m, nil

	case SendFailedMsg:
		m.lastErr = msg.Err
		return m, nil

	case spinner.TickMsg:
		if !m.searching {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View implements tea.Model
func (m WatchModel) View() string {
	var b strings.Builder

	b.WriteString(HeaderTitleStyle.Render("ESP-DMX NODES"))
	b.WriteString("\n\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")

	status := m.status
	if m.searching {
		status = m.spinner.View() + " " + status
	}
	b.WriteString(StatusLineStyle.Render(status))
	b.WriteString("\n")

	if m.lastErr != nil {
		b.WriteString(ErrorMessageStyle.PaddingLeft(1).Render("Error: " + m.lastErr.Error()))
		b.WriteString("\n")
	}

	if m.showDetails {
		if rec := m.Selected(); rec != nil {
			b.WriteString("\n")
			b.WriteString(nodeconfig.FormatCompact(rec))
		}
	}

	b.WriteString("\n")
	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

// Selected returns the record under the cursor, or nil.
func (m WatchModel) Selected() *discovery.Record {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.records) {
		return nil
	}
	return m.records[i]
}

// Rows returns the current table rows
func (m WatchModel) Rows() []table.Row {
	return m.table.Rows()
}

// Searching reports whether a search is running
func (m WatchModel) Searching() bool {
	return m.searching
}

// RowsFromRecords projects registry records onto table rows. display may
// be nil.
func RowsFromRecords(recs []*discovery.Record, display func(addr, name string) string) []table.Row {
	rows := make([]table.Row, 0, len(recs))
	for _, rec := range recs {
		name := rec.NodeName()
		if display != nil {
			name = display(rec.Address(), name)
		}
		rows = append(rows, table.Row{
			rec.Address(),
			name,
			rec.Packet.Mode.String(),
			nodeconfig.FormatAddressing(rec.Packet),
		})
	}
	return rows
}
