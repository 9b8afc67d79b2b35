package main

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/xepoctpat/H3X-sub004/pkg/action"
	"github.com/xepoctpat/H3X-sub004/pkg/audit"
	"github.com/xepoctpat/H3X-sub004/pkg/config"
	"github.com/xepoctpat/H3X-sub004/pkg/engine"
	"github.com/xepoctpat/H3X-sub004/pkg/geometry"
	"github.com/xepoctpat/H3X-sub004/pkg/lattice"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#FF00FF")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Padding(0, 2)

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2).
			MarginTop(1)

	statsBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(1, 2).
			MarginRight(2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type view int

const (
	overviewView view = iota
	nodesView
	patchesView
	auditView
	submitView
)

const viewCount = 5

type keyMap struct {
	Tab      key.Binding
	ShiftTab key.Binding
	Enter    key.Binding
	Quit     key.Binding
	Up       key.Binding
	Down     key.Binding
}

var keys = keyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next view"),
	),
	ShiftTab: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "prev view"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "submit"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Enter, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ShiftTab, k.Enter},
		{k.Up, k.Down},
		{k.Quit},
	}
}

type model struct {
	eng         *engine.Engine
	currentView view
	actionInput textinput.Model
	nodeTable   table.Model
	patchTable  table.Model
	auditTable  table.Model
	help        help.Model
	keys        keyMap
	width       int
	height      int
	message     string
	messageErr  bool
	startTime   time.Time
	status      engine.EngineStatus
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func newTable(columns []table.Column) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF00FF")).
		Bold(false)
	t.SetStyles(s)

	return t
}

func initialModel(eng *engine.Engine) model {
	ti := textinput.New()
	ti.Placeholder = "transmit <source> <target> [cost] [duration]"
	ti.CharLimit = 200
	ti.Width = 70

	m := model{
		eng:         eng,
		currentView: overviewView,
		actionInput: ti,
		nodeTable: newTable([]table.Column{
			{Title: "ID", Width: 10},
			{Title: "Kind", Width: 9},
			{Title: "State", Width: 13},
			{Title: "Energy", Width: 7},
			{Title: "Dim", Width: 4},
			{Title: "Position", Width: 22},
			{Title: "Mirror", Width: 10},
		}),
		patchTable: newTable([]table.Column{
			{Title: "ID", Width: 10},
			{Title: "Nodes", Width: 34},
			{Title: "Mirror", Width: 7},
			{Title: "Energy", Width: 7},
			{Title: "Face", Width: 5},
			{Title: "Center", Width: 22},
		}),
		auditTable: newTable([]table.Column{
			{Title: "Seq", Width: 6},
			{Title: "Category", Width: 12},
			{Title: "Entity", Width: 10},
			{Title: "Status", Width: 10},
			{Title: "Level", Width: 11},
			{Title: "Reason", Width: 34},
		}),
		help:      help.New(),
		keys:      keys,
		startTime: time.Now(),
		status:    eng.Statistics(),
	}
	m.refreshTables()

	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		tickCmd(),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tickMsg:
		m.status = m.eng.Statistics()
		m.refreshTables()
		return m, tickCmd()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			if m.currentView == submitView && m.actionInput.Focused() && msg.String() == "q" {
				break
			}
			return m, tea.Quit

		case key.Matches(msg, m.keys.Tab):
			m.setView((m.currentView + 1) % viewCount)

		case key.Matches(msg, m.keys.ShiftTab):
			if m.currentView == 0 {
				m.setView(viewCount - 1)
			} else {
				m.setView(m.currentView - 1)
			}

		case key.Matches(msg, m.keys.Enter):
			if m.currentView == submitView && m.actionInput.Focused() {
				m.submitAction()
			}

		default:
			if v, ok := digitView(msg.String()); ok && !(m.currentView == submitView && m.actionInput.Focused()) {
				m.setView(v)
			}
		}
	}

	// Update focused component
	switch m.currentView {
	case submitView:
		m.actionInput, cmd = m.actionInput.Update(msg)
		cmds = append(cmds, cmd)
	case nodesView:
		m.nodeTable, cmd = m.nodeTable.Update(msg)
		cmds = append(cmds, cmd)
	case patchesView:
		m.patchTable, cmd = m.patchTable.Update(msg)
		cmds = append(cmds, cmd)
	case auditView:
		m.auditTable, cmd = m.auditTable.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func digitView(s string) (view, bool) {
	switch s {
	case "1":
		return overviewView, true
	case "2":
		return nodesView, true
	case "3":
		return patchesView, true
	case "4":
		return auditView, true
	case "5":
		return submitView, true
	}
	return 0, false
}

func (m *model) setView(v view) {
	m.currentView = v
	if v == submitView {
		m.actionInput.Focus()
	} else {
		m.actionInput.Blur()
	}
}

func (m *model) refreshTables() {
	nodeRows := make([]table.Row, 0)
	for _, n := range m.eng.ListNodes() {
		mirror := "-"
		if n.MirrorID != "" {
			mirror = shortID(n.MirrorID)
		}
		nodeRows = append(nodeRows, table.Row{
			shortID(n.ID),
			string(n.Kind),
			string(n.State),
			fmt.Sprintf("%.2f", n.Energy),
			strconv.Itoa(n.Dimension),
			formatVec(n.Position),
			mirror,
		})
	}
	m.nodeTable.SetRows(nodeRows)

	patchRows := make([]table.Row, 0)
	for _, p := range m.eng.ListPatches() {
		isMirror := "no"
		if p.IsMirror {
			isMirror = "yes"
		}
		face := "-"
		if mapping, ok := m.eng.GetMapping(p.ID); ok {
			face = strconv.Itoa(mapping.Face)
		}
		patchRows = append(patchRows, table.Row{
			shortID(p.ID),
			fmt.Sprintf("%s %s %s", shortID(p.NodeIDs[0]), shortID(p.NodeIDs[1]), shortID(p.NodeIDs[2])),
			isMirror,
			fmt.Sprintf("%.2f", p.TotalEnergy),
			face,
			formatVec(p.Center),
		})
	}
	m.patchTable.SetRows(patchRows)

	auditRows := make([]table.Row, 0)
	for _, e := range m.eng.AuditRecent(50, audit.LevelClassified) {
		auditRows = append(auditRows, table.Row{
			strconv.FormatUint(e.Sequence, 10),
			string(e.Category),
			string(e.EntityKind),
			string(e.Status),
			e.Level.String(),
			e.Reason,
		})
	}
	m.auditTable.SetRows(auditRows)
}

// submitAction parses the console line and hands the action to the
// engine. Node and patch references may be unique ID prefixes; an
// unmatched reference goes through untouched so the engine rejects and
// audits it like any other bad action.
func (m *model) submitAction() {
	line := strings.TrimSpace(m.actionInput.Value())
	if line == "" {
		m.message = "Action cannot be empty"
		m.messageErr = true
		return
	}

	a, err := m.parseActionCommand(line)
	if err != nil {
		m.message = err.Error()
		m.messageErr = true
		return
	}

	result, err := m.eng.SubmitAction(a)
	if err != nil {
		m.message = fmt.Sprintf("Submit failed: %v", err)
		m.messageErr = true
		return
	}

	if result.Executed {
		m.message = fmt.Sprintf("Executed %s, virtual time now %d", a.Type, result.VirtualTime)
		m.messageErr = false
		m.actionInput.SetValue("")
	} else {
		m.message = fmt.Sprintf("Rejected: %s", result.Reason)
		m.messageErr = true
	}

	m.status = m.eng.Statistics()
	m.refreshTables()
}

func (m *model) parseActionCommand(line string) (*action.Action, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return nil, fmt.Errorf("usage: <type> <source> <target|patch> [cost] [duration]")
	}

	actionType, err := action.ParseType(fields[0])
	if err != nil {
		return nil, err
	}

	cost := 0.05
	if len(fields) >= 4 {
		cost, err = strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, fmt.Errorf("cost must be a number: %v", err)
		}
	}

	duration := uint64(1)
	if len(fields) >= 5 {
		duration, err = strconv.ParseUint(fields[4], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("duration must be a positive integer: %v", err)
		}
	}

	source := m.resolveNodeRef(fields[1])
	if actionType == action.TypeReflect {
		return action.NewReflect(source, m.resolvePatchRef(fields[2]), cost, duration), nil
	}
	return action.New(actionType, source, m.resolveNodeRef(fields[2]), cost, duration), nil
}

// resolveNodeRef expands a unique node ID prefix to the full ID. An
// ambiguous or unknown prefix is returned as-is.
func (m *model) resolveNodeRef(ref string) string {
	var match string
	for _, n := range m.eng.ListNodes() {
		if n.ID == ref {
			return n.ID
		}
		if strings.HasPrefix(n.ID, ref) {
			if match != "" {
				return ref
			}
			match = n.ID
		}
	}
	if match == "" {
		return ref
	}
	return match
}

func (m *model) resolvePatchRef(ref string) string {
	var match string
	for _, p := range m.eng.ListPatches() {
		if p.ID == ref {
			return p.ID
		}
		if strings.HasPrefix(p.ID, ref) {
			if match != "" {
				return ref
			}
			match = p.ID
		}
	}
	if match == "" {
		return ref
	}
	return match
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatVec(v geometry.Vec3) string {
	return fmt.Sprintf("(%.1f, %.1f, %.1f)", v.X, v.Y, v.Z)
}

func (m model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var s strings.Builder

	// Title
	s.WriteString(titleStyle.Render("🔺 fLups Engine - Interactive Monitor"))
	s.WriteString("\n\n")

	// Tabs
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	// Content based on current view
	switch m.currentView {
	case overviewView:
		s.WriteString(m.renderOverview())
	case nodesView:
		s.WriteString(m.renderNodes())
	case patchesView:
		s.WriteString(m.renderPatches())
	case auditView:
		s.WriteString(m.renderAudit())
	case submitView:
		s.WriteString(m.renderSubmit())
	}

	// Message
	if m.message != "" {
		s.WriteString("\n\n")
		if m.messageErr {
			s.WriteString(errorStyle.Render("✗ " + m.message))
		} else {
			s.WriteString(successStyle.Render("✓ " + m.message))
		}
	}

	// Help
	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))

	return s.String()
}

func (m model) renderTabs() string {
	tabs := []string{"Overview", "Nodes", "Patches", "Audit", "Submit"}
	var renderedTabs []string

	for i, tab := range tabs {
		if view(i) == m.currentView {
			renderedTabs = append(renderedTabs, activeTabStyle.Render(tab))
		} else {
			renderedTabs = append(renderedTabs, inactiveTabStyle.Render(tab))
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, renderedTabs...)
}

func (m model) renderOverview() string {
	uptime := time.Since(m.startTime).Round(time.Second)

	statsContent := fmt.Sprintf(`📊 Engine Status
━━━━━━━━━━━━━━━
Virtual Time: %d
Nodes:        %d (%d mirrors)
Patches:      %d (%d mirrors)
Mappings:     %d
Queue Depth:  %d
Uptime:       %s

⚡ Actions
━━━━━━━━━━━━━━━
Total:     %d
Completed: %d
Failed:    %d

📜 Audit
━━━━━━━━━━━━━━━
Retained:  %d
Appended:  %d`,
		m.status.VirtualTime,
		m.status.Nodes, m.status.MirrorNodes,
		m.status.Patches, m.status.MirrorPatches,
		m.status.Mappings,
		m.status.QueueDepth,
		uptime,
		m.status.Actions.Total,
		m.status.Actions.Completed,
		m.status.Actions.Failed,
		m.status.AuditRetained,
		m.status.AuditAppended,
	)

	quickActions := `⚡ Quick Actions
━━━━━━━━━━━━━━━
[Tab]       Navigate views
[1-5]       Jump to view
[q]         Quit

🎯 Views
━━━━━━━━━━━━━━━
• Overview  — live statistics
• Nodes     — flup lattice
• Patches   — triangle units
• Audit     — recent trail
• Submit    — action console`

	statsBox := statsBoxStyle.Render(statsContent)
	actionsBox := statsBoxStyle.Render(quickActions)

	return contentStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Top, statsBox, actionsBox),
	)
}

func (m model) renderNodes() string {
	var s strings.Builder

	s.WriteString(headerStyle.Render("Node Browser"))
	s.WriteString("\n\n")

	s.WriteString(m.nodeTable.View())

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Navigate with ↑/↓ • Refreshes every second"))

	return contentStyle.Render(s.String())
}

func (m model) renderPatches() string {
	var s strings.Builder

	s.WriteString(headerStyle.Render("Patch Browser"))
	s.WriteString("\n\n")

	s.WriteString(m.patchTable.View())

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Face column shows the icosahedral mapping when one exists"))

	return contentStyle.Render(s.String())
}

func (m model) renderAudit() string {
	var s strings.Builder

	s.WriteString(headerStyle.Render("Audit Trail"))
	s.WriteString("\n\n")

	s.WriteString(m.auditTable.View())

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Newest entries first • Last 50 shown"))

	return contentStyle.Render(s.String())
}

func (m model) renderSubmit() string {
	var s strings.Builder

	s.WriteString(headerStyle.Render("Action Console"))
	s.WriteString("\n\n")

	s.WriteString("Submit an action (node references may be unique ID prefixes):\n\n")
	s.WriteString(m.actionInput.View())

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Examples:\n"))
	s.WriteString(helpStyle.Render("  transmit 3f2a 9c01 0.1 1\n"))
	s.WriteString(helpStyle.Render("  feedback 9c01 3f2a\n"))
	s.WriteString(helpStyle.Render("  reflect 3f2a 77b0 0.05 2\n"))

	return contentStyle.Render(s.String())
}

// seedDemo populates a fresh engine with a triangle, its mirror, and a
// couple of executed actions so every view has something to show.
func seedDemo(eng *engine.Engine) error {
	positive, err := eng.CreateNode(lattice.KindPositive, geometry.Vec3{X: 1, Y: 0, Z: 0}, 1.0)
	if err != nil {
		return err
	}
	negative, err := eng.CreateNode(lattice.KindNegative, geometry.Vec3{X: 0, Y: 1, Z: 0}, 1.0)
	if err != nil {
		return err
	}
	coupler, err := eng.CreateNode(lattice.KindCoupler, geometry.Vec3{X: 0, Y: 0, Z: 1}, 1.0)
	if err != nil {
		return err
	}

	patch, err := eng.CreatePatch(positive.ID, negative.ID, coupler.ID)
	if err != nil {
		return err
	}
	if _, _, err := eng.CreateMirrorPatch(patch.ID); err != nil {
		return err
	}

	for _, p := range eng.ListPatches() {
		if _, err := eng.MapPatch(p.ID); err != nil {
			return err
		}
	}

	// One executed action and one state-rule rejection, so both outcomes
	// show up in the audit view.
	if _, err := eng.SetNodeState(positive.ID, lattice.StateTransmitting); err != nil {
		return err
	}
	if _, err := eng.SubmitAction(action.New(action.TypeTransmit, positive.ID, negative.ID, 0.1, 1)); err != nil {
		return err
	}
	if _, err := eng.SubmitAction(action.New(action.TypeFeedback, coupler.ID, positive.ID, 0.05, 1)); err != nil {
		return err
	}

	return nil
}

func main() {
	cfg := config.Default()
	eng, err := engine.New(engine.Options{Config: cfg})
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}
	defer eng.Close()

	if err := seedDemo(eng); err != nil {
		log.Fatalf("Failed to seed demo lattice: %v", err)
	}

	p := tea.NewProgram(initialModel(eng), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}
}
