// Package tui provides the Bubble Tea listening screen.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/elizabet/internal/assistant"
	"github.com/fakeyudi/elizabet/internal/history"
)

// ── Styles ────────────

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	sectionHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("141"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)

	dotOnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	dotOffStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	previewStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	kindStyles = map[history.Kind]lipgloss.Style{
		history.KindUser:      lipgloss.NewStyle().Foreground(lipgloss.Color("117")),
		history.KindAssistant: lipgloss.NewStyle().Foreground(lipgloss.Color("183")),
		history.KindError:     errorStyle,
		history.KindConfig:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	}
	defaultKindStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// Controller is the part of the session the screen drives. Its methods are
// only called from commands, never from Update, because the session may be
// blocked sending to the program while it holds its lock.
type Controller interface {
	Start(cfg assistant.Config) error
	SetWakeWord(word string) error
}

// SnapshotMsg carries a new session state into the program.
type SnapshotMsg assistant.Snapshot

// EntryMsg carries one new action log entry into the program.
type EntryMsg history.Entry

type errMsg struct{ err error }

type savedMsg struct{}

// Model is the root Bubble Tea model.
type Model struct {
	ctrl    Controller
	snap    assistant.Snapshot
	entries []history.Entry

	log   viewport.Model
	input textinput.Model

	configOpen bool
	err        error
	width      int
	height     int
	ready      bool
}

// New creates the screen for a session in state snap with the entries
// already logged.
func New(ctrl Controller, snap assistant.Snapshot, entries []history.Entry) Model {
	in := textinput.New()
	in.Placeholder = "Palavra de ativação"
	in.CharLimit = 64
	in.Prompt = "› "
	return Model{
		ctrl:    ctrl,
		snap:    snap,
		entries: append([]history.Entry(nil), entries...),
		input:   in,
	}
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.log = viewport.New(m.width, m.logHeight())
		m.refreshLog()
		return m, nil

	case SnapshotMsg:
		m.snap = assistant.Snapshot(msg)
		return m, nil

	case EntryMsg:
		m.entries = append(m.entries, history.Entry(msg))
		m.refreshLog()
		return m, nil

	case errMsg:
		m.err = msg.err
		m.resizeLog()
		return m, nil

	case savedMsg:
		m.err = nil
		m.resizeLog()
		return m, nil

	case tea.KeyMsg:
		if m.configOpen {
			return m.updateConfig(msg)
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "c":
			m.configOpen = true
			m.input.SetValue(m.snap.WakeWord)
			m.input.CursorEnd()
			m.resizeLog()
			cmd := m.input.Focus()
			return m, cmd
		case "r":
			return m, m.restart(m.snap.WakeWord)
		}
		var cmd tea.Cmd
		m.log, cmd = m.log.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateConfig(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.closeConfig()
		return m, nil
	case "enter":
		word := m.input.Value()
		m.closeConfig()
		return m, m.save(word)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) closeConfig() {
	m.configOpen = false
	m.input.Blur()
	m.resizeLog()
}

// save persists the wake word and restarts listening with it.
func (m Model) save(word string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		if err := ctrl.SetWakeWord(word); err != nil {
			return errMsg{err}
		}
		if err := ctrl.Start(assistant.Config{WakeWord: word}); err != nil {
			return errMsg{err}
		}
		return savedMsg{}
	}
}

func (m Model) restart(word string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		if err := ctrl.Start(assistant.Config{WakeWord: word}); err != nil {
			return errMsg{err}
		}
		return savedMsg{}
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Carregando…"
	}

	title := titleStyle.Width(m.width).Render("Assistente por Voz")

	parts := []string{title, m.statusLine(), m.previewLine()}
	if m.configOpen {
		parts = append(parts, m.configPanel())
	}
	parts = append(parts, m.log.View(), m.examples())
	if m.err != nil {
		parts = append(parts, errorStyle.Render("  "+m.err.Error()))
	}

	hint := "  c configurar  r reiniciar  ↑/↓ rolar  q sair"
	if m.configOpen {
		hint = "  enter salvar  esc cancelar"
	}
	parts = append(parts, statusBarStyle.Width(m.width).Render(hint))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) statusLine() string {
	dot := dotOffStyle.Render("●")
	if m.snap.Listening {
		dot = dotOnStyle.Render("●")
	}
	text := fmt.Sprintf("Diga \"%s\" para ativar", m.snap.WakeWord)
	if m.snap.Mode == assistant.ModeActive {
		text = "Ouvindo comandos..."
	}
	return "  " + dot + "  " + text
}

func (m Model) previewLine() string {
	if m.snap.Preview == "" {
		return dimStyle.Render("  …")
	}
	return previewStyle.Render("  \"" + m.snap.Preview + "\"")
}

func (m Model) configPanel() string {
	body := sectionHeader.Render("Configurações") + "\n" +
		m.input.View() + "\n" +
		dimStyle.Render(`Ex: "alexa", "ok google", "computador"`)
	return panelStyle.Render(body)
}

func (m Model) examples() string {
	w := m.snap.WakeWord
	return dimStyle.Render(fmt.Sprintf("  Exemplos: \"%s que horas são\" · \"%s pesquisar no YouTube gatos engraçados\"", w, w))
}

// ── Log viewport ─────────────────

// fixed rows: title, status, preview, examples, status bar
const fixedRows = 5

// config panel: border(2) + header + input + hint
const configRows = 5

func (m Model) logHeight() int {
	h := m.height - fixedRows
	if m.configOpen {
		h -= configRows
	}
	if m.err != nil {
		h--
	}
	if h < 1 {
		h = 1
	}
	return h
}

func (m *Model) resizeLog() {
	if m.ready {
		m.log.Height = m.logHeight()
	}
}

func (m *Model) refreshLog() {
	if !m.ready {
		return
	}
	m.log.SetContent(renderEntries(m.entries))
	m.log.GotoBottom()
}

func renderEntries(entries []history.Entry) string {
	if len(entries) == 0 {
		return dimStyle.Render("  (nenhuma ação ainda)")
	}
	var sb strings.Builder
	for _, e := range entries {
		style, ok := kindStyles[e.Kind()]
		if !ok {
			style = defaultKindStyle
		}
		ts := timeStyle.Render(e.Time.Format("15:04:05"))
		sb.WriteString("  " + ts + "  " + style.Render(e.Text) + "\n")
	}
	return sb.String()
}

// Run starts the program. attach is called with the running program before
// its event loop starts so the session and log can feed it messages.
func Run(m Model, attach func(p *tea.Program)) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	if attach != nil {
		attach(p)
	}
	_, err := p.Run()
	return err
}
