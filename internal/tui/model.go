package tui

import (
	"context"
	"fmt"
	"strings"

	"claw/internal/config"
	"claw/internal/daemon"
	"claw/internal/db"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// ── Styles ──────────────────────────────────────────────────────────────────

const pad = 2 // horizontal padding on each side

var (
	frameStyle    = lipgloss.NewStyle().Padding(1, pad)
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("37"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dotRunning    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46")).Render("●")
	dotStopped    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")).Render("●")
	statusStyle   = map[string]lipgloss.Style{
		db.StatusPending:    lipgloss.NewStyle().Foreground(lipgloss.Color("246")),
		db.StatusProcessing: lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		db.StatusCompleted:  lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
		db.StatusFailed:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		db.StatusDelivered:  lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
	}
	activeTab   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46")).Underline(true)
	inactiveTab = dimStyle
)

const listLimit = 200

// ── Model ───────────────────────────────────────────────────────────────────

// Model is the BubbleTea model for the job browser.
//
// Navigation depth:
//
//	selected == nil → job list
//	selected != nil → job detail with scrollable response
type Model struct {
	store *db.Store
	cfg   *config.Config

	jobs   []db.Job
	cursor int

	selected     *db.Job
	showPrompt   bool // tab toggles prompt/response
	scrollOffset int
	lines        []string

	err    error
	width  int
	height int
}

func NewModel(store *db.Store, cfg *config.Config) Model {
	return Model{store: store, cfg: cfg}
}

// ── Messages ────────────────────────────────────────────────────────────────

type jobsMsg []db.Job
type jobMsg db.Job
type errMsg error

// ── Init / Commands ─────────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd { return m.fetchJobs }

func (m Model) fetchJobs() tea.Msg {
	jobs, err := m.store.ListJobs(context.Background(), "", listLimit)
	if err != nil {
		return errMsg(err)
	}
	return jobsMsg(jobs)
}

func (m Model) fetchJob() tea.Msg {
	job, err := m.store.GetJob(context.Background(), m.jobs[m.cursor].ID)
	if err != nil {
		return errMsg(err)
	}
	return jobMsg(job)
}

// ── Update ──────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case jobsMsg:
		m.jobs = msg
		m.err = nil
		if m.cursor >= len(m.jobs) && len(m.jobs) > 0 {
			m.cursor = len(m.jobs) - 1
		}
	case jobMsg:
		job := db.Job(msg)
		m.selected = &job
		m.showPrompt = false
		m.scrollOffset = 0
		m.lines = splitContent(job.Response, job.Status, m.cw())
		m.err = nil
	case errMsg:
		m.err = msg
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func splitContent(text, status string, width int) []string {
	if text == "" {
		switch status {
		case db.StatusPending:
			return []string{"(queued, not started)"}
		case db.StatusProcessing:
			return []string{"(in progress)"}
		default:
			return []string{"(no output)"}
		}
	}
	return renderMarkdown(text, width)
}

// renderMarkdown renders text as terminal-styled markdown via glamour.
// Falls back to plain text splitting on error.
func renderMarkdown(text string, width int) []string {
	if width < 40 {
		width = 76
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return strings.Split(text, "\n")
	}
	rendered, err := r.Render(text)
	if err != nil {
		return strings.Split(text, "\n")
	}
	// Trim trailing newlines that glamour adds.
	rendered = strings.TrimRight(rendered, "\n")
	return strings.Split(rendered, "\n")
}

// ── Key Handling ────────────────────────────────────────────────────────────

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q", "ctrl+c":
		return m, tea.Quit
	}

	if m.selected != nil {
		return m.handleKeyDetail(key)
	}
	return m.handleKeyList(key)
}

func (m Model) handleKeyList(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.jobs)-1 {
			m.cursor++
		}
	case "enter":
		if m.cursor < len(m.jobs) {
			return m, m.fetchJob
		}
	case "r":
		return m, m.fetchJobs
	}
	return m, nil
}

func (m Model) handleKeyDetail(key string) (tea.Model, tea.Cmd) {
	avail := m.scrollHeight()
	switch key {
	case "up", "k":
		if m.scrollOffset > 0 {
			m.scrollOffset--
		}
	case "down", "j":
		if m.scrollOffset < maxOffset(m.lines, avail) {
			m.scrollOffset++
		}
	case "u":
		m.scrollOffset -= avail / 2
		if m.scrollOffset < 0 {
			m.scrollOffset = 0
		}
	case "d":
		m.scrollOffset += avail / 2
		if m.scrollOffset > maxOffset(m.lines, avail) {
			m.scrollOffset = maxOffset(m.lines, avail)
		}
	case "tab":
		m.showPrompt = !m.showPrompt
		m.scrollOffset = 0
		if m.showPrompt {
			if m.selected.Prompt != "" {
				m.lines = renderMarkdown(m.selected.Prompt, m.cw())
			} else {
				m.lines = []string{"(no prompt recorded)"}
			}
		} else {
			m.lines = splitContent(m.selected.Response, m.selected.Status, m.cw())
		}
	case "r":
		return m, m.fetchJob
	case "esc":
		m.selected = nil
		m.lines = nil
		m.scrollOffset = 0
		m.showPrompt = false
	}
	return m, nil
}

func maxOffset(lines []string, avail int) int {
	n := len(lines) - avail
	if n < 0 {
		return 0
	}
	return n
}

// ── Views ───────────────────────────────────────────────────────────────────

func (m Model) View() string {
	var content string
	if m.err != nil {
		content = fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err)
	} else if m.selected != nil {
		content = m.detailView()
	} else {
		content = m.listView()
	}
	return frameStyle.Render(content)
}

// ── Job List with Dashboard Header ──────────────────────────────────────────

func (m Model) listView() string {
	var b strings.Builder
	w := m.cw()

	b.WriteString(titleStyle.Render("CLAW"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(strings.Repeat("─", w)))
	b.WriteString("\n\n")

	daemonDot := dotStopped
	daemonLabel := "stopped"
	if daemon.IsRunning(m.cfg.Daemon.PIDFile) {
		daemonDot = dotRunning
		daemonLabel = "running"
	}

	dashKV := func(k, v string) {
		b.WriteString(fmt.Sprintf("  %s  %s\n", labelStyle.Render(padRight(k, 9)), v))
	}
	dashKV("daemon", daemonDot+" "+daemonLabel)
	dashKV("tool", m.cfg.Worker.Tool)
	dashKV("poll", m.cfg.Daemon.PollInterval)
	b.WriteString("\n")

	counts := m.jobCounts()
	b.WriteString(fmt.Sprintf("  %s %d   %s %d   %s %d   %s %d   %s %d\n",
		labelStyle.Render("pending"), counts[db.StatusPending],
		statusStyle[db.StatusProcessing].Render("processing"), counts[db.StatusProcessing],
		statusStyle[db.StatusCompleted].Render("completed"), counts[db.StatusCompleted],
		statusStyle[db.StatusFailed].Render("failed"), counts[db.StatusFailed],
		statusStyle[db.StatusDelivered].Render("delivered"), counts[db.StatusDelivered],
	))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(strings.Repeat("─", w)))
	b.WriteString("\n")

	const (
		colID      = 6
		colStatus  = 12
		colChannel = 21
		colAuthor  = 21
		colPrompt  = 45
	)

	if len(m.jobs) == 0 {
		b.WriteString(dimStyle.Render("No jobs found. Waiting for messages..."))
		b.WriteString("\n")
	} else {
		header := "  " +
			headerStyle.Render(padRight("ID", colID)) +
			headerStyle.Render(padRight("STATUS", colStatus)) +
			headerStyle.Render(padRight("CHANNEL", colChannel)) +
			headerStyle.Render(padRight("AUTHOR", colAuthor)) +
			headerStyle.Render(padRight("PROMPT", colPrompt)) +
			headerStyle.Render("CREATED")
		b.WriteString(header)
		b.WriteString("\n")

		for i, job := range m.jobs {
			cursor := "  "
			if i == m.cursor {
				cursor = "> "
			}

			st, ok := statusStyle[job.Status]
			if !ok {
				st = dimStyle
			}

			created := job.CreatedAt
			if len(created) > 11 {
				created = created[11:]
			}

			line := cursor +
				padRight(fmt.Sprintf("%d", job.ID), colID) +
				st.Render(padRight(job.Status, colStatus)) +
				padRight(truncate(job.ChannelID, colChannel-2), colChannel) +
				padRight(truncate(job.AuthorID, colAuthor-2), colAuthor) +
				padRight(truncate(oneLine(job.Prompt), colPrompt-2), colPrompt) +
				dimStyle.Render(created)

			if i == m.cursor {
				line = selectedStyle.Render(line)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	b.WriteString(dimStyle.Render(strings.Repeat("─", w)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("j/k navigate  enter details  r refresh  q quit"))
	return b.String()
}

// ── Job Detail ──────────────────────────────────────────────────────────────

func (m Model) detailView() string {
	var b strings.Builder
	w := m.cw()
	job := m.selected

	st, ok := statusStyle[job.Status]
	if !ok {
		st = dimStyle
	}

	b.WriteString(titleStyle.Render("JOB"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  #%d", job.ID)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(strings.Repeat("─", w)))
	b.WriteString("\n")

	kv := func(k, v string) {
		b.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(fmt.Sprintf("%-11s", k)), v))
	}
	kv("Status", st.Render(job.Status))
	kv("Channel", job.ChannelID)
	kv("Author", job.AuthorID)
	kv("Message", job.MessageID)
	kv("Created", job.CreatedAt)
	if job.Status == db.StatusFailed && job.Response != "" {
		kv("Error", errStyle.Render(truncate(oneLine(job.Response), w-13)))
	}

	// Tab bar.
	b.WriteString("\n")
	promptTab := inactiveTab.Render(" PROMPT ")
	responseTab := inactiveTab.Render(" RESPONSE ")
	if m.showPrompt {
		promptTab = activeTab.Render(" PROMPT ")
	} else {
		responseTab = activeTab.Render(" RESPONSE ")
	}
	b.WriteString(promptTab)
	b.WriteString(dimStyle.Render(" │ "))
	b.WriteString(responseTab)
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(strings.Repeat("─", w)))
	b.WriteString("\n")

	avail := m.scrollHeight()
	start, end := scrollWindow(m.lines, m.scrollOffset, avail)
	for _, line := range m.lines[start:end] {
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString(dimStyle.Render(strings.Repeat("─", w)))
	b.WriteString("\n")
	pct := scrollPercent(m.lines, m.scrollOffset, avail)
	b.WriteString(dimStyle.Render(fmt.Sprintf("j/k scroll  d/u half-page  tab toggle  r refresh  esc back  q quit%s", pct)))
	return b.String()
}

// ── Helpers ─────────────────────────────────────────────────────────────────

// cw returns content width (terminal width minus frame padding).
func (m Model) cw() int {
	w := m.width - pad*2
	if w < 40 {
		w = 76 // sensible default before first WindowSizeMsg
	}
	return w
}

func (m Model) scrollHeight() int {
	// Reserve lines for chrome: frame padding(2) + title(1) + separator(1) + metadata(~6) + tabs(2) + footer(2).
	h := m.height - 16
	if h < 1 {
		h = 1
	}
	return h
}

func (m Model) jobCounts() map[string]int {
	counts := make(map[string]int)
	for _, j := range m.jobs {
		counts[j.Status]++
	}
	return counts
}

func scrollWindow(lines []string, offset, avail int) (int, int) {
	if avail < 1 {
		avail = 1
	}
	start := offset
	if start > len(lines) {
		start = len(lines)
	}
	end := start + avail
	if end > len(lines) {
		end = len(lines)
	}
	return start, end
}

func scrollPercent(lines []string, offset, avail int) string {
	if len(lines) <= avail {
		return ""
	}
	mx := len(lines) - avail
	if mx <= 0 {
		return ""
	}
	return fmt.Sprintf("  [%d%%]", offset*100/mx)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

// oneLine collapses a multi-line prompt into a single display line.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// padRight pads a plain string to n characters with spaces.
func padRight(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}
