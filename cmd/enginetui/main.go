// Command enginetui is a read-only terminal dashboard over the signal
// engine's HTTP API: pipeline phase, active signals and streaks,
// refreshed every few seconds.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"trading-core/internal/model"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	longStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	shortStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	baseStyle   = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240"))
)

type statusPayload struct {
	Phase         string `json:"phase"`
	BufferedBars  int    `json:"buffered_bars"`
	ActiveSignals int    `json:"active_signals"`
}

type snapshot struct {
	status  statusPayload
	active  []model.Signal
	streaks map[string]model.StreakState
	err     error
}

type tickMsg time.Time

type appModel struct {
	baseURL string
	client  *http.Client

	signals table.Model
	streaks table.Model
	status  statusPayload
	lastErr error
	updated time.Time
}

func newAppModel(baseURL string) appModel {
	signalCols := []table.Column{
		{Title: "Instrument", Width: 10},
		{Title: "TF", Width: 4},
		{Title: "Dir", Width: 6},
		{Title: "Entry", Width: 10},
		{Title: "TP", Width: 10},
		{Title: "SL", Width: 10},
		{Title: "MAE", Width: 6},
		{Title: "MFE", Width: 6},
	}
	streakCols := []table.Column{
		{Title: "Key", Width: 14},
		{Title: "Streak", Width: 7},
		{Title: "Wins", Width: 6},
		{Title: "Losses", Width: 7},
	}

	signals := table.New(table.WithColumns(signalCols), table.WithHeight(8))
	streaks := table.New(table.WithColumns(streakCols), table.WithHeight(8))

	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).BorderBottom(true)
	styles.Selected = styles.Selected.Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	signals.SetStyles(styles)
	streaks.SetStyles(styles)

	return appModel{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 3 * time.Second},
		signals: signals,
		streaks: streaks,
	}
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(m.fetch, tick())
}

func tick() tea.Cmd {
	return tea.Tick(3*time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m appModel) fetch() tea.Msg {
	var snap snapshot

	if err := m.getJSON("/api/status", &snap.status); err != nil {
		snap.err = err
		return snap
	}
	if err := m.getJSON("/api/signals/active", &snap.active); err != nil {
		snap.err = err
		return snap
	}
	if err := m.getJSON("/api/streaks", &snap.streaks); err != nil {
		snap.err = err
		return snap
	}
	return snap
}

func (m appModel) getJSON(path string, out any) error {
	res, err := m.client.Get(m.baseURL + path)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d", path, res.StatusCode)
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "tab":
			if m.signals.Focused() {
				m.signals.Blur()
				m.streaks.Focus()
			} else {
				m.streaks.Blur()
				m.signals.Focus()
			}
		}

	case tickMsg:
		return m, tea.Batch(m.fetch, tick())

	case snapshot:
		if msg.err != nil {
			m.lastErr = msg.err
			return m, nil
		}
		m.lastErr = nil
		m.status = msg.status
		m.updated = time.Now()

		rows := make([]table.Row, 0, len(msg.active))
		for _, s := range msg.active {
			dir := longStyle.Render(string(s.Direction))
			if s.Direction == model.Short {
				dir = shortStyle.Render(string(s.Direction))
			}
			rows = append(rows, table.Row{
				s.Instrument, s.Timeframe, dir,
				fmt.Sprintf("%.4f", s.Entry),
				fmt.Sprintf("%.4f", s.TP),
				fmt.Sprintf("%.4f", s.SL),
				fmt.Sprintf("%.2f", s.MAERatio),
				fmt.Sprintf("%.2f", s.MFERatio),
			})
		}
		m.signals.SetRows(rows)

		keys := make([]string, 0, len(msg.streaks))
		for k := range msg.streaks {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		streakRows := make([]table.Row, 0, len(keys))
		for _, k := range keys {
			st := msg.streaks[k]
			streakRows = append(streakRows, table.Row{
				k,
				fmt.Sprintf("%+d", st.Streak),
				fmt.Sprintf("%d", st.Wins),
				fmt.Sprintf("%d", st.Losses),
			})
		}
		m.streaks.SetRows(streakRows)
	}

	var cmd tea.Cmd
	if m.signals.Focused() {
		m.signals, cmd = m.signals.Update(msg)
	} else {
		m.streaks, cmd = m.streaks.Update(msg)
	}
	return m, cmd
}

func (m appModel) View() string {
	header := titleStyle.Render("trading-core") + "  " +
		statusStyle.Render(fmt.Sprintf("phase=%s buffered=%d active=%d",
			m.status.Phase, m.status.BufferedBars, m.status.ActiveSignals))

	body := lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		titleStyle.Render("Active signals"),
		baseStyle.Render(m.signals.View()),
		"",
		titleStyle.Render("Streaks"),
		baseStyle.Render(m.streaks.View()),
	)

	footer := statusStyle.Render(fmt.Sprintf("updated %s | q quit, tab switch", m.updated.Format("15:04:05")))
	if m.lastErr != nil {
		footer = errStyle.Render("error: " + m.lastErr.Error())
	}
	return body + "\n" + footer + "\n"
}

func main() {
	addr := flag.String("addr", "http://127.0.0.1:8080", "engine API base URL")
	flag.Parse()

	p := tea.NewProgram(newAppModel(*addr), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "enginetui: %v\n", err)
		os.Exit(1)
	}
}
