// Package statsui provides the Bubble Tea stats interface.
package statsui

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/rollstats/internal/histogram"
	"github.com/verte-zerg/rollstats/internal/i18n"
	"github.com/verte-zerg/rollstats/internal/present"
	"github.com/verte-zerg/rollstats/internal/session"
	"github.com/verte-zerg/rollstats/internal/stats"
)

const (
	minTableHeight = 3
	defaultWidth   = 80
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	modalStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
)

// Resolver maps a typed player name to a registered player.
type Resolver interface {
	Resolve(requester, target string) (string, error)
}

// Model implements the Bubble Tea stats UI. Each player gets a tab
// holding the summary table and the distribution of the selected die.
type Model struct {
	tables    []session.PlayerTable
	loc       *i18n.Localizer
	resolver  Resolver
	requester string

	activeTab int
	dieTable  table.Model
	distView  viewport.Model

	width  int
	height int

	jumpMode  bool
	jumpInput textinput.Model
	jumpError string
}

// NewModel constructs a stats UI model opened on the tab of player.
func NewModel(tables []session.PlayerTable, loc *i18n.Localizer, resolver Resolver, requester, player string) *Model {
	m := &Model{
		tables:    tables,
		loc:       loc,
		resolver:  resolver,
		requester: requester,
		distView:  viewport.New(0, 0),
	}
	m.initJumpInput()
	m.dieTable = m.buildDieTable(0, minTableHeight)
	m.selectPlayer(player)
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.jumpMode {
			return m.updateJump(msg)
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "/":
			return m.startJump()
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.distView, cmd = m.distView.Update(msg)
			return m, cmd
		default:
			before := m.dieTable.Cursor()
			var cmd tea.Cmd
			m.dieTable, cmd = m.dieTable.Update(msg)
			if m.dieTable.Cursor() != before {
				m.renderDistribution()
			}
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.jumpMode {
		return fitLines(m.renderJumpModal(), m.width, m.height)
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

// ActivePlayer returns the player shown in the current tab.
func (m *Model) ActivePlayer() string {
	if len(m.tables) == 0 {
		return ""
	}
	return m.tables[m.activeTab].Report.Player
}

func (m *Model) initJumpInput() {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "me"
	input.CharLimit = 64
	input.Cursor.SetMode(cursor.CursorBlink)
	m.jumpInput = input
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if m.activeErr() != nil {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

// bodySplit divides the body between cards, table and distribution.
func (m *Model) bodySplit(bodyHeight int) (cardsHeight, tableHeight, distHeight int) {
	cardsHeight = lipgloss.Height(m.renderCards())
	rest := bodyHeight - cardsHeight - 1
	rows := 0
	if len(m.tables) > 0 {
		rows = len(m.tables[m.activeTab].Table.Rows)
	}
	tableHeight = minInt(rows+2, maxInt(minTableHeight, rest/2))
	tableHeight = maxInt(minTableHeight, tableHeight)
	distHeight = maxInt(1, rest-tableHeight)
	return cardsHeight, tableHeight, distHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	_, tableHeight, distHeight := m.bodySplit(bodyHeight)
	cursorRow := m.dieTable.Cursor()
	m.dieTable = m.buildDieTable(m.width, tableHeight)
	m.dieTable.SetCursor(cursorRow)
	m.distView.Width = m.width
	m.distView.Height = distHeight
	promptWidth := lipgloss.Width(m.jumpInput.Prompt)
	m.jumpInput.Width = maxInt(10, modalInnerWidth(m.width)-promptWidth)
	m.renderDistribution()
}

func (m *Model) moveTab(delta int) {
	count := len(m.tables)
	if count == 0 {
		return
	}
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.setTab(next)
}

func (m *Model) setTab(idx int) {
	m.activeTab = idx
	m.updateTable()
}

func (m *Model) selectPlayer(player string) {
	for i, pt := range m.tables {
		if pt.Report.Player == player {
			m.setTab(i)
			return
		}
	}
	m.setTab(0)
}

func (m *Model) updateTable() {
	height := m.dieTable.Height()
	if m.width > 0 && m.height > 0 {
		_, bodyHeight, _ := m.layoutHeights()
		_, height, _ = m.bodySplit(bodyHeight)
	}
	m.dieTable = m.buildDieTable(m.width, height)
	m.dieTable.GotoTop()
	m.renderDistribution()
}

func (m *Model) activeErr() error {
	if len(m.tables) == 0 {
		return nil
	}
	return m.tables[m.activeTab].Err
}

func (m *Model) buildDieTable(width, height int) table.Model {
	var headers []string
	var rows [][]string
	if len(m.tables) > 0 {
		headers = m.tables[m.activeTab].Table.Headers
		rows = m.tables[m.activeTab].Table.Rows
	}
	if len(headers) == 0 {
		headers = present.Headers(m.loc)
	}
	columns := make([]table.Column, len(headers))
	for i, h := range headers {
		w := lipgloss.Width(h)
		for _, row := range rows {
			if i < len(row) {
				w = maxInt(w, lipgloss.Width(row[i]))
			}
		}
		columns[i] = table.Column{Title: h, Width: w}
	}
	tableRows := make([]table.Row, len(rows))
	for i, row := range rows {
		tableRows[i] = table.Row(row)
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(tableRows),
		table.WithFocused(true),
		table.WithHeight(maxInt(1, height-1)),
	)
	if width > 0 {
		t.SetWidth(width)
	}
	t.SetStyles(dieTableStyles())
	return t
}

func dieTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) renderDistribution() {
	m.distView.SetContent(m.distributionContent())
	m.distView.GotoTop()
}

func (m *Model) distributionContent() string {
	if len(m.tables) == 0 {
		return ""
	}
	pt := m.tables[m.activeTab]
	if pt.Err != nil {
		return ""
	}
	if len(pt.Table.Faces) == 0 {
		return m.loc.T("empty.rolls")
	}
	row := m.dieTable.Cursor()
	if row < 0 || row >= len(pt.Table.Faces) {
		row = 0
	}
	faces := pt.Table.Faces[row]
	die, ok := pt.Report.Histogram.Die(faces)
	if !ok {
		return m.loc.Tf("errors.noDie", pt.Report.Player, faces)
	}
	width := m.width
	if width <= 0 {
		width = defaultWidth
	}
	title := headerStyle.Render(fmt.Sprintf("%s %s", pt.Report.Player, present.DieLabel(m.loc, faces)))
	var buf bytes.Buffer
	if err := stats.RenderDistributionWithColor(&buf, title, die, width, true); err != nil {
		return fmt.Sprintf("Failed to render distribution: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tables))
	for i, pt := range m.tables {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(pt.Report.Player))
		} else {
			parts = append(parts, inactiveNavStyle.Render(pt.Report.Player))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(truncateBlock(m.renderTabs(), m.width), m.width)
	title := headerStyle.Render(truncateLine(m.loc.T("dialog.title"), m.width))
	return tabs + "\n" + padLines(title, m.width)
}

func (m *Model) renderCards() string {
	if len(m.tables) == 0 {
		return ""
	}
	report := m.tables[m.activeTab].Report
	favorite := "-"
	if report.FavoriteDie > 0 {
		favorite = present.DieLabel(m.loc, report.FavoriteDie)
	}
	cards := []string{
		metricCard(m.loc.T("overview.rolls"), strconv.Itoa(report.TotalRolls)),
		metricCard(m.loc.T("overview.dice"), strconv.Itoa(len(report.Rows))),
		metricCard(m.loc.T("overview.favorite"), favorite),
	}
	if m.width > 0 && m.width < 40 {
		return strings.Join(cards, "\n")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func (m *Model) renderBody() string {
	if len(m.tables) == 0 {
		return m.loc.T("empty.rolls")
	}
	if m.activeErr() != nil {
		return ""
	}
	_, bodyHeight, _ := m.layoutHeights()
	_, tableHeight, distHeight := m.bodySplit(bodyHeight)
	cards := m.renderCards()
	tableView := fitLines(tableMutedStyle.Render(m.dieTable.View()), m.width, tableHeight)
	dist := fitLines(m.distView.View(), m.width, distHeight)
	return strings.Join([]string{cards, tableView, "", dist}, "\n")
}

func (m *Model) renderHelp() string {
	return headerStyle.Render(truncateLine("Players: left/right  Die: up/down  Scroll: pgup/pgdn  Jump: /  Quit: q", m.width))
}

func (m *Model) renderFooter() string {
	if err := m.activeErr(); err != nil {
		return m.renderHelp() + "\n" + errorStyle.Render(truncateLine(err.Error(), m.width))
	}
	return m.renderHelp()
}

func (m *Model) startJump() (tea.Model, tea.Cmd) {
	m.jumpMode = true
	m.jumpError = ""
	m.jumpInput.SetValue("")
	return m, m.jumpInput.Focus()
}

func (m *Model) updateJump(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.jumpMode = false
		m.jumpError = ""
		m.jumpInput.Blur()
		return m, nil
	case tea.KeyEnter:
		player, err := m.resolver.Resolve(m.requester, m.jumpInput.Value())
		if err != nil {
			m.jumpError = InvalidPlayerMessage(m.loc, err)
			return m, nil
		}
		m.jumpMode = false
		m.jumpError = ""
		m.jumpInput.Blur()
		m.selectPlayer(player)
		return m, tea.ClearScreen
	}
	var cmd tea.Cmd
	m.jumpInput, cmd = m.jumpInput.Update(msg)
	return m, cmd
}

func (m *Model) renderJumpModal() string {
	body := []string{
		cardValueStyle.Render(m.loc.T("dialog.title")),
		m.jumpInput.View(),
		headerStyle.Render("Enter to jump / Esc to cancel"),
	}
	if m.jumpError != "" {
		body = append(body, errorStyle.Render(m.jumpError))
	}
	box := modalStyle.Width(modalWidth(m.width)).Render(strings.Join(body, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// InvalidPlayerMessage renders an unknown player error the way players see
// it: the invalid name on one line, the valid names on the next.
func InvalidPlayerMessage(loc *i18n.Localizer, err error) string {
	var unknown *histogram.UnknownPlayerError
	if !errors.As(err, &unknown) {
		return err.Error()
	}
	return fmt.Sprintf("%s: %s\n%s: %s",
		loc.T("errors.invalidUsername"), unknown.Player,
		loc.T("errors.validUsernames"), strings.Join(unknown.Known, ", "))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func modalWidth(width int) int {
	return maxInt(40, minInt(width-4, 80))
}

func modalInnerWidth(width int) int {
	w := modalWidth(width)
	w -= 6 // 2 border + 4 padding
	if w < 10 {
		return 10
	}
	return w
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

// truncateBlock clips every line of a styled block to width cells.
func truncateBlock(s string, width int) string {
	if width <= 0 {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(s)
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
