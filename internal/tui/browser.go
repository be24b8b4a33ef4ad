// Package tui provides the interactive balance browser and the huh wizards
// that drive the request and reconciliation workflows.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/ptab/internal/cli"
	"github.com/theirongolddev/ptab/internal/model"
	"github.com/theirongolddev/ptab/internal/tui/components"
	"github.com/theirongolddev/ptab/internal/tui/theme"
	"github.com/theirongolddev/ptab/internal/workflow"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	tabBalances = iota
	tabRequests
	tabReconciliations
)

// chrome is the number of lines taken by everything but the table.
const chrome = 12

// LoadedMsg carries a full reload of the browser's data.
type LoadedMsg struct {
	Balances        []model.BalanceRow
	Requests        []model.SubRequestRow
	Reconciliations []model.ReconciliationRow
	Stats           model.DashboardStats
	At              time.Time
	Err             error
}

// Browser is the Bubble Tea model of the read-only balance browser.
type Browser struct {
	ctx    context.Context
	svc    *workflow.Service
	filter model.BalanceFilter

	width, height int
	activeTab     int
	tables        [3]table.Model
	stats         model.DashboardStats
	negative      int

	loading  bool
	spinner  spinner.Model
	loadedAt time.Time
	err      error
}

// NewBrowser creates the browser over svc, showing balances matching filter.
func NewBrowser(ctx context.Context, svc *workflow.Service, filter model.BalanceFilter) Browser {
	t := theme.Active

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(t.Accent)

	b := Browser{ctx: ctx, svc: svc, filter: filter, spinner: sp, loading: true}
	for i, cols := range [][]table.Column{balanceColumns, requestColumns, reconciliationColumns} {
		b.tables[i] = table.New(table.WithColumns(cols), table.WithFocused(i == tabBalances))
		b.tables[i].SetStyles(t.TableStyles())
	}
	return b
}

var (
	balanceColumns = []table.Column{
		{Title: "Activity", Width: 10}, {Title: "Project", Width: 10}, {Title: "Year", Width: 6},
		{Title: "Proj. code", Width: 10}, {Title: "Item", Width: 10},
		{Title: "Baseline", Width: 14}, {Title: "Balance", Width: 14},
	}
	requestColumns = []table.Column{
		{Title: "Sub", Width: 6}, {Title: "Req", Width: 6}, {Title: "Issuer", Width: 12},
		{Title: "Type", Width: 9}, {Title: "Kind", Width: 13}, {Title: "Object", Width: 24},
		{Title: "Total", Width: 12}, {Title: "Status", Width: 9}, {Title: "Created", Width: 16},
	}
	reconciliationColumns = []table.Column{
		{Title: "Rec", Width: 6}, {Title: "Req", Width: 6}, {Title: "Issuer", Width: 12},
		{Title: "Kind", Width: 9}, {Title: "Status", Width: 9}, {Title: "Spent", Width: 12},
		{Title: "Registered", Width: 16},
	}
)

// Init implements tea.Model.
func (b Browser) Init() tea.Cmd {
	return tea.Batch(b.spinner.Tick, loadCmd(b.ctx, b.svc, b.filter))
}

func loadCmd(ctx context.Context, svc *workflow.Service, filter model.BalanceFilter) tea.Cmd {
	return func() tea.Msg {
		var msg LoadedMsg
		msg.At = time.Now()
		if msg.Balances, msg.Err = svc.Balances(ctx, filter); msg.Err != nil {
			return msg
		}
		if msg.Requests, msg.Err = svc.SubRequests(ctx); msg.Err != nil {
			return msg
		}
		if msg.Reconciliations, msg.Err = svc.Reconciliations(ctx); msg.Err != nil {
			return msg
		}
		msg.Stats, msg.Err = svc.Dashboard(ctx)
		return msg
	}
}

// Update implements tea.Model.
func (b Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width, b.height = msg.Width, msg.Height
		for i := range b.tables {
			b.tables[i].SetHeight(max(b.height-chrome, 3))
			b.tables[i].SetWidth(b.width)
		}
		return b, nil

	case LoadedMsg:
		b.loading = false
		b.err = msg.Err
		if msg.Err != nil {
			return b, nil
		}
		b.apply(msg)
		return b, nil

	case spinner.TickMsg:
		if !b.loading {
			return b, nil
		}
		var cmd tea.Cmd
		b.spinner, cmd = b.spinner.Update(msg)
		return b, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return b, tea.Quit
		case "tab":
			b.focus((b.activeTab + 1) % len(b.tables))
			return b, nil
		case "shift+tab":
			b.focus((b.activeTab + len(b.tables) - 1) % len(b.tables))
			return b, nil
		case "g":
			if b.svc == nil || b.loading {
				return b, nil
			}
			b.loading = true
			return b, tea.Batch(b.spinner.Tick, loadCmd(b.ctx, b.svc, b.filter))
		}
		if msg.Type == tea.KeyRunes && len(msg.Runes) == 1 {
			if idx := components.TabIdxByKey(msg.Runes[0]); idx >= 0 {
				b.focus(idx)
				return b, nil
			}
		}
	}

	var cmd tea.Cmd
	b.tables[b.activeTab], cmd = b.tables[b.activeTab].Update(msg)
	return b, cmd
}

func (b *Browser) focus(idx int) {
	b.tables[b.activeTab].Blur()
	b.activeTab = idx
	b.tables[idx].Focus()
}

func (b *Browser) apply(msg LoadedMsg) {
	b.stats = msg.Stats
	b.loadedAt = msg.At
	b.negative = 0

	rows := make([]table.Row, len(msg.Balances))
	for i, r := range msg.Balances {
		if r.Negative() {
			b.negative++
		}
		rows[i] = table.Row{
			strconv.FormatInt(r.ActivityCode, 10), r.Project, strconv.Itoa(r.Year), r.ProjectCode, r.ItemCode,
			cli.FormatAmount(r.BaselineAmount), cli.FormatAmount(r.Balance),
		}
	}
	b.tables[tabBalances].SetRows(rows)

	rows = make([]table.Row, len(msg.Requests))
	for i, r := range msg.Requests {
		rows[i] = table.Row{
			strconv.FormatInt(r.SubRequestID, 10), strconv.FormatInt(r.RequestID, 10), r.IssuerRef,
			r.RequestType, r.Kind, cli.Truncate(r.Object, 24), cli.FormatAmount(r.TotalAmount),
			r.Status, cli.FormatDate(r.CreatedAt),
		}
	}
	b.tables[tabRequests].SetRows(rows)

	rows = make([]table.Row, len(msg.Reconciliations))
	for i, r := range msg.Reconciliations {
		rows[i] = table.Row{
			strconv.FormatInt(r.ReconciliationID, 10), strconv.FormatInt(r.RequestID, 10), r.IssuerRef,
			r.Kind, r.Status, cli.FormatAmount(r.TotalSpent), cli.FormatDate(r.RegisteredAt),
		}
	}
	b.tables[tabReconciliations].SetRows(rows)
}

// View implements tea.Model.
func (b Browser) View() string {
	if b.width == 0 {
		return ""
	}
	t := theme.Active

	var s strings.Builder
	s.WriteString(lipgloss.NewStyle().Foreground(t.Accent).Bold(true).Render(" ptab"))
	s.WriteString(lipgloss.NewStyle().Foreground(t.TextMuted).Render("  budget balances"))
	s.WriteString("\n\n")

	d := b.stats
	metrics := []components.Metric{
		{Label: "Budget", Value: cli.FormatAmount(d.TotalBudget)},
		{Label: "Committed", Value: cli.FormatAmount(d.TotalCommitted), Note: cli.FormatPercent(d.TotalCommitted, d.TotalBudget)},
		{Label: "Regularised", Value: cli.FormatAmount(d.TotalRegularised)},
		{Label: "Remaining", Value: cli.FormatAmount(d.TotalRemaining), Alert: d.TotalRemaining < 0 || b.negative > 0,
			Note: overdrawnNote(b.negative)},
	}
	s.WriteString(components.MetricRow(metrics, b.width))
	s.WriteString("\n")
	s.WriteString(components.RenderTabBar(b.activeTab))
	s.WriteString("\n\n")

	if b.loading && b.loadedAt.IsZero() {
		s.WriteString(" " + b.spinner.View() + " loading…\n")
	} else {
		s.WriteString(b.tables[b.activeTab].View())
		s.WriteString("\n")
	}

	status, isErr := "", false
	switch {
	case b.err != nil:
		status, isErr = b.err.Error(), true
	case b.loading:
		status = b.spinner.View() + " reloading"
	case !b.loadedAt.IsZero():
		status = "loaded " + b.loadedAt.Format("15:04:05")
	}
	s.WriteString(components.RenderStatusBar(b.width, status, isErr))
	return s.String()
}

func overdrawnNote(n int) string {
	switch n {
	case 0:
		return ""
	case 1:
		return "1 line overdrawn"
	}
	return fmt.Sprintf("%d lines overdrawn", n)
}
