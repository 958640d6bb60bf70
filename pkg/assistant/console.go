package assistant

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/jarvis/pkg/conversation"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	barWidth = 30

	// minutesPerExchange is the assumed length of one spoken exchange.
	minutesPerExchange = 0.5
	// emptyHistoryMinutes is shown before the first exchange.
	emptyHistoryMinutes = 160
)

// Console renders the user-facing side of the loop: replies, the token bar and the
// status panel. Diagnostics go to the logger instead.
type Console struct {
	out     io.Writer
	printer *message.Printer

	dim     lipgloss.Style
	speaker lipgloss.Style
	warn    lipgloss.Style
	fail    lipgloss.Style
	ok      lipgloss.Style
	label   lipgloss.Style
	panel   lipgloss.Style
	title   lipgloss.Style
	levels  [3]lipgloss.Style
}

func NewConsole(out io.Writer) *Console {
	r := lipgloss.NewRenderer(out)
	return &Console{
		out:     out,
		printer: message.NewPrinter(language.English),
		dim:     r.NewStyle().Faint(true),
		speaker: r.NewStyle().Foreground(lipgloss.Color("5")).Bold(true),
		warn:    r.NewStyle().Foreground(lipgloss.Color("3")),
		fail:    r.NewStyle().Foreground(lipgloss.Color("1")),
		ok:      r.NewStyle().Foreground(lipgloss.Color("2")),
		label:   r.NewStyle().Foreground(lipgloss.Color("6")),
		panel: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1),
		title: r.NewStyle().Bold(true),
		levels: [3]lipgloss.Style{
			r.NewStyle().Foreground(lipgloss.Color("2")),
			r.NewStyle().Foreground(lipgloss.Color("3")),
			r.NewStyle().Foreground(lipgloss.Color("1")),
		},
	}
}

func (c *Console) println(s string) {
	_, _ = fmt.Fprintln(c.out, s)
}

func (c *Console) Reply(name string, text string) {
	c.println(c.speaker.Render(name+":") + " " + text)
}

func (c *Console) Info(msg string) {
	c.println(c.dim.Render(msg))
}

func (c *Console) Ready(msg string) {
	c.println(c.ok.Render("✓") + " " + msg)
}

func (c *Console) Warn(msg string) {
	c.println(c.warn.Render("⚠ " + msg))
}

func (c *Console) Error(msg string) {
	c.println(c.fail.Render(msg))
}

func (c *Console) Blank() {
	c.println("")
}

// TokenBar prints a one-line summary of the context budget.
func (c *Console) TokenBar(u conversation.Usage, turns int) {
	filled := int(u.PercentUsed / 100 * barWidth)
	if filled < 0 {
		filled = 0
	}
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	level := c.levels[2]
	switch {
	case u.PercentUsed < 50:
		level = c.levels[0]
	case u.PercentUsed < 80:
		level = c.levels[1]
	}

	c.println(fmt.Sprintf("%s %s %s",
		c.dim.Render("Tokens:"),
		level.Render(bar),
		c.dim.Render(c.printer.Sprintf("%d/%d (%.1f%%) • ~%d min remaining",
			u.Total, u.Limit, u.PercentUsed, RemainingMinutes(u, turns))),
	))
}

// RemainingMinutes estimates how long the conversation can go on before the context
// is full, from the average cost of an exchange so far.
func RemainingMinutes(u conversation.Usage, turns int) int {
	if turns <= 0 {
		return emptyHistoryMinutes
	}
	perExchange := float64(u.Total) / (float64(turns) / 2)
	if perExchange < 1 {
		perExchange = 1
	}
	minutes := int(float64(u.Remaining) / perExchange * minutesPerExchange)
	if minutes < 0 {
		return 0
	}
	return minutes
}

type panelRow struct {
	label string
	value string
}

// StatusPanel prints the full usage breakdown.
func (c *Console) StatusPanel(u conversation.Usage, assistantName string) {
	rows := []panelRow{
		{"System prompt", c.printer.Sprintf("%d tokens", u.System)},
		{"Your messages", c.printer.Sprintf("%d tokens", u.User)},
		{assistantName + " responses", c.printer.Sprintf("%d tokens", u.Assistant)},
		{"Total used", c.printer.Sprintf("%d / %d", u.Total, u.Limit)},
		{"Remaining", c.printer.Sprintf("%d tokens", u.Remaining)},
		{"Exchanges", fmt.Sprintf("%d", u.Exchanges)},
	}
	if u.Reported > 0 {
		rows = append(rows, panelRow{"Last reported", c.printer.Sprintf("%d tokens", u.Reported)})
	}

	lines := []string{c.title.Render("Memory Status")}
	for _, row := range rows {
		lines = append(lines, c.label.Render(row.label+":")+" "+row.value)
	}
	c.println(c.panel.Render(strings.Join(lines, "\n")))
}
