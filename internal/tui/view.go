package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/zeusync/diffsim/internal/presentation"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("236")).Padding(0, 1)
	pausedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(16)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	knobStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

// arrows index 45° sectors counterclockwise from +x.
var arrows = []string{"→", "↗", "↑", "↖", "←", "↙", "↓", "↘"}

// Arrow returns the glyph pointing closest to deg, measured counterclockwise from +x.
func Arrow(deg float64) string {
	sector := int(math.Floor(math.Mod(deg+22.5, 360)/45+8)) % 8
	return arrows[sector]
}

// View renders the current frame.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	f := m.frame

	var b strings.Builder
	b.WriteString(headerStyle.Render("DIFFERENTIAL"))
	b.WriteString("\n")

	status := statusStyle.Render(f.Status.String())
	if m.driver.Paused() {
		status += " " + pausedStyle.Render("PAUSED")
	}
	b.WriteString(status)
	b.WriteString("\n\n")

	left := panelStyle.Render(m.drivePanel(f))
	right := panelStyle.Render(anglePanel(f))
	gate := panelStyle.Render(gearGate(m.config.LastGear, f.GearSlot))
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right, gate))
	b.WriteString("\n")

	if chart := m.chart(); chart != "" {
		b.WriteString(graphStyle.Render(chart))
		b.WriteString("\n")
	}

	if m.showHelp {
		b.WriteString(helpStyle.Render("←/→ steer   ↑/↓ shift   space pause   ? help   q quit"))
	}
	return b.String()
}

func row(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value) + "\n"
}

func (m Model) drivePanel(f presentation.Frame) string {
	s := f.Snapshot
	var b strings.Builder
	b.WriteString(row("tick", fmt.Sprintf("%d", s.Tick)))
	b.WriteString(row("gear", s.GearLabel))
	b.WriteString(row("steering", fmt.Sprintf("%+6.1f°  %s", s.SteeringAngle, Arrow(90+s.SteeringAngle))))
	b.WriteString(row("turn ratio", fmt.Sprintf("%+.3f", s.TurnRatio)))
	b.WriteString(row("base speed", fmt.Sprintf("%6.3f  %s", s.BaseSpeed, m.speedBar(s.BaseSpeed, 12))))
	b.WriteString(row("spider speed", fmt.Sprintf("%+6.3f", s.SpiderSpeed)))
	b.WriteString(row("left wheel", fmt.Sprintf("%6.3f", s.LeftSpeed)))
	b.WriteString(strings.TrimSuffix(row("right wheel", fmt.Sprintf("%6.3f", s.RightSpeed)), "\n"))
	return b.String()
}

func anglePanel(f presentation.Frame) string {
	a := f.Snapshot.Angles
	entries := []struct {
		name string
		deg  float64
	}{
		{"ring", a.Ring},
		{"pinion", a.Pinion},
		{"spider carrier", a.SpiderCarrier},
		{"spider spin", a.SpiderRotation},
		{"left side gear", a.LeftSideGear},
		{"right side gear", a.RightSideGear},
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, labelStyle.Render(e.name)+valueStyle.Render(fmt.Sprintf("%6.1f°  %s", e.deg, Arrow(e.deg))))
	}
	return strings.Join(lines, "\n")
}

func (m Model) speedBar(speed float64, width int) string {
	filled := int(math.Round(math.Abs(speed) / m.config.TopSpeed * float64(width)))
	filled = max(0, min(width, filled))
	return barStyle.Render(strings.Repeat("█", filled)) + strings.Repeat("░", width-filled)
}

// gearGate draws the H-pattern for gears up to lastGear with the knob at slot.
func gearGate(lastGear int, slot presentation.Point) string {
	columns := int(presentation.GearSlot(max(lastGear, 3)).X) + 1
	var lines []string
	for y := 3; y >= 1; y-- {
		var b strings.Builder
		for x := 0; x <= columns; x++ {
			switch {
			case x == int(slot.X) && y == int(slot.Y):
				b.WriteString(knobStyle.Render("●"))
			case y == 2 && x > 0 && x < columns:
				b.WriteString("─")
			case x%2 == 1 && x < columns:
				b.WriteString("│")
			default:
				b.WriteString(" ")
			}
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

func (m Model) chart() string {
	if m.leftSpeeds.Len() < 2 {
		return ""
	}
	width := min(m.leftSpeeds.Len(), max(20, m.width-12))
	return asciigraph.PlotMany(
		[][]float64{m.leftSpeeds.Slice(), m.rightSpeeds.Slice()},
		asciigraph.Height(6),
		asciigraph.Width(width),
		asciigraph.LowerBound(0),
		asciigraph.UpperBound(m.config.TopSpeed),
		asciigraph.SeriesColors(asciigraph.Red, asciigraph.Blue),
		asciigraph.Caption("wheel speed: left (red) / right (blue)"),
	)
}
