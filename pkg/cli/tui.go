package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the colors of the TUI.
type Theme struct {
	Primary lipgloss.Color // borders, titles, labels
	Dim     lipgloss.Color // status and help text
}

// DefaultTheme is a soft teal theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#5fd7d7"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds the styles derived from a theme.
type Styles struct {
	Title  lipgloss.Style
	Label  lipgloss.Style
	Border lipgloss.Style
	Help   lipgloss.Style
}

// NewStyles derives styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Padding(0, 1),
		Label:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Border: lipgloss.NewStyle().Foreground(t.Primary),
		Help:   lipgloss.NewStyle().Foreground(t.Dim),
	}
}

// Section is a labeled block of lines inside a Frame.
type Section struct {
	Label   string
	Content func() []string

	// Head keeps the first lines when the content overflows. By default the
	// last lines are kept, which suits logs.
	Head bool

	// Weight is the section's share of the free rows (0 counts as 1).
	Weight int
}

// Frame is a full-screen bordered view: a title bar, stacked sections and
// a help line below the border.
type Frame struct {
	Styles   Styles
	Title    string
	Status   string
	Sections []Section
	Help     string
}

// Render draws the frame at exactly width columns and height rows.
func (f Frame) Render(width, height int) string {
	if width == 0 || height == 0 {
		return "Loading..."
	}

	b := f.Styles.Border
	inner := width - 2
	side := func(s string) string { return b.Render("│") + s + b.Render("│") }

	lines := []string{b.Render("╭" + strings.Repeat("─", inner) + "╮")}

	title := f.Styles.Title.Render(f.Title)
	status := f.Styles.Help.Render("[" + f.Status + "]")
	gap := max(0, inner-3-lipgloss.Width(title)-lipgloss.Width(status))
	lines = append(lines,
		side(" "+title+" "+status+strings.Repeat(" ", gap)+" "),
		side(strings.Repeat(" ", inner)),
	)

	rows := f.sectionRows(height)
	for i, sec := range f.Sections {
		lines = append(lines, f.separator(sec.Label, width))
		for _, text := range visible(sec.Content(), rows[i], sec.Head) {
			lines = append(lines, side(" "+fit(text, inner-2)+" "))
		}
	}

	lines = append(lines,
		b.Render("╰"+strings.Repeat("─", inner)+"╯"),
		f.Styles.Help.Render(f.Help),
	)
	return strings.Join(lines, "\n")
}

// sectionRows splits the rows left after the fixed lines (borders, title,
// spacer, help and one separator per section) by weight. Each section gets
// at least two rows.
func (f Frame) sectionRows(height int) []int {
	n := len(f.Sections)
	rows := make([]int, n)
	if n == 0 {
		return rows
	}
	free := height - 5 - n

	total := 0
	for _, s := range f.Sections {
		total += max(s.Weight, 1)
	}
	used := 0
	for i, s := range f.Sections {
		rows[i] = free * max(s.Weight, 1) / total
		used += rows[i]
	}
	// Hand the rounding remainder to the first sections.
	for i := 0; used < free; i = (i + 1) % n {
		rows[i]++
		used++
	}
	for i := range rows {
		rows[i] = max(rows[i], 2)
	}
	return rows
}

// separator draws ├─Label───┤ across width columns.
func (f Frame) separator(label string, width int) string {
	b := f.Styles.Border
	text := f.Styles.Label.Render(label)
	fill := max(0, width-3-lipgloss.Width(text))
	return b.Render("├─") + text + b.Render(strings.Repeat("─", fill)+"┤")
}

// visible returns exactly n lines of content, padding with blanks.
func visible(content []string, n int, head bool) []string {
	if !head && len(content) > n {
		content = content[len(content)-n:]
	}
	out := make([]string, n)
	copy(out, content)
	return out
}

// fit pads or truncates text to width display cells.
func fit(text string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(text) > width {
		text = truncateString(text, width-1) + "…"
	}
	return text + strings.Repeat(" ", max(0, width-lipgloss.Width(text)))
}

// truncateString cuts s to at most width display cells without splitting
// a rune.
func truncateString(s string, width int) string {
	if width <= 0 {
		return ""
	}
	used := 0
	for i, r := range s {
		w := lipgloss.Width(string(r))
		if used+w > width {
			return s[:i]
		}
		used += w
	}
	return s
}
