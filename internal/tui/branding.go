package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/ivanGusef/guardfeed/internal/config"
)

const AppName = "guardfeed"

var LogoLines = []string{
	"┏━╸╻ ╻┏━┓┏━┓╺┳┓┏━╸┏━╸┏━╸╺┳┓",
	"┃╺┓┃ ┃┣━┫┣┳┛ ┃┃┣╸ ┣╸ ┣╸  ┃┃",
	"┗━┛┗━┛╹ ╹╹┗╸╺┻┛╹  ┗━╸┗━╸╺┻┛",
}

const CompactLogo = `guardfeed ›`

// Palette. ApplyTheme replaces these from config and rebuilds the styles.
var (
	PrimaryColor   = lipgloss.Color("#052962")
	SecondaryColor = lipgloss.Color("#FFE500")
	AccentColor    = lipgloss.Color("#C70000")
	TextColor      = lipgloss.Color("#EAEAEA")
	MutedColor     = lipgloss.Color("#94A3B8")
	ErrorColor     = lipgloss.Color("#F87171")
	SuccessColor   = lipgloss.Color("#4ADE80")
)

var (
	LogoStyle          lipgloss.Style
	TitleStyle         lipgloss.Style
	HeaderStyle        lipgloss.Style
	StatusBarStyle     lipgloss.Style
	ItemStyle          lipgloss.Style
	SelectedItemStyle  lipgloss.Style
	TrailStyle         lipgloss.Style
	PlaceholderStyle   lipgloss.Style
	HelpStyle          lipgloss.Style
	SeparatorStyle     lipgloss.Style
	StatusInfoStyle    lipgloss.Style
	StatusSuccessStyle lipgloss.Style
	StatusWarnStyle    lipgloss.Style
	StatusErrorStyle   lipgloss.Style
	EmptyStyle         = lipgloss.NewStyle()
)

func init() {
	buildStyles()
}

// ApplyTheme installs the configured colors. Empty entries keep the
// current color.
func ApplyTheme(c config.UIColors) {
	set := func(dst *lipgloss.Color, hex string) {
		if hex != "" {
			*dst = lipgloss.Color(hex)
		}
	}
	set(&PrimaryColor, c.Primary)
	set(&SecondaryColor, c.Secondary)
	set(&AccentColor, c.Accent)
	set(&TextColor, c.Text)
	set(&MutedColor, c.Muted)
	set(&ErrorColor, c.Error)
	set(&SuccessColor, c.Success)
	buildStyles()
}

func buildStyles() {
	LogoStyle = lipgloss.NewStyle().
		Foreground(SecondaryColor).
		Bold(true)

	TitleStyle = lipgloss.NewStyle().
		Foreground(TextColor).
		Background(PrimaryColor).
		Bold(true).
		Padding(0, 2)

	HeaderStyle = lipgloss.NewStyle().
		Foreground(SecondaryColor).
		Bold(true)

	StatusBarStyle = lipgloss.NewStyle().
		Foreground(MutedColor).
		Padding(0, 1)

	ItemStyle = lipgloss.NewStyle().
		Foreground(TextColor).
		PaddingLeft(2)

	SelectedItemStyle = lipgloss.NewStyle().
		Foreground(TextColor).
		Bold(true).
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(AccentColor).
		PaddingLeft(1)

	TrailStyle = lipgloss.NewStyle().
		Foreground(MutedColor).
		PaddingLeft(2)

	PlaceholderStyle = lipgloss.NewStyle().
		Foreground(MutedColor).
		Italic(true).
		PaddingLeft(2)

	HelpStyle = lipgloss.NewStyle().
		Foreground(MutedColor).
		Italic(true)

	SeparatorStyle = lipgloss.NewStyle().
		Foreground(MutedColor)

	StatusInfoStyle = lipgloss.NewStyle().
		Foreground(MutedColor)

	StatusSuccessStyle = lipgloss.NewStyle().
		Foreground(SuccessColor)

	StatusWarnStyle = lipgloss.NewStyle().
		Foreground(SecondaryColor)

	StatusErrorStyle = lipgloss.NewStyle().
		Foreground(ErrorColor).
		Bold(true)
}

// GetCompactBanner renders the logo above a hint line.
func GetCompactBanner(message string) string {
	var coloredLines []string
	for _, line := range LogoLines {
		coloredLines = append(coloredLines, LogoStyle.Render(line))
	}

	logo := lipgloss.JoinVertical(lipgloss.Center, coloredLines...)

	return lipgloss.JoinVertical(
		lipgloss.Center,
		logo,
		"",
		HelpStyle.Render(message),
	)
}

// ShowBanner writes the framed logo and version tagline to w.
func ShowBanner(w io.Writer, version string) {
	lines := make([]string, len(LogoLines), len(LogoLines)+2)
	copy(lines, LogoLines)
	lines = append(lines, "")

	tagline := "Guardian headlines in your terminal"
	if version != "" && version != "dev" {
		if version[0] != 'v' && version[0] != 'V' {
			version = "v" + version
		}
		tagline += " " + version
	}
	lines = append(lines, tagline)

	var rendered []string
	for i, line := range lines {
		switch {
		case line == "":
			rendered = append(rendered, line)
		case i < len(LogoLines):
			rendered = append(rendered, LogoStyle.Render(line))
		default:
			rendered = append(rendered, HelpStyle.Render(line))
		}
	}

	frame := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(PrimaryColor).
		Padding(1, 3).
		MarginTop(1)

	banner := frame.Render(lipgloss.JoinVertical(lipgloss.Center, rendered...))
	fmt.Fprintln(w, lipgloss.NewStyle().
		Width(70).
		Align(lipgloss.Center).
		MarginBottom(1).
		Render(banner))
}
