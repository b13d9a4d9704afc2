package viz

import "github.com/charmbracelet/lipgloss"

// Theme is the color scheme of the live view.
type Theme struct {
	Name     string
	Frame    lipgloss.Color
	Header   lipgloss.Color
	Label    lipgloss.Color
	Value    lipgloss.Color
	Graph    lipgloss.Color
	Running  lipgloss.Color
	Paused   lipgloss.Color
	Sleeping lipgloss.Color
}

var (
	ThemeNeon = Theme{
		Name:     "neon",
		Frame:    lipgloss.Color("#00ffff"),
		Header:   lipgloss.Color("#ff00ff"),
		Label:    lipgloss.Color("#888899"),
		Value:    lipgloss.Color("#ffffff"),
		Graph:    lipgloss.Color("#00ff88"),
		Running:  lipgloss.Color("#00ff88"),
		Paused:   lipgloss.Color("#ffaa00"),
		Sleeping: lipgloss.Color("#4488aa"),
	}

	ThemePhosphor = Theme{
		Name:     "phosphor",
		Frame:    lipgloss.Color("#00ff00"),
		Header:   lipgloss.Color("#88ff88"),
		Label:    lipgloss.Color("#005500"),
		Value:    lipgloss.Color("#00ff00"),
		Graph:    lipgloss.Color("#00cc00"),
		Running:  lipgloss.Color("#88ff88"),
		Paused:   lipgloss.Color("#ffff00"),
		Sleeping: lipgloss.Color("#007700"),
	}

	ThemeMono = Theme{
		Name:     "mono",
		Frame:    lipgloss.Color("252"),
		Header:   lipgloss.Color("255"),
		Label:    lipgloss.Color("245"),
		Value:    lipgloss.Color("252"),
		Graph:    lipgloss.Color("250"),
		Running:  lipgloss.Color("255"),
		Paused:   lipgloss.Color("244"),
		Sleeping: lipgloss.Color("240"),
	}

	Themes = []Theme{ThemeNeon, ThemePhosphor, ThemeMono}
)

// GetTheme returns the named theme, or the first one.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return Themes[0]
}

// NextTheme returns the theme after name, wrapping around.
func NextTheme(name string) Theme {
	for i, t := range Themes {
		if t.Name == name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
