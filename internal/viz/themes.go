package viz

import "github.com/charmbracelet/lipgloss"

// Theme assigns colors to the roles of the orbit view. Primary draws titles,
// Secondary the trail and graph, Accent key hints. Success, Warning and Error
// mark the running, paused and failure states.
type Theme struct {
	Name      string
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Text      lipgloss.Color
	Muted     lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
}

func palette(name string, colors [8]string) Theme {
	c := func(i int) lipgloss.Color { return lipgloss.Color(colors[i]) }
	return Theme{name, c(0), c(1), c(2), c(3), c(4), c(5), c(6), c(7)}
}

// Themes is the cycle order of the live view's t key.
var Themes = []Theme{
	palette("night", [8]string{"#c0caf5", "#7dcfff", "#e0af68", "#a9b1d6", "#565f89", "#9ece6a", "#e0af68", "#f7768e"}),
	palette("phosphor", [8]string{"#33ff66", "#22cc55", "#aaffaa", "#33ff66", "#116633", "#aaffaa", "#ffee55", "#ff5544"}),
	palette("paper", [8]string{"#222222", "#0055aa", "#aa3300", "#333333", "#888888", "#227722", "#aa7700", "#cc0000"}),
}

// GetTheme returns a theme by name, falling back to the first theme.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return Themes[0]
}

// NextTheme returns the theme after t in Themes.
func NextTheme(t Theme) Theme {
	for i, th := range Themes {
		if th.Name == t.Name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}
