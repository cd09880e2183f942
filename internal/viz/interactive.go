package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Builder creates the live model for a chosen integrator and preset.
type Builder func(integrator, preset string) (Model, error)

// Choice is a selectable menu entry.
type Choice struct {
	Name        string
	Description string
}

const (
	columnIntegrator = iota
	columnPreset
)

// Picker lets the user choose an integrator and an initial condition before
// starting the live view.
type Picker struct {
	integrators []Choice
	presets     []Choice
	cursor      [2]int
	column      int
	build       Builder

	live   *Model
	err    error
	styles Styles
}

func NewPicker(integrators, presets []Choice, build Builder) *Picker {
	return &Picker{
		integrators: integrators,
		presets:     presets,
		build:       build,
		styles:      NewStyles(Themes[0]),
	}
}

func (p *Picker) Init() tea.Cmd { return nil }

func (p *Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if p.live != nil {
		next, cmd := p.live.Update(msg)
		live := next.(Model)
		p.live = &live
		return p, cmd
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		return p, tea.Quit
	case "tab", "left", "right", "h", "l":
		p.column = 1 - p.column
	case "up", "k":
		if p.cursor[p.column] > 0 {
			p.cursor[p.column]--
		}
	case "down", "j":
		if p.cursor[p.column] < len(p.list(p.column))-1 {
			p.cursor[p.column]++
		}
	case "enter", " ":
		return p, p.start()
	}
	return p, nil
}

func (p *Picker) list(col int) []Choice {
	if col == columnIntegrator {
		return p.integrators
	}
	return p.presets
}

// Selection returns the highlighted integrator and preset names.
func (p *Picker) Selection() (integrator, preset string) {
	if len(p.integrators) > 0 {
		integrator = p.integrators[p.cursor[columnIntegrator]].Name
	}
	if len(p.presets) > 0 {
		preset = p.presets[p.cursor[columnPreset]].Name
	}
	return integrator, preset
}

func (p *Picker) start() tea.Cmd {
	integ, preset := p.Selection()
	m, err := p.build(integ, preset)
	if err != nil {
		p.err = err
		return nil
	}
	p.err = nil
	p.live = &m
	return m.Init()
}

func (p *Picker) View() string {
	if p.live != nil {
		return p.live.View()
	}

	st := p.styles
	var b strings.Builder
	b.WriteString("\n    " + st.Header.Render("KEPLERSIM") + "\n")
	for col, title := range []string{"integrator", "initial condition"} {
		b.WriteString("    " + st.Label.Render(title) + "\n")
		for i, c := range p.list(col) {
			name := fmt.Sprintf("%-18s", c.Name)
			switch {
			case i == p.cursor[col] && col == p.column:
				b.WriteString("    " + st.Cursor.Render("▸ ") + st.Selected.Render(name) + " " + st.Value.Render(c.Description) + "\n")
			case i == p.cursor[col]:
				b.WriteString("    " + st.Cursor.Render("• ") + st.Value.Render(name) + " " + st.Item.Render(c.Description) + "\n")
			default:
				b.WriteString("      " + st.Item.Render(name+" "+c.Description) + "\n")
			}
		}
		b.WriteString("\n")
	}
	if p.err != nil {
		b.WriteString("    " + st.Alert.Render(p.err.Error()) + "\n\n")
	}
	b.WriteString("    " + st.KeyHints("j/k", "navigate", "tab", "switch list", "enter", "start", "q", "quit") + "\n")
	return b.String()
}

// RunInteractive shows the picker and then the live view.
func RunInteractive(p *Picker) error {
	_, err := tea.NewProgram(p, tea.WithAltScreen()).Run()
	return err
}
