package viz

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/rigidsim/internal/config"
	"go.uber.org/zap"
)

// Picker lists the presets and opens the chosen one in a live view.
type Picker struct {
	names  []string
	cursor int
	logger *zap.Logger
	styles styles
	live   *Live
	err    error
}

func NewPicker(logger *zap.Logger) *Picker {
	return &Picker{names: config.ListPresets(), logger: logger, styles: newStyles(Themes[0])}
}

func (p *Picker) Init() tea.Cmd { return nil }

func (p *Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if p.live != nil {
		if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" {
			p.live = nil
			return p, nil
		}
		_, cmd := p.live.Update(msg)
		return p, cmd
	}
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch key.String() {
	case "q", "ctrl+c":
		return p, tea.Quit
	case "up", "k":
		p.cursor = (p.cursor - 1 + len(p.names)) % len(p.names)
	case "down", "j":
		p.cursor = (p.cursor + 1) % len(p.names)
	case "enter":
		live, err := NewLive(config.GetPreset(p.names[p.cursor]), p.logger)
		if err != nil {
			p.err = err
			return p, nil
		}
		p.err = nil
		p.live = live
		return p, live.Init()
	}
	return p, nil
}

// Selected is the preset under the cursor.
func (p *Picker) Selected() string { return p.names[p.cursor] }

func (p *Picker) View() string {
	if p.live != nil {
		return p.live.View()
	}
	st := p.styles
	var s strings.Builder
	s.WriteString(st.header.Render("RIGIDSIM PRESETS") + "\n")
	for i, name := range p.names {
		if i == p.cursor {
			s.WriteString(st.selected.Render("> "+name) + "\n")
		} else {
			s.WriteString("  " + st.value.Render(name) + "\n")
		}
	}
	if p.err != nil {
		s.WriteString("\n" + st.paused.Render(p.err.Error()) + "\n")
	}
	s.WriteString(st.help.Render("↑↓:Select Enter:Run Esc:Back Q:Quit"))
	return s.String()
}

// RunPicker shows the preset menu until the user quits.
func RunPicker(logger *zap.Logger) error {
	_, err := tea.NewProgram(NewPicker(logger), tea.WithAltScreen()).Run()
	return err
}
