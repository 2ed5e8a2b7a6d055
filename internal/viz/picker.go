package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type PresetEntry struct {
	Name    string
	Summary string
}

// Picker lists presets and opens a live Model for the chosen one. Esc in the
// live view returns to the list.
type Picker struct {
	entries []PresetEntry
	cursor  int
	build   func(name string) (Model, error)
	live    *Model
	err     error
	styles  styles
}

func NewPicker(entries []PresetEntry, build func(name string) (Model, error)) Picker {
	return Picker{
		entries: entries,
		build:   build,
		styles:  newStyles(Themes[0]),
	}
}

func (p Picker) Init() tea.Cmd { return nil }

func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if p.live != nil {
		if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" {
			p.live.stop()
			p.live = nil
			return p, nil
		}
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
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down", "j":
		if p.cursor < len(p.entries)-1 {
			p.cursor++
		}
	case "enter", " ":
		if len(p.entries) == 0 {
			return p, nil
		}
		m, err := p.build(p.entries[p.cursor].Name)
		if err != nil {
			p.err = err
			return p, nil
		}
		p.err = nil
		p.live = &m
		return p, m.Init()
	}
	return p, nil
}

// Selected is the preset under the cursor.
func (p Picker) Selected() string {
	if len(p.entries) == 0 {
		return ""
	}
	return p.entries[p.cursor].Name
}

func (p Picker) Live() bool { return p.live != nil }

func (p Picker) View() string {
	if p.live != nil {
		return p.live.View()
	}

	st := p.styles
	var s strings.Builder
	s.WriteString(st.title.Render("DPSIM") + st.value.Render("  choose a preset") + "\n\n")
	for i, e := range p.entries {
		line := fmt.Sprintf("%-10s %s", e.Name, e.Summary)
		if i == p.cursor {
			s.WriteString(st.active.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + st.value.Render(line) + "\n")
		}
	}
	if p.err != nil {
		s.WriteString("\n" + st.diverged.Render(p.err.Error()) + "\n")
	}
	s.WriteString(st.help.Render("↑↓:move enter:open esc:back q:quit"))
	return s.String()
}
