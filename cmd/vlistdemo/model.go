package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rowvirt/vlist/internal/adapter"
	"github.com/rowvirt/vlist/internal/config"
	"github.com/rowvirt/vlist/internal/easing"
	"github.com/rowvirt/vlist/internal/engine"
	"github.com/rowvirt/vlist/internal/item"
	"github.com/rowvirt/vlist/internal/recycler"
)

// row is the demo's payload type: a synthetic record standing in for
// whatever a real host application would virtualize.
type row struct {
	Label string
}

// tickMsg paces the engine's render loop, standing in for a browser's
// requestAnimationFrame callback (spec.md's DOM-engine reinterpretation
// table, carried into SPEC_FULL.md).
type tickMsg time.Time

const frameInterval = 33 * time.Millisecond // ~30fps, easy on a terminal

func scheduleTick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type demoModel struct {
	eng    *engine.Engine[row]
	cfg    demoConfig
	width  int
	height int
}

func newDemoModel(cfg demoConfig) (*demoModel, error) {
	ec := config.Default[row]()
	ec.Size.FixedSize = cfg.RowHeight
	ec.Overscan = cfg.Overscan
	ec.HardLimit = cfg.HardLimit
	ec.IDPrefix = cfg.IDPrefix
	if cfg.Selectable {
		ec.Selection.Mode = 1 // selection.ModeSingle
	}

	source := adapter.SourceFunc[row](func(ctx context.Context, req adapter.ReadRequest) (adapter.ReadResult[row], error) {
		items := make([]item.Item[row], req.Range.Len())
		for i := range items {
			idx := req.Range.Start + i
			items[i] = item.Item[row]{
				ID:   fmt.Sprintf("row-%d", idx),
				Data: row{Label: fmt.Sprintf("item %d", idx)},
			}
		}
		return adapter.ReadResult[row]{Items: items, Range: req.Range}, nil
	})

	eng, err := engine.New[row](ec, source)
	if err != nil {
		return nil, err
	}
	eng.SetItems(make([]item.Item[row], cfg.ItemCount))

	return &demoModel{eng: eng, cfg: cfg}, nil
}

func (m *demoModel) Init() tea.Cmd {
	return scheduleTick()
}

func (m *demoModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.eng.HandleResize(float64(m.height - 1))
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.eng.Destroy()
			return m, tea.Quit
		case "down", "j":
			m.eng.HandleScroll(m.eng.GetScrollPosition()+m.cfg.RowHeight, time.Now())
		case "up", "k":
			m.eng.HandleScroll(m.eng.GetScrollPosition()-m.cfg.RowHeight, time.Now())
		case "pgdown":
			m.eng.HandleScroll(m.eng.GetScrollPosition()+float64(m.height), time.Now())
		case "pgup":
			m.eng.HandleScroll(m.eng.GetScrollPosition()-float64(m.height), time.Now())
		case "home":
			_ = m.eng.ScrollToIndexSmooth(context.Background(), 0, engine.AlignStart, 250*time.Millisecond, easing.EaseOutCubic)
		case "end":
			_ = m.eng.ScrollToIndexSmooth(context.Background(), m.cfg.ItemCount-1, engine.AlignEnd, 250*time.Millisecond, easing.EaseOutCubic)
		case "enter", " ":
			m.eng.Select(m.eng.GetScrollSnapshot().AnchorIndex)
		}
		return m, nil

	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.eng.HandleScroll(m.eng.GetScrollPosition()-m.cfg.RowHeight*3, time.Now())
		case tea.MouseButtonWheelDown:
			m.eng.HandleScroll(m.eng.GetScrollPosition()+m.cfg.RowHeight*3, time.Now())
		}
		return m, nil

	case tickMsg:
		return m, scheduleTick()
	}
	return m, nil
}

func (m *demoModel) View() string {
	if m.height == 0 {
		return "loading..."
	}

	slots := m.eng.Render(func(it item.Item[row], meta recycler.Meta) string {
		if it.Placeholder {
			return lipgloss.NewStyle().Faint(true).Render(fmt.Sprintf("%-6d loading...", meta.Index))
		}
		return fmt.Sprintf("%-6d %s", meta.Index, it.Data.Label)
	})

	lines := make([]string, 0, m.height)
	for _, s := range slots {
		if len(lines) >= m.height-1 {
			break
		}
		lines = append(lines, s.Content)
	}
	for len(lines) < m.height-1 {
		lines = append(lines, "")
	}

	status := fmt.Sprintf("scroll %.0f  selected:%v", m.eng.GetScrollPosition(), m.eng.GetSelected())
	view := ""
	for _, l := range lines {
		view += l + "\n"
	}
	return view + lipgloss.NewStyle().Faint(true).Render(status)
}
