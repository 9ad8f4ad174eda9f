package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/autogt/autogt/internal/models"
	"github.com/autogt/autogt/internal/pipeline"
)

// eventMsg wraps one pipeline event for the bubbletea loop.
type eventMsg pipeline.Event

// eventsClosedMsg signals the pipeline closed its event channel.
type eventsClosedMsg struct{}

// waitForEvent reads the next pipeline event as a bubbletea command.
func waitForEvent(events <-chan pipeline.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(e)
	}
}

// stepState tracks one workflow step's display state.
type stepState struct {
	err     error
	phase   pipeline.Phase
	current int
	total   int
	failed  int
}

// Progress renders a live view of a pipeline run. It consumes the
// orchestrator's event channel and quits when the run reports done.
type Progress struct {
	err      error
	steps    map[models.TaraStep]*stepState
	cancel   func()
	events   <-chan pipeline.Event
	analysis string
	order    []models.TaraStep
	width    int
	done     bool
	quitting bool
}

// NewProgress creates the progress model for one run. cancel, when
// non-nil, is invoked on the first quit keypress so the pipeline can wind
// down before the view exits.
func NewProgress(analysis string, events <-chan pipeline.Event, cancel func()) *Progress {
	order := models.OrderedTaraSteps()
	steps := make(map[models.TaraStep]*stepState, len(order))
	for _, step := range order {
		steps[step] = &stepState{}
	}
	// Asset definition is input, settled before any step event arrives.
	steps[models.StepAssetDefinition].phase = pipeline.PhaseCompleted

	return &Progress{
		steps:    steps,
		cancel:   cancel,
		events:   events,
		analysis: analysis,
		order:    order,
	}
}

// RunProgress drives the progress view until the run completes. The view
// renders inline so the final state stays in the terminal scrollback.
func RunProgress(analysis string, events <-chan pipeline.Event, cancel func()) error {
	_, err := tea.NewProgram(NewProgress(analysis, events, cancel)).Run()
	return err
}

// Init starts consuming pipeline events.
func (p *Progress) Init() tea.Cmd {
	return waitForEvent(p.events)
}

// Update handles pipeline events and key presses.
func (p *Progress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		return p, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			if p.done {
				return p, tea.Quit
			}
			// Ask the pipeline to stop; quit once it reports done.
			p.quitting = true
			if p.cancel != nil {
				p.cancel()
			}
			return p, nil
		case "enter":
			if p.done {
				return p, tea.Quit
			}
		}
		return p, nil

	case eventMsg:
		p.apply(pipeline.Event(msg))
		if p.done {
			return p, tea.Quit
		}
		return p, waitForEvent(p.events)

	case eventsClosedMsg:
		p.done = true
		return p, tea.Quit
	}

	return p, nil
}

// apply folds one pipeline event into the step table.
func (p *Progress) apply(e pipeline.Event) {
	if e.Phase == pipeline.PhaseDone {
		p.done = true
		p.err = e.Err
		return
	}

	st := p.steps[e.Step]
	if st == nil {
		return
	}

	switch e.Phase {
	case pipeline.PhaseStarted:
		st.phase = pipeline.PhaseStarted
		st.total = e.Total
		st.current = 0
		st.failed = 0
	case pipeline.PhaseItem:
		st.current = e.Current
		st.total = e.Total
		if e.Err != nil {
			st.failed++
		}
	case pipeline.PhaseCompleted:
		st.phase = pipeline.PhaseCompleted
		st.current = e.Current
	case pipeline.PhaseFailed:
		st.phase = pipeline.PhaseFailed
		st.err = e.Err
	case pipeline.PhaseSkipped:
		st.phase = pipeline.PhaseSkipped
	}
}

// View renders the step table and the run status line.
func (p *Progress) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("TARA Pipeline: " + p.analysis))
	b.WriteString("\n\n")

	for _, step := range p.order {
		st := p.steps[step]
		marker, style := p.markerFor(st)

		line := fmt.Sprintf("  %s %s", marker, padRight(Label(step), 22))
		if st.total > 0 {
			line += fmt.Sprintf(" %d/%d", st.current, st.total)
		}
		if st.failed > 0 {
			line += fmt.Sprintf(" (%d failed)", st.failed)
		}
		b.WriteString(style.Render(line))
		if st.err != nil {
			b.WriteString("\n")
			b.WriteString(ErrorStyle.Render("      " + st.err.Error()))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case p.done && p.err != nil:
		b.WriteString(ErrorStyle.Render("Run failed: " + p.err.Error()))
	case p.done:
		b.WriteString(SelectedItemStyle.Render("Run complete"))
	case p.quitting:
		b.WriteString(HelpStyle.Render("Canceling run..."))
	default:
		b.WriteString(HelpStyle.Render("q: cancel run"))
	}
	b.WriteString("\n")

	return b.String()
}

func (p *Progress) markerFor(st *stepState) (string, lipgloss.Style) {
	switch st.phase {
	case pipeline.PhaseCompleted, pipeline.PhaseSkipped:
		return "✓", NormalItemStyle
	case pipeline.PhaseStarted:
		return "▸", SelectedItemStyle
	case pipeline.PhaseFailed:
		return "✗", ErrorStyle
	default:
		return "·", HelpStyle
	}
}
