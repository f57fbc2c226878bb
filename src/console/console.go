package console

import (
	"fmt"
	"io"
	"sync"
	"time"

	"trade-sync/src/models"
	"trade-sync/src/utils"

	"github.com/charmbracelet/lipgloss"
)

// -----------------------------------------------------------------------------
// Renderer prints client events as styled terminal lines. It is an event
// sink; every method writes at most one line.
// -----------------------------------------------------------------------------

type Renderer struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time

	// Price changes are only printed when showTicks is set.
	showTicks bool

	upStyle      lipgloss.Style
	downStyle    lipgloss.Style
	flatStyle    lipgloss.Style
	confirmStyle lipgloss.Style
	liveStyle    lipgloss.Style
	paperStyle   lipgloss.Style
	errorStyle   lipgloss.Style
	okStyle      lipgloss.Style
	dimStyle     lipgloss.Style
}

// -----------------------------------------------------------------------------

func NewRenderer(out io.Writer) *Renderer {
	r := lipgloss.NewRenderer(out)
	return &Renderer{
		out:          out,
		now:          time.Now,
		upStyle:      r.NewStyle().Foreground(lipgloss.Color("10")),
		downStyle:    r.NewStyle().Foreground(lipgloss.Color("9")),
		flatStyle:    r.NewStyle().Foreground(lipgloss.Color("245")),
		confirmStyle: r.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		liveStyle:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("9")),
		paperStyle:   r.NewStyle().Foreground(lipgloss.Color("14")),
		errorStyle:   r.NewStyle().Foreground(lipgloss.Color("196")),
		okStyle:      r.NewStyle().Foreground(lipgloss.Color("46")),
		dimStyle:     r.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// -----------------------------------------------------------------------------

// SetShowTicks turns printing of price changes on or off.
func (r *Renderer) SetShowTicks(on bool) {
	r.mu.Lock()
	r.showTicks = on
	r.mu.Unlock()
}

func (r *Renderer) println(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stamp := r.dimStyle.Render(r.now().Format("15:04:05"))
	fmt.Fprintf(r.out, "%s %s\n", stamp, line)
}

// -----------------------------------------------------------------------------
// IEventSink Implementation
// -----------------------------------------------------------------------------

func (r *Renderer) OnPriceChanged(change models.MPriceChange) {
	r.mu.Lock()
	show := r.showTicks
	r.mu.Unlock()
	if !show {
		return
	}
	style, arrow := r.flatStyle, "="
	switch change.Direction {
	case models.DirectionUp:
		style, arrow = r.upStyle, "▲"
	case models.DirectionDown:
		style, arrow = r.downStyle, "▼"
	}
	r.println(style.Render(fmt.Sprintf("%s %s %s", arrow, change.Symbol, utils.FormatPrice(change.Snapshot.Last))))
}

func (r *Renderer) OnConnectionStateChanged(state models.MConnectionState) {
	style := r.dimStyle
	if state == models.StateConnected {
		style = r.okStyle
	}
	r.println(style.Render("stream " + state.String()))
}

func (r *Renderer) OnConfirmationOpened(c models.MConfirmation) {
	r.println(r.confirmStyle.Render(fmt.Sprintf("CONFIRM %s: %s", c.ID, c.Message)) +
		r.dimStyle.Render("  (accept "+c.ID+" / decline "+c.ID+")"))
}

func (r *Renderer) OnConfirmationUpdated(c models.MConfirmation) {
	line := fmt.Sprintf("confirmation %s %s", c.ID, c.Status)
	if c.ResultMessage != "" {
		line += ": " + c.ResultMessage
	}
	switch c.Status {
	case models.ConfirmationFailed:
		r.println(r.errorStyle.Render(line))
	case models.ConfirmationResolved:
		r.println(r.okStyle.Render(line))
	default:
		r.println(r.confirmStyle.Render(line))
	}
}

func (r *Renderer) OnCommandResult(outcome models.MCommandOutcome) {
	if outcome.Success {
		r.println(r.okStyle.Render("✓ " + outcome.Message))
	} else {
		r.println(r.errorStyle.Render("✗ " + outcome.Message))
	}
	for _, d := range outcome.Details() {
		r.println(r.dimStyle.Render("  " + d))
	}
}

func (r *Renderer) OnAccountUpdated(models.MAccountSnapshot) {}

func (r *Renderer) OnTradingModeChanged(state models.MTradingModeState) {
	switch {
	case state.LiveBanner:
		r.println(r.liveStyle.Render(" LIVE TRADING ") + " real funds at risk")
	case state.Mode == models.TradingModeUnknown:
		r.println(r.dimStyle.Render("trading mode unknown"))
	default:
		r.println(r.paperStyle.Render(fmt.Sprintf("trading mode %s", state.Mode)))
	}
	if state.Message != "" {
		r.println(r.dimStyle.Render(state.Message))
	}
}

func (r *Renderer) OnError(source string, err error) {
	r.println(r.errorStyle.Render(fmt.Sprintf("[%s] %v", source, err)))
}
