package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"trade-sync/src/account"
	"trade-sync/src/interfaces"
	"trade-sync/src/models"
	"trade-sync/src/utils"
)

const helpText = `commands:
  login <email> <password>   signup <email> <password>   logout
  accept <id>                decline <id>                pending
  mode paper|live            prices                      account
  status                     ticks on|off                quit
  order buy|sell <qty> <symbol> [limit price]
anything else is sent to the AI agent as a command`

// -----------------------------------------------------------------------------
// REPL reads user input line by line. Plain text goes to the AI agent; a few
// verbs drive the session directly. It is also the acknowledger for switches
// to live trading, reading the answer from the same input.
// -----------------------------------------------------------------------------

type REPL struct {
	Session  interfaces.IDashboardSession
	Renderer *Renderer
	Out      io.Writer
	lines    chan string
}

func NewREPL(session interfaces.IDashboardSession, renderer *Renderer, out io.Writer) *REPL {
	return &REPL{
		Session:  session,
		Renderer: renderer,
		Out:      out,
		lines:    make(chan string),
	}
}

// -----------------------------------------------------------------------------

// Run executes lines from in until "quit", end of input or ctx is done.
func (p *REPL) Run(ctx context.Context, in io.Reader) {
	eof := make(chan struct{})
	go func() {
		defer close(eof)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case p.lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(p.Out, "type 'help' for commands")
	for {
		select {
		case <-ctx.Done():
			return
		case <-eof:
			return
		case line := <-p.lines:
			if p.Execute(ctx, line) {
				return
			}
		}
	}
}

// -----------------------------------------------------------------------------

// Acknowledge prints the warning and waits for the user to type "yes".
func (p *REPL) Acknowledge(ctx context.Context, warning string) bool {
	fmt.Fprintf(p.Out, "%s\ntype 'yes' to continue: ", warning)
	select {
	case <-ctx.Done():
		return false
	case line := <-p.lines:
		return strings.EqualFold(strings.TrimSpace(line), "yes")
	}
}

// -----------------------------------------------------------------------------

// Execute runs one line and reports whether the user asked to quit.
func (p *REPL) Execute(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	fields := strings.Fields(line)
	verb, args := strings.ToLower(fields[0]), fields[1:]

	var err error
	switch {
	case verb == "quit" || verb == "exit":
		return true
	case verb == "help":
		fmt.Fprintln(p.Out, helpText)
	case verb == "login" && len(args) == 2:
		err = p.Session.Login(ctx, args[0], args[1])
		if err == nil {
			fmt.Fprintln(p.Out, "logged in")
		}
	case verb == "signup" && len(args) == 2:
		err = p.Session.Signup(ctx, args[0], args[1])
		if err == nil {
			fmt.Fprintln(p.Out, "registered, you can log in now")
		}
	case verb == "logout" && len(args) == 0:
		err = p.Session.Logout()
	case (verb == "accept" || verb == "decline") && len(args) == 1:
		_, err = p.Session.ResolveConfirmation(ctx, args[0], verb == "accept")
	case verb == "pending" && len(args) == 0:
		p.printPending()
	case verb == "mode" && len(args) == 1:
		err = p.switchMode(ctx, args[0])
	case verb == "prices" && len(args) == 0:
		p.printPrices()
	case verb == "account" && len(args) == 0:
		p.printAccount()
	case verb == "status" && len(args) == 0:
		p.printStatus()
	case verb == "order" && (len(args) == 3 || len(args) == 4):
		err = p.placeOrder(ctx, args)
	case verb == "ticks" && len(args) == 1 && p.Renderer != nil:
		p.Renderer.SetShowTicks(strings.EqualFold(args[0], "on"))
	default:
		_, err = p.Session.SubmitCommand(ctx, line)
	}

	if err != nil {
		fmt.Fprintf(p.Out, "error: %v\n", err)
	}
	return false
}

// -----------------------------------------------------------------------------

func (p *REPL) switchMode(ctx context.Context, arg string) error {
	mode, ok := models.ParseTradingMode(arg)
	if !ok {
		return fmt.Errorf("unknown mode %q, use paper or live", arg)
	}
	_, err := p.Session.SwitchTradingMode(ctx, mode, p)
	return err
}

func (p *REPL) placeOrder(ctx context.Context, args []string) error {
	limit := ""
	if len(args) == 4 {
		limit = args[3]
	}
	req, err := account.ParseOrder(args[0], args[1], args[2], limit)
	if err != nil {
		return err
	}
	_, err = p.Session.PlaceOrder(ctx, req)
	return err
}

func (p *REPL) printPending() {
	active := p.Session.ActiveConfirmations()
	if len(active) == 0 {
		fmt.Fprintln(p.Out, "no pending confirmations")
		return
	}
	for _, c := range active {
		fmt.Fprintf(p.Out, "%s  %s  %s\n", c.ID, c.Status, c.Message)
	}
}

func (p *REPL) printPrices() {
	snapshot := p.Session.Prices()
	symbols := make([]string, 0, len(snapshot))
	for s := range snapshot {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	for _, s := range symbols {
		snap := snapshot[s]
		line := fmt.Sprintf("%-10s %12s", s, utils.FormatPrice(snap.Last))
		if snap.Bid != nil && snap.Ask != nil {
			line += fmt.Sprintf("  bid %s ask %s", utils.FormatPrice(*snap.Bid), utils.FormatPrice(*snap.Ask))
		}
		if snap.Change24h != nil {
			line += fmt.Sprintf("  24h %+.2f%%", *snap.Change24h)
		}
		fmt.Fprintln(p.Out, line)
	}
}

func (p *REPL) printAccount() {
	acct := p.Session.Account()
	if acct.UpdatedAt.IsZero() {
		fmt.Fprintln(p.Out, "account not loaded yet")
		return
	}
	fmt.Fprintf(p.Out, "balance %s  mode %s\n", acct.Balance.StringFixed(2), acct.TradingMode)
	for _, pos := range acct.Portfolio {
		fmt.Fprintf(p.Out, "  %-10s %s @ %s\n", pos.Symbol, pos.Quantity, pos.AvgEntryPrice.StringFixed(2))
	}
	for _, o := range acct.Orders {
		fmt.Fprintf(p.Out, "  order %d %s %s %s %s\n", o.ID, o.Side, o.Quantity, o.Symbol, o.Status)
	}
}

func (p *REPL) printStatus() {
	stats := p.Session.StreamStats()
	mode := p.Session.TradingMode()
	fmt.Fprintf(p.Out, "stream %s (connects %d, reconnects %d, ticks %d)  mode %s  logged in %t\n",
		stats.State, stats.Connects, stats.Reconnects, stats.TicksApplied, mode.Mode, p.Session.LoggedIn())
}
