package confirm

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"trade-sync/src/helpers"
	"trade-sync/src/interfaces"
	"trade-sync/src/logger"
	"trade-sync/src/models"
)

const (
	// HistoryLimit is how many terminal records stay queryable.
	HistoryLimit = 50

	// OutcomeUnknown is the result of a confirmation whose confirm call was
	// interrupted before its reply.
	OutcomeUnknown = "Outcome unknown: the client stopped before the backend replied"

	defaultDeclineTimeout = 10 * time.Second
)

// -----------------------------------------------------------------------------
// Coordinator gates backend-flagged commands behind an explicit accept or
// decline. A record accepts exactly one action: its actions are disabled
// under the lock before any network call is issued.
// -----------------------------------------------------------------------------

type Coordinator struct {
	Backend        interfaces.ICommandBackend
	Tokens         interfaces.ITokenSource
	Refresher      interfaces.IAccountRefresher
	Store          interfaces.ISessionStore
	Sink           interfaces.IEventSink
	Logger         *logger.Logger
	DeclineTimeout time.Duration

	mu      sync.Mutex
	active  map[string]*models.MConfirmation
	history []models.MConfirmation
	pending sync.WaitGroup
}

// -----------------------------------------------------------------------------

func NewCoordinator(
	backend interfaces.ICommandBackend,
	tokens interfaces.ITokenSource,
	refresher interfaces.IAccountRefresher,
	store interfaces.ISessionStore,
	sink interfaces.IEventSink,
	log *logger.Logger,
) *Coordinator {
	return &Coordinator{
		Backend:        backend,
		Tokens:         tokens,
		Refresher:      refresher,
		Store:          store,
		Sink:           sink,
		Logger:         log,
		DeclineTimeout: defaultDeclineTimeout,
		active:         make(map[string]*models.MConfirmation),
	}
}

// -----------------------------------------------------------------------------

// Restore reloads the journal. Pending records reopen with their actions
// enabled; everything else becomes history. A record left CONFIRMED by an
// earlier run is closed as FAILED with OutcomeUnknown.
func (c *Coordinator) Restore() error {
	if c.Store == nil {
		return nil
	}
	if err := c.Store.PruneConfirmations(HistoryLimit); err != nil {
		c.Logger.Warning("Failed to prune confirmation journal: %v", err)
	}
	records, err := c.Store.LoadConfirmations(HistoryLimit * 2)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		if rec.Status == models.ConfirmationPending {
			rec.ActionsEnabled = true
			c.active[rec.ID] = &rec
			continue
		}
		rec.ActionsEnabled = false
		if rec.Status == models.ConfirmationConfirmed {
			// The confirm call was issued but its reply never recorded.
			rec.Status = models.ConfirmationFailed
			rec.ResultMessage = OutcomeUnknown
			if rec.ResolvedAt.IsZero() {
				rec.ResolvedAt = time.Now()
			}
			c.journal(rec)
		}
		c.pushHistory(rec)
	}
	if len(c.active) > 0 {
		c.Logger.Info("Restored %d open confirmations", len(c.active))
	}
	return nil
}

// -----------------------------------------------------------------------------
// Submit
// -----------------------------------------------------------------------------

// SubmitCommand sends text to the backend and interprets the reply. Backend
// failures are reported as outcomes, not errors; errors are returned for
// authorization, transport and protocol problems.
func (c *Coordinator) SubmitCommand(ctx context.Context, text string) (models.MSubmitResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.MSubmitResult{}, helpers.NewCommandError("empty command")
	}
	if c.Tokens == nil || c.Tokens.Token() == "" {
		err := helpers.NewAuthorizationError("login required to send commands")
		c.emitError(err)
		return models.MSubmitResult{}, err
	}

	resp, err := c.Backend.SubmitCommand(ctx, text)
	if err != nil {
		c.Logger.Warning("Command %q failed: %v", text, err)
		outcome := models.MCommandOutcome{Command: text, Success: false, Message: "Failed to send command: " + err.Error()}
		c.emitOutcome(outcome)
		return models.MSubmitResult{Outcome: &outcome}, err
	}

	if resp.Success && resp.RequiresConfirmation {
		rec, err := c.open(text, resp)
		if err != nil {
			c.emitError(err)
			return models.MSubmitResult{}, err
		}
		return models.MSubmitResult{Confirmation: &rec}, nil
	}

	outcome := resp.Outcome()
	outcome.Command = text
	c.emitOutcome(outcome)
	if resp.Success {
		c.refresh()
	}
	return models.MSubmitResult{Outcome: &outcome}, nil
}

// -----------------------------------------------------------------------------

func (c *Coordinator) open(command string, resp models.MCommandResponse) (models.MConfirmation, error) {
	id := strings.TrimSpace(resp.ConfirmationID)
	prompt := resp.PromptText()
	if id == "" {
		return models.MConfirmation{}, helpers.NewProtocolError("confirmation requested without confirmationId", nil)
	}
	if prompt == "" {
		return models.MConfirmation{}, helpers.NewProtocolError("confirmation "+id+" has no message", nil)
	}

	c.mu.Lock()
	if _, exists := c.active[id]; exists || c.inHistory(id) {
		c.mu.Unlock()
		return models.MConfirmation{}, helpers.NewProtocolError("duplicate confirmation id "+id, nil)
	}
	rec := &models.MConfirmation{
		ID:             id,
		Message:        prompt,
		Command:        command,
		Status:         models.ConfirmationPending,
		ActionsEnabled: true,
		CreatedAt:      time.Now(),
	}
	c.active[id] = rec
	snapshot := *rec
	c.mu.Unlock()

	c.journal(snapshot)
	c.Logger.Info("Confirmation %s opened: %s", id, prompt)
	if c.Sink != nil {
		c.Sink.OnConfirmationOpened(snapshot)
	}
	return snapshot, nil
}

// -----------------------------------------------------------------------------
// Resolve
// -----------------------------------------------------------------------------

// Resolve accepts or declines an open confirmation. The second action on the
// same id returns ErrConfirmationClosed without issuing anything.
func (c *Coordinator) Resolve(ctx context.Context, id string, accept bool) (models.MConfirmation, error) {
	if c.Tokens == nil || c.Tokens.Token() == "" {
		err := helpers.NewAuthorizationError("login required to resolve confirmations")
		c.emitError(err)
		return models.MConfirmation{}, err
	}

	c.mu.Lock()
	rec, ok := c.active[id]
	if !ok {
		known := c.inHistory(id)
		c.mu.Unlock()
		if known {
			return models.MConfirmation{}, helpers.ErrConfirmationClosed
		}
		return models.MConfirmation{}, helpers.ErrUnknownConfirmation
	}
	if !rec.ActionsEnabled {
		c.mu.Unlock()
		return models.MConfirmation{}, helpers.ErrConfirmationClosed
	}
	rec.ActionsEnabled = false
	if accept {
		rec.Status = models.ConfirmationConfirmed
	} else {
		rec.Status = models.ConfirmationDeclined
		rec.ResolvedAt = time.Now()
		rec.ResultMessage = "Declined"
		c.retire(id)
	}
	snapshot := *rec
	c.mu.Unlock()

	c.journal(snapshot)
	if c.Sink != nil {
		c.Sink.OnConfirmationUpdated(snapshot)
	}

	if !accept {
		c.Logger.Info("Confirmation %s declined", id)
		c.sendDecline(ctx, id)
		return snapshot, nil
	}
	return c.confirm(ctx, id)
}

// -----------------------------------------------------------------------------

func (c *Coordinator) confirm(ctx context.Context, id string) (models.MConfirmation, error) {
	resp, err := c.Backend.ConfirmCommand(ctx, id)

	status := models.ConfirmationResolved
	outcome := resp.Outcome()
	outcome.ConfirmationID = id
	switch {
	case err != nil:
		status = models.ConfirmationFailed
		outcome.Success = false
		outcome.Message = "Confirmation failed: " + err.Error()
		c.Logger.Error("Confirm %s failed: %v", id, err)
	case !resp.Success:
		status = models.ConfirmationFailed
	}

	c.mu.Lock()
	rec := c.active[id]
	rec.Status = status
	rec.ResultMessage = outcome.Message
	rec.ResolvedAt = time.Now()
	snapshot := *rec
	c.retire(id)
	c.mu.Unlock()

	c.journal(snapshot)
	if c.Sink != nil {
		c.Sink.OnConfirmationUpdated(snapshot)
	}
	c.emitOutcome(outcome)
	if err == nil {
		c.refresh()
	}
	return snapshot, err
}

// -----------------------------------------------------------------------------

// sendDecline tells the backend without making the caller wait. The reply is
// only logged.
func (c *Coordinator) sendDecline(ctx context.Context, id string) {
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()

		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.DeclineTimeout)
		defer cancel()

		resp, err := c.Backend.DeclineCommand(dctx, id)
		if err != nil {
			c.Logger.Warning("Decline %s not delivered: %v", id, err)
			return
		}
		c.Logger.Debug("Decline %s acknowledged: %s", id, resp.Message)
	}()
}

// Wait blocks until in-flight decline calls have returned.
func (c *Coordinator) Wait() {
	c.pending.Wait()
}

// -----------------------------------------------------------------------------
// Queries
// -----------------------------------------------------------------------------

// Get returns an active or recently finished record.
func (c *Coordinator) Get(id string) (models.MConfirmation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rec, ok := c.active[id]; ok {
		return *rec, true
	}
	for i := len(c.history) - 1; i >= 0; i-- {
		if c.history[i].ID == id {
			return c.history[i], true
		}
	}
	return models.MConfirmation{}, false
}

// Active returns the records still under tracking, oldest first.
func (c *Coordinator) Active() []models.MConfirmation {
	c.mu.Lock()
	out := make([]models.MConfirmation, 0, len(c.active))
	for _, rec := range c.active {
		out = append(out, *rec)
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// History returns finished records, newest first.
func (c *Coordinator) History() []models.MConfirmation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.MConfirmation, 0, len(c.history))
	for i := len(c.history) - 1; i >= 0; i-- {
		out = append(out, c.history[i])
	}
	return out
}

// -----------------------------------------------------------------------------
// Internals (c.mu held where noted)
// -----------------------------------------------------------------------------

// retire moves a terminal record out of active tracking. c.mu held.
func (c *Coordinator) retire(id string) {
	rec, ok := c.active[id]
	if !ok {
		return
	}
	delete(c.active, id)
	c.pushHistory(*rec)
}

// c.mu held.
func (c *Coordinator) pushHistory(rec models.MConfirmation) {
	c.history = append(c.history, rec)
	if over := len(c.history) - HistoryLimit; over > 0 {
		c.history = append([]models.MConfirmation(nil), c.history[over:]...)
	}
}

// c.mu held.
func (c *Coordinator) inHistory(id string) bool {
	for _, rec := range c.history {
		if rec.ID == id {
			return true
		}
	}
	return false
}

func (c *Coordinator) journal(rec models.MConfirmation) {
	if c.Store == nil {
		return
	}
	if err := c.Store.SaveConfirmation(rec); err != nil {
		c.Logger.Error("Failed to journal confirmation %s: %v", rec.ID, err)
	}
}

func (c *Coordinator) refresh() {
	if c.Refresher != nil {
		c.Refresher.RequestRefresh()
	}
}

func (c *Coordinator) emitOutcome(outcome models.MCommandOutcome) {
	if c.Sink != nil {
		c.Sink.OnCommandResult(outcome)
	}
}

func (c *Coordinator) emitError(err error) {
	if c.Sink != nil {
		c.Sink.OnError("command", err)
	}
}
