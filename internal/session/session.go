// Package session implements the Session Controller (spec §4.G): the
// singleton Session lifecycle (startSession/execute/assert/
// waitForCondition/executeAndWait/stopSession/getCurrentState), append-
// only step/verification history, and artifact directory bookkeeping.
package session

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/ai-agentic-browser/internal/agenterr"
	"github.com/ai-agentic-browser/internal/device"
	"github.com/ai-agentic-browser/internal/dispatcher"
	"github.com/ai-agentic-browser/internal/engine"
	"github.com/ai-agentic-browser/internal/geometry"
	"github.com/ai-agentic-browser/internal/prompt"
	"github.com/ai-agentic-browser/internal/uistate"
	"github.com/ai-agentic-browser/pkg/observability"
)

// Controller holds the singleton Session for the current lifetime (spec
// §4.G). It is not safe for concurrent use: at most one in-flight
// execute/assert/wait* call is supported per instance (spec §5).
type Controller struct {
	engine     *engine.Engine
	dispatcher *dispatcher.Dispatcher
	device     device.Session

	artifactsDir string
	audit        *observability.AuditLogger

	current   *uistate.Session
	counter   int
	reasoning map[string]string
}

// New builds a Controller bound to the given collaborators. artifactsDir
// may be empty, disabling before/after screenshot persistence.
func New(eng *engine.Engine, disp *dispatcher.Dispatcher, dev device.Session, artifactsDir string, audit *observability.AuditLogger) *Controller {
	return &Controller{engine: eng, dispatcher: disp, device: dev, artifactsDir: artifactsDir, audit: audit}
}

// StartSession transitions Idle → SessionOpen. It creates the session
// record only and takes no initial snapshot; the first snapshot is the one
// the first execute() call takes as part of tier 1.
func (c *Controller) StartSession(ctx context.Context, task string) (*uistate.Session, error) {
	if c.current != nil && !c.current.Sealed() {
		return nil, agenterr.Wrap(agenterr.ErrSession, "a session is already open")
	}

	if c.artifactsDir != "" {
		if err := os.MkdirAll(c.artifactsDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating artifacts dir: %w", err)
		}
	}

	c.current = &uistate.Session{
		ID:          uuid.New().String(),
		Task:        task,
		StartTime:   time.Now(),
		Metadata:    map[string]any{},
		ArtifactDir: c.artifactsDir,
	}
	c.counter = 0
	c.reasoning = map[string]string{}

	if c.audit != nil {
		c.audit.LogSystemEvent(ctx, "session_started", "session", map[string]interface{}{"session_id": c.current.ID})
	}

	return c.current, nil
}

// Execute runs the decision engine and dispatcher for one instruction
// (spec §4.F: SessionOpen → Deciding → Executing → SessionOpen), appends
// exactly one ActionStep, and returns whether the step succeeded.
func (c *Controller) Execute(ctx context.Context, instruction string) (bool, error) {
	if err := c.requireOpen(); err != nil {
		return false, err
	}

	history := c.historyLines()

	decision, target, _, err := c.engine.Decide(ctx, instruction, history)

	step := uistate.ActionStep{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
	}

	if err != nil {
		step.Action = uistate.ActionError
		step.Success = false
		step.ErrorMessage = err.Error()
		c.recordStep(step, "")
		return false, err
	}

	step.Action = decision.Action
	if target != nil {
		step.TargetElementID = target.ElementID
	} else if decision.ElementID != "" {
		step.TargetElementID = decision.ElementID
	}
	step.Parameters = decision.Parameters

	window, werr := c.device.GetWindowSize(ctx)
	logicalWindow := geometry.WindowSize{Width: window.Width, Height: window.Height}
	if werr != nil {
		logicalWindow = geometry.WindowSize{}
	}

	c.counter++
	dispatchTarget := dispatcher.Target{Element: target, Coordinates: decision.Coordinates}
	derr := c.dispatcher.Execute(ctx, decision.Action, dispatchTarget, decision.Parameters, logicalWindow, c.counter)

	if derr != nil {
		step.Success = false
		step.ErrorMessage = derr.Error()
		c.recordStep(step, decision.Reasoning)
		return false, derr
	}

	step.Success = true
	c.recordStep(step, decision.Reasoning)
	return true, nil
}

// Assert runs a single verification and appends it to the session's
// recorded verifications (spec §4.F: "Assertions never throw on
// negative").
func (c *Controller) Assert(ctx context.Context, condition string) (bool, error) {
	if err := c.requireOpen(); err != nil {
		return false, err
	}

	point, _ := c.engine.Verify(ctx, condition)
	point.Timestamp = time.Now()
	c.current.Verifications = append(c.current.Verifications, point)
	return point.Status == uistate.VerificationPassed, nil
}

// WaitForCondition repeatedly runs a verification (one-shot; it does NOT
// append to the session's recorded verifications, per spec §4.G) until
// it passes or the deadline elapses.
func (c *Controller) WaitForCondition(ctx context.Context, condition string, timeoutMS, pollMS int) (bool, error) {
	if err := c.requireOpen(); err != nil {
		return false, err
	}
	if timeoutMS <= 0 {
		timeoutMS = 5000
	}
	if pollMS <= 0 {
		pollMS = 500
	}

	deadline := time.Now().Add(time.Duration(timeoutMS) * time.Millisecond)
	for {
		point, _ := c.engine.Verify(ctx, condition)
		if point.Status == uistate.VerificationPassed {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(time.Duration(pollMS) * time.Millisecond):
		}
	}
}

// ExecuteAndWait is execute(instr) followed by waitForCondition(cond,…),
// the "verification-as-a-wait" primitive (spec §4.G).
func (c *Controller) ExecuteAndWait(ctx context.Context, instruction, condition string, timeoutMS, pollMS int) (bool, error) {
	if _, err := c.Execute(ctx, instruction); err != nil {
		return false, err
	}
	return c.WaitForCondition(ctx, condition, timeoutMS, pollMS)
}

// StopSession transitions SessionOpen → SessionClosed, sealing the
// session with the caller-supplied status (spec §4.G).
func (c *Controller) StopSession(ctx context.Context, success bool) (*uistate.Session, error) {
	if err := c.requireOpen(); err != nil {
		return nil, err
	}
	c.current.Seal(time.Now(), success)

	if c.audit != nil {
		c.audit.LogSystemEvent(ctx, "session_stopped", "session", map[string]interface{}{
			"session_id": c.current.ID,
			"success":    success,
			"duration":   c.current.Duration().String(),
		})
	}

	return c.current, nil
}

// GetCurrentState returns the live session record. Callers must not
// mutate it; the controller is the sole writer.
func (c *Controller) GetCurrentState() (*uistate.Session, error) {
	if err := c.requireOpen(); err != nil {
		return nil, err
	}
	return c.current, nil
}

func (c *Controller) requireOpen() error {
	if c.current == nil || c.current.Sealed() {
		return agenterr.Wrap(agenterr.ErrSession, "no open session")
	}
	return nil
}

func (c *Controller) recordStep(step uistate.ActionStep, reasoning string) {
	c.current.Steps = append(c.current.Steps, step)
	c.reasoning[step.ID] = reasoning
	if c.audit != nil {
		c.audit.LogUserAction(context.Background(), string(step.Action), c.current.ID, step.TargetElementID, map[string]interface{}{
			"success":   step.Success,
			"reasoning": reasoning,
		})
	}
}

// historyLines builds the rolling "{action}-{reasoning}" history spec
// §4.D requires on every prompt, from the reasoning recorded alongside
// each step.
func (c *Controller) historyLines() string {
	if c.current == nil {
		return prompt.HistoryLines(nil, nil)
	}
	return prompt.HistoryLines(c.current.Steps, c.reasoning)
}
