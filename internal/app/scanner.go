package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/okian/scit/internal/domain/device"
	"github.com/okian/scit/internal/domain/permission"
	"github.com/okian/scit/internal/domain/profile"
	"github.com/okian/scit/internal/domain/report"
	"github.com/okian/scit/internal/domain/route"
	"github.com/okian/scit/internal/domain/scan"
	"github.com/okian/scit/pkg/logger"
	"github.com/okian/scit/pkg/metrics"
)

// Step is where a scanner flow run ended.
type Step string

const (
	StepCancelled        Step = "cancelled"
	StepPromptFailed     Step = "prompt_failed"
	StepPermissionDenied Step = "permission_denied"
	StepScanEmpty        Step = "scan_empty"
	StepScanFailed       Step = "scan_failed"
	StepProfileReady     Step = "profile_ready"
	StepTornDown         Step = "torn_down"
	StepBusy             Step = "busy"
)

// FlowResult describes one run of the scanner flow.
type FlowResult struct {
	Step       Step            `json:"step"`
	SessionID  string          `json:"session_id,omitempty"`
	Payload    profile.Payload `json:"payload,omitempty"`
	Reason     scan.Reason     `json:"reason,omitempty"`
	Permission string          `json:"permission,omitempty"`
	Attempts   int             `json:"attempts"`
}

// Entry and retry dialogs of the scanner screen.
const (
	EntryDialogID     = "scan-invitation"
	ActionCancel      = "cancel"
	ActionOpenScanner = "open_scanner"

	RetryDialogID   = "invalid-invitation"
	ActionDismiss   = "dismiss"
	ActionScanAgain = "scan_again"
)

// EntryDialog explains why an invitation code is needed.
func EntryDialog() device.Dialog {
	return device.Dialog{
		ID:      EntryDialogID,
		Header:  "Scan invitation",
		Message: "If your manager invited you to SCIT, you might have received an email with a QR code, you will need to scan it to start.",
		Actions: []device.Action{
			{ID: ActionCancel, Text: "Cancel", Role: device.RoleCancel},
			{ID: ActionOpenScanner, Text: "Open scanner"},
		},
	}
}

// RetryDialog is shown after a code that is not an invitation.
func RetryDialog() device.Dialog {
	return device.Dialog{
		ID:      RetryDialogID,
		Header:  "Invalid invitation",
		Message: "The scanned code is not a valid invitation",
		Actions: []device.Action{
			{ID: ActionDismiss, Text: "Dismiss", Role: device.RoleCancel},
			{ID: ActionScanAgain, Text: "Scan again"},
		},
	}
}

// ScannerScreen drives the prompt, the permission gate and the scan
// session of one visit to the scanner screen.
type ScannerScreen struct {
	gate        *permission.Gate
	session     *scan.Session
	store       profile.Store
	nav         route.Navigator
	prompter    device.Prompter
	reporter    report.Reporter
	logger      logger.Logger
	retryPrompt bool

	running atomic.Bool
	closed  atomic.Bool

	// life ends on Close and bounds every blocking call of a flow run.
	life context.Context
	stop context.CancelFunc
}

// ScannerConfig wires a ScannerScreen.
type ScannerConfig struct {
	Permissions device.CameraPermissions
	Camera      device.Camera
	Prompter    device.Prompter
	Store       profile.Store
	Navigator   route.Navigator
	Reporter    report.Reporter
	Logger      logger.Logger
	RetryPrompt bool
}

// NewScannerScreen creates the screen. Reporter and Logger may be nil.
func NewScannerScreen(c ScannerConfig) *ScannerScreen {
	if c.Reporter == nil {
		c.Reporter = report.Nop{}
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}
	life, stop := context.WithCancel(context.Background())
	return &ScannerScreen{
		life: life,
		stop: stop,
		gate: permission.NewGate(c.Permissions, c.Prompter,
			permission.WithReporter(c.Reporter), permission.WithLogger(c.Logger)),
		session: scan.NewSession(c.Camera,
			scan.WithReporter(c.Reporter), scan.WithLogger(c.Logger), scan.WithActiveHook(metrics.SetScannerActive)),
		store:       c.Store,
		nav:         c.Navigator,
		prompter:    c.Prompter,
		reporter:    c.Reporter,
		logger:      c.Logger,
		retryPrompt: c.RetryPrompt,
	}
}

// Active reports whether the camera is engaged.
func (s *ScannerScreen) Active() bool { return s.session.Active() }

// State returns the scan session state.
func (s *ScannerScreen) State() scan.State { return s.session.State() }

// Running reports whether a flow run is in progress.
func (s *ScannerScreen) Running() bool { return s.running.Load() }

// PresentEntryPrompt asks the user to scan an invitation. Cancel goes
// back to the introduction; Open scanner runs Scan.
func (s *ScannerScreen) PresentEntryPrompt(ctx context.Context) FlowResult {
	if !s.running.CompareAndSwap(false, true) {
		return FlowResult{Step: StepBusy}
	}
	defer s.running.Store(false)
	if s.closed.Load() {
		return FlowResult{Step: StepTornDown}
	}
	ctx, release := s.bind(ctx)
	defer release()

	if s.prompter == nil {
		s.fail(ctx, "entry_prompt", report.ErrDeviceUnavailable, ErrNoPrompter)
		return FlowResult{Step: StepPromptFailed}
	}
	choice, err := s.prompter.Present(ctx, EntryDialog())
	if s.closed.Load() {
		return FlowResult{Step: StepTornDown}
	}
	if err != nil {
		s.fail(ctx, "entry_prompt", report.ErrDeviceUnavailable, err)
		return FlowResult{Step: StepPromptFailed}
	}
	if choice != ActionOpenScanner {
		s.navigate(ctx, route.Introduction)
		return FlowResult{Step: StepCancelled}
	}
	return s.scan(ctx)
}

// bind derives a context that also ends when the screen closes.
func (s *ScannerScreen) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	unhook := context.AfterFunc(s.life, cancel)
	return ctx, func() {
		unhook()
		cancel()
	}
}

// scan gates and runs scans until one ends without a retry.
func (s *ScannerScreen) scan(ctx context.Context) FlowResult {
	for attempt := 1; ; attempt++ {
		if s.closed.Load() {
			return FlowResult{Step: StepTornDown, Attempts: attempt - 1}
		}

		s.session.AwaitPermission()
		d := s.gate.Resolve(ctx)
		if s.closed.Load() {
			s.session.PermissionDenied()
			return FlowResult{Step: StepTornDown, Attempts: attempt - 1}
		}
		metrics.RecordPermission(d.State.String(), d.Granted)
		if !d.Granted {
			s.session.PermissionDenied()
			return FlowResult{Step: StepPermissionDenied, Permission: d.State.String(), Attempts: attempt}
		}

		start := time.Now()
		out, err := s.session.Start(ctx)
		if err != nil {
			return s.aborted(ctx, err, attempt)
		}
		metrics.RecordScan(out.Kind.String(), string(out.Reason), float64(time.Since(start).Milliseconds()))

		res := s.HandleScanOutcome(ctx, out)
		res.Attempts = attempt
		res.Permission = d.State.String()
		if res.Step != StepScanFailed || out.Reason != scan.ReasonMalformedContent || !s.offerRetry(ctx) {
			return res
		}
	}
}

func (s *ScannerScreen) aborted(ctx context.Context, err error, attempt int) FlowResult {
	switch {
	case errors.Is(err, scan.ErrAlreadyScanning):
		return FlowResult{Step: StepBusy, Attempts: attempt}
	case errors.Is(err, scan.ErrNoCamera):
		s.fail(ctx, "start_scan", report.ErrDeviceUnavailable, err)
		return FlowResult{Step: StepScanFailed, Reason: scan.ReasonCameraUnavailable, Attempts: attempt}
	default:
		// Torn down or cancelled: a clean abort with no outcome.
		s.logger.Debug(ctx, "scan aborted", logger.Error(err))
		return FlowResult{Step: StepTornDown, Attempts: attempt}
	}
}

// offerRetry shows the invalid invitation notice and reports whether the
// user wants to scan again.
func (s *ScannerScreen) offerRetry(ctx context.Context) bool {
	if !s.retryPrompt || s.prompter == nil || s.closed.Load() {
		return false
	}
	choice, err := s.prompter.Present(ctx, RetryDialog())
	if err != nil {
		s.fail(ctx, "retry_prompt", report.ErrDeviceUnavailable, err)
		return false
	}
	return choice == ActionScanAgain
}

// HandleScanOutcome stores a decoded payload and moves to the profile
// review. Every other outcome keeps the user on this screen.
func (s *ScannerScreen) HandleScanOutcome(ctx context.Context, out scan.Outcome) FlowResult {
	res := FlowResult{SessionID: out.SessionID, Reason: out.Reason}
	switch out.Kind {
	case scan.OutcomeEmpty:
		res.Step = StepScanEmpty
		return res
	case scan.OutcomeFailed:
		res.Step = StepScanFailed
		return res
	}

	if s.closed.Load() {
		res.Step = StepTornDown
		return res
	}
	if s.store != nil {
		s.store.Write(ctx, out.Payload)
		metrics.RecordProfileWrite()
	}
	res.Step = StepProfileReady
	res.Payload = out.Payload.Clone()
	s.navigate(ctx, route.ProfileReview)
	return res
}

// Close tears the screen down. A scan in flight is abandoned and the
// camera released at once. A closed screen never engages the camera again.
func (s *ScannerScreen) Close(ctx context.Context) {
	s.closed.Store(true)
	s.stop()
	s.session.Close(ctx)
}

func (s *ScannerScreen) navigate(ctx context.Context, to route.Name) {
	if s.nav == nil {
		return
	}
	if err := s.nav.Navigate(ctx, to); err != nil {
		s.logger.Error(ctx, "navigation failed", logger.String("to", string(to)), logger.Error(err))
	}
}

func (s *ScannerScreen) fail(ctx context.Context, op string, kind, err error) {
	s.reporter.Report(ctx, report.Failure{Component: "scanner", Op: op, Kind: kind, Err: err})
}
