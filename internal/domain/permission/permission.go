// Package permission gates camera use behind an OS permission check and
// offers the user a way to fix a denial.
package permission

import (
	"context"

	"github.com/okian/scit/internal/domain/device"
	"github.com/okian/scit/internal/domain/report"
	"github.com/okian/scit/pkg/logger"
)

// State is the classified camera permission.
type State int

const (
	StateUnknown State = iota
	StateGranted
	StateDenied
	// StateDeniedPermanently: denied, and the user was sent to the OS
	// settings to change it. Only a later check can observe the change.
	StateDeniedPermanently
	// StateRestricted: blocked by policy, nothing the user can do here.
	StateRestricted
)

func (s State) String() string {
	switch s {
	case StateGranted:
		return "granted"
	case StateDenied:
		return "denied"
	case StateDeniedPermanently:
		return "denied_permanently"
	case StateRestricted:
		return "restricted"
	default:
		return "unknown"
	}
}

// Classify maps the raw platform answer to a State. Granted wins over
// every other flag.
func Classify(st device.PermissionStatus) State {
	switch {
	case st.Granted:
		return StateGranted
	case st.Restricted:
		return StateRestricted
	case st.Denied:
		return StateDenied
	default:
		return StateUnknown
	}
}

// Dialog and action identifiers of the remediation modal.
const (
	DialogID           = "camera-permission"
	ActionCancel       = "cancel"
	ActionOpenSettings = "open_settings"
)

// Dialog is the modal shown when camera access is denied.
func Dialog() device.Dialog {
	return device.Dialog{
		ID:      DialogID,
		Header:  "No camera permission",
		Message: "Please allow camera access in the phone settings",
		Actions: []device.Action{
			{ID: ActionCancel, Text: "Cancel", Role: device.RoleCancel},
			{ID: ActionOpenSettings, Text: "Open settings"},
		},
	}
}

// Decision is the full answer of one gate invocation.
type Decision struct {
	State          State
	Granted        bool
	Prompted       bool
	OpenedSettings bool
}

// Gate checks camera permission and, on a remediable denial, shows one
// modal offering the app settings.
type Gate struct {
	perms    device.CameraPermissions
	prompter device.Prompter
	reporter report.Reporter
	logger   logger.Logger
}

// NewGate creates a Gate over the platform permission API and a prompter.
func NewGate(perms device.CameraPermissions, prompter device.Prompter, opts ...Option) *Gate {
	g := &Gate{
		perms:    perms,
		prompter: prompter,
		reporter: report.Nop{},
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CheckAndRequestCameraPermission reports whether the camera may be used
// now. It never fails; every problem resolves to false.
func (g *Gate) CheckAndRequestCameraPermission(ctx context.Context) bool {
	return g.Resolve(ctx).Granted
}

// Resolve runs the gate and returns what happened.
func (g *Gate) Resolve(ctx context.Context) Decision {
	if g.perms == nil {
		g.fail(ctx, "check_permission", report.ErrDeviceUnavailable, nil)
		return Decision{State: StateUnknown}
	}
	status, err := g.perms.CheckPermission(ctx, true)
	if err != nil {
		kind := report.ErrDeviceUnavailable
		if ctx.Err() != nil {
			kind = report.ErrCancelled
		}
		g.fail(ctx, "check_permission", kind, err)
		return Decision{State: StateUnknown}
	}

	state := Classify(status)
	g.logger.Debug(ctx, "camera permission checked", logger.String("state", state.String()))
	switch state {
	case StateGranted:
		return Decision{State: StateGranted, Granted: true}
	case StateDenied:
		return g.remediate(ctx)
	default:
		g.fail(ctx, "check_permission", report.ErrPermission, nil)
		return Decision{State: state}
	}
}

// remediate shows the single settings modal. The answer is always false:
// the caller has to run the gate again to see a changed permission.
func (g *Gate) remediate(ctx context.Context) Decision {
	g.fail(ctx, "check_permission", report.ErrPermission, nil)
	if g.prompter == nil {
		return Decision{State: StateDenied}
	}

	choice, err := g.prompter.Present(ctx, Dialog())
	d := Decision{State: StateDenied, Prompted: true}
	if err != nil {
		g.fail(ctx, "prompt", report.ErrDeviceUnavailable, err)
		return d
	}
	if choice != ActionOpenSettings {
		return d
	}

	d.State = StateDeniedPermanently
	if err := g.perms.OpenAppSettings(ctx); err != nil {
		g.fail(ctx, "open_settings", report.ErrDeviceUnavailable, err)
		return d
	}
	d.OpenedSettings = true
	return d
}

func (g *Gate) fail(ctx context.Context, op string, kind, err error) {
	g.reporter.Report(ctx, report.Failure{Component: "permission", Op: op, Kind: kind, Err: err})
}
