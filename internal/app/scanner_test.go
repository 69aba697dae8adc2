package service_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/scit/internal/adapters/device/sim"
	service "github.com/okian/scit/internal/app"
	"github.com/okian/scit/internal/domain/device"
	"github.com/okian/scit/internal/domain/permission"
	"github.com/okian/scit/internal/domain/profile"
	"github.com/okian/scit/internal/domain/report"
	"github.com/okian/scit/internal/domain/route"
	"github.com/okian/scit/internal/domain/scan"
	. "github.com/smartystreets/goconvey/convey"
)

type recordingNavigator struct {
	mu   sync.Mutex
	seen []route.Name
	err  error
}

func (n *recordingNavigator) Navigate(_ context.Context, to route.Name) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seen = append(n.seen, to)
	return n.err
}

func (n *recordingNavigator) routes() []route.Name {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]route.Name(nil), n.seen...)
}

type scannerFixture struct {
	dev      *sim.Device
	prompter *sim.Prompter
	store    *profile.InMemoryStore
	nav      *recordingNavigator
	rec      *report.Recorder
}

func newScannerFixture(perm string) *scannerFixture {
	return &scannerFixture{
		dev:      sim.New(sim.WithLatencyRange(0, 0), sim.WithPermissionName(perm)),
		prompter: sim.NewPrompter(nil),
		store:    profile.NewInMemoryStore(),
		nav:      &recordingNavigator{},
		rec:      report.NewRecorder(),
	}
}

func (f *scannerFixture) screen(retry bool) *service.ScannerScreen {
	return service.NewScannerScreen(service.ScannerConfig{
		Permissions: f.dev,
		Camera:      f.dev,
		Prompter:    f.prompter,
		Store:       f.store,
		Navigator:   f.nav,
		Reporter:    f.rec,
		RetryPrompt: retry,
	})
}

func dialogIDs(p *sim.Prompter) []string {
	var ids []string
	for _, d := range p.Shown() {
		ids = append(ids, d.ID)
	}
	return ids
}

func TestScannerFlow(t *testing.T) {
	Convey("Given the scanner screen with camera access", t, func() {
		ctx := context.Background()
		f := newScannerFixture("granted")
		s := f.screen(true)

		Convey("When the user cancels the entry prompt", func() {
			f.prompter.Answer(service.EntryDialogID, service.ActionCancel)
			res := s.PresentEntryPrompt(ctx)

			Convey("Then the app goes back to the introduction", func() {
				So(res.Step, ShouldEqual, service.StepCancelled)
				So(f.nav.routes(), ShouldResemble, []route.Name{route.Introduction})
			})

			Convey("Then the prompt mentions the emailed invitation", func() {
				shown := f.prompter.Shown()
				So(len(shown), ShouldEqual, 1)
				So(shown[0].Header, ShouldEqual, "Scan invitation")
				So(shown[0].Message, ShouldContainSubstring, "you might have received an email with a QR code")
			})

			Convey("Then the camera was never engaged", func() {
				So(f.dev.Stops(), ShouldEqual, 0)
				So(f.store.Writes(), ShouldEqual, 0)
			})
		})

		Convey("When a valid invitation is scanned", func() {
			f.prompter.Answer(service.EntryDialogID, service.ActionOpenScanner)
			So(f.dev.QueueScan(`{"name":"A","id":"1"}`), ShouldBeNil)
			res := s.PresentEntryPrompt(ctx)

			Convey("Then the payload is stored verbatim", func() {
				So(res.Step, ShouldEqual, service.StepProfileReady)
				So(res.Payload, ShouldResemble, profile.Payload{"name": "A", "id": "1"})
				So(f.store.Read(ctx), ShouldResemble, profile.Payload{"name": "A", "id": "1"})
			})

			Convey("Then exactly one navigation to the review happens", func() {
				So(f.nav.routes(), ShouldResemble, []route.Name{route.ProfileReview})
			})

			Convey("Then the camera is released", func() {
				So(s.Active(), ShouldBeFalse)
				So(s.State(), ShouldEqual, scan.StateCompleted)
				So(f.dev.Engaged(), ShouldBeFalse)
			})
		})

		Convey("When the code is not an invitation", func() {
			f.store.Write(ctx, profile.Payload{"previous": "scan"})
			f.prompter.Answer(service.EntryDialogID, service.ActionOpenScanner)
			So(f.dev.QueueScan("not-json"), ShouldBeNil)
			res := s.PresentEntryPrompt(ctx)

			Convey("Then the flow stays on the scanner with a malformed content failure", func() {
				So(res.Step, ShouldEqual, service.StepScanFailed)
				So(res.Reason, ShouldEqual, scan.ReasonMalformedContent)
				So(f.nav.routes(), ShouldBeEmpty)
				So(s.Active(), ShouldBeFalse)
			})

			Convey("Then the store is unchanged", func() {
				So(f.store.Read(ctx), ShouldResemble, profile.Payload{"previous": "scan"})
				So(f.store.Writes(), ShouldEqual, 1)
			})

			Convey("Then the failure is reported and the notice shown once", func() {
				So(f.rec.Count(report.ErrDataFormat), ShouldEqual, 1)
				So(dialogIDs(f.prompter), ShouldResemble, []string{service.EntryDialogID, service.RetryDialogID})
			})
		})

		Convey("When the user scans again after an invalid code", func() {
			f.prompter.Answer(service.EntryDialogID, service.ActionOpenScanner)
			f.prompter.Answer(service.RetryDialogID, service.ActionScanAgain)
			So(f.dev.QueueScan("not-json"), ShouldBeNil)
			So(f.dev.QueueScan(`{"id":"2"}`), ShouldBeNil)
			res := s.PresentEntryPrompt(ctx)

			Convey("Then the second attempt succeeds", func() {
				So(res.Step, ShouldEqual, service.StepProfileReady)
				So(res.Attempts, ShouldEqual, 2)
				So(f.nav.routes(), ShouldResemble, []route.Name{route.ProfileReview})
			})
		})

		Convey("When the user backs out of the camera", func() {
			f.prompter.Answer(service.EntryDialogID, service.ActionOpenScanner)
			So(f.dev.QueueBackOut(), ShouldBeNil)
			res := s.PresentEntryPrompt(ctx)

			So(res.Step, ShouldEqual, service.StepScanEmpty)
			So(f.nav.routes(), ShouldBeEmpty)
			So(f.store.Writes(), ShouldEqual, 0)
			So(s.State(), ShouldEqual, scan.StateIdle)
		})

		Convey("When the camera is broken", func() {
			f.prompter.Answer(service.EntryDialogID, service.ActionOpenScanner)
			f.dev.SetCameraError(sim.ErrCameraBusy)
			res := s.PresentEntryPrompt(ctx)

			So(res.Step, ShouldEqual, service.StepScanFailed)
			So(res.Reason, ShouldEqual, scan.ReasonCameraUnavailable)
			So(dialogIDs(f.prompter), ShouldResemble, []string{service.EntryDialogID})
		})

		Convey("When the screen is closed mid-scan", func() {
			f.prompter.Answer(service.EntryDialogID, service.ActionOpenScanner)
			done := make(chan service.FlowResult, 1)
			go func() { done <- s.PresentEntryPrompt(ctx) }()
			So(waitFor(s.Active), ShouldBeTrue)

			s.Close(ctx)

			Convey("Then the camera is released at once", func() {
				So(s.Active(), ShouldBeFalse)
				So(waitFor(func() bool { return !f.dev.Engaged() }), ShouldBeTrue)
			})

			Convey("Then the flow ends without an outcome", func() {
				select {
				case res := <-done:
					So(res.Step, ShouldEqual, service.StepTornDown)
				case <-time.After(time.Second):
					So("flow did not end", ShouldBeEmpty)
				}
				So(f.nav.routes(), ShouldBeEmpty)
				So(f.store.Writes(), ShouldEqual, 0)
			})
		})

		Convey("When a flow is already running", func() {
			f.prompter.Answer(service.EntryDialogID, service.ActionOpenScanner)
			done := make(chan service.FlowResult, 1)
			go func() { done <- s.PresentEntryPrompt(ctx) }()
			So(waitFor(s.Active), ShouldBeTrue)

			So(s.PresentEntryPrompt(ctx).Step, ShouldEqual, service.StepBusy)

			So(f.dev.QueueBackOut(), ShouldBeNil)
			So((<-done).Step, ShouldEqual, service.StepScanEmpty)
		})

		Convey("When a decoded outcome arrives after the screen closed", func() {
			s.Close(ctx)
			res := s.HandleScanOutcome(ctx, scan.Outcome{Kind: scan.OutcomeDecoded, Payload: profile.Payload{"id": "x"}})

			So(res.Step, ShouldEqual, service.StepTornDown)
			So(f.store.Writes(), ShouldEqual, 0)
			So(f.nav.routes(), ShouldBeEmpty)
		})
	})

	Convey("Given the retry notice is disabled", t, func() {
		ctx := context.Background()
		f := newScannerFixture("granted")
		s := f.screen(false)
		f.prompter.Answer(service.EntryDialogID, service.ActionOpenScanner)
		So(f.dev.QueueScan("not-json"), ShouldBeNil)

		res := s.PresentEntryPrompt(ctx)
		So(res.Step, ShouldEqual, service.StepScanFailed)
		So(dialogIDs(f.prompter), ShouldResemble, []string{service.EntryDialogID})
	})

	Convey("Given the camera permission is denied", t, func() {
		ctx := context.Background()
		f := newScannerFixture("denied")
		s := f.screen(true)
		f.prompter.Answer(service.EntryDialogID, service.ActionOpenScanner)
		So(f.dev.QueueScan(`{"id":"1"}`), ShouldBeNil)

		Convey("When the user cancels the settings prompt", func() {
			res := s.PresentEntryPrompt(ctx)

			Convey("Then the flow stops before the camera", func() {
				So(res.Step, ShouldEqual, service.StepPermissionDenied)
				So(res.Permission, ShouldEqual, permission.StateDenied.String())
				So(dialogIDs(f.prompter), ShouldResemble, []string{service.EntryDialogID, permission.DialogID})
				So(f.dev.Stops(), ShouldEqual, 0)
				So(f.nav.routes(), ShouldBeEmpty)
				So(s.State(), ShouldEqual, scan.StateIdle)
			})
		})

		Convey("When the user opens the settings and grants access", func() {
			f.prompter.Answer(permission.DialogID, permission.ActionOpenSettings)
			f.dev.SetPermission(device.PermissionStatus{Denied: true})
			first := s.PresentEntryPrompt(ctx)
			f.dev.SetPermission(device.PermissionStatus{Granted: true})
			f.prompter.Answer(service.EntryDialogID, service.ActionOpenScanner)
			second := s.PresentEntryPrompt(ctx)

			Convey("Then only the re-triggered flow scans", func() {
				So(first.Step, ShouldEqual, service.StepPermissionDenied)
				So(first.Permission, ShouldEqual, permission.StateDeniedPermanently.String())
				So(f.dev.SettingsOpened(), ShouldEqual, 1)
				So(second.Step, ShouldEqual, service.StepProfileReady)
			})
		})
	})

	Convey("Given a scanner screen without a prompter", t, func() {
		s := service.NewScannerScreen(service.ScannerConfig{})
		So(s.PresentEntryPrompt(context.Background()).Step, ShouldEqual, service.StepPromptFailed)
	})
}

// heldPermissions grants camera access only once release is closed.
type heldPermissions struct {
	entered chan struct{}
	release chan struct{}
	checks  atomic.Int32
}

func newHeldPermissions() *heldPermissions {
	return &heldPermissions{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (p *heldPermissions) CheckPermission(context.Context, bool) (device.PermissionStatus, error) {
	p.checks.Add(1)
	p.entered <- struct{}{}
	<-p.release
	return device.PermissionStatus{Granted: true}, nil
}

func (p *heldPermissions) OpenAppSettings(context.Context) error { return nil }

// countingCamera always decodes an invitation and counts engagements.
type countingCamera struct {
	starts atomic.Int32
	stops  atomic.Int32
}

func (c *countingCamera) StartScan(context.Context) (device.ScanResult, error) {
	c.starts.Add(1)
	return device.ScanResult{HasContent: true, Content: `{"id":"1"}`}, nil
}

func (c *countingCamera) StopScan(context.Context) error {
	c.stops.Add(1)
	return nil
}

// heldPrompter answers the entry dialog once release is closed. With
// honourCtx it gives up when ctx ends instead.
type heldPrompter struct {
	entered   chan struct{}
	release   chan struct{}
	honourCtx bool
}

func (p *heldPrompter) Present(ctx context.Context, d device.Dialog) (string, error) {
	p.entered <- struct{}{}
	if p.honourCtx {
		<-ctx.Done()
		return "", ctx.Err()
	}
	<-p.release
	return service.ActionOpenScanner, nil
}

func TestScannerCloseBeforeCamera(t *testing.T) {
	Convey("Given a scanner screen whose permission check is pending", t, func() {
		ctx := context.Background()
		perms := newHeldPermissions()
		cam := &countingCamera{}
		prompter := sim.NewPrompter(nil)
		prompter.Answer(service.EntryDialogID, service.ActionOpenScanner)
		store := profile.NewInMemoryStore()
		nav := &recordingNavigator{}
		s := service.NewScannerScreen(service.ScannerConfig{
			Permissions: perms,
			Camera:      cam,
			Prompter:    prompter,
			Store:       store,
			Navigator:   nav,
		})

		done := make(chan service.FlowResult, 1)
		go func() { done <- s.PresentEntryPrompt(ctx) }()
		<-perms.entered

		Convey("When the screen closes and the check then grants access", func() {
			s.Close(ctx)
			close(perms.release)

			var res service.FlowResult
			select {
			case res = <-done:
			case <-time.After(time.Second):
				So("flow did not end", ShouldBeEmpty)
			}

			Convey("Then the flow ends torn down", func() {
				So(res.Step, ShouldEqual, service.StepTornDown)
				So(nav.routes(), ShouldBeEmpty)
				So(store.Writes(), ShouldEqual, 0)
			})

			Convey("Then the camera is never engaged", func() {
				So(cam.starts.Load(), ShouldEqual, 0)
				So(s.Active(), ShouldBeFalse)
				So(s.State(), ShouldEqual, scan.StateIdle)
			})

			Convey("Then a later run does not touch the camera either", func() {
				So(s.PresentEntryPrompt(ctx).Step, ShouldEqual, service.StepTornDown)
				So(cam.starts.Load(), ShouldEqual, 0)
				So(perms.checks.Load(), ShouldEqual, 1)
			})
		})
	})

	Convey("Given a scanner screen whose entry prompt is open", t, func() {
		ctx := context.Background()
		perms := newHeldPermissions()
		close(perms.release)
		cam := &countingCamera{}
		rec := report.NewRecorder()
		nav := &recordingNavigator{}
		prompter := &heldPrompter{entered: make(chan struct{}, 1), release: make(chan struct{})}

		newScreen := func() *service.ScannerScreen {
			return service.NewScannerScreen(service.ScannerConfig{
				Permissions: perms,
				Camera:      cam,
				Prompter:    prompter,
				Navigator:   nav,
				Reporter:    rec,
			})
		}

		Convey("When the screen closes before the user answers Open scanner", func() {
			s := newScreen()
			done := make(chan service.FlowResult, 1)
			go func() { done <- s.PresentEntryPrompt(ctx) }()
			<-prompter.entered

			s.Close(ctx)
			close(prompter.release)
			res := <-done

			So(res.Step, ShouldEqual, service.StepTornDown)
			So(perms.checks.Load(), ShouldEqual, 0)
			So(cam.starts.Load(), ShouldEqual, 0)
			So(s.Active(), ShouldBeFalse)
			So(nav.routes(), ShouldBeEmpty)
		})

		Convey("When the screen closes while the prompt waits on its context", func() {
			prompter.honourCtx = true
			s := newScreen()
			done := make(chan service.FlowResult, 1)
			go func() { done <- s.PresentEntryPrompt(ctx) }()
			<-prompter.entered

			s.Close(ctx)

			Convey("Then the prompt is dismissed and the flow ends torn down", func() {
				select {
				case res := <-done:
					So(res.Step, ShouldEqual, service.StepTornDown)
				case <-time.After(time.Second):
					So("prompt was not dismissed", ShouldBeEmpty)
				}
				So(cam.starts.Load(), ShouldEqual, 0)
				So(rec.Failures(), ShouldBeEmpty)
			})
		})
	})
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}
