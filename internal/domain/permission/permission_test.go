package permission_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/scit/internal/domain/device"
	"github.com/okian/scit/internal/domain/permission"
	"github.com/okian/scit/internal/domain/report"
	. "github.com/smartystreets/goconvey/convey"
)

type fakePerms struct {
	status      device.PermissionStatus
	err         error
	settingsErr error
	forced      []bool
	settings    int
}

func (f *fakePerms) CheckPermission(_ context.Context, force bool) (device.PermissionStatus, error) {
	f.forced = append(f.forced, force)
	return f.status, f.err
}

func (f *fakePerms) OpenAppSettings(context.Context) error {
	f.settings++
	return f.settingsErr
}

type fakePrompter struct {
	choice  string
	err     error
	dialogs []device.Dialog
}

func (f *fakePrompter) Present(_ context.Context, d device.Dialog) (string, error) {
	f.dialogs = append(f.dialogs, d)
	return f.choice, f.err
}

func TestClassify(t *testing.T) {
	Convey("Given raw platform statuses", t, func() {
		So(permission.Classify(device.PermissionStatus{Granted: true}), ShouldEqual, permission.StateGranted)
		So(permission.Classify(device.PermissionStatus{Granted: true, Denied: true}), ShouldEqual, permission.StateGranted)
		So(permission.Classify(device.PermissionStatus{Denied: true}), ShouldEqual, permission.StateDenied)
		So(permission.Classify(device.PermissionStatus{Denied: true, Restricted: true}), ShouldEqual, permission.StateRestricted)
		So(permission.Classify(device.PermissionStatus{NeverAsked: true}), ShouldEqual, permission.StateUnknown)
		So(permission.Classify(device.PermissionStatus{}), ShouldEqual, permission.StateUnknown)
	})

	Convey("Given every state", t, func() {
		So(permission.StateGranted.String(), ShouldEqual, "granted")
		So(permission.StateDenied.String(), ShouldEqual, "denied")
		So(permission.StateDeniedPermanently.String(), ShouldEqual, "denied_permanently")
		So(permission.StateRestricted.String(), ShouldEqual, "restricted")
		So(permission.StateUnknown.String(), ShouldEqual, "unknown")
	})
}

func TestGate(t *testing.T) {
	Convey("Given a permission gate", t, func() {
		ctx := context.Background()
		perms := &fakePerms{}
		prompter := &fakePrompter{}
		rec := report.NewRecorder()
		gate := permission.NewGate(perms, prompter, permission.WithReporter(rec))

		Convey("When the camera is granted", func() {
			perms.status = device.PermissionStatus{Granted: true}
			ok := gate.CheckAndRequestCameraPermission(ctx)

			Convey("Then it returns true without prompting", func() {
				So(ok, ShouldBeTrue)
				So(prompter.dialogs, ShouldBeEmpty)
				So(rec.Failures(), ShouldBeEmpty)
			})

			Convey("Then the check was forced", func() {
				So(perms.forced, ShouldResemble, []bool{true})
			})
		})

		Convey("When the camera is denied and the user cancels", func() {
			perms.status = device.PermissionStatus{Denied: true}
			prompter.choice = permission.ActionCancel
			d := gate.Resolve(ctx)

			Convey("Then exactly one modal is shown and the answer is false", func() {
				So(d.Granted, ShouldBeFalse)
				So(d.Prompted, ShouldBeTrue)
				So(d.State, ShouldEqual, permission.StateDenied)
				So(len(prompter.dialogs), ShouldEqual, 1)
				So(prompter.dialogs[0].ID, ShouldEqual, permission.DialogID)
				So(prompter.dialogs[0].CancelAction(), ShouldEqual, permission.ActionCancel)
			})

			Convey("Then settings are not opened", func() {
				So(perms.settings, ShouldEqual, 0)
				So(d.OpenedSettings, ShouldBeFalse)
			})

			Convey("Then the denial is reported as a permission failure", func() {
				So(rec.Count(report.ErrPermission), ShouldEqual, 1)
			})
		})

		Convey("When the camera is denied and the user opens settings", func() {
			perms.status = device.PermissionStatus{Denied: true}
			prompter.choice = permission.ActionOpenSettings
			d := gate.Resolve(ctx)

			Convey("Then settings are opened and the answer is still false", func() {
				So(d.Granted, ShouldBeFalse)
				So(d.OpenedSettings, ShouldBeTrue)
				So(d.State, ShouldEqual, permission.StateDeniedPermanently)
				So(perms.settings, ShouldEqual, 1)
				So(len(prompter.dialogs), ShouldEqual, 1)
			})

			Convey("And the user grants access in settings before the next attempt", func() {
				perms.status = device.PermissionStatus{Granted: true}

				Convey("Then a new invocation observes the change", func() {
					So(gate.CheckAndRequestCameraPermission(ctx), ShouldBeTrue)
					So(len(prompter.dialogs), ShouldEqual, 1)
				})
			})
		})

		Convey("When opening settings fails", func() {
			perms.status = device.PermissionStatus{Denied: true}
			perms.settingsErr = errors.New("no settings app")
			prompter.choice = permission.ActionOpenSettings
			d := gate.Resolve(ctx)

			Convey("Then the answer is false and the failure is reported", func() {
				So(d.Granted, ShouldBeFalse)
				So(d.OpenedSettings, ShouldBeFalse)
				So(rec.Count(report.ErrDeviceUnavailable), ShouldEqual, 1)
			})
		})

		Convey("When the prompt itself fails", func() {
			perms.status = device.PermissionStatus{Denied: true}
			prompter.err = errors.New("no window")

			So(gate.CheckAndRequestCameraPermission(ctx), ShouldBeFalse)
			So(rec.Count(report.ErrDeviceUnavailable), ShouldEqual, 1)
		})

		Convey("When the camera is restricted by policy", func() {
			perms.status = device.PermissionStatus{Restricted: true}
			d := gate.Resolve(ctx)

			Convey("Then it returns false without prompting", func() {
				So(d.Granted, ShouldBeFalse)
				So(d.Prompted, ShouldBeFalse)
				So(d.State, ShouldEqual, permission.StateRestricted)
				So(prompter.dialogs, ShouldBeEmpty)
			})
		})

		Convey("When the status is unknown", func() {
			perms.status = device.PermissionStatus{NeverAsked: true}
			So(gate.CheckAndRequestCameraPermission(ctx), ShouldBeFalse)
			So(prompter.dialogs, ShouldBeEmpty)
		})

		Convey("When the caller went away during the status query", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			perms.err = context.Canceled

			So(gate.CheckAndRequestCameraPermission(cctx), ShouldBeFalse)
			So(rec.Count(report.ErrCancelled), ShouldEqual, 1)
			So(rec.Count(report.ErrDeviceUnavailable), ShouldEqual, 0)
		})

		Convey("When the status query fails", func() {
			perms.err = errors.New("plugin missing")
			ok := gate.CheckAndRequestCameraPermission(ctx)

			Convey("Then it returns false and reports a device failure", func() {
				So(ok, ShouldBeFalse)
				So(prompter.dialogs, ShouldBeEmpty)
				So(rec.Count(report.ErrDeviceUnavailable), ShouldEqual, 1)
			})
		})
	})

	Convey("Given a gate without a prompter", t, func() {
		perms := &fakePerms{status: device.PermissionStatus{Denied: true}}
		gate := permission.NewGate(perms, nil)
		d := gate.Resolve(context.Background())
		So(d.Granted, ShouldBeFalse)
		So(d.Prompted, ShouldBeFalse)
	})

	Convey("Given a gate without a permission API", t, func() {
		gate := permission.NewGate(nil, &fakePrompter{})
		So(gate.CheckAndRequestCameraPermission(context.Background()), ShouldBeFalse)
	})
}
