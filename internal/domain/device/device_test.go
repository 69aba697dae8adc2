package device_test

import (
	"testing"

	"github.com/okian/scit/internal/domain/device"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAddressLine(t *testing.T) {
	Convey("Given a fully populated address", t, func() {
		a := device.Address{
			Thoroughfare:       "Main St",
			SubThoroughfare:    "12",
			SubLocality:        "Downtown",
			Locality:           "Springfield",
			AdministrativeArea: "CA",
			PostalCode:         "94000",
			CountryName:        "United States",
		}

		Convey("Then the line joins every part", func() {
			So(a.Line(), ShouldEqual, "Main St 12, Downtown, Springfield, CA 94000, United States")
		})
	})

	Convey("Given a sparse address", t, func() {
		a := device.Address{Locality: " Lyon ", CountryName: "France"}

		Convey("Then empty parts are skipped", func() {
			So(a.Line(), ShouldEqual, "Lyon, France")
		})
	})

	Convey("Given an empty address", t, func() {
		So(device.Address{}.Line(), ShouldEqual, "")
	})
}

func TestDialogCancelAction(t *testing.T) {
	Convey("Given a dialog with a cancel role", t, func() {
		d := device.Dialog{Actions: []device.Action{
			{ID: "cancel", Text: "Cancel", Role: device.RoleCancel},
			{ID: "go", Text: "Go"},
		}}
		So(d.CancelAction(), ShouldEqual, "cancel")
	})

	Convey("Given a dialog without one", t, func() {
		d := device.Dialog{Actions: []device.Action{{ID: "go", Text: "Go"}}}
		So(d.CancelAction(), ShouldEqual, "")
	})
}
