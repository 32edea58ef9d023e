package registry

import (
	"context"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/chicane/internal/domain/types"
	"github.com/okian/chicane/internal/domain/validate"
)

func TestRegistry(t *testing.T) {
	convey.Convey("Given a seeded registry", t, func() {
		ctx := context.Background()
		r := New()
		r.PutStage(types.StageView{ID: "stage-1", Discipline: types.DisciplineCircuit, Open: true})
		r.PutDevice("decoder-1", "stage-1", types.DeviceView{Authorized: true})
		r.PutRegistration("stage-1", 7, types.RegistrationView{RiderID: "r-7", Active: true})

		convey.Convey("When resolving seeded keys", func() {
			stage, err := r.Stage(ctx, "stage-1")
			convey.So(err, convey.ShouldBeNil)
			convey.So(stage.Open, convey.ShouldBeTrue)

			dev, err := r.Device(ctx, "decoder-1", "stage-1")
			convey.So(err, convey.ShouldBeNil)
			convey.So(dev.Authorized, convey.ShouldBeTrue)

			reg, err := r.Registration(ctx, "stage-1", 7)
			convey.So(err, convey.ShouldBeNil)
			convey.So(reg.RiderID, convey.ShouldEqual, "r-7")
		})

		convey.Convey("When resolving unknown keys", func() {
			_, err := r.Stage(ctx, "stage-9")
			convey.So(err, convey.ShouldEqual, validate.ErrNotFound)

			_, err = r.Device(ctx, "decoder-1", "stage-9")
			convey.So(err, convey.ShouldEqual, validate.ErrNotFound)

			_, err = r.Registration(ctx, "stage-1", 99)
			convey.So(err, convey.ShouldEqual, validate.ErrNotFound)
		})

		convey.Convey("When closing a stage", func() {
			ok := r.SetStageOpen("stage-1", false)
			convey.So(ok, convey.ShouldBeTrue)

			stage, err := r.Stage(ctx, "stage-1")
			convey.So(err, convey.ShouldBeNil)
			convey.So(stage.Open, convey.ShouldBeFalse)
		})

		convey.Convey("When toggling an unknown stage", func() {
			convey.So(r.SetStageOpen("stage-9", false), convey.ShouldBeFalse)
		})

		convey.Convey("When the context is already canceled", func() {
			canceled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := r.Stage(canceled, "stage-1")
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err, convey.ShouldNotEqual, validate.ErrNotFound)
		})
	})
}
