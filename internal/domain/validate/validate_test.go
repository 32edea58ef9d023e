package validate

import (
	"context"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/chicane/internal/domain/model"
	"github.com/okian/chicane/internal/domain/types"
)

type stubLookups struct {
	stage    types.StageView
	stageErr error

	device    types.DeviceView
	deviceErr error

	registration types.RegistrationView
	regErr       error
}

func (s *stubLookups) Stage(ctx context.Context, _ string) (types.StageView, error) {
	if err := ctx.Err(); err != nil {
		return types.StageView{}, err
	}
	return s.stage, s.stageErr
}

func (s *stubLookups) Device(ctx context.Context, _, _ string) (types.DeviceView, error) {
	if err := ctx.Err(); err != nil {
		return types.DeviceView{}, err
	}
	return s.device, s.deviceErr
}

func (s *stubLookups) Registration(ctx context.Context, _ string, _ int) (types.RegistrationView, error) {
	if err := ctx.Err(); err != nil {
		return types.RegistrationView{}, err
	}
	return s.registration, s.regErr
}

// slowLookups blocks until the lookup context expires.
type slowLookups struct{ stubLookups }

func (s *slowLookups) Stage(ctx context.Context, _ string) (types.StageView, error) {
	<-ctx.Done()
	return types.StageView{}, ctx.Err()
}

func okLookups() *stubLookups {
	return &stubLookups{
		stage: types.StageView{
			ID:         "stage-1",
			Discipline: types.DisciplineCircuit,
			Open:       true,
			LapCount:   3,
		},
		device:       types.DeviceView{Authorized: true},
		registration: types.RegistrationView{RiderID: "r-7", Active: true},
	}
}

func validPassage() model.RawPassage {
	return model.RawPassage{
		PassageID:   "p-1",
		DeviceID:    "decoder-1",
		RiderNumber: 7,
		StageID:     "stage-1",
		Kind:        types.KindPassage,
		Timestamp:   time.Now().UTC(),
	}
}

func TestValidate(t *testing.T) {
	convey.Convey("Given admission lookups", t, func() {
		ctx := context.Background()

		convey.Convey("When everything checks out", func() {
			lk := okLookups()
			v := New(lk, lk, lk)
			res := v.Validate(ctx, validPassage())

			convey.Convey("Then the passage is admitted with its stage attached", func() {
				convey.So(res.OK, convey.ShouldBeTrue)
				convey.So(res.Stage.ID, convey.ShouldEqual, "stage-1")
				convey.So(res.Registration.RiderID, convey.ShouldEqual, "r-7")
			})
		})

		convey.Convey("When the stage is unknown", func() {
			lk := okLookups()
			lk.stageErr = ErrNotFound
			v := New(lk, lk, lk)
			res := v.Validate(ctx, validPassage())

			convey.Convey("Then the passage is rejected as stage closed", func() {
				convey.So(res.OK, convey.ShouldBeFalse)
				convey.So(res.Reason, convey.ShouldEqual, model.RejectStageClosed)
			})
		})

		convey.Convey("When the stage is closed for timing", func() {
			lk := okLookups()
			lk.stage.Open = false
			v := New(lk, lk, lk)
			res := v.Validate(ctx, validPassage())

			convey.So(res.OK, convey.ShouldBeFalse)
			convey.So(res.Reason, convey.ShouldEqual, model.RejectStageClosed)
		})

		convey.Convey("When the device is not authorized", func() {
			lk := okLookups()
			lk.device.Authorized = false
			v := New(lk, lk, lk)
			res := v.Validate(ctx, validPassage())

			convey.So(res.OK, convey.ShouldBeFalse)
			convey.So(res.Reason, convey.ShouldEqual, model.RejectInactiveDevice)
		})

		convey.Convey("When the rider is not registered", func() {
			lk := okLookups()
			lk.regErr = ErrNotFound
			v := New(lk, lk, lk)
			res := v.Validate(ctx, validPassage())

			convey.So(res.OK, convey.ShouldBeFalse)
			convey.So(res.Reason, convey.ShouldEqual, model.RejectUnknownRider)
		})

		convey.Convey("When the registration is inactive", func() {
			lk := okLookups()
			lk.registration.Active = false
			v := New(lk, lk, lk)
			res := v.Validate(ctx, validPassage())

			convey.So(res.OK, convey.ShouldBeFalse)
			convey.So(res.Reason, convey.ShouldEqual, model.RejectUnknownRider)
		})

		convey.Convey("When the reading kind does not fit the discipline", func() {
			lk := okLookups()
			v := New(lk, lk, lk)
			p := validPassage()
			p.Kind = types.KindCheckpoint
			res := v.Validate(ctx, p)

			convey.So(res.OK, convey.ShouldBeFalse)
			convey.So(res.Reason, convey.ShouldEqual, model.RejectWrongReadingKind)
		})

		convey.Convey("When an enduro checkpoint names an unknown segment", func() {
			lk := okLookups()
			lk.stage.Discipline = types.DisciplineEnduro
			lk.stage.Segments = []types.SegmentView{{ID: "ss1", Index: 1}}
			v := New(lk, lk, lk)
			p := validPassage()
			p.Kind = types.KindCheckpoint
			p.SegmentID = "ss9"
			res := v.Validate(ctx, p)

			convey.So(res.OK, convey.ShouldBeFalse)
			convey.So(res.Reason, convey.ShouldEqual, model.RejectWrongReadingKind)
		})

		convey.Convey("When a lookup outage is not a missing record", func() {
			lk := okLookups()
			lk.deviceErr = context.DeadlineExceeded
			v := New(lk, lk, lk)
			res := v.Validate(ctx, validPassage())

			convey.Convey("Then the rejection is validator unavailability, not a silent pass", func() {
				convey.So(res.OK, convey.ShouldBeFalse)
				convey.So(res.Reason, convey.ShouldEqual, model.RejectValidatorUnavailable)
			})
		})
	})
}

func TestValidateLookupTimeout(t *testing.T) {
	convey.Convey("Given a lookup that never answers", t, func() {
		lk := &slowLookups{}
		v := New(lk, lk, lk, WithLookupTimeout(20*time.Millisecond))

		convey.Convey("When validating a passage", func() {
			res := v.Validate(context.Background(), validPassage())

			convey.Convey("Then the bounded timeout rejects it as unavailable", func() {
				convey.So(res.OK, convey.ShouldBeFalse)
				convey.So(res.Reason, convey.ShouldEqual, model.RejectValidatorUnavailable)
			})
		})
	})
}
