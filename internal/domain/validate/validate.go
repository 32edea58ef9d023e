// Package validate checks raw passages against registration, device and
// stage state before they enter the scoring pipeline.
package validate

import (
	"context"
	"errors"
	"time"

	"github.com/okian/chicane/internal/domain/model"
	"github.com/okian/chicane/internal/domain/policy"
	"github.com/okian/chicane/internal/domain/types"
)

// RegistrationLookup resolves a rider's registration for a stage.
type RegistrationLookup interface {
	Registration(ctx context.Context, stageID string, riderNumber int) (types.RegistrationView, error)
}

// DeviceLookup resolves a device's authorization for a stage.
type DeviceLookup interface {
	Device(ctx context.Context, deviceID, stageID string) (types.DeviceView, error)
}

// StageLookup resolves a stage's timing configuration.
type StageLookup interface {
	Stage(ctx context.Context, stageID string) (types.StageView, error)
}

// Result is the validator's verdict on one passage. When OK is false,
// Reason carries the typed rejection; nothing downstream runs.
type Result struct {
	OK           bool
	Reason       model.RejectReason
	Stage        types.StageView
	Registration types.RegistrationView
}

func rejected(reason model.RejectReason) Result {
	return Result{Reason: reason}
}

// Validator runs the ordered admission checks for raw passages. Lookups
// are external collaborators and run under a bounded timeout; a timeout
// is a ValidatorUnavailable rejection, never a silent pass-through.
type Validator struct {
	registrations RegistrationLookup
	devices       DeviceLookup
	stages        StageLookup
	lookupTimeout time.Duration
}

// New creates a Validator over the given lookups.
func New(registrations RegistrationLookup, devices DeviceLookup, stages StageLookup, opts ...Option) *Validator {
	v := &Validator{
		registrations: registrations,
		devices:       devices,
		stages:        stages,
		lookupTimeout: defaultLookupTimeout,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks p in order: stage open, device authorized, rider
// registered and active, reading kind permitted for the discipline.
// The stage view is attached to the result so downstream stages do not
// re-fetch it.
func (v *Validator) Validate(ctx context.Context, p model.RawPassage) Result {
	ctx, cancel := context.WithTimeout(ctx, v.lookupTimeout)
	defer cancel()

	stage, err := v.stages.Stage(ctx, p.StageID)
	switch {
	case errors.Is(err, ErrNotFound):
		return rejected(model.RejectStageClosed)
	case err != nil:
		return rejected(model.RejectValidatorUnavailable)
	case !stage.Open:
		return rejected(model.RejectStageClosed)
	}

	device, err := v.devices.Device(ctx, p.DeviceID, p.StageID)
	switch {
	case errors.Is(err, ErrNotFound):
		return rejected(model.RejectInactiveDevice)
	case err != nil:
		return rejected(model.RejectValidatorUnavailable)
	case !device.Authorized:
		return rejected(model.RejectInactiveDevice)
	}

	reg, err := v.registrations.Registration(ctx, p.StageID, p.RiderNumber)
	switch {
	case errors.Is(err, ErrNotFound):
		return rejected(model.RejectUnknownRider)
	case err != nil:
		return rejected(model.RejectValidatorUnavailable)
	case !reg.Active:
		return rejected(model.RejectUnknownRider)
	}

	if !p.Kind.Valid() || !policy.KindPermitted(stage, p.Kind) {
		return rejected(model.RejectWrongReadingKind)
	}
	if stage.Discipline == types.DisciplineEnduro && p.Kind == types.KindCheckpoint {
		if _, ok := stage.Segment(p.SegmentID); !ok {
			return rejected(model.RejectWrongReadingKind)
		}
	}

	return Result{OK: true, Stage: stage, Registration: reg}
}
