// Package registry provides in-memory implementations of the external
// registration, device-authorization and stage-configuration lookups the
// validator depends on. In production deployments these are remote
// services; here they are seeded from configuration so the binary runs
// standalone at a race with no backend connectivity.
package registry

import (
	"context"
	"sync"

	"github.com/okian/chicane/internal/domain/types"
	"github.com/okian/chicane/internal/domain/validate"
)

type regKey struct {
	stageID     string
	riderNumber int
}

type devKey struct {
	deviceID string
	stageID  string
}

// Registry implements validate.RegistrationLookup, validate.DeviceLookup
// and validate.StageLookup.
type Registry struct {
	mu            sync.RWMutex
	stages        map[string]types.StageView
	registrations map[regKey]types.RegistrationView
	devices       map[devKey]types.DeviceView
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		stages:        make(map[string]types.StageView),
		registrations: make(map[regKey]types.RegistrationView),
		devices:       make(map[devKey]types.DeviceView),
	}
}

// Stage returns the stage configuration for id.
func (r *Registry) Stage(ctx context.Context, id string) (types.StageView, error) {
	if err := ctx.Err(); err != nil {
		return types.StageView{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stages[id]
	if !ok {
		return types.StageView{}, validate.ErrNotFound
	}
	return s, nil
}

// Device returns the device authorization for (deviceID, stageID).
func (r *Registry) Device(ctx context.Context, deviceID, stageID string) (types.DeviceView, error) {
	if err := ctx.Err(); err != nil {
		return types.DeviceView{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[devKey{deviceID: deviceID, stageID: stageID}]
	if !ok {
		return types.DeviceView{}, validate.ErrNotFound
	}
	return d, nil
}

// Registration returns the rider's registration for a stage.
func (r *Registry) Registration(ctx context.Context, stageID string, riderNumber int) (types.RegistrationView, error) {
	if err := ctx.Err(); err != nil {
		return types.RegistrationView{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.registrations[regKey{stageID: stageID, riderNumber: riderNumber}]
	if !ok {
		return types.RegistrationView{}, validate.ErrNotFound
	}
	return reg, nil
}

// PutStage registers or replaces a stage configuration.
func (r *Registry) PutStage(s types.StageView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages[s.ID] = s
}

// SetStageOpen opens or closes a stage for timing.
func (r *Registry) SetStageOpen(stageID string, open bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stages[stageID]
	if !ok {
		return false
	}
	s.Open = open
	r.stages[stageID] = s
	return true
}

// PutRegistration registers a rider for a stage.
func (r *Registry) PutRegistration(stageID string, riderNumber int, reg types.RegistrationView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registrations[regKey{stageID: stageID, riderNumber: riderNumber}] = reg
}

// PutDevice authorizes (or de-authorizes) a device for a stage.
func (r *Registry) PutDevice(deviceID, stageID string, d types.DeviceView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices[devKey{deviceID: deviceID, stageID: stageID}] = d
}
