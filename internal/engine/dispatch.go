package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"fast-frontend/internal/frontend"
	"fast-frontend/internal/metadata"
	"fast-frontend/internal/metrics"
	"fast-frontend/internal/store"
)

// DispatchState is the lifecycle of one custom action request.
type DispatchState int

const (
	Unvalidated DispatchState = iota
	Validated
	Dispatched
	Rejected
)

func (s DispatchState) String() string {
	switch s {
	case Validated:
		return "validated"
	case Dispatched:
		return "dispatched"
	case Rejected:
		return "rejected"
	default:
		return "unvalidated"
	}
}

// Dispatch records how an action request ended.
type Dispatch struct {
	Action string
	Kind   string // "toolbar" or "row"
	State  DispatchState
	Status frontend.ActionStatus
}

// Dispatcher invokes custom actions through a configuration's closed action
// tables. Action names are untrusted input: only declared names with a
// registered handler are ever invoked.
type Dispatcher struct {
	storage Storage
	log     logrus.FieldLogger
}

func NewDispatcher(storage Storage, log logrus.FieldLogger) *Dispatcher {
	return &Dispatcher{storage: storage, log: log}
}

// Toolbar dispatches a toolbar action. A rejected action returns a
// Rejected dispatch and no error.
func (d *Dispatcher) Toolbar(ctx context.Context, cfg *frontend.EntityConfig, name string) (*Dispatch, error) {
	res := &Dispatch{Action: name, Kind: "toolbar", State: Unvalidated}
	handler, status := cfg.ToolbarAction(name)
	res.Status = status
	if !d.validate(cfg, res) {
		return res, nil
	}

	res.State = Dispatched
	d.record(cfg, res)
	if err := handler(ctx); err != nil {
		return res, fmt.Errorf("toolbar action %s on %s: %w", name, cfg.Entity.Key(), err)
	}
	return res, nil
}

// Row dispatches a row action against the row id resolved through the
// principal's scoped lookup. A row outside the scope is a NotFoundError.
func (d *Dispatcher) Row(ctx context.Context, cfg *frontend.EntityConfig, user *metadata.UserContext, name, id string) (*Dispatch, error) {
	res := &Dispatch{Action: name, Kind: "row", State: Unvalidated}
	handler, status := cfg.RowAction(name)
	res.Status = status
	if !d.validate(cfg, res) {
		return res, nil
	}

	row, err := d.storage.Get(ctx, cfg.Entity, cfg.Scope(user), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			res.State = Rejected
			d.record(cfg, res)
			return res, NotFoundError(cfg.Entity.Name, id)
		}
		return res, fmt.Errorf("load %s/%s: %w", cfg.Entity.Key(), id, err)
	}

	res.State = Dispatched
	d.record(cfg, res)
	if err := handler(ctx, row); err != nil {
		return res, fmt.Errorf("row action %s on %s/%s: %w", name, cfg.Entity.Key(), id, err)
	}
	return res, nil
}

func (d *Dispatcher) validate(cfg *frontend.EntityConfig, res *Dispatch) bool {
	switch res.Status {
	case frontend.ActionCallable:
		res.State = Validated
		return true
	case frontend.ActionNotCallable:
		d.log.WithFields(logrus.Fields{
			"entity": cfg.Entity.Key(),
			"action": res.Action,
			"kind":   res.Kind,
		}).Warn("action is declared but not callable, rejected")
	}
	res.State = Rejected
	d.record(cfg, res)
	return false
}

func (d *Dispatcher) record(cfg *frontend.EntityConfig, res *Dispatch) {
	metrics.RecordAction(cfg.Entity.Key(), res.Kind, res.State.String())
}
