package relations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vidhub/backend/internal/apperrors"
	"github.com/vidhub/backend/internal/logging"
	"github.com/vidhub/backend/internal/models"
)

// Outcome reports which way a toggle went.
type Outcome string

const (
	Created Outcome = "created"
	Deleted Outcome = "deleted"
)

// Observer receives the result of every successful toggle.
type Observer interface {
	ObserveToggle(kind models.EdgeKind, outcome Outcome)
}

// Engine flips relationship edges on and off.
type Engine struct {
	store    Store
	observer Observer
}

// NewEngine constructs an Engine backed by store. observer may be nil.
func NewEngine(store Store, observer Observer) *Engine {
	if store == nil {
		panic("relations: store must not be nil")
	}
	return &Engine{store: store, observer: observer}
}

// Toggle creates the edge if it is absent and removes it if it is present.
// Concurrent callers racing on the same edge may each observe a different
// outcome, but the store never holds more than one copy of the edge.
func (e *Engine) Toggle(ctx context.Context, actorID, targetID string, kind models.EdgeKind) (Outcome, error) {
	edge, err := newEdge(actorID, targetID, kind)
	if err != nil {
		return "", err
	}

	exists, err := e.store.Exists(ctx, edge)
	if err != nil {
		return "", fmt.Errorf("check %s: %w", kind, err)
	}

	return e.apply(ctx, edge, !exists)
}

// Set drives the edge to the requested state. Repeating a call is a no-op that
// reports the same outcome.
func (e *Engine) Set(ctx context.Context, actorID, targetID string, kind models.EdgeKind, on bool) (Outcome, error) {
	edge, err := newEdge(actorID, targetID, kind)
	if err != nil {
		return "", err
	}
	return e.apply(ctx, edge, on)
}

func (e *Engine) apply(ctx context.Context, edge models.Edge, on bool) (Outcome, error) {
	logger := logging.FromContext(ctx)

	outcome := Deleted
	if on {
		outcome = Created
		if err := e.store.Insert(ctx, edge); err != nil {
			if !errors.Is(err, ErrAlreadyExists) {
				return "", fmt.Errorf("insert %s: %w", edge.Kind, err)
			}
			logger.Debug("edge already present", "kind", edge.Kind, "actorId", edge.ActorID, "targetId", edge.TargetID)
		}
	} else {
		if err := e.store.Remove(ctx, edge); err != nil {
			if !errors.Is(err, ErrNotFound) {
				return "", fmt.Errorf("remove %s: %w", edge.Kind, err)
			}
			logger.Debug("edge already absent", "kind", edge.Kind, "actorId", edge.ActorID, "targetId", edge.TargetID)
		}
	}

	if e.observer != nil {
		e.observer.ObserveToggle(edge.Kind, outcome)
	}
	logger.Info("relationship toggled", "kind", edge.Kind, "outcome", outcome, "targetId", edge.TargetID)
	return outcome, nil
}

func newEdge(actorID, targetID string, kind models.EdgeKind) (models.Edge, error) {
	actorID = strings.TrimSpace(actorID)
	targetID = strings.TrimSpace(targetID)
	if actorID == "" || targetID == "" {
		return models.Edge{}, apperrors.Validation("actor and target ids are required")
	}
	if !kind.Valid() {
		return models.Edge{}, apperrors.Validation(fmt.Sprintf("unknown relationship kind %q", kind))
	}
	if kind == models.EdgeSubscription && actorID == targetID {
		return models.Edge{}, ErrSelfReferenceForbidden
	}
	return models.Edge{ActorID: actorID, TargetID: targetID, Kind: kind}, nil
}
