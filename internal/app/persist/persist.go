// Package persist loads and saves whole-store state as versioned documents.
//
// Each store describes its document with a Codec: the kind, the current
// version, the default state, and an upgrade function for older versions.
// Loading never fails on a corrupt document. The state falls back to the
// default and the cause is reported in Result.Cause. A document that
// decodes but breaks a store invariant counts as corrupt.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tutu-network/pocketmoney/internal/domain"
	"github.com/tutu-network/pocketmoney/internal/infra/observability"
)

// Codec describes how one store kind maps to a document.
type Codec[T any] struct {
	Kind    string
	Version int

	// Default returns a fresh state. Called for missing and corrupt documents.
	Default func() T

	// Upgrade decodes a body written at an older version into the current
	// shape. Nil means older versions are treated as corrupt.
	Upgrade func(version int, body []byte) (T, error)

	// Normalize fills nil collections and trims bounded collections after
	// decoding. Optional.
	Normalize func(*T)

	// Validate rejects a decoded state that breaks an invariant. Optional.
	Validate func(T) error
}

// Result is what Load produced.
type Result[T any] struct {
	State   T
	Outcome domain.LoadOutcome
	Cause   error // set when Outcome == LoadRecovered
}

// Load reads the document for scope and decodes it. Only storage errors are
// returned; undecodable documents yield the default state with LoadRecovered.
func Load[T any](store domain.DocumentStore, scope string, c Codec[T], logger *zap.Logger) (Result[T], error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	doc, err := store.GetDocument(scope, c.Kind)
	if errors.Is(err, domain.ErrDocumentNotFound) {
		return c.finish(Result[T]{State: c.Default(), Outcome: domain.LoadFresh}), nil
	}
	if err != nil {
		return Result[T]{}, fmt.Errorf("load %s/%s: %w", scope, c.Kind, err)
	}

	res, cause := c.decode(doc)
	if cause != nil {
		res = Result[T]{
			State:   c.Default(),
			Outcome: domain.LoadRecovered,
			Cause:   fmt.Errorf("%s/%s v%d: %w: %w", scope, c.Kind, doc.Version, domain.ErrCorruptDocument, cause),
		}
		observability.StoreRecoveries.WithLabelValues(c.Kind).Inc()
		logger.Warn("corrupt document replaced by defaults",
			zap.String("scope", scope),
			zap.String("kind", c.Kind),
			zap.Int("version", doc.Version),
			zap.Error(cause),
		)
	}
	return c.finish(res), nil
}

func (c Codec[T]) decode(doc domain.Document) (Result[T], error) {
	switch {
	case doc.Version == c.Version:
		var state T
		if err := json.Unmarshal(doc.Body, &state); err != nil {
			return Result[T]{}, err
		}
		return c.validate(Result[T]{State: state, Outcome: domain.LoadOK})

	case doc.Version < c.Version && c.Upgrade != nil:
		state, err := c.Upgrade(doc.Version, doc.Body)
		if err != nil {
			return Result[T]{}, err
		}
		return c.validate(Result[T]{State: state, Outcome: domain.LoadUpgraded})

	default:
		return Result[T]{}, fmt.Errorf("unsupported version %d (current %d)", doc.Version, c.Version)
	}
}

func (c Codec[T]) validate(res Result[T]) (Result[T], error) {
	if c.Validate == nil {
		return res, nil
	}
	if err := c.Validate(res.State); err != nil {
		return Result[T]{}, fmt.Errorf("invalid state: %w", err)
	}
	return res, nil
}

func (c Codec[T]) finish(res Result[T]) Result[T] {
	if c.Normalize != nil {
		c.Normalize(&res.State)
	}
	observability.StoreLoads.WithLabelValues(c.Kind, res.Outcome.String()).Inc()
	return res
}

// Save encodes state as the current version and writes it.
func Save[T any](store domain.DocumentStore, scope string, c Codec[T], state T) error {
	body, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", scope, c.Kind, err)
	}
	err = store.PutDocument(domain.Document{
		Scope:     scope,
		Kind:      c.Kind,
		Version:   c.Version,
		Body:      body,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		observability.PersistFailures.WithLabelValues(c.Kind).Inc()
		return fmt.Errorf("save %s/%s: %w", scope, c.Kind, err)
	}
	return nil
}
