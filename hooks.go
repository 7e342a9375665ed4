package geneasync

import (
	"sync"

	"github.com/agentstation/geneasync/pkg/genealogy"
	"github.com/agentstation/geneasync/pkg/walker"
)

// Hook function types for reconciliation events
type (
	// PersonCreatedHook is called for every local person created by a run
	PersonCreatedHook func(rec genealogy.PersonRecord)

	// PersonUpdatedHook is called for every existing local person a run reconciled
	PersonUpdatedHook func(rec genealogy.PersonRecord)

	// FamilyCreatedHook is called for every local union created by a run
	FamilyCreatedHook func(rec genealogy.FamilyRecord)
)

// Hooks provides event callback registration.
type Hooks interface {
	OnPersonCreated(fn PersonCreatedHook)
	OnPersonUpdated(fn PersonUpdatedHook)
	OnFamilyCreated(fn FamilyCreatedHook)
}

// hooks manages event callbacks for run results
type hooks struct {
	mu              sync.RWMutex
	onPersonCreated []PersonCreatedHook
	onPersonUpdated []PersonUpdatedHook
	onFamilyCreated []FamilyCreatedHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnPersonCreated registers a callback for created persons
func (h *hooks) OnPersonCreated(fn PersonCreatedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onPersonCreated = append(h.onPersonCreated, fn)
}

// OnPersonUpdated registers a callback for reconciled existing persons
func (h *hooks) OnPersonUpdated(fn PersonUpdatedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onPersonUpdated = append(h.onPersonUpdated, fn)
}

// OnFamilyCreated registers a callback for created unions
func (h *hooks) OnFamilyCreated(fn FamilyCreatedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onFamilyCreated = append(h.onFamilyCreated, fn)
}

// triggerResult calls the hooks for every record of a finished run, in visit order
func (h *hooks) triggerResult(result *walker.Result) {
	if result == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, rec := range result.People {
		if rec.Created {
			for _, hook := range h.onPersonCreated {
				hook(*rec)
			}
			continue
		}
		for _, hook := range h.onPersonUpdated {
			hook(*rec)
		}
	}

	for _, fam := range result.Families {
		if !fam.Created {
			continue
		}
		for _, hook := range h.onFamilyCreated {
			hook(*fam)
		}
	}
}
