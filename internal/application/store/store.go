// Package store holds the paged, editable view over one remote collection.
//
// A Store moves through the phases Empty, Loading, Ready, Selected, Editing,
// Saving and Error. At most one network operation is in flight per store:
// the mutex is released while the binding talks to the server, and the busy
// phase rejects every overlapping operation with *shared.ConflictError.
// The collection only changes from server responses, never from local guesses.
package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/erp/console/internal/application/pagination"
	"github.com/erp/console/internal/domain/shared"
	"github.com/erp/console/internal/infrastructure/telemetry"
)

// ErrUnsupported is returned by Compose and Remove when the binding cannot
// create or delete items, and by Save on a ReadOnly binding.
var ErrUnsupported = errors.New("operation not supported by this resource")

// Options configures a Store
type Options[T any] struct {
	// Name identifies the resource in logs and spans
	Name     string
	PageSize int
	// Reverse shows the collection latest first. Applied once per load.
	Reverse bool
	// Match filters items for Search. Nil disables search.
	Match  func(item T, query string) bool
	Logger *zap.Logger
}

// View is a read-only snapshot of a Store
type View[T any, D any] struct {
	Items     []T
	Visible   []T
	Page      int
	PageCount int
	PageSize  int
	// Total counts the items matching Query across all pages
	Total      int
	Query      string
	Selected   *T
	EditBuffer *D
	Composing  bool
	Phase      Phase
	Modified   bool
	LastError  error
}

// Store is the state machine over one paged remote collection
type Store[T Identifiable, D any] struct {
	binding Binding[T, D]
	opts    Options[T]
	logger  *zap.Logger

	mu        sync.Mutex
	phase     Phase
	items     []T
	page      int
	query     string
	selected  *T
	buffer    *D
	composing bool
	modified  bool
	lastErr   error
}

// New creates an empty store over binding
func New[T Identifiable, D any](binding Binding[T, D], opts Options[T]) *Store[T, D] {
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	if opts.Name == "" {
		opts.Name = "resource"
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Store[T, D]{
		binding: binding,
		opts:    opts,
		logger:  log.With(zap.String("resource", opts.Name)),
		phase:   PhaseEmpty,
		page:    1,
	}
}

// Load fetches the collection: Empty|Error|Ready -> Loading -> Ready|Error.
// A failed load keeps the previous collection.
func (s *Store[T, D]) Load(ctx context.Context) error {
	s.mu.Lock()
	if !s.phase.in(PhaseEmpty, PhaseError, PhaseReady) {
		defer s.mu.Unlock()
		return s.conflict("load")
	}
	s.setPhase(PhaseLoading)
	s.mu.Unlock()

	return s.reload(ctx)
}

// reload runs the fetch of a store already in PhaseLoading
func (s *Store[T, D]) reload(ctx context.Context) error {
	ctx, span := telemetry.StartSpan(ctx, "store", "load", attribute.String("resource", s.opts.Name))
	defer span.End()

	items, err := s.binding.Fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		telemetry.RecordError(span, err)
		s.lastErr = err
		s.setPhase(PhaseError)
		s.logger.Warn("load failed", zap.Error(err), zap.Int("kept", len(s.items)))
		return err
	}

	if s.opts.Reverse {
		slices.Reverse(items)
	}
	s.items = items
	s.lastErr = nil
	s.page = pagination.Clamp(s.page, len(s.filtered()), s.opts.PageSize)
	s.setPhase(PhaseReady)
	span.SetAttributes(attribute.Int("items", len(items)))
	return nil
}

// Select focuses the item with id and copies it into the edit buffer:
// Ready -> Selected. Ids outside the current page window are ignored.
func (s *Store[T, D]) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseReady {
		return s.conflict("select")
	}

	for _, item := range s.window().Visible {
		if item.ResourceID() == id {
			selected := item
			draft := s.binding.Draft(item)
			s.selected = &selected
			s.buffer = &draft
			s.modified = false
			s.setPhase(PhaseSelected)
			return nil
		}
	}

	s.logger.Debug("select ignored, id not on current page", zap.String("id", id))
	return nil
}

// Compose starts a new item with a blank buffer: Ready -> Editing.
func (s *Store[T, D]) Compose() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	creator, ok := s.binding.(Creator[T, D])
	if !ok {
		return ErrUnsupported
	}
	if s.phase != PhaseReady {
		return s.conflict("compose")
	}

	draft := creator.Blank()
	s.selected = nil
	s.buffer = &draft
	s.composing = true
	s.modified = false
	s.setPhase(PhaseEditing)
	return nil
}

// Edit applies fn to the edit buffer: Selected|Editing -> Editing.
// fn works on a copy; if it fails the buffer and phase are unchanged.
// A call that leaves the buffer as it was does not mark it modified.
// fn must not call back into the store.
func (s *Store[T, D]) Edit(fn func(*D) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.phase.in(PhaseSelected, PhaseEditing) {
		return s.conflict("edit")
	}

	draft := *s.buffer
	if err := fn(&draft); err != nil {
		return err
	}
	if !reflect.DeepEqual(draft, *s.buffer) {
		s.modified = true
	}
	s.buffer = &draft
	s.setPhase(PhaseEditing)
	return nil
}

// Save validates the buffer and writes it: Editing -> Saving -> Ready, or
// back to Editing with the buffer intact when the write fails. Validation
// failures never reach the network.
func (s *Store[T, D]) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.phase != PhaseEditing {
		defer s.mu.Unlock()
		return s.conflict("save")
	}
	if !s.modified {
		defer s.mu.Unlock()
		return &shared.ConflictError{Op: "save", Phase: s.phase.String(), Err: shared.ErrNothingToSave}
	}
	draft := *s.buffer
	if err := s.binding.Validate(draft); err != nil {
		s.mu.Unlock()
		s.logger.Debug("save rejected by validation", zap.Error(err))
		return err
	}

	composing := s.composing
	var original T
	if s.selected != nil {
		original = *s.selected
	}
	s.setPhase(PhaseSaving)
	s.mu.Unlock()

	ctx, span := telemetry.StartSpan(ctx, "store", "save",
		attribute.String("resource", s.opts.Name),
		attribute.Bool("create", composing),
	)
	defer span.End()

	var (
		saved T
		err   error
	)
	if composing {
		saved, err = s.binding.(Creator[T, D]).Create(ctx, draft)
	} else {
		saved, err = s.binding.Update(ctx, original, draft)
	}

	s.mu.Lock()
	if err != nil {
		defer s.mu.Unlock()
		telemetry.RecordError(span, err)
		s.lastErr = err
		s.setPhase(PhaseEditing)
		s.logger.Warn("save failed", zap.Error(err))
		return err
	}

	s.clearEdit()
	s.lastErr = nil

	// A response that does not identify the written item cannot be placed
	// in the collection, so the server's list is fetched instead.
	mismatch := !composing && saved.ResourceID() != original.ResourceID()
	if mismatch {
		s.logger.Warn("save response does not match the edited item, reloading",
			zap.String("id", original.ResourceID()),
			zap.String("response_id", saved.ResourceID()),
		)
	}

	switch {
	case mismatch, composing && saved.ResourceID() == "":
		s.setPhase(PhaseLoading)
		s.mu.Unlock()
		if err := s.reload(ctx); err != nil {
			return fmt.Errorf("saved, but refreshing the list failed: %w", err)
		}
		return nil
	case composing:
		s.items = append(slices.Clip(s.items), saved)
	default:
		s.replace(original.ResourceID(), saved)
	}
	s.setPhase(PhaseReady)
	s.mu.Unlock()
	return nil
}

// replace swaps the item with id for saved, keeping order and length
func (s *Store[T, D]) replace(id string, saved T) {
	idx := slices.IndexFunc(s.items, func(item T) bool { return item.ResourceID() == id })
	if idx < 0 {
		s.logger.Warn("saved item no longer in collection", zap.String("id", id))
		return
	}
	items := slices.Clone(s.items)
	items[idx] = saved
	s.items = items
}

// Cancel discards the edit buffer: Selected|Editing -> Ready.
func (s *Store[T, D]) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.phase.in(PhaseSelected, PhaseEditing) {
		return s.conflict("cancel")
	}
	s.clearEdit()
	s.setPhase(PhaseReady)
	return nil
}

// Remove deletes the item with id: Ready -> Saving -> Ready. The item leaves
// the collection only after the server acknowledged the delete.
func (s *Store[T, D]) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	remover, ok := s.binding.(Remover)
	if !ok {
		s.mu.Unlock()
		return ErrUnsupported
	}
	if s.phase != PhaseReady {
		defer s.mu.Unlock()
		return s.conflict("remove")
	}
	if !slices.ContainsFunc(s.items, func(item T) bool { return item.ResourceID() == id }) {
		s.mu.Unlock()
		return shared.ErrNotFound
	}
	s.setPhase(PhaseSaving)
	s.mu.Unlock()

	ctx, span := telemetry.StartSpan(ctx, "store", "remove", attribute.String("resource", s.opts.Name))
	defer span.End()

	err := remover.Delete(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		telemetry.RecordError(span, err)
		s.lastErr = err
		s.setPhase(PhaseReady)
		s.logger.Warn("remove failed", zap.String("id", id), zap.Error(err))
		return err
	}

	s.items = slices.DeleteFunc(slices.Clone(s.items), func(item T) bool { return item.ResourceID() == id })
	s.lastErr = nil
	s.page = pagination.Clamp(s.page, len(s.filtered()), s.opts.PageSize)
	s.setPhase(PhaseReady)
	return nil
}

// SetPage moves to page n, clamped to the available pages.
func (s *Store[T, D]) SetPage(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.phase.in(PhaseEmpty, PhaseReady, PhaseError) {
		return s.conflict("set page")
	}
	s.page = pagination.Clamp(n, len(s.filtered()), s.opts.PageSize)
	return nil
}

// Search filters the collection by query and returns to the first page.
func (s *Store[T, D]) Search(query string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opts.Match == nil {
		return ErrUnsupported
	}
	if !s.phase.in(PhaseEmpty, PhaseReady, PhaseError) {
		return s.conflict("search")
	}
	s.query = query
	s.page = 1
	return nil
}

// PageOf returns the page holding id under the current query
func (s *Store[T, D]) PageOf(id string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.filtered(), func(item T) bool { return item.ResourceID() == id })
	if idx < 0 {
		return 0, false
	}
	return idx/s.opts.PageSize + 1, true
}

// Snapshot returns the observable state
func (s *Store[T, D]) Snapshot() View[T, D] {
	s.mu.Lock()
	defer s.mu.Unlock()

	win := s.window()
	v := View[T, D]{
		Items:     slices.Clone(s.items),
		Visible:   slices.Clone(win.Visible),
		Page:      s.page,
		PageCount: win.PageCount,
		PageSize:  s.opts.PageSize,
		Total:     len(s.filtered()),
		Query:     s.query,
		Composing: s.composing,
		Phase:     s.phase,
		Modified:  s.modified,
		LastError: s.lastErr,
	}
	if s.selected != nil {
		selected := *s.selected
		v.Selected = &selected
	}
	if s.buffer != nil {
		buffer := *s.buffer
		v.EditBuffer = &buffer
	}
	return v
}

// Phase returns the current phase
func (s *Store[T, D]) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// filtered returns the items matching the current query
func (s *Store[T, D]) filtered() []T {
	if s.query == "" || s.opts.Match == nil {
		return s.items
	}
	out := make([]T, 0, len(s.items))
	for _, item := range s.items {
		if s.opts.Match(item, s.query) {
			out = append(out, item)
		}
	}
	return out
}

func (s *Store[T, D]) window() pagination.Page[T] {
	items := s.filtered()
	page := pagination.Clamp(s.page, len(items), s.opts.PageSize)
	return pagination.Paginate(items, s.opts.PageSize, page)
}

func (s *Store[T, D]) clearEdit() {
	s.selected = nil
	s.buffer = nil
	s.composing = false
	s.modified = false
}

func (s *Store[T, D]) setPhase(p Phase) {
	if s.phase != p {
		s.logger.Debug("phase", zap.Stringer("from", s.phase), zap.Stringer("to", p))
	}
	s.phase = p
}

func (s *Store[T, D]) conflict(op string) error {
	return shared.NewConflictError(op, s.phase.String())
}
