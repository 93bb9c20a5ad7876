package store

import "context"

// Identifiable is a resource item with a server-assigned id
type Identifiable interface {
	ResourceID() string
}

// Binding plugs one resource shape into a Store: how to fetch the
// collection, how to derive and check an edit buffer, and how to write it.
type Binding[T Identifiable, D any] interface {
	Fetch(ctx context.Context) ([]T, error)
	// Draft copies the editable fields of item into a new buffer.
	Draft(item T) D
	// Validate runs before any write; it must not perform I/O.
	Validate(draft D) error
	// Update writes draft for original and returns the server's
	// representation of the item.
	Update(ctx context.Context, original T, draft D) (T, error)
}

// Creator is implemented by bindings whose resource supports creation.
type Creator[T Identifiable, D any] interface {
	// Blank returns the buffer for a new item.
	Blank() D
	// Create writes draft as a new item. A result with an empty id means the
	// server did not return the item and the collection must be reloaded.
	Create(ctx context.Context, draft D) (T, error)
}

// Remover is implemented by bindings whose resource supports deletion.
type Remover interface {
	Delete(ctx context.Context, id string) error
}

// ReadOnly is a binding for collections that are listed but never written.
// The item doubles as its own edit buffer; saving is rejected before any I/O.
type ReadOnly[T Identifiable] struct {
	FetchFunc func(ctx context.Context) ([]T, error)
}

// Fetch implements Binding
func (r ReadOnly[T]) Fetch(ctx context.Context) ([]T, error) {
	return r.FetchFunc(ctx)
}

// Draft implements Binding
func (r ReadOnly[T]) Draft(item T) T { return item }

// Validate implements Binding
func (r ReadOnly[T]) Validate(T) error { return ErrUnsupported }

// Update implements Binding
func (r ReadOnly[T]) Update(context.Context, T, T) (T, error) {
	var zero T
	return zero, ErrUnsupported
}
