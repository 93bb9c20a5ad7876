package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Endpoint describes one remote collection: where it lives and how its
// responses are shaped.
type Endpoint[T any] struct {
	// Path is the collection path, e.g. "/api/products".
	Path string
	// List decodes the collection response. Defaults to ListOf[T]().
	List Decoder[[]T]
	// Item decodes single-item responses. Defaults to ItemOf[T]().
	Item Decoder[T]
	// AckWrites requires a truthy "message" on create, update and delete.
	AckWrites bool
}

// Resource is a typed view over one remote collection. Each method issues
// exactly one HTTP round trip.
type Resource[T any] struct {
	client   *Client
	endpoint Endpoint[T]
}

// NewResource binds endpoint to c.
func NewResource[T any](c *Client, endpoint Endpoint[T]) *Resource[T] {
	if endpoint.List == nil {
		endpoint.List = ListOf[T]()
	}
	if endpoint.Item == nil {
		endpoint.Item = ItemOf[T]()
	}
	endpoint.Path = "/" + strings.Trim(endpoint.Path, "/")
	return &Resource[T]{client: c, endpoint: endpoint}
}

// Path returns the collection path.
func (r *Resource[T]) Path() string {
	return r.endpoint.Path
}

func (r *Resource[T]) itemPath(id string) string {
	return r.endpoint.Path + "/" + url.PathEscape(id)
}

// FetchAll retrieves the whole collection.
func (r *Resource[T]) FetchAll(ctx context.Context) ([]T, error) {
	resp, err := r.client.Get(ctx, r.endpoint.Path, nil)
	if err != nil {
		return nil, err
	}
	items, err := r.endpoint.List(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", r.endpoint.Path, err)
	}
	return items, nil
}

// FetchOne retrieves a single item.
func (r *Resource[T]) FetchOne(ctx context.Context, id string) (T, error) {
	var zero T
	resp, err := r.client.Get(ctx, r.itemPath(id), nil)
	if err != nil {
		return zero, err
	}
	item, err := r.endpoint.Item(resp.Body)
	if err != nil {
		return zero, fmt.Errorf("decoding %s: %w", r.itemPath(id), err)
	}
	return item, nil
}

// Update replaces item id with body and returns the server's representation.
// An acknowledged response with no item in it yields the zero T.
func (r *Resource[T]) Update(ctx context.Context, id string, body Body) (T, error) {
	resp, err := r.client.Put(ctx, r.itemPath(id), body)
	if err != nil {
		var zero T
		return zero, err
	}
	return r.decodeWrite(resp)
}

// Create posts body to the collection and returns the created item, or the
// zero T when the server only acknowledged.
func (r *Resource[T]) Create(ctx context.Context, body Body) (T, error) {
	resp, err := r.client.Post(ctx, r.endpoint.Path, body)
	if err != nil {
		var zero T
		return zero, err
	}
	return r.decodeWrite(resp)
}

// Delete removes item id.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	resp, err := r.client.Delete(ctx, r.itemPath(id))
	if err != nil {
		return err
	}
	if r.endpoint.AckWrites {
		if _, err := Acknowledged(resp); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resource[T]) decodeWrite(resp *Response) (T, error) {
	var zero T
	if r.endpoint.AckWrites {
		if _, err := Acknowledged(resp); err != nil {
			return zero, err
		}
		// Acknowledgements may or may not embed the item.
		item, err := r.endpoint.Item(resp.Body)
		if err != nil {
			return zero, nil
		}
		return item, nil
	}
	item, err := r.endpoint.Item(resp.Body)
	if err != nil {
		return zero, fmt.Errorf("decoding %s response: %w", r.endpoint.Path, err)
	}
	return item, nil
}
