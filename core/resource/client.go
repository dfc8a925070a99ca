package resource

import (
	"context"
	"net/http"
	"sync"
)

// fallback messages, used when the backend gives no `error` field
const (
	MsgFetchFailed  = "Erreur lors du chargement des données"
	MsgAddFailed    = "Erreur lors de l'ajout"
	MsgUpdateFailed = "Erreur lors de la modification"
	MsgDeleteFailed = "Erreur lors de la suppression"
)

// ReferenceBody is the body of the delete and get calls.
type ReferenceBody struct {
	Reference string `json:"Reference"`
}

// Client owns the cached list of one collection and its CRUD calls.
//
// Operations never return errors: they resolve to a bool (or a nil record) and leave
// the message in Err(). The loading flag is shared by all calls of one Client and is
// not protected against overlapping calls; callers should not trigger a call while Loading().
type Client[T Record] struct {
	Resource Resource
	Fields   []Field

	tr *Transport

	mu      sync.RWMutex
	items   []T
	loading bool
	err     string
}

func NewClient[T Record](res Resource, tr *Transport) *Client[T] {
	return &Client[T]{
		Resource: res,
		Fields:   FieldsOf[T](),
		tr:       tr,
	}
}

func (c *Client[T]) path(op string) string {
	return "/" + c.Resource.Name + "/" + op
}

// Items returns a copy of the cached list.
func (c *Client[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	items := make([]T, len(c.items))
	copy(items, c.items)
	return items
}

// References lists the References of the cached records.
func (c *Client[T]) References() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	refs := make([]string, len(c.items))
	for i, it := range c.items {
		refs[i] = it.GetReference()
	}
	return refs
}

func (c *Client[T]) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// Err is the message of the last failed call.
func (c *Client[T]) Err() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

func (c *Client[T]) setLoading(loading bool) {
	c.mu.Lock()
	c.loading = loading
	c.mu.Unlock()
}

func (c *Client[T]) setErr(msg string) {
	c.mu.Lock()
	c.err = msg
	c.mu.Unlock()
}

// FetchAll replaces the cache with the server's list; on failure the previous cache is kept.
func (c *Client[T]) FetchAll(ctx context.Context) {
	c.setLoading(true)
	defer c.setLoading(false)

	var items []T
	if err := c.tr.JSON(ctx, http.MethodGet, c.path("list"), nil, &items); err != nil {
		c.setErr(Message(err, MsgFetchFailed))
		return
	}
	if items == nil {
		items = []T{}
	}

	c.mu.Lock()
	c.items = items
	c.err = ""
	c.mu.Unlock()
}

// Add creates rec on the server and refreshes the list on success.
func (c *Client[T]) Add(ctx context.Context, rec T) bool {
	return c.mutate(ctx, http.MethodPost, "add", rec, MsgAddFailed)
}

// Update replaces the server record having rec's Reference and refreshes the list on success.
func (c *Client[T]) Update(ctx context.Context, rec T) bool {
	return c.mutate(ctx, http.MethodPut, "update", rec, MsgUpdateFailed)
}

// Delete removes the record identified by ref and refreshes the list on success.
func (c *Client[T]) Delete(ctx context.Context, ref string) bool {
	return c.mutate(ctx, http.MethodDelete, "delete", ReferenceBody{Reference: ref}, MsgDeleteFailed)
}

func (c *Client[T]) mutate(ctx context.Context, method, op string, body interface{}, fallback string) bool {
	if err := c.send(ctx, method, op, body); err != nil {
		c.setErr(Message(err, fallback))
		return false
	}
	c.setErr("")
	c.FetchAll(ctx)
	return true
}

func (c *Client[T]) send(ctx context.Context, method, op string, body interface{}) error {
	c.setLoading(true)
	defer c.setLoading(false)
	return c.tr.JSON(ctx, method, c.path(op), body, nil)
}

// GetByReference fetches one record without touching the cache.
// Any failure (transport, status, body) yields nil.
func (c *Client[T]) GetByReference(ctx context.Context, ref string) *T {
	rec := new(T)
	if err := c.tr.JSON(ctx, http.MethodPost, c.path("get"), ReferenceBody{Reference: ref}, rec); err != nil {
		return nil
	}
	if (*rec).GetReference() == "" {
		return nil
	}
	return rec
}
