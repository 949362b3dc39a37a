package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/geocoder89/blogapi/internal/actorctx"
	"github.com/geocoder89/blogapi/internal/apperr"
	"github.com/geocoder89/blogapi/internal/cache"
	"github.com/geocoder89/blogapi/internal/query"
	"github.com/geocoder89/blogapi/internal/utils"
	"github.com/gin-gonic/gin"
)

// Collection is the storage capability the CRUD handlers need. C and U are
// the create and partial-update payloads.
type Collection[T any, C any, U any] interface {
	Find(ctx context.Context, spec query.Spec) ([]T, error)
	FindByID(ctx context.Context, id string) (T, error)
	FindOne(ctx context.Context, field, value string) (T, error)
	Insert(ctx context.Context, in C) (T, error)
	UpdateByID(ctx context.Context, id string, in U) (T, error)
	DeleteByID(ctx context.Context, id string) error
}

// CacheObserver counts list cache hits and misses.
type CacheObserver interface {
	ObserveCache(collection string, hit bool)
}

type noopCacheObserver struct{}

func (noopCacheObserver) ObserveCache(string, bool) {}

// Factory produces the list/get/create/update/delete handlers for one
// collection.
type Factory[T any, C any, U any] struct {
	name  string
	noun  string
	store Collection[T, C, U]

	cache    cache.Store
	cacheObs CacheObserver

	owner        func(T) string
	beforeCreate func(ctx *gin.Context, in *C) error
}

func NewFactory[T any, C any, U any](name, noun string, store Collection[T, C, U]) *Factory[T, C, U] {
	return &Factory[T, C, U]{
		name:     name,
		noun:     noun,
		store:    store,
		cache:    cache.Noop{},
		cacheObs: noopCacheObserver{},
	}
}

// WithCache serves GetAll from c. Every write through the factory bumps
// the collection generation.
func (f *Factory[T, C, U]) WithCache(c cache.Store, obs CacheObserver) *Factory[T, C, U] {
	f.cache = c
	if obs != nil {
		f.cacheObs = obs
	}
	return f
}

// WithOwner restricts update and delete to the caller whose username
// owner(doc) returns.
func (f *Factory[T, C, U]) WithOwner(owner func(T) string) *Factory[T, C, U] {
	f.owner = owner
	return f
}

// BeforeCreate runs after binding and before insert.
func (f *Factory[T, C, U]) BeforeCreate(hook func(ctx *gin.Context, in *C) error) *Factory[T, C, U] {
	f.beforeCreate = hook
	return f
}

type cachedPage struct {
	Results int             `json:"results"`
	Docs    json.RawMessage `json:"docs"`
}

func (f *Factory[T, C, U]) GetAll(ctx *gin.Context) {
	c := ctx.Request.Context()
	raw := ctx.Request.URL.Query()
	key := cache.ListKey(f.name, f.cache.Generation(c, f.name), raw)

	if b, ok := f.cache.Get(c, key); ok {
		var page cachedPage
		if err := json.Unmarshal(b, &page); err == nil {
			f.cacheObs.ObserveCache(f.name, true)
			f.writeList(ctx, page)
			return
		}
	}
	f.cacheObs.ObserveCache(f.name, false)

	spec := query.FromValues(query.Spec{}, raw)

	docs, err := f.store.Find(c, spec)
	if err != nil {
		fail(ctx, err)
		return
	}

	projected, err := query.Project(docs, spec.Fields)
	if err != nil {
		fail(ctx, apperr.Internal("could not project documents", err))
		return
	}

	docsJSON, err := json.Marshal(projected)
	if err != nil {
		fail(ctx, apperr.Internal("could not encode documents", err))
		return
	}

	page := cachedPage{Results: len(docs), Docs: docsJSON}
	if b, err := json.Marshal(page); err == nil {
		f.cache.Set(c, key, b)
	}

	f.writeList(ctx, page)
}

func (f *Factory[T, C, U]) writeList(ctx *gin.Context, page cachedPage) {
	ctx.JSON(http.StatusOK, gin.H{
		"status":      statusSuccess,
		"results":     page.Results,
		"requestedAt": requestedAt(ctx),
		"docs":        page.Docs,
	})
}

func (f *Factory[T, C, U]) GetOneByID(ctx *gin.Context) {
	doc, ok := f.fetch(ctx)
	if !ok {
		return
	}
	respondDoc(ctx, http.StatusOK, doc)
}

func (f *Factory[T, C, U]) GetOneBySlug(ctx *gin.Context) {
	doc, err := f.store.FindOne(ctx.Request.Context(), "slug", ctx.Param("slug"))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			fail(ctx, apperr.NotFound("No document found with that slug"))
			return
		}
		fail(ctx, err)
		return
	}
	respondDoc(ctx, http.StatusOK, doc)
}

func (f *Factory[T, C, U]) CreateOne(ctx *gin.Context) {
	var in C
	if !BindJSON(ctx, &in) {
		return
	}

	if f.beforeCreate != nil {
		if err := f.beforeCreate(ctx, &in); err != nil {
			fail(ctx, err)
			return
		}
	}

	doc, err := f.store.Insert(ctx.Request.Context(), in)
	if err != nil {
		fail(ctx, err)
		return
	}

	f.cache.Bump(ctx.Request.Context(), f.name)
	respondDoc(ctx, http.StatusCreated, doc)
}

func (f *Factory[T, C, U]) UpdateOne(ctx *gin.Context) {
	var in U
	if !BindJSON(ctx, &in) {
		return
	}

	doc, ok := f.fetch(ctx)
	if !ok {
		return
	}
	if !f.allowed(ctx, doc, "update") {
		return
	}

	updated, err := f.store.UpdateByID(ctx.Request.Context(), ctx.Param("id"), in)
	if err != nil {
		fail(ctx, err)
		return
	}

	f.cache.Bump(ctx.Request.Context(), f.name)
	respondDoc(ctx, http.StatusOK, updated)
}

func (f *Factory[T, C, U]) DeleteOne(ctx *gin.Context) {
	doc, ok := f.fetch(ctx)
	if !ok {
		return
	}
	if !f.allowed(ctx, doc, "delete") {
		return
	}

	if err := f.store.DeleteByID(ctx.Request.Context(), ctx.Param("id")); err != nil {
		fail(ctx, err)
		return
	}

	f.cache.Bump(ctx.Request.Context(), f.name)
	respondNoContent(ctx)
}

// fetch loads the document named by the :id param or fails the request.
func (f *Factory[T, C, U]) fetch(ctx *gin.Context) (T, bool) {
	var zero T
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		fail(ctx, apperr.BadRequest(fmt.Sprintf("Invalid id: %s.", id)))
		return zero, false
	}

	doc, err := f.store.FindByID(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			fail(ctx, apperr.NotFound("No document found with that ID"))
			return zero, false
		}
		fail(ctx, err)
		return zero, false
	}

	return doc, true
}

func (f *Factory[T, C, U]) allowed(ctx *gin.Context, doc T, action string) bool {
	if f.owner == nil {
		return true
	}

	u, ok := actorctx.UserFrom(ctx.Request.Context())
	if !ok {
		fail(ctx, apperr.Unauthenticated("You are not logged in! Please log in to get access."))
		return false
	}

	if f.owner(doc) != u.Username {
		fail(ctx, apperr.Forbidden(fmt.Sprintf("You can only %s your %s", action, f.noun)))
		return false
	}
	return true
}
