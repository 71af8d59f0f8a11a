package services

import (
	"context"
	"fmt"

	"canvia-backend/internal/cache"
	"canvia-backend/internal/canvas"
	"canvia-backend/internal/middleware"
	"canvia-backend/internal/models"
)

// Engine wires the per-session pieces of the context pipeline together.
// The cache store, YouTube service and resolver are shared; the Canvas
// client and dispatcher are bound to one authenticated identity per call.
type Engine struct {
	store               *cache.Store
	youtube             *YouTubeService
	resolver            *CourseResolver
	dispatchConcurrency int
}

func NewEngine(store *cache.Store, youtube *YouTubeService, resolver *CourseResolver, dispatchConcurrency int) *Engine {
	return &Engine{
		store:               store,
		youtube:             youtube,
		resolver:            resolver,
		dispatchConcurrency: dispatchConcurrency,
	}
}

// ClientFor builds a Canvas client bound to an authenticated session.
func (e *Engine) ClientFor(id middleware.Identity) *canvas.Client {
	return canvas.NewClient(id.CanvasURL, id.Token, fmt.Sprint(id.UserID), e.store)
}

// BuildContext assembles the Canvas context for one query on behalf of one
// session.
func (e *Engine) BuildContext(ctx context.Context, id middleware.Identity, req BuildRequest) models.ContextResult {
	client := e.ClientFor(id)
	dispatcher := NewContentDispatcher(client, e.youtube, e.store, fmt.Sprint(id.UserID), e.dispatchConcurrency)
	builder := NewContextBuilder(client, e.resolver, dispatcher)
	return builder.Build(ctx, req)
}
