package routes

import (
	"context"
	"image"

	"github.com/gin-gonic/gin"

	"multimodal-rag-platform/internal/config"
	"multimodal-rag-platform/services"
)

// Embedder computes fixed-length vectors for document and query content.
// A returned error means the item must be skipped, never replaced by a
// zero vector.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedImage(ctx context.Context, img image.Image) ([]float32, error)
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// Synthesizer produces a natural-language answer from retrieved content.
// Both methods are fail-soft and return an error message as the answer text
// when generation fails.
type Synthesizer interface {
	AnswerFromText(ctx context.Context, question, content string) string
	AnswerFromImage(ctx context.Context, question string, pngData []byte) string
}

// Extractor converts PDF bytes into text and page images.
type Extractor interface {
	ExtractText(ctx context.Context, content []byte) string
	RenderPages(ctx context.Context, content []byte) ([]image.Image, error)
}

// Deps bundles the components the HTTP handlers compose.
type Deps struct {
	Config      *config.Config
	Store       *services.DocumentStore
	Embedder    Embedder
	Extractor   Extractor
	Synthesizer Synthesizer
}

// SetupRoutes registers all API endpoints on the router.
func SetupRoutes(router *gin.Engine, deps *Deps) {
	SetupSystemRoutes(router, deps)
	SetupDocumentRoutes(router, deps)
	SetupQueryRoutes(router, deps)
}
