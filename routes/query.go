package routes

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"multimodal-rag-platform/internal/logger"
	"multimodal-rag-platform/models"
	"multimodal-rag-platform/services"
	"multimodal-rag-platform/utils"
)

// SetupSystemRoutes registers health and status endpoints.
func SetupSystemRoutes(router *gin.Engine, deps *Deps) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "multimodal-rag-api"})
	})

	router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, deps.Store.Status())
	})
}

// SetupQueryRoutes registers the retrieval endpoint.
func SetupQueryRoutes(router *gin.Engine, deps *Deps) {
	router.POST("/query", handleQuery(deps))
}

// handleQuery retrieves the closest indexed content for the query and
// forwards the best hit to the answer synthesizer. An empty retrieval
// produces a sentinel answer, not an error; an empty index is a client
// error distinct from empty results.
func handleQuery(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.QueryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		if !deps.Store.Ready() {
			utils.RespondWithError(c, http.StatusBadRequest, "not_ready", "No documents indexed yet", nil)
			return
		}

		topK := req.TopK
		if topK <= 0 {
			topK = deps.Config.DefaultTopK
		}

		ctx := c.Request.Context()

		queryVector, err := deps.Embedder.EmbedQuery(ctx, req.Query)
		if err != nil {
			logger.Error("Query embedding failed", "error", err)
			queryVector = nil
		}

		idx, records := deps.Store.Snapshot()
		hits := services.SearchDocuments(queryVector, idx, records, topK)

		if len(hits) == 0 {
			c.JSON(http.StatusOK, models.QueryResponse{
				Answer:    "No relevant results found.",
				Sources:   []models.QuerySource{},
				Query:     req.Query,
				Timestamp: time.Now(),
			})
			return
		}

		answer := synthesizeAnswer(c, deps, req.Query, hits)

		sources := make([]models.QuerySource, 0, len(hits))
		for _, hit := range hits {
			source := models.QuerySource{
				DocID:       hit.DocID,
				Source:      hit.Source,
				ContentType: hit.ContentType,
				Similarity:  hit.Similarity,
			}
			if hit.ContentType == models.ContentTypeImage {
				source.Page = hit.Page
				if source.Page == 0 {
					source.Page = 1
				}
			} else {
				source.Preview = hit.Preview
			}
			sources = append(sources, source)
		}

		c.JSON(http.StatusOK, models.QueryResponse{
			Answer:    answer,
			Sources:   sources,
			Query:     req.Query,
			Timestamp: time.Now(),
		})
	}
}

// synthesizeAnswer applies the selection policy: the best image hit wins over
// the best text hit, and an unreadable image preview degrades to the text hit
// rather than failing the query.
func synthesizeAnswer(c *gin.Context, deps *Deps, query string, hits []models.Hit) string {
	ctx := c.Request.Context()

	imageHit, textHit := services.SelectBestHits(hits)

	if imageHit != nil {
		pngData, err := os.ReadFile(imageHit.Preview)
		if err == nil {
			return deps.Synthesizer.AnswerFromImage(ctx, query, pngData)
		}
		logger.Error("Failed to read image preview, falling back to text", "path", imageHit.Preview, "error", err)
		for i := range hits {
			if hits[i].ContentType == models.ContentTypeText {
				textHit = &hits[i]
				break
			}
		}
	}

	if textHit != nil {
		return deps.Synthesizer.AnswerFromText(ctx, query, textHit.Content)
	}
	return deps.Synthesizer.AnswerFromText(ctx, query, "")
}
