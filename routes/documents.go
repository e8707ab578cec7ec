package routes

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"multimodal-rag-platform/internal/logger"
	"multimodal-rag-platform/models"
	"multimodal-rag-platform/utils"
)

const previewLength = 200

// SetupDocumentRoutes registers document ingestion and management endpoints.
func SetupDocumentRoutes(router *gin.Engine, deps *Deps) {
	documents := router.Group("/documents")

	documents.POST("/upload", handleUpload(deps))
	documents.GET("", handleListDocuments(deps))
	documents.DELETE("/clear", handleClearDocuments(deps))
	documents.DELETE("/:doc_id", handleDeleteDocument(deps))
}

// handleUpload processes a multipart batch of PDF files: extract text,
// rasterize pages, embed each piece and persist the store. Files are
// processed strictly in sequence. Non-PDF files are skipped silently; a
// per-file processing failure aborts the whole batch.
func handleUpload(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid multipart form", gin.H{"error": err.Error()})
			return
		}

		files := form.File["files"]
		if len(files) == 0 {
			utils.RespondWithBadRequest(c, "No files provided", nil)
			return
		}

		allRecords := deps.Store.Records()
		var newEmbeddings []models.NewEmbedding
		var processedFiles []models.ProcessedFile

		for _, fileHeader := range files {
			if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".pdf") {
				continue
			}

			file, err := fileHeader.Open()
			if err != nil {
				utils.RespondWithInternalError(c,
					fmt.Sprintf("Error processing %s", fileHeader.Filename),
					gin.H{"error": err.Error()})
				return
			}
			content, err := io.ReadAll(file)
			file.Close()
			if err != nil {
				utils.RespondWithInternalError(c,
					fmt.Sprintf("Error processing %s", fileHeader.Filename),
					gin.H{"error": err.Error()})
				return
			}

			docID := uuid.NewString()
			ctx := c.Request.Context()

			text := deps.Extractor.ExtractText(ctx, content)

			// Rasterization is best-effort: a PDF that cannot be rendered
			// still gets its text indexed.
			images, err := deps.Extractor.RenderPages(ctx, content)
			if err != nil {
				logger.Warn("Page rendering failed", "file", fileHeader.Filename, "error", err)
				images = nil
			}

			textPages := 0
			if strings.TrimSpace(text) != "" {
				emb, err := deps.Embedder.EmbedText(ctx, text)
				if err != nil {
					logger.Error("Text embedding failed, skipping record", "file", fileHeader.Filename, "error", err)
				} else {
					textPages = 1
					newEmbeddings = append(newEmbeddings, models.NewEmbedding{
						Embedding:   emb,
						DocID:       docID,
						ContentType: models.ContentTypeText,
					})
					allRecords = append(allRecords, models.DocumentRecord{
						DocID:       docID,
						Source:      fileHeader.Filename,
						ContentType: models.ContentTypeText,
						Content:     text,
						Preview:     makePreview(text),
					})
				}
			}

			for i, img := range images {
				pageNum := i + 1
				pageID := fmt.Sprintf("%s_page_%d", docID, pageNum)

				emb, err := deps.Embedder.EmbedImage(ctx, img)
				if err != nil {
					logger.Error("Image embedding failed, skipping page", "file", fileHeader.Filename, "page", pageNum, "error", err)
					continue
				}

				path, err := deps.Store.SaveImagePreview(img, pageID+".png")
				if err != nil {
					utils.RespondWithInternalError(c,
						fmt.Sprintf("Error processing %s", fileHeader.Filename),
						gin.H{"error": err.Error()})
					return
				}

				newEmbeddings = append(newEmbeddings, models.NewEmbedding{
					Embedding:   emb,
					DocID:       pageID,
					ContentType: models.ContentTypeImage,
				})
				allRecords = append(allRecords, models.DocumentRecord{
					DocID:       pageID,
					Source:      fileHeader.Filename,
					ContentType: models.ContentTypeImage,
					Page:        pageNum,
					Preview:     path,
				})
			}

			processedFiles = append(processedFiles, models.ProcessedFile{
				Filename:   fileHeader.Filename,
				DocID:      docID,
				TextPages:  textPages,
				ImagePages: len(images),
			})
		}

		if len(newEmbeddings) > 0 {
			if err := deps.Store.Save(newEmbeddings, allRecords); err != nil {
				utils.RespondWithInternalError(c, "Failed to save document store", gin.H{"error": err.Error()})
				return
			}
		}

		c.JSON(http.StatusOK, models.UploadResponse{
			Message:           fmt.Sprintf("Successfully processed %d documents", len(processedFiles)),
			ProcessedFiles:    processedFiles,
			TotalIndexedItems: len(allRecords),
		})
	}
}

func handleListDocuments(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		records := deps.Store.Records()

		infos := make([]models.DocumentInfo, 0, len(records))
		for _, rec := range records {
			infos = append(infos, models.DocumentInfo{
				DocID:       rec.DocID,
				Source:      rec.Source,
				ContentType: rec.ContentType,
				Page:        rec.Page,
				Preview:     rec.Preview,
			})
		}

		c.JSON(http.StatusOK, infos)
	}
}

func handleClearDocuments(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := deps.Store.Clear(); err != nil {
			utils.RespondWithInternalError(c, "Error clearing documents", gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "All documents cleared successfully"})
	}
}

// handleDeleteDocument removes all records sharing the given id prefix, so a
// multi-page document goes away as a unit. The vector index is not rebuilt.
func handleDeleteDocument(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		docID := c.Param("doc_id")

		removed := deps.Store.DeleteByPrefix(docID)
		if removed == 0 {
			utils.RespondWithNotFound(c, "Document not found")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Document %s deleted successfully", docID)})
	}
}

func makePreview(text string) string {
	if len(text) > previewLength {
		return text[:previewLength] + "..."
	}
	return text
}
