package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ledongthuc/pdf"

	"pantrypal/internal/grocery"
)

// GeminiClient defines the interface for interacting with the Gemini API.
type GeminiClient interface {
	ExtractItems(ctx context.Context, text string) ([]grocery.ParsedItem, grocery.ExtractionOutcome, error)
	ExtractItemsFromImage(ctx context.Context, imageData []byte, format string) ([]grocery.ParsedItem, grocery.ExtractionOutcome, error)
	Transcribe(ctx context.Context, audioData []byte, mimeType string) (string, error)
	GenerateRecipe(ctx context.Context, query string) (*grocery.Recipe, error)
}

// LocalLLMClient defines the interface for interacting with the Local LLM API.
type LocalLLMClient interface {
	ExtractItems(ctx context.Context, text string) ([]grocery.ParsedItem, grocery.ExtractionOutcome, error)
	ExtractItemsFromImage(ctx context.Context, imageData []byte, format string) ([]grocery.ParsedItem, grocery.ExtractionOutcome, error)
}

// GroceryStore defines the interface for category and product data
// operations.
type GroceryStore interface {
	ListCategories(ctx context.Context) ([]grocery.Category, error)
	GetCategory(ctx context.Context, id int64) (*grocery.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*grocery.Category, error)
	CreateCategory(ctx context.Context, name string) (*grocery.Category, error)
	UpdateCategory(ctx context.Context, id int64, name string) (*grocery.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	ListProducts(ctx context.Context, categoryID int64) ([]grocery.Product, error)
	FindMatchingProduct(ctx context.Context, categoryID int64, normalizedName, normalizedUnits string) (*grocery.Product, error)
	CreateProduct(ctx context.Context, product *grocery.Product) error
	UpdateProductQuantity(ctx context.Context, id int64, quantity string) error
}

// Handler handles HTTP requests.
type Handler struct {
	GeminiClient   GeminiClient
	LocalLLMClient LocalLLMClient
	Store          GroceryStore
	Reconciler     *grocery.Reconciler
}

// NewHandler creates a new Handler.
func NewHandler(geminiClient GeminiClient, localLLMClient LocalLLMClient, store GroceryStore, reconciler *grocery.Reconciler) *Handler {
	return &Handler{GeminiClient: geminiClient, LocalLLMClient: localLLMClient, Store: store, Reconciler: reconciler}
}

type reconcileRequest struct {
	Products []grocery.Item `json:"products" binding:"required"`
}

type queryRequest struct {
	Query string `json:"query" binding:"required"`
}

type categoryRequest struct {
	Name string `json:"name" binding:"required"`
}

var whitespace = regexp.MustCompile(`\s+`)

// ReconcileProducts applies a batch of parsed grocery items to the store,
// creating new products or merging quantities into matching ones.
func (h *Handler) ReconcileProducts(c *gin.Context) {
	var req reconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid products array",
			"code":    grocery.CodeInvalidInput,
		})
		return
	}

	// Image provisioning happens inside the loop, so the batch gets the
	// long external-call timeout rather than the plain database one.
	ctx, cancel := context.WithTimeout(c.Request.Context(), 45*time.Second)
	defer cancel()

	products, err := h.Reconciler.Reconcile(ctx, req.Products)
	if err != nil {
		log.Printf("Bulk product reconciliation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
			"code":    grocery.CodePersistenceFailed,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": products})
}

// GetProducts lists products, optionally filtered to one category.
func (h *Handler) GetProducts(c *gin.Context) {
	var categoryID int64
	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category_id"})
			return
		}
		categoryID = id
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	products, err := h.Store.ListProducts(ctx, categoryID)
	if err != nil {
		c.String(http.StatusInternalServerError, fmt.Sprintf("database error: %s", err.Error()))
		return
	}

	c.JSON(http.StatusOK, products)
}

// GetCategories lists all categories.
func (h *Handler) GetCategories(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	categories, err := h.Store.ListCategories(ctx)
	if err != nil {
		c.String(http.StatusInternalServerError, fmt.Sprintf("database error: %s", err.Error()))
		return
	}

	c.JSON(http.StatusOK, categories)
}

// CreateCategory creates a category with the given name.
func (h *Handler) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category name"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	category, err := h.Store.CreateCategory(ctx, req.Name)
	if err != nil {
		c.String(http.StatusInternalServerError, fmt.Sprintf("database error: %s", err.Error()))
		return
	}

	c.JSON(http.StatusCreated, category)
}

// GetCategory retrieves a single category by id.
func (h *Handler) GetCategory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	category, err := h.Store.GetCategory(ctx, id)
	if err != nil {
		c.String(http.StatusInternalServerError, fmt.Sprintf("database error: %s", err.Error()))
		return
	}
	if category == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	c.JSON(http.StatusOK, category)
}

// UpdateCategory renames a category.
func (h *Handler) UpdateCategory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category id"})
		return
	}

	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category name"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	category, err := h.Store.UpdateCategory(ctx, id, req.Name)
	if err != nil {
		c.String(http.StatusInternalServerError, fmt.Sprintf("database error: %s", err.Error()))
		return
	}
	if category == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	c.JSON(http.StatusOK, category)
}

// DeleteCategory removes a category.
func (h *Handler) DeleteCategory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.Store.DeleteCategory(ctx, id); err != nil {
		c.String(http.StatusInternalServerError, fmt.Sprintf("database error: %s", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Deleted successfully"})
}

// ParseQuery extracts grocery items from a free-text query via Gemini.
func (h *Handler) ParseQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query", "code": grocery.CodeInvalidInput})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 45*time.Second)
	defer cancel()

	items, outcome, err := h.GeminiClient.ExtractItems(ctx, req.Query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("gemini err: %s", err.Error())})
		return
	}

	respondExtraction(c, items, outcome)
}

// ParseQueryV2 extracts grocery items from a free-text query via the local
// LLM backend.
func (h *Handler) ParseQueryV2(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query", "code": grocery.CodeInvalidInput})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 45*time.Second)
	defer cancel()

	items, outcome, err := h.LocalLLMClient.ExtractItems(ctx, req.Query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("local llm err: %s", err.Error())})
		return
	}

	respondExtraction(c, items, outcome)
}

// Transcribe converts an uploaded audio recording to text.
func (h *Handler) Transcribe(c *gin.Context) {
	file, err := c.FormFile("audio")
	if err != nil {
		c.String(http.StatusBadRequest, fmt.Sprintf("get form err: %s", err.Error()))
		return
	}

	allowedExtensions := map[string]string{
		".mp3": "audio/mp3",
		".wav": "audio/wav",
		".m4a": "audio/mp4",
		".ogg": "audio/ogg",
	}
	extension := strings.ToLower(filepath.Ext(file.Filename))
	mimeType, ok := allowedExtensions[extension]
	if !ok {
		c.String(http.StatusBadRequest, "Invalid file type. Only MP3, WAV, M4A, and OGG recordings are allowed.")
		return
	}

	audioData, err := readFormFile(file)
	if err != nil {
		c.String(http.StatusInternalServerError, fmt.Sprintf("read audio err: %s", err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 45*time.Second)
	defer cancel()

	transcript, err := h.GeminiClient.Transcribe(ctx, audioData, mimeType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transcription failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transcript": transcript})
}

// UploadProductList extracts grocery items from an uploaded document
// (txt/csv/pdf) or a photo of a grocery list (png/jpg/jpeg).
func (h *Handler) UploadProductList(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"result": "no file uploaded"})
		return
	}

	extension := strings.ToLower(filepath.Ext(file.Filename))
	data, err := readFormFile(file)
	if err != nil {
		c.String(http.StatusInternalServerError, fmt.Sprintf("read file err: %s", err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 45*time.Second)
	defer cancel()

	switch extension {
	case ".txt", ".csv", ".pdf":
		fileContent := string(data)
		if extension == ".pdf" {
			fileContent, err = extractPDFText(data)
			if err != nil {
				log.Printf("Failed to extract PDF text: %v", err)
				c.JSON(http.StatusOK, gin.H{"result": "no text found"})
				return
			}
		}
		fileContent = strings.TrimSpace(whitespace.ReplaceAllString(fileContent, " "))
		if fileContent == "" {
			c.JSON(http.StatusOK, gin.H{"result": "no text found"})
			return
		}

		items, outcome, err := h.GeminiClient.ExtractItems(ctx, fileContent)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("gemini err: %s", err.Error())})
			return
		}
		respondExtraction(c, items, outcome)

	case ".png", ".jpg", ".jpeg":
		format := strings.TrimPrefix(extension, ".")
		if format == "jpg" {
			format = "jpeg"
		}
		items, outcome, err := h.GeminiClient.ExtractItemsFromImage(ctx, data, format)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("gemini err: %s", err.Error())})
			return
		}
		respondExtraction(c, items, outcome)

	default:
		c.String(http.StatusBadRequest, "Invalid file type. Only TXT, CSV, PDF, and image files are allowed.")
	}
}

// GenerateRecipe generates a recipe with shoppable ingredient links.
func (h *Handler) GenerateRecipe(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query", "code": grocery.CodeInvalidInput})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 45*time.Second)
	defer cancel()

	recipe, err := h.GeminiClient.GenerateRecipe(ctx, req.Query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("gemini err: %s", err.Error())})
		return
	}
	if recipe == nil {
		c.JSON(http.StatusOK, gin.H{"result": "no"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": recipe})
}

// respondExtraction maps a tagged extraction result onto the wire contract:
// an item array on success, the "no" sentinel otherwise. Ambiguous and
// malformed model output are deliberately indistinguishable to the caller.
func respondExtraction(c *gin.Context, items []grocery.ParsedItem, outcome grocery.ExtractionOutcome) {
	if outcome != grocery.ExtractionOK {
		c.JSON(http.StatusOK, gin.H{"result": "no", "code": grocery.CodeExtractionAmbiguous})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": items})
}

func readFormFile(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open file err: %w", err)
	}
	defer src.Close()

	return io.ReadAll(src)
}

func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse pdf: %w", err)
	}

	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(textReader); err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}

	return buf.String(), nil
}
