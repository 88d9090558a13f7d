package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"pantrypal/internal/api"
	"pantrypal/internal/grocery"
	"pantrypal/internal/platform/gemini"
	"pantrypal/internal/platform/images"
	"pantrypal/internal/platform/localllm"
)

// Config represents the application configuration.
type Config struct {
	GeminiAPIKey string `json:"gemini_api_key"`
	DatabaseURL  string `json:"DATABASE_URL"`
	LocalLLMURL  string `json:"local_llm_url"`
	ImageAPIURL  string `json:"image_api_url"`
}

func main() {
	ctx := context.Background()

	// Read configuration from config.json
	configData, err := os.ReadFile("config.json")
	if err != nil {
		panic(fmt.Errorf("failed to read config.json: %w", err))
	}

	var config Config
	if err := json.Unmarshal(configData, &config); err != nil {
		panic(fmt.Errorf("failed to unmarshal config.json: %w", err))
	}

	geminiClient, err := gemini.NewClient(ctx, config.GeminiAPIKey)
	if err != nil {
		panic(fmt.Errorf("error creating gemini client: %w", err))
	}

	localLLMClient := localllm.NewClient(config.LocalLLMURL)

	dbStore, err := grocery.NewPostgresStore(config.DatabaseURL)
	if err != nil {
		panic(fmt.Errorf("error creating postgresstore: %w", err))
	}
	defer dbStore.Close()

	provisioner := images.NewProvisioner(config.ImageAPIURL, "")
	reconciler := grocery.NewReconciler(dbStore, provisioner)

	handler := api.NewHandler(geminiClient, localLLMClient, dbStore, reconciler)

	r := gin.Default()

	// Configure CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.POST("/api/products", handler.ReconcileProducts)
	r.GET("/api/products", handler.GetProducts)
	r.GET("/api/categories", handler.GetCategories)
	r.POST("/api/categories", handler.CreateCategory)
	r.GET("/api/categories/:id", handler.GetCategory)
	r.PUT("/api/categories/:id", handler.UpdateCategory)
	r.DELETE("/api/categories/:id", handler.DeleteCategory)
	r.POST("/api/parse", handler.ParseQuery)
	r.POST("/api/transcribe", handler.Transcribe)
	r.POST("/api/upload-product-list", handler.UploadProductList)
	r.POST("/api/recipes", handler.GenerateRecipe)
	r.POST("/v2/parse", handler.ParseQueryV2)
	r.Static("/products", "./images/products")
	r.Run(":8080") // listen and serve on 0.0.0.0:8080
}
