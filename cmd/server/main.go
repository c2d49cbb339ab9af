package main

import (
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/mrogowski/videolitic/internal/analysis"
	"github.com/mrogowski/videolitic/internal/api"
	"github.com/mrogowski/videolitic/internal/config"
	"github.com/mrogowski/videolitic/internal/database"
	"github.com/mrogowski/videolitic/internal/speech"
	"github.com/mrogowski/videolitic/internal/storage"
	"github.com/mrogowski/videolitic/internal/videolitic"
	"github.com/mrogowski/videolitic/internal/vision/opencv"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	localStorage, err := storage.NewLocalStorage(cfg.Storage.UploadDir)
	if err != nil {
		log.Fatal("Failed to initialize storage:", err)
	}

	db, err := database.NewDB(database.Config{Path: cfg.Database.Path})
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	log.Printf("Running database migrations from %s", cfg.Database.MigrationsPath)
	migrator := database.NewMigrator(db.Conn())
	if err := migrator.Run(cfg.Database.MigrationsPath); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	videoRepo := database.NewVideoRepository(db)
	analysisRepo := database.NewAnalysisRepository(db)

	engine, err := opencv.NewEngine(opencv.Config{
		FaceModelPath:    cfg.Models.FaceModel,
		FaceConfigPath:   cfg.Models.FaceConfig,
		AgeModelPath:     cfg.Models.AgeModel,
		GenderModelPath:  cfg.Models.GenderModel,
		RaceModelPath:    cfg.Models.RaceModel,
		EmotionModelPath: cfg.Models.EmotionModel,
	})
	if err != nil {
		log.Fatal("Failed to load vision models:", err)
	}
	defer engine.Close()

	transcriber := speech.NewWhisperTranscriber(cfg.OpenAI.APIKey)
	if !transcriber.Authorized() {
		log.Printf("Warning: OPENAI_API_KEY not set, analysis requests will be rejected")
	}

	processor := videolitic.NewService(engine.Vision(), transcriber, cfg.Storage.WorkDir)
	analysisService := analysis.NewService(
		analysis.NewVideoProcessor(processor), videoRepo, analysisRepo, localStorage)

	app := &api.App{
		Storage:       localStorage,
		DB:            db,
		VideoRepo:     videoRepo,
		AnalysisRepo:  analysisRepo,
		Analysis:      analysisService,
		MaxUploadSize: cfg.Server.MaxUploadSize,
	}

	router := api.NewRouter(app)

	log.Printf("Server starting on port %s", cfg.Server.Port)
	log.Printf("Upload directory: %s", cfg.Storage.UploadDir)
	log.Printf("Database path: %s", cfg.Database.Path)
	log.Printf("Max upload size: %d bytes", cfg.Server.MaxUploadSize)

	if err := http.ListenAndServe(":"+cfg.Server.Port, router); err != nil {
		log.Fatal(err)
	}
}
