package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/mrogowski/videolitic/internal/config"
	"github.com/mrogowski/videolitic/internal/speech"
	"github.com/mrogowski/videolitic/internal/videolitic"
	"github.com/mrogowski/videolitic/internal/vision/opencv"
)

// analyze runs one video through the full pipeline and prints the result
// as JSON, without touching the database.
func main() {
	var (
		videoPath = flag.String("file", "", "Path to the video file to analyze")
		verbose   = flag.Bool("v", false, "Log per-frame progress")
	)
	flag.Parse()

	if *videoPath == "" {
		log.Fatal("Please provide a video file with -file")
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

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

	service := videolitic.NewService(engine.Vision(), transcriber, cfg.Storage.WorkDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	processing, err := service.Process(ctx, *videoPath)
	if err != nil {
		log.Fatal("Failed to start analysis:", err)
	}

	go func() {
		<-ctx.Done()
		processing.Stop()
	}()

	frames := processing.Frames()
	outcomes := processing.Result()

	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				frames = nil
				continue
			}
			if *verbose {
				log.Printf("Processed frame %d at %.2fs", frame.Index, frame.Timestamp)
			}

		case outcome := <-outcomes:
			if outcome.Err != nil {
				log.Fatal("Analysis failed: ", outcome.Err)
			}

			data, err := json.MarshalIndent(outcome.Result, "", "  ")
			if err != nil {
				log.Fatal("Failed to encode result:", err)
			}
			fmt.Println(string(data))
			return
		}
	}
}
