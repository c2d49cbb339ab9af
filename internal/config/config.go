package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration. Values come from an optional
// YAML file, with environment variables taking precedence over it.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Models   ModelsConfig   `yaml:"models"`
}

type ServerConfig struct {
	Port          string `yaml:"port"`
	MaxUploadSize int64  `yaml:"max_upload_size"`
}

type DatabaseConfig struct {
	Path           string `yaml:"path"`
	MigrationsPath string `yaml:"migrations_path"`
}

type StorageConfig struct {
	UploadDir string `yaml:"upload_dir"`
	WorkDir   string `yaml:"work_dir"`
}

type OpenAIConfig struct {
	APIKey string `yaml:"api_key"`
}

// ModelsConfig names the DNN model files for face detection and the four
// demographic classifiers.
type ModelsConfig struct {
	FaceModel    string `yaml:"face_model"`
	FaceConfig   string `yaml:"face_config"`
	AgeModel     string `yaml:"age_model"`
	GenderModel  string `yaml:"gender_model"`
	RaceModel    string `yaml:"race_model"`
	EmotionModel string `yaml:"emotion_model"`
}

// Load builds the configuration. path may be empty or name a missing
// file; only a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:          "8080",
			MaxUploadSize: 104857600,
		},
		Database: DatabaseConfig{
			Path:           "./videolitic.db",
			MigrationsPath: "./migrations",
		},
		Storage: StorageConfig{
			UploadDir: "./uploads",
			WorkDir:   os.TempDir(),
		},
		Models: ModelsConfig{
			FaceModel:    "./models/face_detector.caffemodel",
			FaceConfig:   "./models/face_detector.prototxt",
			AgeModel:     "./models/age.onnx",
			GenderModel:  "./models/gender.onnx",
			RaceModel:    "./models/race.onnx",
			EmotionModel: "./models/emotion.onnx",
		},
	}
}

func (c *Config) applyEnv() {
	setString(&c.Server.Port, "PORT")
	if env := os.Getenv("MAX_UPLOAD_SIZE"); env != "" {
		if size, err := strconv.ParseInt(env, 10, 64); err == nil {
			c.Server.MaxUploadSize = size
		}
	}
	setString(&c.Database.Path, "DB_PATH")
	setString(&c.Database.MigrationsPath, "MIGRATIONS_PATH")
	setString(&c.Storage.UploadDir, "UPLOAD_DIR")
	setString(&c.Storage.WorkDir, "WORK_DIR")
	setString(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&c.Models.FaceModel, "FACE_MODEL")
	setString(&c.Models.FaceConfig, "FACE_CONFIG")
	setString(&c.Models.AgeModel, "AGE_MODEL")
	setString(&c.Models.GenderModel, "GENDER_MODEL")
	setString(&c.Models.RaceModel, "RACE_MODEL")
	setString(&c.Models.EmotionModel, "EMOTION_MODEL")
}

func setString(dst *string, key string) {
	if env := os.Getenv(key); env != "" {
		*dst = env
	}
}
