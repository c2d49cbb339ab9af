package opencv

import (
	"fmt"
	"os"

	"gocv.io/x/gocv"

	"github.com/mrogowski/videolitic/internal/vision"
)

// Config names the DNN model files the engine loads. The detector is a
// 300x300 SSD face model; the classifiers are single-output networks whose
// label lists must match the model's output layer, in index order.
type Config struct {
	FaceModelPath  string
	FaceConfigPath string

	AgeModelPath     string
	GenderModelPath  string
	RaceModelPath    string
	EmotionModelPath string

	// Per-classifier label lists. Zero-value lists fall back to the
	// defaults below.
	AgeLabels     []string
	GenderLabels  []string
	RaceLabels    []string
	EmotionLabels []string
}

// Default label sets for the bundled models. Age labels are bucket
// midpoints as integer strings so downstream averaging can parse them.
var (
	DefaultAgeLabels     = []string{"1", "5", "10", "17", "28", "40", "50", "70"}
	DefaultGenderLabels  = []string{"male", "female"}
	DefaultRaceLabels    = []string{"white", "black", "asian", "indian", "other"}
	DefaultEmotionLabels = []string{"angry", "disgust", "fear", "happy", "neutral", "sad", "surprise"}
)

// Engine owns the loaded networks and hands out the capability set the
// tracking pipeline consumes. Close releases all of them.
type Engine struct {
	detector    *Detector
	classifiers map[vision.Attribute]*Classifier
}

// NewEngine loads every model named in cfg. All files must exist; a
// partially loadable configuration is an error, not a degraded engine.
func NewEngine(cfg Config) (*Engine, error) {
	detector, err := NewDetector(cfg.FaceModelPath, cfg.FaceConfigPath)
	if err != nil {
		return nil, fmt.Errorf("face detector: %w", err)
	}

	e := &Engine{
		detector:    detector,
		classifiers: make(map[vision.Attribute]*Classifier),
	}

	specs := []struct {
		attr   vision.Attribute
		path   string
		labels []string
	}{
		{vision.AttrAge, cfg.AgeModelPath, orDefault(cfg.AgeLabels, DefaultAgeLabels)},
		{vision.AttrGender, cfg.GenderModelPath, orDefault(cfg.GenderLabels, DefaultGenderLabels)},
		{vision.AttrRace, cfg.RaceModelPath, orDefault(cfg.RaceLabels, DefaultRaceLabels)},
		{vision.AttrEmotion, cfg.EmotionModelPath, orDefault(cfg.EmotionLabels, DefaultEmotionLabels)},
	}
	for _, spec := range specs {
		c, err := NewClassifier(spec.path, spec.labels)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("%s classifier: %w", spec.attr, err)
		}
		e.classifiers[spec.attr] = c
	}

	return e, nil
}

// Vision exposes the engine as the capability set consumed by the
// tracking pipeline.
func (e *Engine) Vision() vision.Engine {
	classifiers := make(map[vision.Attribute]vision.Classifier, len(e.classifiers))
	for attr, c := range e.classifiers {
		classifiers[attr] = c
	}
	return vision.Engine{
		Locator:     e.detector,
		Trackers:    TrackerFactory{},
		Classifiers: classifiers,
	}
}

func (e *Engine) Close() error {
	var firstErr error
	if e.detector != nil {
		if err := e.detector.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, c := range e.classifiers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func orDefault(labels, fallback []string) []string {
	if len(labels) > 0 {
		return labels
	}
	return fallback
}

func loadNet(modelPath, configPath string) (gocv.Net, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return gocv.Net{}, fmt.Errorf("model file not found: %s", modelPath)
	}
	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return gocv.Net{}, fmt.Errorf("config file not found: %s", configPath)
		}
	}

	net := gocv.ReadNet(modelPath, configPath)
	if net.Empty() {
		return gocv.Net{}, fmt.Errorf("failed to load network from %s", modelPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return gocv.Net{}, fmt.Errorf("set backend: %v", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return gocv.Net{}, fmt.Errorf("set target: %v", err)
	}
	return net, nil
}
