package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Zelak312/tweenarr/engine"
	"github.com/Zelak312/tweenarr/flow"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type Config struct {
	BindAddress   string        `yaml:"bindAddress"`
	Port          int32         `yaml:"port"`
	DatabasePath  string        `yaml:"databasePath"`
	LogPath       string        `yaml:"logPath"`
	PollInterval  time.Duration `yaml:"pollInterval"`
	FlowBackend   string        `yaml:"flowBackend"`
	FFmpegBinary  string        `yaml:"ffmpegBinary"`
	ExportFolder  string        `yaml:"exportFolder"`
	MaxUploadSize int64         `yaml:"maxUploadSize"`
	DefaultFPS    float64       `yaml:"defaultFPS"`
	DefaultParams ParamsConfig  `yaml:"defaultParams"`
}

// ParamsConfig holds the params submitted to the engine on startup
type ParamsConfig struct {
	Inbetweens        *int                  `yaml:"inbetweens"`
	LoopSeamlessly    *bool                 `yaml:"loopSeamlessly"`
	FlowMultiplier    *float32              `yaml:"flowMultiplier"`
	ShowMotionVectors bool                  `yaml:"showMotionVectors"`
	Algorithm         string                `yaml:"algorithm"`
	SimpleFlow        flow.SimpleFlowParams `yaml:"simpleFlow"`
	DenseRLOF         flow.DenseRLOFParams  `yaml:"denseRLOF"`
}

func (p ParamsConfig) Params() engine.Params {
	params := engine.Params{
		ShowMotionVectors: p.ShowMotionVectors,
		Algorithm:         flow.Algorithm{Kind: flow.ParseKind(p.Algorithm)},
	}
	if p.Inbetweens != nil {
		params.Inbetweens = *p.Inbetweens
	}
	if p.LoopSeamlessly != nil {
		params.LoopSeamlessly = *p.LoopSeamlessly
	}
	if p.FlowMultiplier != nil {
		params.FlowMultiplier = *p.FlowMultiplier
	}

	switch params.Algorithm.Kind {
	case flow.KindSimpleFlow:
		params.Algorithm.SimpleFlow = p.SimpleFlow
	case flow.KindDenseRLOF:
		params.Algorithm.DenseRLOF = p.DenseRLOF
	}
	return params
}

func verifyParamsConfig(p *ParamsConfig) error {
	if p.Inbetweens == nil {
		defaultVal := 1
		p.Inbetweens = &defaultVal
	}

	if p.LoopSeamlessly == nil {
		defaultVal := true
		p.LoopSeamlessly = &defaultVal
	}

	if p.FlowMultiplier == nil {
		defaultVal := float32(1)
		p.FlowMultiplier = &defaultVal
	}

	if p.Algorithm == "" {
		p.Algorithm = flow.KindSimpleFlow.String()
	}

	if p.SimpleFlow == (flow.SimpleFlowParams{}) {
		p.SimpleFlow = flow.SimpleFlowParams{Layers: 3, AveragingBlockSize: 2, MaxFlow: 4}
	}

	if p.DenseRLOF == (flow.DenseRLOFParams{}) {
		p.DenseRLOF = flow.DenseRLOFParams{ForwardBackwardThreshold: 1, GridStepX: 6, GridStepY: 6, UsePostProc: true}
	}

	if err := p.Params().Validate(); err != nil {
		return fmt.Errorf("invalid default params in config: %w", err)
	}
	return nil
}

// Verify config and set defaults
func verifyConfig(config *Config) error {
	if config == nil {
		return errors.New("cannot verify config, config is nil")
	}

	if config.BindAddress == "" {
		config.BindAddress = "127.0.0.1"
	}

	if config.Port == 0 {
		config.Port = 8080
	}

	if config.DatabasePath == "" {
		config.DatabasePath = "./tweenarr.db"
	}

	if config.LogPath == "" {
		config.LogPath = "./logs"
	}

	if config.PollInterval <= 0 {
		config.PollInterval = 50 * time.Millisecond
	}

	if config.FlowBackend == "" {
		config.FlowBackend = flow.BackendNative
	}

	if config.FlowBackend != flow.BackendNative && config.FlowBackend != flow.BackendOpenCV {
		return fmt.Errorf("unknown flow backend %q in config", config.FlowBackend)
	}

	if config.FFmpegBinary == "" {
		config.FFmpegBinary = "ffmpeg"
	}

	if config.ExportFolder == "" {
		config.ExportFolder = "./exports"
	}

	if config.MaxUploadSize < 0 {
		return errors.New("maxUploadSize can't be negative")
	}

	if config.MaxUploadSize == 0 {
		config.MaxUploadSize = 64 << 20
	}

	if config.DefaultFPS < 0 {
		return errors.New("defaultFPS can't be negative")
	}

	if config.DefaultFPS == 0 {
		config.DefaultFPS = 12
	}

	return verifyParamsConfig(&config.DefaultParams)
}

// GetConfig reads the yaml config, a missing file means only env variables
// and defaults are used
func GetConfig(path string) (Config, error) {
	config := Config{}

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	if err == nil {
		err = yaml.Unmarshal(data, &config)
		if err != nil {
			return Config{}, err
		}
	}

	// Override with env variables if they are passed in
	err = envconfig.ProcessWithOptions("", &config, envconfig.Options{SplitWords: true})
	if err != nil {
		return Config{}, err
	}

	err = verifyConfig(&config)
	if err != nil {
		return Config{}, err
	}

	return config, nil
}
