package config

import (
	"errors"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

type Source struct {
	Name     string `yaml:"name" json:"name"`
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	Adapter  string `yaml:"adapter" json:"adapter"`
}

type Geography struct {
	Preferred []string `yaml:"preferred" json:"preferred"`
	Banned    []string `yaml:"banned" json:"banned"`
}

// ScoringWeights scale each signal's normalized score. BannedPenalty is
// subtracted from the total when a banned geography is detected.
type ScoringWeights struct {
	Seniority      int `yaml:"seniority" json:"seniority"`
	PnL            int `yaml:"pnl" json:"pnl"`
	Transformation int `yaml:"transformation" json:"transformation"`
	Industry       int `yaml:"industry" json:"industry"`
	Geo            int `yaml:"geo" json:"geo"`
	BannedPenalty  int `yaml:"banned_penalty" json:"banned_penalty"`
}

type Config struct {
	App struct {
		Port    int    `yaml:"port" json:"port"`
		DataDir string `yaml:"data_dir" json:"data_dir"`
	} `yaml:"app" json:"app"`

	AdminToken string `yaml:"admin_token" json:"admin_token"`

	Refresh struct {
		Cron                 string `yaml:"cron" json:"cron"`
		SourceTimeoutSeconds int    `yaml:"source_timeout_seconds" json:"source_timeout_seconds"`
		Workers              int    `yaml:"workers" json:"workers"`
	} `yaml:"refresh" json:"refresh"`

	Sources []Source `yaml:"sources" json:"sources"`

	// Kept for the profile editor; extraction keyword tiers are fixed in
	// internal/rank and only geography lists feed scoring directly.
	SeniorityKeywords []string `yaml:"seniority_keywords" json:"seniority_keywords"`
	DomainKeywords    []string `yaml:"domain_keywords" json:"domain_keywords"`

	Geography Geography      `yaml:"geography" json:"geography"`
	Weights   ScoringWeights `yaml:"scoring_weights" json:"scoring_weights"`
}

func DefaultWeights() ScoringWeights {
	return ScoringWeights{
		Seniority:      30,
		PnL:            20,
		Transformation: 20,
		Industry:       20,
		Geo:            10,
		BannedPenalty:  10,
	}
}

func Load(path string) (Config, error) {
	var cfg Config

	// Pre-seed defaults so omitted keys keep sensible values.
	cfg.App.Port = 38472
	cfg.Refresh.Cron = "0 */6 * * *"
	cfg.Refresh.SourceTimeoutSeconds = 30
	cfg.Refresh.Workers = 4
	cfg.Weights = DefaultWeights()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

// LoadValidated is the boot and reload path: load, normalize, and refuse
// to return a config that fails validation. An unknown adapter strategy
// is caught here, before any refresh cycle can dispatch on it.
func LoadValidated(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return Config{}, err
	}

	normalized, vr := NormalizeAndValidate(cfg)
	if !vr.OK() {
		return Config{}, errors.New("config validation failed:\n- " + joinLines(vr.Errors))
	}
	for _, w := range vr.Warnings {
		log.Printf("[config] warning: %s", w)
	}
	return normalized, nil
}
