package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// Server holds the API service settings loaded from config.yml. Every
// field has a working default so the file is optional.
type Server struct {
	Port         int          `yaml:"port" validate:"gte=0"`
	TimeBudgetMS int          `yaml:"timeBudgetMS" validate:"gte=0"`
	Matrix       MatrixConfig `yaml:"matrix"`
}

// MatrixConfig tunes the distance-matrix client.
type MatrixConfig struct {
	BaseURL         string  `yaml:"baseURL" validate:"omitempty,url"`
	RPS             float64 `yaml:"rps" validate:"gte=0"`
	Burst           int     `yaml:"burst" validate:"gte=0"`
	CacheTTLMinutes int     `yaml:"cacheTTLMinutes" validate:"gte=0"`
}

// LoadServer reads config.yml from the first path that exists. A missing
// file is not an error; defaults apply. The PORT environment variable,
// when set, is handled by the caller and wins over the file.
func LoadServer(paths ...string) (Server, error) {
	cfg := Server{
		Port:         8080,
		TimeBudgetMS: 2000,
		Matrix:       MatrixConfig{RPS: 5, Burst: 2, CacheTTLMinutes: 24 * 60},
	}
	if len(paths) == 0 {
		paths = []string{"config.yml"}
	}
	var data []byte
	var err error
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if err := validate.Struct(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
