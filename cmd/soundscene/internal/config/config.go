// Package config provides the configuration system for the soundscene CLI.
//
// Configuration lives in a single YAML file, by default under
// os.UserConfigDir()/soundscene/config.yaml:
//
//	clips:
//	  root: /data/clips        # clip audio root (local directory)
//	  index: /data/clips.index # BadgerDB clip metadata index
//	  s3:                      # optional: read clips from an object store
//	    bucket: my-clips
//	    prefix: en/16k
//	    region: us-east-1
//	    endpoint: https://minio.internal:9000
//	    access_key: ...
//	    secret_key: ...
//	audio:
//	  rate: 16000
//	turns:
//	  min_turn: 1.0            # seconds
//	  max_overlap: 0.5
//	  max_gap: 2.0
//	  offset_scale: 0.5
//	babble:
//	  voices: 8
//	  level_db: -26
//
// A missing file is not an error; every field has a working default.
package config

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/goccy/go-yaml"

	"github.com/soundscene/soundscene/pkg/audio/pcm"
	"github.com/soundscene/soundscene/pkg/scene"
	"github.com/soundscene/soundscene/pkg/storage"
)

const (
	appDir     = "soundscene"
	configFile = "config.yaml"
)

// Config holds the CLI configuration.
type Config struct {
	Clips  ClipsConfig  `yaml:"clips"`
	Audio  AudioConfig  `yaml:"audio"`
	Turns  TurnsConfig  `yaml:"turns"`
	Babble BabbleConfig `yaml:"babble"`

	// Path is where the configuration was loaded from, empty when
	// defaults were used.
	Path string `yaml:"-"`
}

// ClipsConfig locates clip audio and metadata.
type ClipsConfig struct {
	Root  string    `yaml:"root"`
	Index string    `yaml:"index"`
	S3    *S3Config `yaml:"s3,omitempty"`
}

// S3Config configures an S3-compatible clip store. When set it takes
// precedence over the local root.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// AudioConfig sets the output audio format.
type AudioConfig struct {
	Rate int `yaml:"rate"`
}

// TurnsConfig sets the conversation turn policy, in seconds. Zero fields
// fall back to the generator's defaults.
type TurnsConfig struct {
	MinTurn     float64 `yaml:"min_turn"`
	MaxOverlap  float64 `yaml:"max_overlap"`
	MaxGap      float64 `yaml:"max_gap"`
	OffsetScale float64 `yaml:"offset_scale"`
}

// BabbleConfig sets babble synthesis defaults.
type BabbleConfig struct {
	Voices  int     `yaml:"voices"`
	LevelDB float64 `yaml:"level_db"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{Rate: 16000},
	}
}

// Load reads the configuration from the default location. A missing file
// yields the defaults.
func Load() (*Config, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine config directory: %w", err)
	}
	return LoadFrom(filepath.Join(base, appDir, configFile))
}

// LoadFrom reads the configuration from a specific file.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Audio.Rate <= 0 {
		return nil, fmt.Errorf("%s: audio.rate must be positive, got %d", path, cfg.Audio.Rate)
	}
	cfg.Path = path
	return cfg, nil
}

// Format returns the configured output audio format.
func (c *Config) Format() pcm.Format {
	return pcm.Format{Rate: c.Audio.Rate}
}

// Policy returns the configured turn policy.
func (c *Config) Policy() scene.TurnPolicy {
	return scene.TurnPolicy{
		MinTurn:     seconds(c.Turns.MinTurn),
		MaxOverlap:  seconds(c.Turns.MaxOverlap),
		MaxGap:      seconds(c.Turns.MaxGap),
		OffsetScale: seconds(c.Turns.OffsetScale),
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

// Store opens the configured clip store: S3 when an s3 section is
// present, otherwise the local clip root.
func (c *Config) Store() (storage.FileStore, error) {
	if s3cfg := c.Clips.S3; s3cfg != nil {
		if s3cfg.Bucket == "" {
			return nil, fmt.Errorf("clips.s3.bucket is required")
		}
		return storage.NewS3(s3Client(s3cfg), s3cfg.Bucket, s3cfg.Prefix), nil
	}
	if c.Clips.Root == "" {
		return nil, fmt.Errorf("clips.root is not configured")
	}
	return storage.NewLocal(c.Clips.Root)
}

func s3Client(cfg *S3Config) *s3.Client {
	opts := s3.Options{
		Region:      cfg.Region,
		Credentials: aws.AnonymousCredentials{},
	}
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		// Path-style addressing keeps MinIO and friends happy.
		opts.UsePathStyle = true
	}
	if cfg.AccessKey != "" {
		creds := aws.Credentials{AccessKeyID: cfg.AccessKey, SecretAccessKey: cfg.SecretKey}
		opts.Credentials = credentialsProvider{creds}
	}
	return s3.New(opts)
}

type credentialsProvider struct {
	creds aws.Credentials
}

func (p credentialsProvider) Retrieve(_ context.Context) (aws.Credentials, error) {
	return p.creds, nil
}
