// Package config loads collector tuning from human-edited YAML, the way
// the teacher's build-flag layer turns environment strings into compiler
// parameters before anything downstream has to deal with raw text.
package config

import (
	"fmt"
	"os"

	"github.com/inhies/go-bytesize"
	"gopkg.in/yaml.v2"

	"github.com/tinygo-org/heapgc/heap"
)

// Config is the on-disk, human-editable form of heap.Tuning. Sizes are
// strings like "4MiB" rather than raw byte counts so a config file reads
// the way an operator would write it.
type Config struct {
	TenureThreshold     uintptr `yaml:"tenureThreshold"`
	LikelyPageSize      string  `yaml:"likelyPageSize"`
	InitialGen2Capacity string  `yaml:"initialGen2Capacity"`
	Verbose             bool    `yaml:"verbose"`
}

// Default returns the Config equivalent of heap.DefaultTuning.
func Default() Config {
	d := heap.DefaultTuning()
	return Config{
		TenureThreshold:     d.TenureThreshold,
		LikelyPageSize:      bytesize.New(float64(d.LikelyPageSizeInBytes)).String(),
		InitialGen2Capacity: bytesize.New(float64(d.InitialGen2CapacityInBytes)).String(),
		Verbose:             d.Verbose,
	}
}

// Load reads and parses a YAML config file, filling in Default() for any
// field the file doesn't set.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return cfg, nil
}

// ParseSize parses a human-readable size string ("4MiB", "512KB") into a
// byte count.
func ParseSize(s string) (uintptr, error) {
	bs, err := bytesize.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("config: parsing size %q: %w", s, err)
	}
	return uintptr(bs), nil
}

// ToTuning converts this Config into a heap.Tuning, resolving its
// human-readable sizes into byte counts.
func (c Config) ToTuning() (heap.Tuning, error) {
	pageSize, err := ParseSize(c.LikelyPageSize)
	if err != nil {
		return heap.Tuning{}, err
	}
	gen2Cap, err := ParseSize(c.InitialGen2Capacity)
	if err != nil {
		return heap.Tuning{}, err
	}

	t := heap.Tuning{
		TenureThreshold:            c.TenureThreshold,
		LikelyPageSizeInBytes:      pageSize,
		InitialGen2CapacityInBytes: gen2Cap,
		Verbose:                    c.Verbose,
	}
	if t.TenureThreshold == 0 {
		t.TenureThreshold = 1
	}
	return t, nil
}
