package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/c2h5oh/datasize"
	"github.com/imdario/mergo"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

type DumpConfig struct {
	RowWidth int  `mapstructure:"rowWidth" yaml:"rowWidth"`
	Color    bool `mapstructure:"color" yaml:"color"`
	// Skip advances the cursor before dumping so the highlighted byte starts
	// at that offset.
	Skip int `mapstructure:"skip" yaml:"skip"`
}

type Config struct {
	MaxSize    datasize.ByteSize `mapstructure:"maxSize" yaml:"maxSize"`
	Decompress bool              `mapstructure:"decompress" yaml:"decompress"`
	Watch      bool              `mapstructure:"watch" yaml:"watch"`
	Dump       DumpConfig        `mapstructure:"dump" yaml:"dump"`
}

func Default() Config {
	return Config{
		MaxSize:    16 * datasize.MB,
		Decompress: true,
		Dump: DumpConfig{
			RowWidth: 16,
			Color:    true,
		},
	}
}

// Load reads the YAML file at path, merges overrides into it and decodes
// the result over Default. A missing file is not an error.
func Load(path string, overrides map[string]any) (Config, error) {
	data, err := readFile(path)
	if err != nil {
		return Config{}, err
	}

	if len(overrides) > 0 {
		if err := mergo.Merge(&data, overrides,
			mergo.WithOverride,
			mergo.WithOverwriteWithEmptyValue,
		); err != nil {
			return Config{}, err
		}
	}

	return FromMap(data)
}

func readFile(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}

	path, err := filepath.EvalSymlinks(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := ReadMap(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode file %q: %w", path, err)
	}
	return data, nil
}

// ReadMap decodes a YAML document into a generic map.
func ReadMap(r io.Reader) (map[string]any, error) {
	data := map[string]any{}
	if err := yaml.NewDecoder(r).Decode(&data); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return data, nil
}

// FromMap decodes data over Default.
// Keys missing from data keep their default values.
func FromMap(data map[string]any) (Config, error) {
	cfg := Default()
	if err := Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}

	if cfg.Dump.RowWidth <= 0 {
		return Config{}, fmt.Errorf("dump.rowWidth must be positive, got %d", cfg.Dump.RowWidth)
	}
	if cfg.Dump.Skip < 0 {
		return Config{}, fmt.Errorf("dump.skip must not be negative, got %d", cfg.Dump.Skip)
	}

	return cfg, nil
}

func Unmarshal(data map[string]any, v any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           v,
	})
	if err != nil {
		return err
	}

	return dec.Decode(data)
}
