package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Read wires env lookups under envPrefix and reads the config file. Without
// an explicit configFile, hookmeta.yaml is searched in "." and configPaths;
// a missing file is only an error when configFile was given.
func Read(v *viper.Viper, envPrefix string, configFile string, configPaths ...string) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("hookmeta")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		for _, p := range configPaths {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configFile != "" {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// Load applies defaults, reads env and file, then unmarshals and validates.
func Load(v *viper.Viper, configFile string) (Config, error) {
	SetDefaults(v)
	if err := Read(v, EnvPrefix, configFile, "$HOME/.config/hookmeta", "/etc/hookmeta"); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
