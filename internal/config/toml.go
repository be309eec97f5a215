package config

import (
	"github.com/pelletier/go-toml/v2"
)

// tomlSettings writes durations in their string form ("2s").
type tomlSettings struct {
	Settings
	GracePeriod string `toml:"grace_period"`
}

// MarshalTOML renders s as a config file Viper can read back.
func MarshalTOML(s Settings) ([]byte, error) {
	return toml.Marshal(tomlSettings{Settings: s, GracePeriod: s.GracePeriod.String()})
}
