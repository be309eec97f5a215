package config

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"termreel/internal/dirs"
)

// flagKeys maps root persistent flags to Viper keys.
var flagKeys = map[string]string{
	"config":        "config",
	"verbose":       "verbose",
	"log-file":      "log_file",
	"fps":           "fps",
	"width":         "width",
	"height":        "height",
	"no-sound":      "no_sound",
	"alt-screen":    "alt_screen",
	"grace-period":  "grace_period",
	"pty":           "renderer.pty",
	"renderer":      "renderer.binary",
	"format":        "renderer.format",
	"audio-backend": "audio.backends",
}

// Init wires Viper with config paths, env, defaults, and flag bindings.
// It is non-fatal: a missing config file is ignored; a malformed one is
// returned for the caller to report.
func Init(root *cobra.Command) error {
	return InitWith(viper.GetViper(), root)
}

// InitWith is Init on an explicit Viper instance.
func InitWith(v *viper.Viper, root *cobra.Command) error {
	SetDefaults(v)

	if cfgDir, err := dirs.ConfigDir(); err == nil {
		v.AddConfigPath(cfgDir)
	}
	v.SetConfigName("config") // supports config.{yaml|yml|json|toml}

	// Environment variables: TERMREEL_*, nested keys joined with "_".
	v.SetEnvPrefix("TERMREEL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if root != nil {
		for flag, key := range flagKeys {
			if f := root.PersistentFlags().Lookup(flag); f != nil {
				_ = v.BindPFlag(key, f)
			}
		}
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && v.GetString("config") == "" {
			return nil
		}
		return err
	}
	return nil
}

// UsedFile reports the config file Viper read, if any.
func UsedFile() string {
	return viper.ConfigFileUsed()
}
