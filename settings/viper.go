package settings

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. IDEASSIST_ASSISTANT_ENABLED.
const EnvPrefix = "IDEASSIST"

// Viper adapts a viper instance to Settings.
type Viper struct {
	v *viper.Viper
}

func NewViper(v *viper.Viper) *Viper {
	return &Viper{v: v}
}

func (s *Viper) Lookup(key string) (bool, bool) {
	if !s.v.IsSet(key) {
		return false, false
	}
	return s.v.GetBool(key), true
}

func (s *Viper) Bool(key string) bool {
	return s.v.GetBool(key)
}

// Viper returns the underlying instance.
func (s *Viper) Viper() *viper.Viper {
	return s.v
}

// Load reads an optional config file and IDEASSIST_* environment overrides on
// top of Defaults. An empty path or a missing file is not an error.
func Load(path string) (*viper.Viper, error) {
	v := viper.New()
	for k, val := range Defaults() {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		return v, nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return v, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return v, nil
}
