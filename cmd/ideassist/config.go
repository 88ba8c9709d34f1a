package main

import (
	"github.com/Desarso/ideassist"
	"github.com/Desarso/ideassist/settings"
	"github.com/Desarso/ideassist/stores"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// loadViper reads the --config file and IDEASSIST_* environment on top of
// the defaults below. Flags bound by the caller win over both.
func loadViper(cmd *cobra.Command) (*viper.Viper, error) {
	path, _ := cmd.Flags().GetString("config")
	v, err := settings.Load(path)
	if err != nil {
		return nil, err
	}
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("model.provider", ideassist.ProviderOpenRouter)
	v.SetDefault("model.name", "")
	v.SetDefault("prompt.max_bytes", 0)
	v.SetDefault("analysis.enabled", false)
	v.SetDefault("store.type", "sqlite")
	v.SetDefault("store.connection", "ideassist.sqlite")
	v.SetDefault("retention.max_age", "168h")
	v.SetDefault("retention.schedule", stores.DefaultRetentionSchedule)
	v.SetDefault("completions.rate", 5.0)
	v.SetDefault("completions.burst", 10)
	return v, nil
}

// assistConfig builds the panel configuration from v. The store is left
// to the caller.
func assistConfig(v *viper.Viper) *ideassist.Config {
	return ideassist.NewConfig().
		WithProvider(v.GetString("model.provider")).
		WithModelName(v.GetString("model.name")).
		WithMaxPromptBytes(v.GetInt("prompt.max_bytes")).
		WithAnalysis(v.GetBool("analysis.enabled")).
		WithSettings(settings.NewViper(v))
}

// storeConfig copies store.options.* (pool sizes, simple_protocol) onto the
// store config.
func storeConfig(v *viper.Viper) *stores.StoreConfig {
	sc := stores.NewStoreConfig(v.GetString("store.type"), v.GetString("store.connection"))
	for k, val := range v.GetStringMapString("store.options") {
		sc.WithOption(k, val)
	}
	return sc
}
