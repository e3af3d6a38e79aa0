// Package caliconfig resolves per-channel service configuration from
// environment variables, programmatic calls, and a config file, in that
// precedence (spec §6), and decodes the service spec JSON services publish
// alongside their factory.
package caliconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ConfigField is one entry in a service's published config schema.
type ConfigField struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Value       string `json:"value"`
}

// ServiceSpec is a service's static, JSON-decodable description (spec §6):
// `{ "name": <id>, "description": <text>, "config": [...] }`.
type ServiceSpec struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Config      []ConfigField `json:"config"`
}

// ParseServiceSpec decodes a ServiceSpec from its JSON form.
func ParseServiceSpec(data []byte) (ServiceSpec, error) {
	var spec ServiceSpec

	if err := json.Unmarshal(data, &spec); err != nil {
		return ServiceSpec{}, fmt.Errorf("caliconfig: parse service spec: %w", err)
	}

	return spec, nil
}

// Resolver resolves a channel's configuration values with the documented
// precedence. It is grounded on the teacher's pkg/config.LoadConfig
// (viper.New + AutomaticEnv + SetEnvKeyReplacer + SetConfigFile +
// SetDefault), but split into two Viper instances — one scoped to
// environment variables only, one to the config file and defaults only —
// because a single Viper instance's built-in precedence (explicit Set()
// always outranks AutomaticEnv) cannot express this package's required
// env > programmatic > file ordering; see DESIGN.md.
type Resolver struct {
	env  *viper.Viper
	file *viper.Viper
}

// NewResolver creates a Resolver for channelName (used to scope its
// environment-variable prefix to CALIPER_<CHANNEL>_<KEY>). configFile may be
// empty, in which case only defaults set via SetDefault are available from
// the file tier.
func NewResolver(channelName, configFile string) (*Resolver, error) {
	env := viper.New()
	env.SetEnvPrefix("CALIPER_" + strings.ToUpper(channelName))
	env.AutomaticEnv()
	env.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	file := viper.New()

	if configFile != "" {
		file.SetConfigFile(configFile)

		if err := file.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("caliconfig: read config file: %w", err)
			}
		}
	}

	return &Resolver{env: env, file: file}, nil
}

// SetDefault sets the file tier's fallback value for key, used when neither
// an environment variable nor a programmatic value is present.
func (r *Resolver) SetDefault(key string, value any) {
	r.file.SetDefault(key, value)
}

// Resolve returns key's value: the environment variable if set, else
// programmatic if non-empty, else the config file (or default) value.
func (r *Resolver) Resolve(key, programmatic string) string {
	if r.env.IsSet(key) {
		if v := r.env.GetString(key); v != "" {
			return v
		}
	}

	if programmatic != "" {
		return programmatic
	}

	return r.file.GetString(key)
}
