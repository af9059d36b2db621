package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileSystem is the disk access LoadConfig needs.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// OSFileSystem reads the local disk and loads .env files with godotenv.
type OSFileSystem struct{}

func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (OSFileSystem) LoadEnv(path string) error { return godotenv.Load(path) }

type loadOptions struct {
	fs         FileSystem
	configFile string
	envFile    string
	envPrefix  string
}

// LoaderOption tunes LoadConfig.
type LoaderOption func(*loadOptions)

func WithFileSystem(fs FileSystem) LoaderOption {
	return func(o *loadOptions) { o.fs = fs }
}

// WithConfigFile skips the search; the file must exist.
func WithConfigFile(path string) LoaderOption {
	return func(o *loadOptions) { o.configFile = path }
}

func WithEnvFile(path string) LoaderOption {
	return func(o *loadOptions) { o.envFile = path }
}

// WithEnvPrefix changes which variables override file values. The default
// is the service name upper-cased, so "flowrun" reads FLOWRUN_*.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(o *loadOptions) { o.envPrefix = prefix }
}

// LoadConfig fills cfg from, in increasing precedence, the YAML config
// file, the .env file and the process environment. With the default prefix
// FLOWRUN_SERVER_PORT=9000 sets server.port.
func LoadConfig(serviceName string, cfg any, opts ...LoaderOption) error {
	o := loadOptions{
		fs:        OSFileSystem{},
		envPrefix: strings.ToUpper(strings.ReplaceAll(serviceName, "-", "_")),
	}
	for _, opt := range opts {
		opt(&o)
	}

	v := viper.New()
	if o.configFile != "" && !o.fs.Exists(o.configFile) {
		return fmt.Errorf("config file %s does not exist", o.configFile)
	}
	if file := o.find(o.configFile, configCandidates(serviceName)); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}
	if file := o.find(o.envFile, envCandidates(serviceName)); file != "" {
		if err := o.fs.LoadEnv(file); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", file, err)
		}
	}
	overrideFromEnv(v, o.envPrefix, os.Environ())

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config for service %s: %w", serviceName, err)
	}
	return nil
}

// find returns explicit when set, else the first existing candidate.
func (o *loadOptions) find(explicit string, candidates []string) string {
	if explicit != "" {
		if o.fs.Exists(explicit) {
			return explicit
		}
		return ""
	}
	for _, p := range candidates {
		if o.fs.Exists(p) {
			return p
		}
	}
	return ""
}

func configCandidates(service string) []string {
	return []string{
		"./cmd/" + service + "/config.yml",
		"../cmd/" + service + "/config.yml",
		"../../cmd/" + service + "/config.yml",
		"./config/config.yml",
		"./config.yml",
	}
}

func envCandidates(service string) []string {
	return []string{"./cmd/" + service + "/.env", "./.env." + service, "./.env"}
}

// overrideFromEnv copies PREFIX_* variables into v. An underscore in a
// variable name may separate two config levels or belong to a key, so each
// value is set under every reading: SANDBOX_WORK_DIR reaches both
// sandbox.work_dir and sandbox.work.dir.
func overrideFromEnv(v *viper.Viper, prefix string, environ []string) {
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if prefix != "" {
			if key, ok = strings.CutPrefix(key, prefix+"_"); !ok {
				continue
			}
		}
		for _, k := range envKeyVariants(key) {
			v.Set(k, value)
		}
	}
}

// maxSplitParts caps the variants at 2^(n-1) keys per variable.
const maxSplitParts = 8

// envKeyVariants joins the lower-cased parts of key with every combination
// of "." and "_".
func envKeyVariants(key string) []string {
	lower := strings.ToLower(key)
	parts := strings.Split(lower, "_")
	if len(parts) > maxSplitParts {
		return []string{lower, strings.Join(parts, ".")}
	}
	variants := []string{parts[0]}
	for _, p := range parts[1:] {
		next := make([]string, 0, 2*len(variants))
		for _, v := range variants {
			next = append(next, v+"_"+p, v+"."+p)
		}
		variants = next
	}
	return variants
}
