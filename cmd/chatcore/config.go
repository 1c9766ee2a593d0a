package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	chatcore "github.com/haowjy/meridian-chat-core"
	"github.com/haowjy/meridian-chat-core/eventstream/kafka"
)

const envPrefix = "CHATCORE"

// Config keys. Nested keys map to CHATCORE_NATS_URL and so on.
const (
	keyBackend     = "backend"
	keyModel       = "model"
	keyBaseURL     = "base_url"
	keyAPIKey      = "api_key"
	keyHTTPProxy   = "http_proxy_url"
	keyHTTPSProxy  = "https_proxy_url"
	keyTimeout     = "timeout"
	keyTokenDelay  = "token_delay"
	keyTables      = "tables"
	keyPublisher   = "publisher"
	keyNATSURL     = "nats.url"
	keyKafkaBroker = "kafka.brokers"
	keyKafkaTopic  = "kafka.topic"
	keyLogDebug    = "log.debug"
	keyLogJSON     = "log.json"
	keyLogPretty   = "log.pretty"
)

// Publisher names accepted by --publisher.
const (
	publisherNone  = "none"
	publisherNATS  = "nats"
	publisherKafka = "kafka"
)

// flag ties a CLI flag to the config key it overrides.
type flag struct {
	Name        string
	Shorthand   string
	ViperKey    string
	Description string
}

// flags is the single registry of config-backed flags, so a flag shared by
// several commands keeps one name and description.
var flags = map[string]flag{
	"debug":         {"debug", "d", keyLogDebug, "Enable debug logging"},
	"log-json":      {"log-json", "", keyLogJSON, "Write logs as JSON"},
	"log-pretty":    {"log-pretty", "", keyLogPretty, "Write colorized logs"},
	"backend":       {"backend", "b", keyBackend, "Generation backend (see 'chatcore backends')"},
	"model":         {"model", "m", keyModel, "Model name sent to the backend"},
	"base-url":      {"base-url", "", keyBaseURL, "Server URL of an OpenAI-compatible backend"},
	"api-key":       {"api-key", "", keyAPIKey, "API key for remote backends"},
	"http-proxy":    {"http-proxy", "", keyHTTPProxy, "Proxy for plain HTTP backend requests"},
	"https-proxy":   {"https-proxy", "", keyHTTPSProxy, "Proxy for HTTPS backend requests"},
	"timeout":       {"timeout", "", keyTimeout, "Request timeout for remote backends"},
	"token-delay":   {"token-delay", "", keyTokenDelay, "Pause between tokens of the mock backends"},
	"tables":        {"tables", "", keyTables, "YAML file replacing the built-in reasoning and language tables"},
	"publisher":     {"publisher", "", keyPublisher, "Also publish events to: none, nats or kafka"},
	"nats-url":      {"nats-url", "", keyNATSURL, "NATS server URL"},
	"kafka-brokers": {"kafka-brokers", "", keyKafkaBroker, "Comma separated Kafka broker addresses"},
	"kafka-topic":   {"kafka-topic", "", keyKafkaTopic, "Kafka topic for stream events"},
}

// initViper returns a viper instance with defaults, the optional config
// file and CHATCORE_ environment variables applied.
//
// Precedence (highest to lowest): flags bound with bindFlags, environment,
// config file, defaults.
func initViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("chatcore")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing default config file is fine, an explicit one is not
		if configFile != "" || !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Proxy variables are also read under their unprefixed names
	_ = v.BindEnv(keyHTTPProxy, envPrefix+"_HTTP_PROXY_URL", "http_proxy_url")
	_ = v.BindEnv(keyHTTPSProxy, envPrefix+"_HTTPS_PROXY_URL", "https_proxy_url")

	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyBackend, chatcore.BackendDummy.String())
	v.SetDefault(keyModel, "")
	v.SetDefault(keyTimeout, 30*time.Minute)
	v.SetDefault(keyTokenDelay, time.Duration(0))
	v.SetDefault(keyPublisher, publisherNone)
	v.SetDefault(keyNATSURL, nats.DefaultURL)
	v.SetDefault(keyKafkaTopic, kafka.DefaultTopic)
	v.SetDefault(keyLogDebug, false)
	v.SetDefault(keyLogJSON, false)
	v.SetDefault(keyLogPretty, false)
}

// addFlags registers the named flags on fs with their defaults.
func addFlags(fs *pflag.FlagSet, names ...string) {
	defaults := viper.New()
	setDefaults(defaults)

	for _, name := range names {
		def, ok := flags[name]
		if !ok {
			continue
		}
		switch value := defaults.Get(def.ViperKey).(type) {
		case bool:
			fs.BoolP(def.Name, def.Shorthand, value, def.Description)
		case time.Duration:
			fs.DurationP(def.Name, def.Shorthand, value, def.Description)
		default:
			fs.StringP(def.Name, def.Shorthand, defaults.GetString(def.ViperKey), def.Description)
		}
	}
}

// bindFlags connects the registered flags found in fs to v. Call it after
// flags are parsed and initViper has run.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	for _, def := range flags {
		if f := fs.Lookup(def.Name); f != nil {
			_ = v.BindPFlag(def.ViperKey, f)
		}
	}
}

// loadDotEnv loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// backendConfig builds the factory settings from v.
func backendConfig(v *viper.Viper) chatcore.BackendConfig {
	return chatcore.BackendConfig{
		APIKey:     v.GetString(keyAPIKey),
		BaseURL:    v.GetString(keyBaseURL),
		HTTPProxy:  v.GetString(keyHTTPProxy),
		HTTPSProxy: v.GetString(keyHTTPSProxy),
		Timeout:    v.GetDuration(keyTimeout),
		TokenDelay: v.GetDuration(keyTokenDelay),
	}
}

// splitList flattens comma separated entries of values.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
