// Package config assembles shelfsync's runtime configuration from the
// TOML settings file, the environment and an optional .env file.
package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/kelseyhightower/envconfig"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
	"github.com/custodia-labs/shelfsync/internal/core/ports/driven"
	"github.com/custodia-labs/shelfsync/internal/core/services"
)

// EnvPrefix prefixes environment overrides, as in SHELFSYNC_READER_TOKEN.
const EnvPrefix = "SHELFSYNC"

// DatabaseFile is the sqlite file inside DataDir.
const DatabaseFile = "shelfsync.db"

// Settings file keys.
const (
	KeyDataDir          = "data_dir"
	KeyReaderToken      = "reader.token"
	KeyReaderBaseURL    = "reader.base_url"
	KeyReadwiseToken    = "readwise.token"
	KeyReadwiseBaseURL  = "readwise.base_url"
	KeyReadwisePageSize = "readwise.page_size"
	KeyGoodreadsCSVPath = "goodreads.csv_path"
	KeySchedulerEnabled = "scheduler.enabled"
	KeySyncInterval     = "scheduler.sync_interval"
	KeyMergeInterval    = "scheduler.merge_interval"
)

const (
	vaultKeyPrefix  = "vault."
	limitsKeyPrefix = "limits."

	minSchedulerInterval = time.Minute
)

var (
	vaultFields = []string{"url", "path", "token"}
	limitFields = []string{"page_limit", "page_delay", "item_delay"}

	vaultNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)
)

// Config is the runtime configuration.
type Config struct {
	DataDir   string `split_words:"true"`
	Reader    ReaderConfig
	Readwise  ReadwiseConfig
	Goodreads GoodreadsConfig
	Scheduler SchedulerConfig

	// Vaults and Limits come from the settings file only.
	Vaults []VaultConfig   `ignored:"true"`
	Limits services.Limits `ignored:"true"`
}

// ReaderConfig configures the read-it-later service.
type ReaderConfig struct {
	Token   string
	BaseURL string `split_words:"true"`
}

// ReadwiseConfig configures the highlighting service.
type ReadwiseConfig struct {
	Token    string
	BaseURL  string `split_words:"true"`
	PageSize int    `split_words:"true"`
}

// GoodreadsConfig points at a library export.
type GoodreadsConfig struct {
	CSVPath string `split_words:"true"`
}

// VaultConfig configures one vault. A vault with a Path is read from disk;
// otherwise it is fetched from URL.
type VaultConfig struct {
	Name  string
	URL   string
	Path  string
	Token string
}

// Local reports whether the vault is read from a directory.
func (v VaultConfig) Local() bool {
	return v.Path != ""
}

// SchedulerConfig sets the periodic task intervals.
type SchedulerConfig struct {
	Enabled       bool
	SyncInterval  time.Duration `split_words:"true"`
	MergeInterval time.Duration `split_words:"true"`
}

// Default returns the configuration used before any settings apply.
// dataDir is usually ~/.shelfsync.
func Default(dataDir string) Config {
	return Config{
		DataDir: dataDir,
		Scheduler: SchedulerConfig{
			Enabled:       true,
			SyncInterval:  time.Hour,
			MergeInterval: 24 * time.Hour,
		},
		Limits: services.DefaultLimits(),
	}
}

// Load builds the configuration: defaults, then the settings store, then
// SHELFSYNC_* environment variables. The result is validated.
func Load(store driven.ConfigStore, dataDir string) (*Config, error) {
	cfg := Default(dataDir)
	cfg.apply(store)

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	cfg.shareToken()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// apply copies the values present in the store over the defaults.
func (c *Config) apply(store driven.ConfigStore) {
	setString(store, KeyDataDir, &c.DataDir)
	setString(store, KeyReaderToken, &c.Reader.Token)
	setString(store, KeyReaderBaseURL, &c.Reader.BaseURL)
	setString(store, KeyReadwiseToken, &c.Readwise.Token)
	setString(store, KeyReadwiseBaseURL, &c.Readwise.BaseURL)
	setString(store, KeyGoodreadsCSVPath, &c.Goodreads.CSVPath)

	if _, ok := store.Get(KeyReadwisePageSize); ok {
		c.Readwise.PageSize = store.GetInt(KeyReadwisePageSize)
	}
	if _, ok := store.Get(KeySchedulerEnabled); ok {
		c.Scheduler.Enabled = store.GetBool(KeySchedulerEnabled)
	}
	if d := store.GetDuration(KeySyncInterval); d > 0 {
		c.Scheduler.SyncInterval = d
	}
	if d := store.GetDuration(KeyMergeInterval); d > 0 {
		c.Scheduler.MergeInterval = d
	}

	c.Vaults = vaultsFrom(store)
	c.applyLimits(store)
}

func setString(store driven.ConfigStore, key string, dst *string) {
	if v := strings.TrimSpace(store.GetString(key)); v != "" {
		*dst = v
	}
}

// vaultsFrom groups vault.<name>.<field> keys into vault configs, sorted by name.
func vaultsFrom(store driven.ConfigStore) []VaultConfig {
	byName := make(map[string]*VaultConfig)
	for _, key := range store.Keys(vaultKeyPrefix) {
		name, field, ok := splitKey(strings.TrimPrefix(key, vaultKeyPrefix))
		if !ok {
			continue
		}
		v, exists := byName[name]
		if !exists {
			v = &VaultConfig{Name: name}
			byName[name] = v
		}
		value := strings.TrimSpace(store.GetString(key))
		switch field {
		case "url":
			v.URL = value
		case "path":
			v.Path = value
		case "token":
			v.Token = value
		}
	}

	vaults := make([]VaultConfig, 0, len(byName))
	for _, v := range byName {
		vaults = append(vaults, *v)
	}
	sort.Slice(vaults, func(i, j int) bool { return vaults[i].Name < vaults[j].Name })
	return vaults
}

// applyLimits reads limits.<flow>.<field> keys. Durations are written as
// "250ms" or "3s".
func (c *Config) applyLimits(store driven.ConfigStore) {
	for _, key := range store.Keys(limitsKeyPrefix) {
		flow, field, ok := splitKey(strings.TrimPrefix(key, limitsKeyPrefix))
		if !ok {
			continue
		}
		lim, exists := c.Limits[flow]
		if !exists {
			continue
		}
		switch field {
		case "page_limit":
			lim.PageLimit = store.GetInt(key)
		case "page_delay":
			lim.PageDelay = durationValue(store, key)
		case "item_delay":
			lim.ItemDelay = durationValue(store, key)
		}
		c.Limits[flow] = lim
	}
}

// durationValue keeps a negative or unparseable setting visible to
// Validate instead of silently using zero.
func durationValue(store driven.ConfigStore, key string) time.Duration {
	if d := store.GetDuration(key); d != 0 {
		return d
	}
	if s := strings.TrimSpace(store.GetString(key)); s != "" && s != "0" && s != "0s" {
		return -1
	}
	return 0
}

// splitKey splits "<name>.<field>" at the last dot.
func splitKey(s string) (name, field string, ok bool) {
	i := strings.LastIndex(s, ".")
	if i <= 0 || i == len(s)-1 {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}

// shareToken uses one service's token for the other when only one is set;
// both services belong to the same account.
func (c *Config) shareToken() {
	switch {
	case c.Reader.Token == "" && c.Readwise.Token != "":
		c.Reader.Token = c.Readwise.Token
	case c.Readwise.Token == "" && c.Reader.Token != "":
		c.Readwise.Token = c.Reader.Token
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.DataDir, validation.Required),
	); err != nil {
		return err
	}
	if err := validation.ValidateStruct(&c.Reader,
		validation.Field(&c.Reader.BaseURL, is.URL),
	); err != nil {
		return fmt.Errorf("reader: %w", err)
	}
	if err := validation.ValidateStruct(&c.Readwise,
		validation.Field(&c.Readwise.BaseURL, is.URL),
		validation.Field(&c.Readwise.PageSize, validation.Min(0), validation.Max(1000)),
	); err != nil {
		return fmt.Errorf("readwise: %w", err)
	}
	if c.Scheduler.Enabled {
		if err := validation.ValidateStruct(&c.Scheduler,
			validation.Field(&c.Scheduler.SyncInterval, validation.Required, validation.Min(minSchedulerInterval)),
			validation.Field(&c.Scheduler.MergeInterval, validation.Required, validation.Min(minSchedulerInterval)),
		); err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
	}

	seen := make(map[string]bool, len(c.Vaults))
	for i := range c.Vaults {
		v := &c.Vaults[i]
		if err := v.Validate(); err != nil {
			return fmt.Errorf("vault %q: %w", v.Name, err)
		}
		if seen[v.Name] {
			return fmt.Errorf("vault %q is configured twice", v.Name)
		}
		seen[v.Name] = true
	}

	flows := make([]string, 0, len(c.Limits))
	for flow := range c.Limits {
		flows = append(flows, flow)
	}
	sort.Strings(flows)
	for _, flow := range flows {
		if err := validateLimits(c.Limits[flow]); err != nil {
			return fmt.Errorf("limits %s: %w", flow, err)
		}
	}
	return nil
}

// Validate checks one vault entry.
func (v *VaultConfig) Validate() error {
	return validation.ValidateStruct(v,
		validation.Field(&v.Name, validation.Required, validation.Match(vaultNamePattern)),
		validation.Field(&v.URL,
			validation.When(v.Path == "", validation.Required.Error("url or path is required")),
			is.URL,
		),
	)
}

func validateLimits(l services.SyncLimits) error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.PageLimit, validation.Required, validation.Min(1), validation.Max(10000)),
		validation.Field(&l.PageDelay, validation.Min(time.Duration(0))),
		validation.Field(&l.ItemDelay, validation.Min(time.Duration(0))),
	)
}

// DatabasePath is the sqlite file holding records and scheduler state.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, DatabaseFile)
}

// LocalVaults returns the vaults read from disk.
func (c *Config) LocalVaults() []VaultConfig {
	var out []VaultConfig
	for _, v := range c.Vaults {
		if v.Local() {
			out = append(out, v)
		}
	}
	return out
}

// TaskSchedule converts the intervals into per-task scheduler config.
func (c *Config) TaskSchedule() domain.SchedulerConfig {
	cfg := domain.SchedulerConfig{
		Enabled:     c.Scheduler.Enabled,
		TaskConfigs: make(map[string]domain.TaskConfig),
	}
	for _, source := range domain.SourceNames() {
		cfg.TaskConfigs[domain.SyncTaskID(source)] = domain.TaskConfig{
			Enabled:  true,
			Interval: c.Scheduler.SyncInterval,
		}
	}
	for _, t := range []domain.RecordType{domain.RecordTypeArticle, domain.RecordTypeBook} {
		cfg.TaskConfigs[domain.MergeTaskID(t)] = domain.TaskConfig{
			Enabled:  true,
			Interval: c.Scheduler.MergeInterval,
		}
	}
	return cfg
}

// KnownKey reports whether key is a settings key shelfsync reads.
func KnownKey(key string) bool {
	switch key {
	case KeyDataDir, KeyReaderToken, KeyReaderBaseURL, KeyReadwiseToken, KeyReadwiseBaseURL,
		KeyReadwisePageSize, KeyGoodreadsCSVPath, KeySchedulerEnabled, KeySyncInterval, KeyMergeInterval:
		return true
	}
	if rest, ok := strings.CutPrefix(key, vaultKeyPrefix); ok {
		name, field, ok := splitKey(rest)
		return ok && vaultNamePattern.MatchString(name) && contains(vaultFields, field)
	}
	if rest, ok := strings.CutPrefix(key, limitsKeyPrefix); ok {
		flow, field, ok := splitKey(rest)
		_, known := services.DefaultLimits()[flow]
		return ok && known && contains(limitFields, field)
	}
	return false
}

// Secret reports whether a key holds a credential.
func Secret(key string) bool {
	return strings.HasSuffix(key, ".token")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
