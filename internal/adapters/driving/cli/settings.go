package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/shelfsync/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and change settings",
	Long: `Reads and writes ~/.shelfsync/config.toml. Keys use dots:

  data_dir
  reader.token, reader.base_url
  readwise.token, readwise.base_url, readwise.page_size
  goodreads.csv_path
  vault.<name>.url, vault.<name>.path, vault.<name>.token
  scheduler.enabled, scheduler.sync_interval, scheduler.merge_interval
  limits.<flow>.page_limit, limits.<flow>.page_delay, limits.<flow>.item_delay

SHELFSYNC_* environment variables override the file, e.g. SHELFSYNC_READER_TOKEN.`,
	Annotations: map[string]string{annotationConfigOnly: "true"},
	RunE:        runConfigList,
}

var configListCmd = &cobra.Command{
	Use:         "list",
	Short:       "List stored settings",
	Annotations: map[string]string{annotationConfigOnly: "true"},
	RunE:        runConfigList,
}

var configGetCmd = &cobra.Command{
	Use:         "get <key>",
	Short:       "Print one setting",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{annotationConfigOnly: "true"},
	RunE:        runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:         "set <key> <value>",
	Short:       "Change one setting",
	Args:        cobra.ExactArgs(2),
	Annotations: map[string]string{annotationConfigOnly: "true"},
	RunE:        runConfigSet,
}

var configUnsetCmd = &cobra.Command{
	Use:         "unset <key>",
	Short:       "Remove one setting",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{annotationConfigOnly: "true"},
	RunE:        runConfigUnset,
}

// showSecrets prints tokens in full.
var showSecrets bool

func init() {
	configCmd.PersistentFlags().BoolVar(&showSecrets, "show-secrets", false, "Print tokens unmasked")

	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigList(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	keys := configStore.Keys("")
	cmd.Printf("# %s\n", configStore.Path())
	if len(keys) == 0 {
		cmd.Println("(no settings)")
		return nil
	}
	for _, key := range keys {
		cmd.Printf("%s = %s\n", key, displayValue(key, configStore.GetString(key)))
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	key := args[0]
	if _, ok := configStore.Get(key); !ok {
		return fmt.Errorf("%s is not set", key)
	}
	cmd.Println(displayValue(key, configStore.GetString(key)))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	key, raw := args[0], strings.TrimSpace(args[1])
	if !config.KnownKey(key) {
		return fmt.Errorf("unknown setting %q (see 'shelfsync config --help')", key)
	}
	value, err := typedValue(key, raw)
	if err != nil {
		return err
	}
	if err := configStore.Set(key, value); err != nil {
		return fmt.Errorf("failed to save setting: %w", err)
	}
	cmd.Printf("%s = %s\n", key, displayValue(key, raw))
	return nil
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}
	if err := configStore.Unset(args[0]); err != nil {
		return fmt.Errorf("failed to save setting: %w", err)
	}
	cmd.Printf("%s removed\n", args[0])
	return nil
}

// typedValue stores numbers and booleans as TOML numbers and booleans.
// Durations stay strings so they read back as written.
func typedValue(key, raw string) (any, error) {
	switch {
	case key == config.KeySchedulerEnabled:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false", key)
		}
		return b, nil
	case key == config.KeyReadwisePageSize, strings.HasSuffix(key, ".page_limit"):
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be a whole number", key)
		}
		return n, nil
	default:
		return raw, nil
	}
}

func displayValue(key, value string) string {
	if config.Secret(key) && !showSecrets {
		return maskAPIKey(value)
	}
	return value
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
