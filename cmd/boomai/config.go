package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adr1an04/boomai/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify boomai configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/boomai/config.yaml
Project-specific overrides can be placed in .boomai.yaml
Providers are edited in the YAML file directly.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		switch len(args) {
		case 0:
			displayAllConfig(cmd.OutOrStdout(), cfg)
			return nil
		case 1:
			value, err := getConfigValue(cfg, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		default:
			return setConfigKey(cmd.OutOrStdout(), cfg, args[0], args[1])
		}
	},
}

// configKeys lists the scalar keys in display order.
var configKeys = []string{
	"server.host",
	"server.port",
	"default_provider",
	"limits.global_concurrent",
	"consensus.n",
	"consensus.k",
	"consensus.max_candidate_chars",
	"consensus.red_flag_max_chars",
	"orchestrator.max_steps",
	"orchestrator.verify",
	"orchestrator.classifier_fallback",
	"decompose.templates_file",
	"decompose.cache_size",
	"state.path",
	"signals.dir",
}

// displayAllConfig prints all configuration values.
func displayAllConfig(w io.Writer, cfg *config.Config) {
	for _, key := range configKeys {
		value, _ := getConfigValue(cfg, key)
		fmt.Fprintf(w, "%s: %s\n", key, value)
	}
	if len(cfg.Providers) == 0 {
		fmt.Fprintln(w, "providers: (none)")
		return
	}
	fmt.Fprintln(w, "providers:")
	for _, p := range cfg.Providers {
		key, src := p.ResolveAPIKey()
		fmt.Fprintf(w, "  - %s: kind=%s model=%s timeout=%s max_concurrent=%d api_key=%s (%s)\n",
			p.ID, p.Kind, p.Model, p.Timeout, p.MaxConcurrent, config.MaskAPIKey(key), src)
	}
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(w io.Writer, cfg *config.Config, key, value string) error {
	if err := setConfigValue(cfg, key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var err error
	if configPath != "" {
		err = config.SaveToPath(cfg, configPath)
	} else {
		err = config.Save(cfg)
	}
	if err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Fprintf(w, "Set %s = %s\n", key, value)
	return nil
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "server.host":
		return cfg.Server.Host, nil
	case "server.port":
		return strconv.Itoa(cfg.Server.Port), nil
	case "default_provider":
		if cfg.DefaultProvider == "" {
			return "(first provider)", nil
		}
		return cfg.DefaultProvider, nil
	case "limits.global_concurrent":
		return strconv.Itoa(cfg.Limits.GlobalConcurrent), nil
	case "consensus.n":
		return strconv.Itoa(cfg.Consensus.N), nil
	case "consensus.k":
		return strconv.Itoa(cfg.Consensus.K), nil
	case "consensus.max_candidate_chars":
		return strconv.Itoa(cfg.Consensus.MaxCandidateChars), nil
	case "consensus.red_flag_max_chars":
		return strconv.Itoa(cfg.Consensus.RedFlagMaxChars), nil
	case "orchestrator.max_steps":
		return strconv.Itoa(cfg.Orchestrator.MaxSteps), nil
	case "orchestrator.verify":
		return strconv.FormatBool(cfg.Orchestrator.Verify), nil
	case "orchestrator.classifier_fallback":
		return strconv.FormatBool(cfg.Orchestrator.ClassifierFallback), nil
	case "decompose.templates_file":
		return cfg.Decompose.TemplatesFile, nil
	case "decompose.cache_size":
		return strconv.Itoa(cfg.Decompose.CacheSize), nil
	case "state.path":
		return cfg.State.Path, nil
	case "signals.dir":
		return cfg.Signals.Dir, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	key = strings.ToLower(key)

	intField := func(dst *int) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		*dst = n
		return nil
	}
	boolField := func(dst *bool) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for %s: %w", key, err)
		}
		*dst = b
		return nil
	}

	switch key {
	case "server.host":
		cfg.Server.Host = value
	case "server.port":
		return intField(&cfg.Server.Port)
	case "default_provider":
		cfg.DefaultProvider = value
	case "limits.global_concurrent":
		return intField(&cfg.Limits.GlobalConcurrent)
	case "consensus.n":
		return intField(&cfg.Consensus.N)
	case "consensus.k":
		return intField(&cfg.Consensus.K)
	case "consensus.max_candidate_chars":
		return intField(&cfg.Consensus.MaxCandidateChars)
	case "consensus.red_flag_max_chars":
		return intField(&cfg.Consensus.RedFlagMaxChars)
	case "orchestrator.max_steps":
		return intField(&cfg.Orchestrator.MaxSteps)
	case "orchestrator.verify":
		return boolField(&cfg.Orchestrator.Verify)
	case "orchestrator.classifier_fallback":
		return boolField(&cfg.Orchestrator.ClassifierFallback)
	case "decompose.templates_file":
		cfg.Decompose.TemplatesFile = value
	case "decompose.cache_size":
		return intField(&cfg.Decompose.CacheSize)
	case "state.path":
		cfg.State.Path = value
	case "signals.dir":
		cfg.Signals.Dir = value
	default:
		if strings.HasPrefix(key, "providers") {
			return fmt.Errorf("providers are edited in %s", config.GetUserConfigPath())
		}
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
