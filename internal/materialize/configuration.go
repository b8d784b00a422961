package materialize

import "strings"

const (
	defaultConcurrencyConstant      = 1
	defaultSourcePathConstant       = "."
	configurationKeyGitRoot         = "gitroot"
	configurationKeySourceDirectory = "source_dir"
	configurationKeyOutput          = "output"
	configurationKeyTagWhitelist    = "tag_whitelist"
	configurationKeyBranchWhitelist = "branch_whitelist"
	configurationKeyRemoteWhitelist = "remote_whitelist"
	configurationKeyRequiredFile    = "required_file"
	configurationKeyPinSubmodule    = "pin_submodule"
	configurationKeyConcurrency     = "concurrency"
	configurationKeySourcePath      = "source_path"
	configurationKeySeparator       = "."
)

// CommandConfiguration captures configuration values for the materialize command.
type CommandConfiguration struct {
	GitRoot         string `mapstructure:"gitroot"`
	SourceDirectory string `mapstructure:"source_dir"`
	Output          string `mapstructure:"output"`
	TagWhitelist    string `mapstructure:"tag_whitelist"`
	BranchWhitelist string `mapstructure:"branch_whitelist"`
	RemoteWhitelist string `mapstructure:"remote_whitelist"`
	RequiredFile    string `mapstructure:"required_file"`
	PinSubmodule    bool   `mapstructure:"pin_submodule"`
	Concurrency     int    `mapstructure:"concurrency"`
	SourcePath      string `mapstructure:"source_path"`
}

// DefaultCommandConfiguration provides baseline configuration values for materialization.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Concurrency: defaultConcurrencyConstant,
		SourcePath:  defaultSourcePathConstant,
	}
}

// DefaultConfigurationValues exposes the baseline values keyed for the
// configuration loader, prefixed with the command's configuration section.
func DefaultConfigurationValues(sectionPrefix string) map[string]any {
	prefixedKey := func(configurationKey string) string {
		if len(sectionPrefix) == 0 {
			return configurationKey
		}
		return sectionPrefix + configurationKeySeparator + configurationKey
	}

	defaults := DefaultCommandConfiguration()
	return map[string]any{
		prefixedKey(configurationKeyGitRoot):         defaults.GitRoot,
		prefixedKey(configurationKeySourceDirectory): defaults.SourceDirectory,
		prefixedKey(configurationKeyOutput):          defaults.Output,
		prefixedKey(configurationKeyTagWhitelist):    defaults.TagWhitelist,
		prefixedKey(configurationKeyBranchWhitelist): defaults.BranchWhitelist,
		prefixedKey(configurationKeyRemoteWhitelist): defaults.RemoteWhitelist,
		prefixedKey(configurationKeyRequiredFile):    defaults.RequiredFile,
		prefixedKey(configurationKeyPinSubmodule):    defaults.PinSubmodule,
		prefixedKey(configurationKeyConcurrency):     defaults.Concurrency,
		prefixedKey(configurationKeySourcePath):      defaults.SourcePath,
	}
}

// Sanitize trims configuration values and restores required defaults.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration

	sanitized.GitRoot = strings.TrimSpace(configuration.GitRoot)
	sanitized.SourceDirectory = strings.TrimSpace(configuration.SourceDirectory)
	sanitized.Output = strings.TrimSpace(configuration.Output)
	sanitized.TagWhitelist = strings.TrimSpace(configuration.TagWhitelist)
	sanitized.BranchWhitelist = strings.TrimSpace(configuration.BranchWhitelist)
	sanitized.RemoteWhitelist = strings.TrimSpace(configuration.RemoteWhitelist)
	sanitized.RequiredFile = strings.TrimSpace(configuration.RequiredFile)
	sanitized.SourcePath = strings.TrimSpace(configuration.SourcePath)

	if sanitized.Concurrency < defaultConcurrencyConstant {
		sanitized.Concurrency = defaultConcurrencyConstant
	}
	if len(sanitized.SourcePath) == 0 {
		sanitized.SourcePath = defaultSourcePathConstant
	}

	return sanitized
}
