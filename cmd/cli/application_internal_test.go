package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	applicationRegistersCommandTestNameConstant = "ApplicationRegistersMaterializeCommand"
	configurationFileLoadsTestNameConstant      = "ConfigurationFileLoadsMaterializeSection"
	environmentOverrideTestNameConstant         = "EnvironmentVariableOverridesLogLevel"
	flagOverrideTestNameConstant                = "LogLevelFlagOverridesConfiguration"
	testMaterializeCommandNameConstant          = "materialize"
	testConfigurationFileNameConstant           = "config.yaml"
	testConfigurationContentConstant            = "common:\n  log_level: warn\n  log_format: console\ntools:\n  materialize:\n    source_dir: docs/source\n    output: ./build/versions\n    tag_whitelist: 'v.*'\n    concurrency: 4\n"
	testLogLevelEnvironmentVariableConstant     = "REFCAST_COMMON_LOG_LEVEL"
)

func TestApplicationRegistersMaterializeCommand(testInstance *testing.T) {
	testInstance.Run(applicationRegistersCommandTestNameConstant, func(testInstance *testing.T) {
		application := NewApplication()

		registeredNames := make([]string, 0)
		for _, registeredCommand := range application.rootCommand.Commands() {
			registeredNames = append(registeredNames, registeredCommand.Name())
		}
		require.Contains(testInstance, registeredNames, testMaterializeCommandNameConstant)
	})
}

func TestConfigurationFileLoadsMaterializeSection(testInstance *testing.T) {
	testInstance.Run(configurationFileLoadsTestNameConstant, func(testInstance *testing.T) {
		configurationDirectory := testInstance.TempDir()
		configurationPath := filepath.Join(configurationDirectory, testConfigurationFileNameConstant)
		require.NoError(testInstance, os.WriteFile(configurationPath, []byte(testConfigurationContentConstant), 0o644))

		application := NewApplication()
		application.configurationFilePath = configurationPath
		require.NoError(testInstance, application.initializeConfiguration(application.rootCommand))

		require.Equal(testInstance, "warn", application.configuration.Common.LogLevel)
		require.Equal(testInstance, "console", application.configuration.Common.LogFormat)
		require.Equal(testInstance, "docs/source", application.configuration.Tools.Materialize.SourceDirectory)
		require.Equal(testInstance, "./build/versions", application.configuration.Tools.Materialize.Output)
		require.Equal(testInstance, "v.*", application.configuration.Tools.Materialize.TagWhitelist)
		require.Equal(testInstance, 4, application.configuration.Tools.Materialize.Concurrency)
		require.Equal(testInstance, configurationPath, application.configurationMetadata.ConfigFileUsed)
	})
}

func TestEnvironmentVariableOverridesLogLevel(testInstance *testing.T) {
	testInstance.Run(environmentOverrideTestNameConstant, func(testInstance *testing.T) {
		testInstance.Setenv(testLogLevelEnvironmentVariableConstant, "debug")

		application := NewApplication()
		require.NoError(testInstance, application.initializeConfiguration(application.rootCommand))
		require.Equal(testInstance, "debug", application.configuration.Common.LogLevel)
	})
}

func TestLogLevelFlagOverridesConfiguration(testInstance *testing.T) {
	testInstance.Run(flagOverrideTestNameConstant, func(testInstance *testing.T) {
		application := NewApplication()
		require.NoError(testInstance, application.rootCommand.PersistentFlags().Set(logLevelFlagNameConstant, "error"))
		require.NoError(testInstance, application.initializeConfiguration(application.rootCommand))
		require.Equal(testInstance, "error", application.configuration.Common.LogLevel)
	})
}
