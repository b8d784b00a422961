package materialize_test

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/refcast/refcast/internal/execshell"
	"github.com/refcast/refcast/internal/materialize"
)

const (
	commandRejectsArgumentsTestNameConstant     = "CommandRejectsPositionalArguments"
	commandRequiresOutputTestNameConstant       = "CommandRequiresOutputDirectory"
	commandRequiresSourceDirTestNameConstant    = "CommandRequiresSourceDirectory"
	commandMaterializesVersionsTestNameConstant = "CommandMaterializesWhitelistedVersions"
	flagsOverrideConfigurationTestNameConstant  = "FlagsOverrideConfigurationProvider"
	configurationDefaultsTestNameConstant       = "ConfigurationDefaultsAreRegistered"
	configurationSanitizeTestNameConstant       = "ConfigurationSanitizeRestoresDefaults"
	testRepositoryTopLevelConstant              = "/workspace/project"
	testReferenceListingLineTemplateConstant    = "%s\trefs/tags/v1.0\t2024-06-01 12:00:00 +0000\n"
	testMainCommitIdentifierConstant            = "1111111111111111111111111111111111111111"
	testSubmoduleCommitIdentifierConstant       = "2222222222222222222222222222222222222222"
	testSubmoduleTreeEntryTemplateConstant      = "160000 commit %s\tdocs/source\n"
)

type routedGitExecutor struct {
	testInstance     *testing.T
	submodulePayload []byte
	mainPayload      []byte
}

func (executor *routedGitExecutor) ExecuteGit(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	require.NotEmpty(executor.testInstance, details.Arguments)
	switch details.Arguments[0] {
	case "rev-parse":
		return execshell.ExecutionResult{StandardOutput: testRepositoryTopLevelConstant + "\n"}, nil
	case "for-each-ref":
		listing := fmt.Sprintf(testReferenceListingLineTemplateConstant, testMainCommitIdentifierConstant)
		return execshell.ExecutionResult{StandardOutput: listing}, nil
	case "ls-tree":
		entry := fmt.Sprintf(testSubmoduleTreeEntryTemplateConstant, testSubmoduleCommitIdentifierConstant)
		return execshell.ExecutionResult{StandardOutput: entry}, nil
	case "archive":
		if details.WorkingDirectory == testRepositoryTopLevelConstant {
			return execshell.ExecutionResult{StandardOutput: string(executor.mainPayload)}, nil
		}
		return execshell.ExecutionResult{StandardOutput: string(executor.submodulePayload)}, nil
	default:
		executor.testInstance.Fatalf("unexpected git subcommand %q", details.Arguments[0])
		return execshell.ExecutionResult{}, nil
	}
}

func buildSingleFileTar(testInstance *testing.T, fileName string, fileContent string) []byte {
	testInstance.Helper()
	payloadBuffer := &bytes.Buffer{}
	archiveWriter := tar.NewWriter(payloadBuffer)
	require.NoError(testInstance, archiveWriter.WriteHeader(&tar.Header{
		Name:     fileName,
		Typeflag: tar.TypeReg,
		Mode:     0o644,
		Size:     int64(len(fileContent)),
	}))
	_, writeError := archiveWriter.Write([]byte(fileContent))
	require.NoError(testInstance, writeError)
	require.NoError(testInstance, archiveWriter.Close())
	return payloadBuffer.Bytes()
}

func TestCommandRejectsPositionalArguments(testInstance *testing.T) {
	testInstance.Run(commandRejectsArgumentsTestNameConstant, func(testInstance *testing.T) {
		builder := &materialize.CommandBuilder{GitExecutor: &routedGitExecutor{testInstance: testInstance}}
		command, buildError := builder.Build()
		require.NoError(testInstance, buildError)

		command.SetArgs([]string{"unexpected"})
		command.SetContext(context.Background())
		executionError := command.Execute()
		require.Error(testInstance, executionError)
		require.Contains(testInstance, executionError.Error(), "does not accept positional arguments")
	})
}

func TestCommandRequiresSourceDirectory(testInstance *testing.T) {
	testInstance.Run(commandRequiresSourceDirTestNameConstant, func(testInstance *testing.T) {
		builder := &materialize.CommandBuilder{GitExecutor: &routedGitExecutor{testInstance: testInstance}}
		command, buildError := builder.Build()
		require.NoError(testInstance, buildError)

		command.SetArgs([]string{"--output", testInstance.TempDir()})
		command.SetContext(context.Background())
		executionError := command.Execute()
		require.ErrorIs(testInstance, executionError, materialize.ErrSourceDirectoryRequired)
	})
}

func TestCommandRequiresOutputDirectory(testInstance *testing.T) {
	testInstance.Run(commandRequiresOutputTestNameConstant, func(testInstance *testing.T) {
		builder := &materialize.CommandBuilder{GitExecutor: &routedGitExecutor{testInstance: testInstance}}
		command, buildError := builder.Build()
		require.NoError(testInstance, buildError)

		command.SetArgs([]string{"--source-dir", "docs/source"})
		command.SetContext(context.Background())
		executionError := command.Execute()
		require.ErrorIs(testInstance, executionError, materialize.ErrOutputRequired)
	})
}

func TestCommandMaterializesWhitelistedVersions(testInstance *testing.T) {
	testInstance.Run(commandMaterializesVersionsTestNameConstant, func(testInstance *testing.T) {
		gitExecutor := &routedGitExecutor{
			testInstance:     testInstance,
			mainPayload:      buildSingleFileTar(testInstance, "index.rst", "main tree"),
			submodulePayload: buildSingleFileTar(testInstance, "conf.py", "submodule tree"),
		}
		builder := &materialize.CommandBuilder{
			LoggerProvider: func() *zap.Logger { return zap.NewNop() },
			GitExecutor:    gitExecutor,
		}
		command, buildError := builder.Build()
		require.NoError(testInstance, buildError)

		outputRoot := testInstance.TempDir()
		outputBuffer := &bytes.Buffer{}
		command.SetOut(outputBuffer)
		command.SetArgs([]string{
			"--source-dir", "docs/source",
			"--output", outputRoot,
			"--tag-whitelist", "v.*",
		})
		command.SetContext(context.Background())
		require.NoError(testInstance, command.Execute())

		commandOutput := outputBuffer.String()
		require.Contains(testInstance, commandOutput, "MATERIALIZED: v1.0 ("+filepath.Join(outputRoot, "v1.0")+")")
		require.Contains(testInstance, commandOutput, "MANIFEST: "+filepath.Join(outputRoot, "versions.yaml"))

		mainContent, mainReadError := os.ReadFile(filepath.Join(outputRoot, "v1.0", "index.rst"))
		require.NoError(testInstance, mainReadError)
		require.Equal(testInstance, "main tree", string(mainContent))

		submoduleContent, submoduleReadError := os.ReadFile(filepath.Join(outputRoot, "v1.0", "docs", "source", "conf.py"))
		require.NoError(testInstance, submoduleReadError)
		require.Equal(testInstance, "submodule tree", string(submoduleContent))

		require.FileExists(testInstance, filepath.Join(outputRoot, "versions.yaml"))
	})
}

func TestFlagsOverrideConfigurationProvider(testInstance *testing.T) {
	testInstance.Run(flagsOverrideConfigurationTestNameConstant, func(testInstance *testing.T) {
		gitExecutor := &routedGitExecutor{
			testInstance:     testInstance,
			mainPayload:      buildSingleFileTar(testInstance, "index.rst", "main tree"),
			submodulePayload: buildSingleFileTar(testInstance, "conf.py", "submodule tree"),
		}
		configuredOutput := testInstance.TempDir()
		overriddenOutput := testInstance.TempDir()
		builder := &materialize.CommandBuilder{
			GitExecutor: gitExecutor,
			ConfigurationProvider: func() materialize.CommandConfiguration {
				configuration := materialize.DefaultCommandConfiguration()
				configuration.SourceDirectory = "docs/source"
				configuration.Output = configuredOutput
				configuration.TagWhitelist = "v.*"
				return configuration
			},
		}
		command, buildError := builder.Build()
		require.NoError(testInstance, buildError)

		command.SetOut(&bytes.Buffer{})
		command.SetArgs([]string{"--output", overriddenOutput})
		command.SetContext(context.Background())
		require.NoError(testInstance, command.Execute())

		require.FileExists(testInstance, filepath.Join(overriddenOutput, "v1.0", "index.rst"))
		require.NoFileExists(testInstance, filepath.Join(configuredOutput, "v1.0", "index.rst"))
	})
}

func TestConfigurationDefaultsAreRegistered(testInstance *testing.T) {
	testInstance.Run(configurationDefaultsTestNameConstant, func(testInstance *testing.T) {
		defaultValues := materialize.DefaultConfigurationValues("tools.materialize")
		require.Equal(testInstance, 1, defaultValues["tools.materialize.concurrency"])
		require.Equal(testInstance, ".", defaultValues["tools.materialize.source_path"])
		require.Contains(testInstance, defaultValues, "tools.materialize.tag_whitelist")
		require.Contains(testInstance, defaultValues, "tools.materialize.pin_submodule")
	})
}

func TestConfigurationSanitizeRestoresDefaults(testInstance *testing.T) {
	testInstance.Run(configurationSanitizeTestNameConstant, func(testInstance *testing.T) {
		configuration := materialize.CommandConfiguration{
			SourceDirectory: "  docs/source  ",
			Output:          " ./build ",
			Concurrency:     -3,
			SourcePath:      "   ",
		}
		sanitized := configuration.Sanitize()
		require.Equal(testInstance, "docs/source", sanitized.SourceDirectory)
		require.Equal(testInstance, "./build", sanitized.Output)
		require.Equal(testInstance, 1, sanitized.Concurrency)
		require.Equal(testInstance, ".", sanitized.SourcePath)
	})
}
