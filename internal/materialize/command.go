package materialize

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/refcast/refcast/internal/export"
	"github.com/refcast/refcast/internal/gitrepo"
	"github.com/refcast/refcast/internal/refs"
	"github.com/refcast/refcast/internal/shared"
	"github.com/refcast/refcast/internal/submodule"
	pathutils "github.com/refcast/refcast/internal/utils/path"
	"github.com/refcast/refcast/internal/versions"
)

const (
	commandUseConstant                    = "materialize"
	commandShortDescriptionConstant       = "Materialize whitelisted references into per-version directories"
	commandLongDescriptionConstant        = "materialize enumerates branch, tag, and remote-tracking references, keeps those matching the configured whitelists, resolves the documentation submodule commit recorded by each reference, and exports every surviving reference's tree into its own directory under the output root."
	commandExecutionErrorTemplateConstant = "version materialization failed: %w"
	unexpectedArgumentsMessageConstant    = "materialize does not accept positional arguments"
	outputRequiredMessageConstant         = "output directory is required"
	sourceDirectoryRequiredMessage        = "submodule source directory is required"
	flagGitRootNameConstant               = "gitroot"
	flagGitRootDescriptionConstant        = "Repository path used to locate the superproject top level"
	flagSourceDirectoryNameConstant       = "source-dir"
	flagSourceDirectoryDescription        = "Submodule path inside the repository tree"
	flagOutputNameConstant                = "output"
	flagOutputDescriptionConstant         = "Directory receiving one subdirectory per materialized version"
	flagTagWhitelistNameConstant          = "tag-whitelist"
	flagTagWhitelistDescriptionConstant   = "Pattern matched against tag names, anchored at the start"
	flagBranchWhitelistNameConstant       = "branch-whitelist"
	flagBranchWhitelistDescription        = "Pattern matched against branch names, anchored at the start"
	flagRemoteWhitelistNameConstant       = "remote-whitelist"
	flagRemoteWhitelistDescription        = "Pattern matched against remote names for remote-tracking branches"
	flagRequiredFileNameConstant          = "required-file"
	flagRequiredFileDescriptionConstant   = "Keep only references whose tree contains this file"
	flagPinSubmoduleNameConstant          = "pin-submodule"
	flagPinSubmoduleDescriptionConstant   = "Keep only references recording the currently checked out submodule commit"
	flagConcurrencyNameConstant           = "concurrency"
	flagConcurrencyDescriptionConstant    = "Maximum number of concurrent exports"
	flagSourcePathNameConstant            = "source-path"
	flagSourcePathDescriptionConstant     = "Pathspec limiting the main tree archive"
	materializedOutputTemplateConstant    = "MATERIALIZED: %s (%s)\n"
	manifestOutputTemplateConstant        = "MANIFEST: %s\n"
)

var errUnexpectedArguments = errors.New(unexpectedArgumentsMessageConstant)

// ErrOutputRequired indicates no output directory was configured.
var ErrOutputRequired = errors.New(outputRequiredMessageConstant)

// ErrSourceDirectoryRequired indicates no submodule path was configured.
var ErrSourceDirectoryRequired = errors.New(sourceDirectoryRequiredMessage)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the Cobra command for version materialization.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	GitExecutor           shared.GitExecutor
	ConfigurationProvider func() CommandConfiguration
	Clock                 shared.Clock
}

// Build constructs the materialize command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	defaults := DefaultCommandConfiguration()
	command.Flags().String(flagGitRootNameConstant, defaults.GitRoot, flagGitRootDescriptionConstant)
	command.Flags().String(flagSourceDirectoryNameConstant, defaults.SourceDirectory, flagSourceDirectoryDescription)
	command.Flags().String(flagOutputNameConstant, defaults.Output, flagOutputDescriptionConstant)
	command.Flags().String(flagTagWhitelistNameConstant, defaults.TagWhitelist, flagTagWhitelistDescriptionConstant)
	command.Flags().String(flagBranchWhitelistNameConstant, defaults.BranchWhitelist, flagBranchWhitelistDescription)
	command.Flags().String(flagRemoteWhitelistNameConstant, defaults.RemoteWhitelist, flagRemoteWhitelistDescription)
	command.Flags().String(flagRequiredFileNameConstant, defaults.RequiredFile, flagRequiredFileDescriptionConstant)
	command.Flags().Bool(flagPinSubmoduleNameConstant, defaults.PinSubmodule, flagPinSubmoduleDescriptionConstant)
	command.Flags().Int(flagConcurrencyNameConstant, defaults.Concurrency, flagConcurrencyDescriptionConstant)
	command.Flags().String(flagSourcePathNameConstant, defaults.SourcePath, flagSourcePathDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errUnexpectedArguments
	}

	configuration := builder.resolveConfiguration(command)
	if len(configuration.SourceDirectory) == 0 {
		return ErrSourceDirectoryRequired
	}
	if len(configuration.Output) == 0 {
		return ErrOutputRequired
	}

	logger := builder.resolveLogger()
	gitExecutor, executorError := shared.ResolveGitExecutor(builder.GitExecutor, logger)
	if executorError != nil {
		return executorError
	}

	repositoryLocator, locatorError := gitrepo.NewRepositoryLocator(gitExecutor)
	if locatorError != nil {
		return locatorError
	}
	repositoryRoot, rootResolutionError := repositoryLocator.ResolveTopLevelPath(command.Context(), configuration.GitRoot)
	if rootResolutionError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, rootResolutionError)
	}

	referenceLister, listerError := refs.NewReferenceLister(gitExecutor, logger)
	if listerError != nil {
		return listerError
	}
	whitelistFilter, filterError := refs.NewWhitelistFilter(refs.WhitelistPatterns{
		Tag:    configuration.TagWhitelist,
		Branch: configuration.BranchWhitelist,
		Remote: configuration.RemoteWhitelist,
	}, logger)
	if filterError != nil {
		return filterError
	}
	submoduleResolver, resolverError := submodule.NewResolver(gitExecutor, logger)
	if resolverError != nil {
		return resolverError
	}
	treeExporter, exporterError := export.NewTreeExporter(gitExecutor, logger)
	if exporterError != nil {
		return exporterError
	}

	versionService, serviceError := versions.NewService(versions.Dependencies{
		Lister:      referenceLister,
		Filter:      whitelistFilter,
		Resolver:    submoduleResolver,
		Exporter:    treeExporter,
		FileChecker: repositoryLocator,
		Clock:       builder.Clock,
		Logger:      logger,
	})
	if serviceError != nil {
		return serviceError
	}

	enumeratedReferences, enumerationError := versionService.EnumerateVersions(command.Context(), versions.EnumerationOptions{
		RepositoryRoot: repositoryRoot,
		SubmodulePath:  configuration.SourceDirectory,
		RequiredFile:   configuration.RequiredFile,
		PinSubmodule:   configuration.PinSubmodule,
	})
	if enumerationError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, enumerationError)
	}

	materializedVersions, materializationError := versionService.MaterializeAll(command.Context(), enumeratedReferences, versions.MaterializationOptions{
		RepositoryRoot:        repositoryRoot,
		OutputRoot:            configuration.Output,
		SubmoduleWorktreePath: filepath.Join(repositoryRoot, filepath.FromSlash(configuration.SourceDirectory)),
		SubmoduleMountPath:    configuration.SourceDirectory,
		SourcePathFilter:      configuration.SourcePath,
		Concurrency:           configuration.Concurrency,
	})
	if materializationError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, materializationError)
	}

	for _, materializedVersion := range materializedVersions {
		fmt.Fprintf(command.OutOrStdout(), materializedOutputTemplateConstant, materializedVersion.Reference.Name, materializedVersion.OutputDirectory)
	}

	manifestPath, manifestError := versionService.WriteManifest(configuration.Output, materializedVersions)
	if manifestError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, manifestError)
	}
	fmt.Fprintf(command.OutOrStdout(), manifestOutputTemplateConstant, manifestPath)

	return nil
}

func (builder *CommandBuilder) resolveConfiguration(command *cobra.Command) CommandConfiguration {
	configuration := DefaultCommandConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}
	configuration = applyFlagOverrides(command, configuration)
	configuration = configuration.Sanitize()

	pathSanitizer := pathutils.NewDirectoryPathSanitizer()
	configuration.GitRoot = pathSanitizer.Sanitize(configuration.GitRoot)
	configuration.Output = pathSanitizer.Sanitize(configuration.Output)

	return configuration
}

func applyFlagOverrides(command *cobra.Command, configuration CommandConfiguration) CommandConfiguration {
	if command == nil {
		return configuration
	}

	commandFlags := command.Flags()
	if commandFlags.Changed(flagGitRootNameConstant) {
		configuration.GitRoot, _ = commandFlags.GetString(flagGitRootNameConstant)
	}
	if commandFlags.Changed(flagSourceDirectoryNameConstant) {
		configuration.SourceDirectory, _ = commandFlags.GetString(flagSourceDirectoryNameConstant)
	}
	if commandFlags.Changed(flagOutputNameConstant) {
		configuration.Output, _ = commandFlags.GetString(flagOutputNameConstant)
	}
	if commandFlags.Changed(flagTagWhitelistNameConstant) {
		configuration.TagWhitelist, _ = commandFlags.GetString(flagTagWhitelistNameConstant)
	}
	if commandFlags.Changed(flagBranchWhitelistNameConstant) {
		configuration.BranchWhitelist, _ = commandFlags.GetString(flagBranchWhitelistNameConstant)
	}
	if commandFlags.Changed(flagRemoteWhitelistNameConstant) {
		configuration.RemoteWhitelist, _ = commandFlags.GetString(flagRemoteWhitelistNameConstant)
	}
	if commandFlags.Changed(flagRequiredFileNameConstant) {
		configuration.RequiredFile, _ = commandFlags.GetString(flagRequiredFileNameConstant)
	}
	if commandFlags.Changed(flagPinSubmoduleNameConstant) {
		configuration.PinSubmodule, _ = commandFlags.GetBool(flagPinSubmoduleNameConstant)
	}
	if commandFlags.Changed(flagConcurrencyNameConstant) {
		configuration.Concurrency, _ = commandFlags.GetInt(flagConcurrencyNameConstant)
	}
	if commandFlags.Changed(flagSourcePathNameConstant) {
		configuration.SourcePath, _ = commandFlags.GetString(flagSourcePathNameConstant)
	}

	return configuration
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}

	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}

	return logger
}
