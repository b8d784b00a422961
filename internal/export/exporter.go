// Package export materializes reference trees into destination directories.
//
// TreeExporter archives the main repository and the submodule repository at
// their resolved commits through ephemeral in-memory buffers and unpacks both
// into a single destination tree, mounting the submodule content at its
// configured subpath.
package export

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/refcast/refcast/internal/execshell"
	"github.com/refcast/refcast/internal/refs"
	"github.com/refcast/refcast/internal/shared"
)

const (
	gitArchiveSubcommandConstant            = "archive"
	gitFormatFlagConstant                   = "--format"
	gitTarFormatConstant                    = "tar"
	gitPathspecSeparatorConstant            = "--"
	defaultSourcePathFilterConstant         = "."
	executorNotConfiguredMessageConstant    = "git executor not configured"
	repositoryRootRequiredMessageConstant   = "repository root must be provided"
	destinationRequiredMessageConstant      = "destination directory must be provided"
	submoduleMountRequiredMessageConstant   = "submodule mount path must be provided"
	submoduleWorktreeRequiredMessage        = "submodule worktree path must be provided"
	referenceUnresolvedMessageConstant      = "reference carries no resolved submodule commit"
	mainArchiveFailureTemplateConstant      = "failed to archive %s: %w"
	submoduleArchiveFailureTemplateConstant = "failed to archive submodule commit %s: %w"
	mainExtractionFailureTemplateConstant   = "failed to unpack %s into %s: %w"
	submoduleExtractionFailureTemplate      = "failed to unpack submodule commit %s into %s: %w"
	treeExportedMessageConstant             = "materialized reference tree"
	logFieldRefnameConstant                 = "refname"
	logFieldDestinationConstant             = "destination"
)

// ErrGitExecutorNotConfigured indicates the exporter was constructed without an executor.
var ErrGitExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

// ErrRepositoryRootRequired indicates the repository root option was empty.
var ErrRepositoryRootRequired = errors.New(repositoryRootRequiredMessageConstant)

// ErrDestinationRequired indicates the destination directory option was empty.
var ErrDestinationRequired = errors.New(destinationRequiredMessageConstant)

// ErrSubmoduleMountPathRequired indicates the submodule mount subpath was empty.
var ErrSubmoduleMountPathRequired = errors.New(submoduleMountRequiredMessageConstant)

// ErrSubmoduleWorktreeRequired indicates the submodule worktree path was empty.
var ErrSubmoduleWorktreeRequired = errors.New(submoduleWorktreeRequiredMessage)

// ErrReferenceUnresolved indicates the reference reached export without a submodule commit.
var ErrReferenceUnresolved = errors.New(referenceUnresolvedMessageConstant)

// Options configures one tree materialization.
type Options struct {
	RepositoryRoot        string
	Reference             refs.Reference
	SubmoduleWorktreePath string
	SubmoduleMountPath    string
	DestinationDirectory  string
	SourcePathFilter      string
}

// TreeExporter materializes reference trees through git archive.
type TreeExporter struct {
	executor shared.GitExecutor
	logger   *zap.Logger
}

// NewTreeExporter constructs a TreeExporter from the provided executor.
func NewTreeExporter(executor shared.GitExecutor, logger *zap.Logger) (*TreeExporter, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TreeExporter{executor: executor, logger: logger}, nil
}

// ExportTree writes the main tree at the reference's commit into the
// destination directory, then overlays the submodule tree at its resolved
// commit under the configured mount subpath. The main tree is unpacked first
// so the submodule content always lands inside a directory the main archive
// created or reserved; the mount directory is created when the main tree did
// not carry it. Archive payloads live only in memory and are released when
// the call returns.
func (exporter *TreeExporter) ExportTree(executionContext context.Context, options Options) error {
	validationError := validateOptions(options)
	if validationError != nil {
		return validationError
	}

	sourcePathFilter := strings.TrimSpace(options.SourcePathFilter)
	if len(sourcePathFilter) == 0 {
		sourcePathFilter = defaultSourcePathFilterConstant
	}

	mainArchivePayload, mainArchiveError := exporter.archiveCommit(
		executionContext,
		options.RepositoryRoot,
		options.Reference.Commit,
		sourcePathFilter,
	)
	if mainArchiveError != nil {
		return fmt.Errorf(mainArchiveFailureTemplateConstant, options.Reference.Refname, mainArchiveError)
	}
	if extractionError := extractTarArchive(mainArchivePayload, options.DestinationDirectory); extractionError != nil {
		return fmt.Errorf(mainExtractionFailureTemplateConstant, options.Reference.Refname, options.DestinationDirectory, extractionError)
	}

	// The submodule commit may be unreachable from the superproject's object
	// store, so the archive runs inside the submodule's own worktree.
	submoduleArchivePayload, submoduleArchiveError := exporter.archiveCommit(
		executionContext,
		options.SubmoduleWorktreePath,
		options.Reference.SubmoduleCommit,
		"",
	)
	if submoduleArchiveError != nil {
		return fmt.Errorf(submoduleArchiveFailureTemplateConstant, options.Reference.SubmoduleCommit, submoduleArchiveError)
	}

	submoduleDestination, destinationError := resolveSubmoduleDestination(options.DestinationDirectory, options.SubmoduleMountPath)
	if destinationError != nil {
		return destinationError
	}
	if extractionError := extractTarArchive(submoduleArchivePayload, submoduleDestination); extractionError != nil {
		return fmt.Errorf(submoduleExtractionFailureTemplate, options.Reference.SubmoduleCommit, submoduleDestination, extractionError)
	}

	exporter.logger.Debug(
		treeExportedMessageConstant,
		zap.String(logFieldRefnameConstant, options.Reference.Refname),
		zap.String(logFieldDestinationConstant, options.DestinationDirectory),
	)
	return nil
}

func (exporter *TreeExporter) archiveCommit(executionContext context.Context, workingDirectory string, commit string, sourcePathFilter string) ([]byte, error) {
	archiveArguments := []string{gitArchiveSubcommandConstant, gitFormatFlagConstant, gitTarFormatConstant, commit}
	if len(sourcePathFilter) > 0 {
		archiveArguments = append(archiveArguments, gitPathspecSeparatorConstant, sourcePathFilter)
	}

	executionResult, executionError := exporter.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        archiveArguments,
		WorkingDirectory: workingDirectory,
	})
	if executionError != nil {
		return nil, executionError
	}
	return []byte(executionResult.StandardOutput), nil
}

func validateOptions(options Options) error {
	if len(strings.TrimSpace(options.RepositoryRoot)) == 0 {
		return ErrRepositoryRootRequired
	}
	if len(strings.TrimSpace(options.DestinationDirectory)) == 0 {
		return ErrDestinationRequired
	}
	if len(strings.TrimSpace(options.SubmoduleMountPath)) == 0 {
		return ErrSubmoduleMountPathRequired
	}
	if len(strings.TrimSpace(options.SubmoduleWorktreePath)) == 0 {
		return ErrSubmoduleWorktreeRequired
	}
	if len(strings.TrimSpace(options.Reference.SubmoduleCommit)) == 0 {
		return ErrReferenceUnresolved
	}
	return nil
}
