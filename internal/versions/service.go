package versions

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/refcast/refcast/internal/export"
	"github.com/refcast/refcast/internal/refs"
	"github.com/refcast/refcast/internal/shared"
)

const (
	listerNotConfiguredMessageConstant      = "reference lister not configured"
	filterNotConfiguredMessageConstant      = "reference filter not configured"
	resolverNotConfiguredMessageConstant    = "submodule resolver not configured"
	exporterNotConfiguredMessageConstant    = "tree exporter not configured"
	fileCheckerNotConfiguredMessageConstant = "file checker not configured"
	referenceExcludedMessageConstant        = "skipping reference excluded by whitelist policy"
	submoduleAbsentMessageConstant          = "skipping reference without the submodule path"
	submoduleUnpinnedMessageConstant        = "skipping reference whose submodule commit differs from the current checkout"
	requiredFileAbsentMessageConstant       = "skipping reference missing the required file"
	referenceResolvedMessageConstant        = "enumerated version"
	pinnedCommitUnavailableMessageConstant  = "current checkout does not contain the submodule path"
	requiredFileCheckFailureTemplate        = "failed to check required file for %s: %w"
	unsafeVersionNameTemplateConstant       = "reference name %q does not map to a local output directory"
	defaultConcurrencyLimitConstant         = 1
	logFieldRefnameConstant                 = "refname"
	logFieldReasonConstant                  = "reason"
	logFieldCommitConstant                  = "commit"
	logFieldSubmoduleCommitConstant         = "submodule_commit"
)

// ErrListerNotConfigured indicates the service was built without a reference lister.
var ErrListerNotConfigured = errors.New(listerNotConfiguredMessageConstant)

// ErrFilterNotConfigured indicates the service was built without a whitelist filter.
var ErrFilterNotConfigured = errors.New(filterNotConfiguredMessageConstant)

// ErrResolverNotConfigured indicates the service was built without a submodule resolver.
var ErrResolverNotConfigured = errors.New(resolverNotConfiguredMessageConstant)

// ErrExporterNotConfigured indicates the service was built without a tree exporter.
var ErrExporterNotConfigured = errors.New(exporterNotConfiguredMessageConstant)

// ErrFileCheckerNotConfigured indicates the service was built without a file checker.
var ErrFileCheckerNotConfigured = errors.New(fileCheckerNotConfiguredMessageConstant)

// ErrPinnedCommitUnavailable indicates pinning was requested but the current
// checkout carries no submodule commit to pin against.
var ErrPinnedCommitUnavailable = errors.New(pinnedCommitUnavailableMessageConstant)

// ReferenceLister enumerates candidate references from a repository.
type ReferenceLister interface {
	ListReferences(executionContext context.Context, repositoryRoot string) ([]refs.Reference, error)
}

// ReferenceFilter applies whitelist policy to a single reference.
type ReferenceFilter interface {
	Evaluate(reference refs.Reference) refs.FilterDecision
}

// SubmoduleCommitResolver reads submodule gitlink entries from reference trees.
type SubmoduleCommitResolver interface {
	ResolveCommit(executionContext context.Context, repositoryRoot string, refname string, submodulePath string) (string, bool, error)
	CurrentCommit(executionContext context.Context, workingDirectory string, submodulePath string) (string, bool, error)
}

// TreeExporter materializes one resolved reference into a destination directory.
type TreeExporter interface {
	ExportTree(executionContext context.Context, options export.Options) error
}

// ReferenceFileChecker reports whether a file exists in a reference's tree.
type ReferenceFileChecker interface {
	FileExistsAtReference(executionContext context.Context, repositoryRoot string, refname string, filePath string) (bool, error)
}

// Dependencies enumerates the collaborators required by the Service.
type Dependencies struct {
	Lister      ReferenceLister
	Filter      ReferenceFilter
	Resolver    SubmoduleCommitResolver
	Exporter    TreeExporter
	FileChecker ReferenceFileChecker
	Clock       shared.Clock
	Logger      *zap.Logger
}

// Service drives enumeration and materialization of repository versions.
type Service struct {
	dependencies Dependencies
}

// NewService validates the dependency set and constructs the Service.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.Lister == nil {
		return nil, ErrListerNotConfigured
	}
	if dependencies.Filter == nil {
		return nil, ErrFilterNotConfigured
	}
	if dependencies.Resolver == nil {
		return nil, ErrResolverNotConfigured
	}
	if dependencies.Exporter == nil {
		return nil, ErrExporterNotConfigured
	}
	if dependencies.FileChecker == nil {
		return nil, ErrFileCheckerNotConfigured
	}
	if dependencies.Clock == nil {
		dependencies.Clock = shared.SystemClock{}
	}
	if dependencies.Logger == nil {
		dependencies.Logger = zap.NewNop()
	}
	return &Service{dependencies: dependencies}, nil
}

// EnumerationOptions configures one enumeration pass.
type EnumerationOptions struct {
	RepositoryRoot string
	SubmodulePath  string
	RequiredFile   string
	PinSubmodule   bool
}

// EnumerateVersions lists references, applies whitelist policy, resolves each
// surviving reference's submodule commit, and applies the optional pinning and
// required-file gates. References whose tree does not contain the submodule
// path are dropped silently with a debug diagnostic; that is an expected state
// for historical refs predating the submodule.
func (service *Service) EnumerateVersions(executionContext context.Context, options EnumerationOptions) ([]refs.Reference, error) {
	listedReferences, listingError := service.dependencies.Lister.ListReferences(executionContext, options.RepositoryRoot)
	if listingError != nil {
		return nil, listingError
	}

	pinnedCommit := ""
	if options.PinSubmodule {
		currentCommit, present, currentCommitError := service.dependencies.Resolver.CurrentCommit(executionContext, options.RepositoryRoot, options.SubmodulePath)
		if currentCommitError != nil {
			return nil, currentCommitError
		}
		if !present {
			return nil, ErrPinnedCommitUnavailable
		}
		pinnedCommit = currentCommit
	}

	enumeratedReferences := make([]refs.Reference, 0, len(listedReferences))
	for _, candidateReference := range listedReferences {
		decision := service.dependencies.Filter.Evaluate(candidateReference)
		if !decision.Included {
			service.dependencies.Logger.Debug(
				referenceExcludedMessageConstant,
				zap.String(logFieldRefnameConstant, candidateReference.Refname),
				zap.String(logFieldReasonConstant, string(decision.Reason)),
			)
			continue
		}

		submoduleCommit, submodulePresent, resolutionError := service.dependencies.Resolver.ResolveCommit(
			executionContext,
			options.RepositoryRoot,
			candidateReference.Refname,
			options.SubmodulePath,
		)
		if resolutionError != nil {
			return nil, resolutionError
		}
		if !submodulePresent {
			service.dependencies.Logger.Debug(
				submoduleAbsentMessageConstant,
				zap.String(logFieldRefnameConstant, candidateReference.Refname),
			)
			continue
		}

		if options.PinSubmodule && submoduleCommit != pinnedCommit {
			service.dependencies.Logger.Debug(
				submoduleUnpinnedMessageConstant,
				zap.String(logFieldRefnameConstant, candidateReference.Refname),
				zap.String(logFieldSubmoduleCommitConstant, submoduleCommit),
			)
			continue
		}

		if len(options.RequiredFile) > 0 {
			fileExists, fileCheckError := service.dependencies.FileChecker.FileExistsAtReference(
				executionContext,
				options.RepositoryRoot,
				candidateReference.Refname,
				options.RequiredFile,
			)
			if fileCheckError != nil {
				return nil, fmt.Errorf(requiredFileCheckFailureTemplate, candidateReference.Refname, fileCheckError)
			}
			if !fileExists {
				service.dependencies.Logger.Debug(
					requiredFileAbsentMessageConstant,
					zap.String(logFieldRefnameConstant, candidateReference.Refname),
				)
				continue
			}
		}

		resolvedReference := candidateReference.WithSubmoduleCommit(submoduleCommit)
		service.dependencies.Logger.Debug(
			referenceResolvedMessageConstant,
			zap.String(logFieldRefnameConstant, resolvedReference.Refname),
			zap.String(logFieldCommitConstant, resolvedReference.Commit),
			zap.String(logFieldSubmoduleCommitConstant, resolvedReference.SubmoduleCommit),
		)
		enumeratedReferences = append(enumeratedReferences, resolvedReference)
	}

	return enumeratedReferences, nil
}

// MaterializationOptions configures materialization of enumerated references.
type MaterializationOptions struct {
	RepositoryRoot        string
	OutputRoot            string
	SubmoduleWorktreePath string
	SubmoduleMountPath    string
	SourcePathFilter      string
	Concurrency           int
}

// MaterializedVersion pairs an exported reference with its output directory.
type MaterializedVersion struct {
	Reference       refs.Reference
	OutputDirectory string
}

// MaterializeAll exports every reference into a per-version directory under
// the output root, named after the reference. Exports run under a bounded
// worker group; results preserve the enumeration order regardless of
// completion order, and the first export failure cancels the remaining work.
func (service *Service) MaterializeAll(executionContext context.Context, references []refs.Reference, options MaterializationOptions) ([]MaterializedVersion, error) {
	concurrencyLimit := options.Concurrency
	if concurrencyLimit < defaultConcurrencyLimitConstant {
		concurrencyLimit = defaultConcurrencyLimitConstant
	}

	materializedVersions := make([]MaterializedVersion, len(references))
	workerGroup, groupContext := errgroup.WithContext(executionContext)
	workerGroup.SetLimit(concurrencyLimit)

	for referenceIndex, reference := range references {
		outputDirectory, outputDirectoryError := resolveOutputDirectory(options.OutputRoot, reference.Name)
		if outputDirectoryError != nil {
			return nil, outputDirectoryError
		}
		materializedVersions[referenceIndex] = MaterializedVersion{Reference: reference, OutputDirectory: outputDirectory}

		reference := reference
		workerGroup.Go(func() error {
			return service.dependencies.Exporter.ExportTree(groupContext, export.Options{
				RepositoryRoot:        options.RepositoryRoot,
				Reference:             reference,
				SubmoduleWorktreePath: options.SubmoduleWorktreePath,
				SubmoduleMountPath:    options.SubmoduleMountPath,
				DestinationDirectory:  outputDirectory,
				SourcePathFilter:      options.SourcePathFilter,
			})
		})
	}

	if waitError := workerGroup.Wait(); waitError != nil {
		return nil, waitError
	}
	return materializedVersions, nil
}

// resolveOutputDirectory maps a reference name onto a directory under the
// output root. Branch names may contain slashes, which become nested
// directories; names that would escape the root are rejected.
func resolveOutputDirectory(outputRoot string, referenceName string) (string, error) {
	normalizedName := filepath.FromSlash(referenceName)
	if !filepath.IsLocal(normalizedName) {
		return "", fmt.Errorf(unsafeVersionNameTemplateConstant, referenceName)
	}
	return filepath.Join(outputRoot, normalizedName), nil
}
