// Package submodule resolves the commit a submodule pointed to within a
// reference's tree, using tree metadata only — the submodule never needs to
// be checked out at that commit.
package submodule

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/refcast/refcast/internal/execshell"
	"github.com/refcast/refcast/internal/shared"
)

const (
	gitLSTreeSubcommandConstant           = "ls-tree"
	gitPathspecSeparatorConstant          = "--"
	gitHeadReferenceConstant              = "HEAD"
	lsTreeEntryFieldCountConstant         = 3
	lsTreeEntryObjectFieldIndexConstant   = 2
	executorNotConfiguredMessageConstant  = "git executor not configured"
	submodulePathRequiredMessageConstant  = "submodule path must be provided"
	refnameRequiredMessageConstant        = "refname must be provided"
	treeLookupFailureTemplateConstant     = "failed to inspect tree entry %s at %s: %w"
	unexpectedEntryFormatTemplateConstant = "unexpected ls-tree entry for %s at %s: %q"
	submoduleResolvedMessageConstant      = "resolved submodule commit"
	logFieldRefnameConstant               = "refname"
	logFieldSubmodulePathConstant         = "submodule_path"
	logFieldSubmoduleCommitConstant       = "submodule_commit"
)

// ErrGitExecutorNotConfigured indicates the resolver was constructed without an executor.
var ErrGitExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

// ErrSubmodulePathRequired indicates the submodule path argument was empty.
var ErrSubmodulePathRequired = errors.New(submodulePathRequiredMessageConstant)

// ErrRefnameRequired indicates the refname argument was empty.
var ErrRefnameRequired = errors.New(refnameRequiredMessageConstant)

// Resolver looks up submodule commits recorded in reference trees.
type Resolver struct {
	executor shared.GitExecutor
	logger   *zap.Logger
}

// NewResolver constructs a Resolver from the provided executor.
func NewResolver(executor shared.GitExecutor, logger *zap.Logger) (*Resolver, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{executor: executor, logger: logger}, nil
}

// ResolveCommit returns the submodule commit recorded at submodulePath in the
// tree of refname. The boolean result reports presence: a tree without an
// entry at that path is a normal outcome (the submodule did not exist yet, or
// was removed) and the caller is expected to drop the reference.
func (resolver *Resolver) ResolveCommit(executionContext context.Context, repositoryRoot string, refname string, submodulePath string) (string, bool, error) {
	trimmedRefname := strings.TrimSpace(refname)
	if len(trimmedRefname) == 0 {
		return "", false, ErrRefnameRequired
	}
	return resolver.lookupTreeEntry(executionContext, repositoryRoot, trimmedRefname, submodulePath)
}

// CurrentCommit returns the submodule commit recorded by HEAD in the
// repository rooted at workingDirectory.
func (resolver *Resolver) CurrentCommit(executionContext context.Context, workingDirectory string, submodulePath string) (string, bool, error) {
	return resolver.lookupTreeEntry(executionContext, workingDirectory, gitHeadReferenceConstant, submodulePath)
}

func (resolver *Resolver) lookupTreeEntry(executionContext context.Context, workingDirectory string, treeReference string, submodulePath string) (string, bool, error) {
	trimmedSubmodulePath := strings.TrimSpace(submodulePath)
	if len(trimmedSubmodulePath) == 0 {
		return "", false, ErrSubmodulePathRequired
	}

	executionResult, executionError := resolver.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitLSTreeSubcommandConstant, treeReference, gitPathspecSeparatorConstant, trimmedSubmodulePath},
		WorkingDirectory: workingDirectory,
	})
	if executionError != nil {
		return "", false, fmt.Errorf(treeLookupFailureTemplateConstant, treeReference, trimmedSubmodulePath, executionError)
	}

	trimmedOutput := strings.TrimSpace(executionResult.StandardOutput)
	if len(trimmedOutput) == 0 {
		return "", false, nil
	}

	entryFields := strings.Fields(trimmedOutput)
	if len(entryFields) < lsTreeEntryFieldCountConstant {
		return "", false, fmt.Errorf(unexpectedEntryFormatTemplateConstant, treeReference, trimmedSubmodulePath, trimmedOutput)
	}

	submoduleCommit := entryFields[lsTreeEntryObjectFieldIndexConstant]
	resolver.logger.Debug(
		submoduleResolvedMessageConstant,
		zap.String(logFieldRefnameConstant, treeReference),
		zap.String(logFieldSubmodulePathConstant, trimmedSubmodulePath),
		zap.String(logFieldSubmoduleCommitConstant, submoduleCommit),
	)
	return submoduleCommit, true, nil
}
