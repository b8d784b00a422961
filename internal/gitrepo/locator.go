package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/refcast/refcast/internal/execshell"
	"github.com/refcast/refcast/internal/shared"
)

const (
	gitRevParseSubcommandConstant             = "rev-parse"
	gitShowToplevelFlagConstant               = "--show-toplevel"
	gitShowSuperprojectFlagConstant           = "--show-superproject-working-tree"
	gitCatFileSubcommandConstant              = "cat-file"
	gitCatFileExistsFlagConstant              = "-e"
	gitObjectSpecifierTemplateConstant        = "%s:%s"
	executorNotConfiguredMessageConstant      = "git executor not configured"
	toplevelLookupFailureTemplateConstant     = "failed to locate repository top level: %w"
	toplevelOutputEmptyMessageConstant        = "repository top level lookup produced no output"
	fileExistenceCheckFailureTemplateConstant = "failed to check %s at %s: %w"
	refnameRequiredMessageConstant            = "refname must be provided"
	filePathRequiredMessageConstant           = "file path must be provided"
)

// ErrGitExecutorNotConfigured indicates the locator was constructed without an executor.
var ErrGitExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

// ErrToplevelOutputEmpty indicates git reported no top-level working directory.
var ErrToplevelOutputEmpty = errors.New(toplevelOutputEmptyMessageConstant)

// ErrRefnameRequired indicates a refname argument was empty.
var ErrRefnameRequired = errors.New(refnameRequiredMessageConstant)

// ErrFilePathRequired indicates a file path argument was empty.
var ErrFilePathRequired = errors.New(filePathRequiredMessageConstant)

// RepositoryLocator answers repository-level location and object queries.
type RepositoryLocator struct {
	executor shared.GitExecutor
}

// NewRepositoryLocator constructs a RepositoryLocator from the provided executor.
func NewRepositoryLocator(executor shared.GitExecutor) (*RepositoryLocator, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	return &RepositoryLocator{executor: executor}, nil
}

// ResolveTopLevelPath returns the top-level working directory for the
// repository containing workingDirectory. When the checkout is a submodule of
// a superproject, git emits two whitespace-separated paths and the
// superproject path is listed last, so the last token is authoritative.
func (locator *RepositoryLocator) ResolveTopLevelPath(executionContext context.Context, workingDirectory string) (string, error) {
	executionResult, executionError := locator.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitRevParseSubcommandConstant, gitShowToplevelFlagConstant, gitShowSuperprojectFlagConstant},
		WorkingDirectory: strings.TrimSpace(workingDirectory),
	})
	if executionError != nil {
		return "", fmt.Errorf(toplevelLookupFailureTemplateConstant, executionError)
	}

	pathTokens := strings.Fields(executionResult.StandardOutput)
	if len(pathTokens) == 0 {
		return "", ErrToplevelOutputEmpty
	}
	return pathTokens[len(pathTokens)-1], nil
}

// FileExistsAtReference reports whether filePath is present in the tree
// recorded by refname. A non-zero cat-file exit signals absence rather than
// failure; only launch errors propagate.
func (locator *RepositoryLocator) FileExistsAtReference(executionContext context.Context, repositoryRoot string, refname string, filePath string) (bool, error) {
	trimmedRefname := strings.TrimSpace(refname)
	if len(trimmedRefname) == 0 {
		return false, ErrRefnameRequired
	}
	trimmedFilePath := strings.TrimSpace(filePath)
	if len(trimmedFilePath) == 0 {
		return false, ErrFilePathRequired
	}

	// Git requires forward slashes in object specifiers regardless of host.
	normalizedFilePath := filepath.ToSlash(trimmedFilePath)

	objectSpecifier := fmt.Sprintf(gitObjectSpecifierTemplateConstant, trimmedRefname, normalizedFilePath)
	_, executionError := locator.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitCatFileSubcommandConstant, gitCatFileExistsFlagConstant, objectSpecifier},
		WorkingDirectory: repositoryRoot,
	})
	if executionError != nil {
		var failedError execshell.CommandFailedError
		if errors.As(executionError, &failedError) {
			return false, nil
		}
		return false, fmt.Errorf(fileExistenceCheckFailureTemplateConstant, trimmedFilePath, trimmedRefname, executionError)
	}
	return true, nil
}
