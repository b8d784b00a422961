package submodule

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/refcast/refcast/internal/execshell"
)

const (
	testRepositoryRootConstant  = "/workspace/repo"
	testRefnameConstant         = "refs/heads/main"
	testSubmodulePathConstant   = "docs/source"
	testSubmoduleCommitConstant = "1122334455667788990011223344556677889900"
	testLSTreeEntryConstant     = "160000 commit 1122334455667788990011223344556677889900\tdocs/source"
)

type stubGitExecutor struct {
	executionResult execshell.ExecutionResult
	executionError  error
	recordedDetails []execshell.CommandDetails
}

func (executor *stubGitExecutor) ExecuteGit(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedDetails = append(executor.recordedDetails, details)
	if executor.executionError != nil {
		return execshell.ExecutionResult{}, executor.executionError
	}
	return executor.executionResult, nil
}

func TestNewResolverValidatesExecutor(testInstance *testing.T) {
	resolver, creationError := NewResolver(nil, zap.NewNop())
	require.ErrorIs(testInstance, creationError, ErrGitExecutorNotConfigured)
	require.Nil(testInstance, resolver)
}

func TestResolveCommitReadsTreeEntryObject(testInstance *testing.T) {
	executor := &stubGitExecutor{executionResult: execshell.ExecutionResult{StandardOutput: testLSTreeEntryConstant + "\n"}}
	resolver, creationError := NewResolver(executor, zap.NewNop())
	require.NoError(testInstance, creationError)

	submoduleCommit, present, resolveError := resolver.ResolveCommit(context.Background(), testRepositoryRootConstant, testRefnameConstant, testSubmodulePathConstant)
	require.NoError(testInstance, resolveError)
	require.True(testInstance, present)
	require.Equal(testInstance, testSubmoduleCommitConstant, submoduleCommit)

	require.Len(testInstance, executor.recordedDetails, 1)
	require.Equal(testInstance, []string{"ls-tree", testRefnameConstant, "--", testSubmodulePathConstant}, executor.recordedDetails[0].Arguments)
	require.Equal(testInstance, testRepositoryRootConstant, executor.recordedDetails[0].WorkingDirectory)
}

func TestResolveCommitTreatsEmptyOutputAsAbsence(testInstance *testing.T) {
	executor := &stubGitExecutor{executionResult: execshell.ExecutionResult{StandardOutput: "\n"}}
	resolver, creationError := NewResolver(executor, zap.NewNop())
	require.NoError(testInstance, creationError)

	submoduleCommit, present, resolveError := resolver.ResolveCommit(context.Background(), testRepositoryRootConstant, testRefnameConstant, testSubmodulePathConstant)
	require.NoError(testInstance, resolveError)
	require.False(testInstance, present)
	require.Empty(testInstance, submoduleCommit)
}

func TestResolveCommitPropagatesProcessFailures(testInstance *testing.T) {
	executor := &stubGitExecutor{executionError: execshell.CommandFailedError{Result: execshell.ExecutionResult{ExitCode: 128, StandardError: "bad revision"}}}
	resolver, creationError := NewResolver(executor, zap.NewNop())
	require.NoError(testInstance, creationError)

	_, _, resolveError := resolver.ResolveCommit(context.Background(), testRepositoryRootConstant, "refs/heads/missing", testSubmodulePathConstant)
	require.Error(testInstance, resolveError)
	require.ErrorContains(testInstance, resolveError, "failed to inspect tree entry")
}

func TestResolveCommitRejectsUnexpectedEntryFormat(testInstance *testing.T) {
	executor := &stubGitExecutor{executionResult: execshell.ExecutionResult{StandardOutput: "160000 commit\n"}}
	resolver, creationError := NewResolver(executor, zap.NewNop())
	require.NoError(testInstance, creationError)

	_, _, resolveError := resolver.ResolveCommit(context.Background(), testRepositoryRootConstant, testRefnameConstant, testSubmodulePathConstant)
	require.Error(testInstance, resolveError)
	require.ErrorContains(testInstance, resolveError, "unexpected ls-tree entry")
}

func TestResolveCommitValidatesArguments(testInstance *testing.T) {
	resolver, creationError := NewResolver(&stubGitExecutor{}, zap.NewNop())
	require.NoError(testInstance, creationError)

	_, _, refnameError := resolver.ResolveCommit(context.Background(), testRepositoryRootConstant, " ", testSubmodulePathConstant)
	require.ErrorIs(testInstance, refnameError, ErrRefnameRequired)

	_, _, pathError := resolver.ResolveCommit(context.Background(), testRepositoryRootConstant, testRefnameConstant, " ")
	require.ErrorIs(testInstance, pathError, ErrSubmodulePathRequired)
}

func TestCurrentCommitQueriesHead(testInstance *testing.T) {
	executor := &stubGitExecutor{executionResult: execshell.ExecutionResult{StandardOutput: testLSTreeEntryConstant + "\n"}}
	resolver, creationError := NewResolver(executor, zap.NewNop())
	require.NoError(testInstance, creationError)

	submoduleCommit, present, resolveError := resolver.CurrentCommit(context.Background(), testRepositoryRootConstant, testSubmodulePathConstant)
	require.NoError(testInstance, resolveError)
	require.True(testInstance, present)
	require.Equal(testInstance, testSubmoduleCommitConstant, submoduleCommit)

	require.Len(testInstance, executor.recordedDetails, 1)
	require.Equal(testInstance, []string{"ls-tree", "HEAD", "--", testSubmodulePathConstant}, executor.recordedDetails[0].Arguments)
}

func TestResolveCommitSupportsFallbackErrors(testInstance *testing.T) {
	executor := &stubGitExecutor{executionError: execshell.CommandExecutionError{Cause: errors.New("git missing")}}
	resolver, creationError := NewResolver(executor, zap.NewNop())
	require.NoError(testInstance, creationError)

	_, _, resolveError := resolver.ResolveCommit(context.Background(), testRepositoryRootConstant, testRefnameConstant, testSubmodulePathConstant)
	require.Error(testInstance, resolveError)
}
