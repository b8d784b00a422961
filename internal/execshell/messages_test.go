package execshell

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildStartedMessageForRefListingNamesWorkingDirectory(t *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{
		Name: CommandGit,
		Details: CommandDetails{
			Arguments:        []string{"for-each-ref", "--format", "%(objectname)", "refs"},
			WorkingDirectory: "/workspace/repo",
		},
	}

	message := formatter.BuildStartedMessage(command)

	require.Equal(t, "Listing references in /workspace/repo", message)
}

func TestBuildStartedMessageForTreeLookupIncludesReferenceAndPath(t *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{
		Name: CommandGit,
		Details: CommandDetails{
			Arguments:        []string{"ls-tree", "refs/heads/main", "--", "docs/source"},
			WorkingDirectory: "/workspace/repo",
		},
	}

	message := formatter.BuildStartedMessage(command)

	require.Equal(t, "Inspecting tree entry refs/heads/main at docs/source in /workspace/repo", message)
}

func TestBuildStartedMessageForArchiveNamesCommit(t *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{
		Name: CommandGit,
		Details: CommandDetails{
			Arguments:        []string{"archive", "--format", "tar", "0a1b2c3d", "--", "."},
			WorkingDirectory: "/workspace/repo",
		},
	}

	message := formatter.BuildStartedMessage(command)

	require.Equal(t, "Archiving 0a1b2c3d in /workspace/repo", message)
}

func TestBuildFailureMessageForArchiveIncludesExitCodeAndStderr(t *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{
		Name: CommandGit,
		Details: CommandDetails{
			Arguments:        []string{"archive", "--format", "tar", "0a1b2c3d"},
			WorkingDirectory: "/workspace/repo",
		},
	}
	result := ExecutionResult{ExitCode: 128, StandardError: "fatal: not a valid object name"}

	message := formatter.BuildFailureMessage(command, result)

	require.Equal(t, "Failed to archive 0a1b2c3d in /workspace/repo (exit code 128: fatal: not a valid object name)", message)
}

func TestBuildSuccessMessageForToplevelLookupEmbedsOutput(t *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{
		Name: CommandGit,
		Details: CommandDetails{
			Arguments:        []string{"rev-parse", "--show-toplevel", "--show-superproject-working-tree"},
			WorkingDirectory: "/workspace/repo/docs",
		},
	}
	result := ExecutionResult{StandardOutput: "/workspace/repo\n"}

	message := formatter.buildMessage(command, result, nil, messageStageSuccess)

	require.Equal(t, "Located repository top level from /workspace/repo/docs: /workspace/repo", message)
}

func TestBuildStartedMessageForUnknownSubcommandFallsBackToGenericLabel(t *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{
		Name: CommandGit,
		Details: CommandDetails{
			Arguments:        []string{"status"},
			WorkingDirectory: "/workspace/repo",
		},
	}

	message := formatter.BuildStartedMessage(command)

	require.Equal(t, "Running git status (in /workspace/repo)", message)
}
