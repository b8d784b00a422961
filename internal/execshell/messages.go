package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandLabelTemplateConstant            = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
	fallbackUnknownValueLabelConstant       = "unknown"
)

const (
	gitForEachRefSubcommandNameConstant = "for-each-ref"
	gitLSTreeSubcommandNameConstant     = "ls-tree"
	gitArchiveSubcommandNameConstant    = "archive"
	gitRevParseSubcommandNameConstant   = "rev-parse"
	gitCatFileSubcommandNameConstant    = "cat-file"
	gitToplevelFlagConstant             = "--show-toplevel"
)

const (
	refListingStartTemplateConstant                 = "Listing references in %s"
	refListingSuccessTemplateConstant               = "Listed references in %s"
	refListingFailureTemplateConstant               = "Failed to list references in %s (exit code %d%s)"
	refListingExecutionFailureTemplateConstant      = "Unable to list references in %s: %s"
	treeLookupStartTemplateConstant                 = "Inspecting tree entry %s at %s in %s"
	treeLookupSuccessTemplateConstant               = "Inspected tree entry %s at %s in %s"
	treeLookupFailureTemplateConstant               = "Failed to inspect tree entry %s at %s in %s (exit code %d%s)"
	treeLookupExecutionFailureTemplateConstant      = "Unable to inspect tree entry %s at %s in %s: %s"
	archiveStartTemplateConstant                    = "Archiving %s in %s"
	archiveSuccessTemplateConstant                  = "Archived %s in %s"
	archiveFailureTemplateConstant                  = "Failed to archive %s in %s (exit code %d%s)"
	archiveExecutionFailureTemplateConstant         = "Unable to archive %s in %s: %s"
	toplevelLookupStartTemplateConstant             = "Locating repository top level from %s"
	toplevelLookupSuccessTemplateConstant           = "Located repository top level from %s: %s"
	toplevelLookupFailureTemplateConstant           = "Failed to locate repository top level from %s (exit code %d%s)"
	toplevelLookupExecutionFailureTemplateConstant  = "Unable to locate repository top level from %s: %s"
	objectExistenceStartTemplateConstant            = "Checking object %s in %s"
	objectExistenceSuccessTemplateConstant          = "Object %s exists in %s"
	objectExistenceFailureTemplateConstant          = "Object %s is missing in %s (exit code %d%s)"
	objectExistenceExecutionFailureTemplateConstant = "Unable to check object %s in %s: %s"
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if command.Name != CommandGit || len(command.Details.Arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	subcommand := strings.TrimSpace(command.Details.Arguments[0])
	switch subcommand {
	case gitForEachRefSubcommandNameConstant:
		return formatter.describeRefListingMessage(command, result, failure, stage)
	case gitLSTreeSubcommandNameConstant:
		return formatter.describeTreeLookupMessage(command, result, failure, stage)
	case gitArchiveSubcommandNameConstant:
		return formatter.describeArchiveMessage(command, result, failure, stage)
	case gitRevParseSubcommandNameConstant:
		return formatter.describeToplevelLookupMessage(command, result, failure, stage)
	case gitCatFileSubcommandNameConstant:
		return formatter.describeObjectExistenceMessage(command, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeRefListingMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(refListingStartTemplateConstant, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(refListingSuccessTemplateConstant, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(refListingFailureTemplateConstant, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(refListingExecutionFailureTemplateConstant, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeTreeLookupMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	nonFlagArguments := formatter.collectNonFlagArguments(command.Details.Arguments[1:])
	treeReference := formatter.ensureValue(formatter.argumentAtIndex(nonFlagArguments, 0))
	treePath := formatter.ensureValue(formatter.argumentAtIndex(nonFlagArguments, 1))
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(treeLookupStartTemplateConstant, treeReference, treePath, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(treeLookupSuccessTemplateConstant, treeReference, treePath, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(treeLookupFailureTemplateConstant, treeReference, treePath, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(treeLookupExecutionFailureTemplateConstant, treeReference, treePath, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeArchiveMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	archivedCommit := formatter.ensureValue(formatter.extractArchiveCommit(command.Details.Arguments[1:]))
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(archiveStartTemplateConstant, archivedCommit, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(archiveSuccessTemplateConstant, archivedCommit, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(archiveFailureTemplateConstant, archivedCommit, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(archiveExecutionFailureTemplateConstant, archivedCommit, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeToplevelLookupMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if !containsArgument(command.Details.Arguments, gitToplevelFlagConstant) {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	workingDirectory := formatter.describeWorkingDirectory(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(toplevelLookupStartTemplateConstant, workingDirectory)
	case messageStageSuccess:
		trimmedOutput := strings.TrimSpace(result.StandardOutput)
		return fmt.Sprintf(toplevelLookupSuccessTemplateConstant, workingDirectory, formatter.ensureValue(trimmedOutput))
	case messageStageFailure:
		return fmt.Sprintf(toplevelLookupFailureTemplateConstant, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(toplevelLookupExecutionFailureTemplateConstant, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeObjectExistenceMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	objectSpecifier := formatter.ensureValue(formatter.extractLastNonFlagArgument(command.Details.Arguments[1:]))
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(objectExistenceStartTemplateConstant, objectSpecifier, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(objectExistenceSuccessTemplateConstant, objectSpecifier, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(objectExistenceFailureTemplateConstant, objectSpecifier, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(objectExistenceExecutionFailureTemplateConstant, objectSpecifier, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandLabel := string(command.Name)
	if len(command.Details.Arguments) > 0 {
		commandLabel = fmt.Sprintf("%s %s", commandLabel, strings.Join(command.Details.Arguments, commandArgumentsJoinSeparatorConstant))
	}
	workingDirectorySuffix := formatter.formatWorkingDirectorySuffix(command)
	return fmt.Sprintf(commandLabelTemplateConstant, commandLabel, workingDirectorySuffix)
}

func (formatter CommandMessageFormatter) formatWorkingDirectorySuffix(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func (formatter CommandMessageFormatter) argumentAtIndex(arguments []string, index int) string {
	if index >= 0 && index < len(arguments) {
		return arguments[index]
	}
	return emptyStringConstant
}

func (formatter CommandMessageFormatter) ensureValue(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return trimmed
}

func (formatter CommandMessageFormatter) collectNonFlagArguments(arguments []string) []string {
	collected := make([]string, 0, len(arguments))
	for _, argument := range arguments {
		trimmed := strings.TrimSpace(argument)
		if len(trimmed) == 0 {
			continue
		}
		if strings.HasPrefix(trimmed, "-") {
			continue
		}
		collected = append(collected, trimmed)
	}
	return collected
}

// extractArchiveCommit returns the commit-ish of an archive invocation: the
// first non-flag argument that is not a flag value and precedes any "--"
// pathspec separator.
func (formatter CommandMessageFormatter) extractArchiveCommit(arguments []string) string {
	skipNext := false
	for _, argument := range arguments {
		trimmed := strings.TrimSpace(argument)
		if len(trimmed) == 0 {
			continue
		}
		if trimmed == "--" {
			return emptyStringConstant
		}
		if skipNext {
			skipNext = false
			continue
		}
		if strings.HasPrefix(trimmed, "-") {
			skipNext = trimmed == "--format" || trimmed == "-o" || trimmed == "--output"
			continue
		}
		return trimmed
	}
	return emptyStringConstant
}

func (formatter CommandMessageFormatter) extractLastNonFlagArgument(arguments []string) string {
	for index := len(arguments) - 1; index >= 0; index-- {
		trimmed := strings.TrimSpace(arguments[index])
		if len(trimmed) == 0 {
			continue
		}
		if strings.HasPrefix(trimmed, "-") {
			continue
		}
		return trimmed
	}
	return emptyStringConstant
}

func containsArgument(arguments []string, value string) bool {
	for _, argument := range arguments {
		if strings.TrimSpace(argument) == value {
			return true
		}
	}
	return false
}
