package refs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/refcast/refcast/internal/execshell"
	"github.com/refcast/refcast/internal/shared"
)

const (
	gitForEachRefSubcommandConstant       = "for-each-ref"
	gitFormatFlagConstant                 = "--format"
	gitForEachRefFormatConstant           = "%(objectname)\t%(refname)\t%(creatordate:iso)"
	gitRefsNamespaceConstant              = "refs"
	creatordateLayoutConstant             = "2006-01-02 15:04:05 -0700"
	refListingFieldCountConstant          = 3
	refListingFieldSeparatorConstant      = "\t"
	executorNotConfiguredMessageConstant  = "git executor not configured"
	refListingFailureTemplateConstant     = "failed to list references: %w"
	creatordateParseErrorTemplateConstant = "unable to parse creation date %q for %s: %w"
	malformedLineMessageConstant          = "skipping malformed reference listing line"
	unrecognizedRefnameMessageConstant    = "skipping reference outside the supported namespaces"
	logFieldLineConstant                  = "line"
	logFieldRefnameConstant               = "refname"
)

// ErrGitExecutorNotConfigured indicates the lister was constructed without an executor.
var ErrGitExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

// ReferenceLister enumerates references by invoking git for-each-ref.
type ReferenceLister struct {
	executor shared.GitExecutor
	logger   *zap.Logger
}

// NewReferenceLister constructs a ReferenceLister from the provided executor.
func NewReferenceLister(executor shared.GitExecutor, logger *zap.Logger) (*ReferenceLister, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReferenceLister{executor: executor, logger: logger}, nil
}

// ListReferences re-invokes the listing and parses every line under refs/.
//
// Lines with the wrong field count and refnames outside the supported grammar
// are skipped with debug diagnostics. A creation date that does not match the
// expected ISO layout aborts the whole listing: it signals an incompatible git
// output format rather than a bad individual reference.
func (lister *ReferenceLister) ListReferences(executionContext context.Context, repositoryRoot string) ([]Reference, error) {
	executionResult, executionError := lister.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitForEachRefSubcommandConstant, gitFormatFlagConstant, gitForEachRefFormatConstant, gitRefsNamespaceConstant},
		WorkingDirectory: repositoryRoot,
	})
	if executionError != nil {
		return nil, fmt.Errorf(refListingFailureTemplateConstant, executionError)
	}

	listingLines := strings.Split(executionResult.StandardOutput, "\n")
	references := make([]Reference, 0, len(listingLines))
	for _, listingLine := range listingLines {
		trimmedLine := strings.TrimSpace(listingLine)
		if len(trimmedLine) == 0 {
			continue
		}

		lineFields := strings.Split(trimmedLine, refListingFieldSeparatorConstant)
		if len(lineFields) != refListingFieldCountConstant {
			lister.logger.Debug(malformedLineMessageConstant, zap.String(logFieldLineConstant, trimmedLine))
			continue
		}

		commit := lineFields[0]
		refname := lineFields[1]

		creationDate, dateParseError := time.Parse(creatordateLayoutConstant, lineFields[2])
		if dateParseError != nil {
			return nil, fmt.Errorf(creatordateParseErrorTemplateConstant, lineFields[2], refname, dateParseError)
		}

		source, name, grammarMatched := ParseRefname(refname)
		if !grammarMatched {
			lister.logger.Debug(unrecognizedRefnameMessageConstant, zap.String(logFieldRefnameConstant, refname))
			continue
		}

		references = append(references, Reference{
			Name:         name,
			Commit:       commit,
			Source:       source,
			IsRemote:     strings.HasPrefix(source, remoteSourcePrefixConstant),
			Refname:      refname,
			CreationDate: creationDate,
		})
	}

	return references, nil
}
