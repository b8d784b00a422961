package refs

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

const (
	anchoredPatternTemplateConstant  = "^(?:%s)"
	invalidPatternTemplateConstant   = "invalid %s whitelist pattern %q: %w"
	tagPatternKindLabelConstant      = "tag"
	branchPatternKindLabelConstant   = "branch"
	remotePatternKindLabelConstant   = "remote"
	referenceExcludedMessageConstant = "skipping reference excluded by whitelist policy"
	logFieldFilterRefnameConstant    = "refname"
	logFieldExclusionReasonConstant  = "reason"
)

// ExclusionReason identifies which decision-table rule rejected a reference.
type ExclusionReason string

// Exclusion reasons surfaced in debug diagnostics.
const (
	ExclusionReasonNone              ExclusionReason = ""
	ExclusionReasonTagWhitelist      ExclusionReason = "tag name does not match the tag whitelist"
	ExclusionReasonBranchWhitelist   ExclusionReason = "branch name does not match the branch whitelist"
	ExclusionReasonRemoteWhitelist   ExclusionReason = "remote name does not match the remote whitelist"
	ExclusionReasonUnsupportedSource ExclusionReason = "reference is not a branch or tag"
)

// FilterDecision captures the outcome of evaluating one reference.
type FilterDecision struct {
	Included bool
	Reason   ExclusionReason
}

// WhitelistPatterns carries the three optional inclusion patterns. An empty
// string means the pattern is not configured, which excludes the
// corresponding reference class entirely.
type WhitelistPatterns struct {
	Tag    string
	Branch string
	Remote string
}

// WhitelistFilter applies whitelist-pattern policy per reference namespace.
type WhitelistFilter struct {
	tagPattern    *regexp.Regexp
	branchPattern *regexp.Regexp
	remotePattern *regexp.Regexp
	logger        *zap.Logger
}

// NewWhitelistFilter compiles the configured patterns. Matching is anchored at
// the start of the candidate string but does not require consuming all of it,
// mirroring conventional match-at-start semantics.
func NewWhitelistFilter(patterns WhitelistPatterns, logger *zap.Logger) (*WhitelistFilter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	tagPattern, tagCompileError := compileAnchoredPattern(patterns.Tag, tagPatternKindLabelConstant)
	if tagCompileError != nil {
		return nil, tagCompileError
	}
	branchPattern, branchCompileError := compileAnchoredPattern(patterns.Branch, branchPatternKindLabelConstant)
	if branchCompileError != nil {
		return nil, branchCompileError
	}
	remotePattern, remoteCompileError := compileAnchoredPattern(patterns.Remote, remotePatternKindLabelConstant)
	if remoteCompileError != nil {
		return nil, remoteCompileError
	}

	return &WhitelistFilter{
		tagPattern:    tagPattern,
		branchPattern: branchPattern,
		remotePattern: remotePattern,
		logger:        logger,
	}, nil
}

func compileAnchoredPattern(pattern string, kindLabel string) (*regexp.Regexp, error) {
	trimmedPattern := strings.TrimSpace(pattern)
	if len(trimmedPattern) == 0 {
		return nil, nil
	}
	compiledPattern, compileError := regexp.Compile(fmt.Sprintf(anchoredPatternTemplateConstant, trimmedPattern))
	if compileError != nil {
		return nil, fmt.Errorf(invalidPatternTemplateConstant, kindLabel, pattern, compileError)
	}
	return compiledPattern, nil
}

// Evaluate runs the decision table for a single reference. The table is keyed
// by the reference's namespace:
//
//	tags:    tag whitelist configured AND tag name matches
//	heads:   branch whitelist configured AND branch name matches
//	remotes: remote whitelist matches the remote segment AND branch
//	         whitelist matches the local name (both must be configured)
//	other:   always excluded
func (filter *WhitelistFilter) Evaluate(reference Reference) FilterDecision {
	switch reference.Kind() {
	case SourceKindTag:
		return filter.evaluateTag(reference)
	case SourceKindLocalBranch:
		return filter.evaluateLocalBranch(reference)
	case SourceKindRemoteBranch:
		return filter.evaluateRemoteBranch(reference)
	default:
		return FilterDecision{Included: false, Reason: ExclusionReasonUnsupportedSource}
	}
}

func (filter *WhitelistFilter) evaluateTag(reference Reference) FilterDecision {
	if !patternMatches(filter.tagPattern, reference.Name) {
		return FilterDecision{Included: false, Reason: ExclusionReasonTagWhitelist}
	}
	return FilterDecision{Included: true}
}

func (filter *WhitelistFilter) evaluateLocalBranch(reference Reference) FilterDecision {
	if !patternMatches(filter.branchPattern, reference.Name) {
		return FilterDecision{Included: false, Reason: ExclusionReasonBranchWhitelist}
	}
	return FilterDecision{Included: true}
}

func (filter *WhitelistFilter) evaluateRemoteBranch(reference Reference) FilterDecision {
	if !patternMatches(filter.remotePattern, reference.RemoteName()) {
		return FilterDecision{Included: false, Reason: ExclusionReasonRemoteWhitelist}
	}
	if !patternMatches(filter.branchPattern, reference.Name) {
		return FilterDecision{Included: false, Reason: ExclusionReasonBranchWhitelist}
	}
	return FilterDecision{Included: true}
}

// patternMatches treats an unconfigured pattern as a refusal: every reference
// class is filtered fail-closed.
func patternMatches(compiledPattern *regexp.Regexp, candidate string) bool {
	if compiledPattern == nil {
		return false
	}
	return compiledPattern.MatchString(candidate)
}

// Filter returns the references that survive the decision table, in encounter
// order, logging one debug line per exclusion.
func (filter *WhitelistFilter) Filter(references []Reference) []Reference {
	includedReferences := make([]Reference, 0, len(references))
	for _, reference := range references {
		decision := filter.Evaluate(reference)
		if !decision.Included {
			filter.logger.Debug(
				referenceExcludedMessageConstant,
				zap.String(logFieldFilterRefnameConstant, reference.Refname),
				zap.String(logFieldExclusionReasonConstant, string(decision.Reason)),
			)
			continue
		}
		includedReferences = append(includedReferences, reference)
	}
	return includedReferences
}
