package refs

import (
	"regexp"
	"strings"
	"time"
)

const (
	localBranchSourceNameConstant = "heads"
	tagSourceNameConstant         = "tags"
	remoteSourcePrefixConstant    = "remotes/"
)

// refnamePattern captures the fixed grammar refs/(heads|tags|remotes/<remote>)/<name>.
var refnamePattern = regexp.MustCompile(`^refs/(heads|tags|remotes/[^/]+)/(.+)$`)

// SourceKind classifies a reference by its namespace.
type SourceKind int

// Reference namespace classifications.
const (
	SourceKindUnknown SourceKind = iota
	SourceKindLocalBranch
	SourceKindTag
	SourceKindRemoteBranch
)

// Reference represents one named git ref eligible for version output.
//
// A Reference is immutable once constructed; SubmoduleCommit is populated by
// returning a new value through WithSubmoduleCommit, never by mutation, so
// resolved references can flow through concurrent exports safely.
type Reference struct {
	Name            string
	Commit          string
	Source          string
	IsRemote        bool
	SubmoduleCommit string
	Refname         string
	CreationDate    time.Time
}

// ParseRefname derives name and source from a fully-qualified refname. The
// boolean result reports whether the refname matches the supported grammar.
func ParseRefname(refname string) (source string, name string, matched bool) {
	submatches := refnamePattern.FindStringSubmatch(refname)
	if submatches == nil {
		return "", "", false
	}
	return submatches[1], submatches[2], true
}

// WithSubmoduleCommit returns a copy of the reference carrying the resolved
// submodule commit.
func (reference Reference) WithSubmoduleCommit(submoduleCommit string) Reference {
	updatedReference := reference
	updatedReference.SubmoduleCommit = submoduleCommit
	return updatedReference
}

// Kind reports the namespace classification derived from Source.
func (reference Reference) Kind() SourceKind {
	switch {
	case reference.Source == localBranchSourceNameConstant:
		return SourceKindLocalBranch
	case reference.Source == tagSourceNameConstant:
		return SourceKindTag
	case strings.HasPrefix(reference.Source, remoteSourcePrefixConstant):
		return SourceKindRemoteBranch
	default:
		return SourceKindUnknown
	}
}

// RemoteName returns the remote segment of a remote-tracking reference
// (the text after "remotes/"), or the empty string for other kinds.
func (reference Reference) RemoteName() string {
	if !strings.HasPrefix(reference.Source, remoteSourcePrefixConstant) {
		return ""
	}
	return strings.TrimPrefix(reference.Source, remoteSourcePrefixConstant)
}
