package pathutils_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	pathutils "github.com/refcast/refcast/internal/utils/path"
)

const (
	testHomeDirectoryConstant = "/home/builder"
)

func fixedHomeProvider() (string, error) {
	return testHomeDirectoryConstant, nil
}

func TestDirectoryPathSanitizerSanitize(testInstance *testing.T) {
	testCases := []struct {
		name          string
		candidatePath string
		expectedPath  string
	}{
		{name: "EmptyInputPassesThrough", candidatePath: "", expectedPath: ""},
		{name: "WhitespaceOnlyCollapsesToEmpty", candidatePath: "   ", expectedPath: ""},
		{name: "PlainPathIsCleaned", candidatePath: "/workspace//project/", expectedPath: "/workspace/project"},
		{name: "TildeExpandsToHome", candidatePath: "~/projects/site", expectedPath: filepath.Join(testHomeDirectoryConstant, "projects", "site")},
		{name: "BareTildeExpandsToHome", candidatePath: "~", expectedPath: testHomeDirectoryConstant},
		{name: "SurroundingWhitespaceIsTrimmed", candidatePath: "  ./build/output  ", expectedPath: "build/output"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			expander := pathutils.NewHomeExpanderWithProvider(fixedHomeProvider)
			sanitizer := pathutils.NewDirectoryPathSanitizerWithExpander(expander)
			require.Equal(testInstance, testCase.expectedPath, sanitizer.Sanitize(testCase.candidatePath))
		})
	}
}
