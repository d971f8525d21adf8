package matcher

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mustRegex(t *testing.T, pattern string) *RegexMatch {
	t.Helper()
	m, err := NewRegexMatch(pattern)
	require.NoError(t, err)
	return m
}

func TestRegexMatchServerVersion(t *testing.T) {
	t.Parallel()

	m := mustRegex(t, `\D3\.6\.\d+`)

	pass := Evaluate(m, String("stdout", "db version v3.6.12"))
	require.True(t, pass.Passed())
	require.Equal(t, `stdout matches /\D3\.6\.\d+/`, pass.Diagnostic)

	fail := Evaluate(m, String("stdout", "db version v3.0.1"))
	require.Equal(t, Fail, fail.Status)
	require.Contains(t, fail.Diagnostic, `/\D3\.6\.\d+/`)
	require.Contains(t, fail.Diagnostic, `"db version v3.0.1"`)
}

func TestRegexMatchSearchesRatherThanFullMatch(t *testing.T) {
	t.Parallel()

	m := mustRegex(t, `MongoDB shell`)
	require.True(t, Evaluate(m, String("stdout", "MongoDB shell version v3.6.12\ngit version: abc\n")).Passed())
}

func TestRegexAnchorsApplyPerLine(t *testing.T) {
	t.Parallel()

	m := mustRegex(t, `^\d+$`)
	output := "MongoDB shell version v3.6.12\nconnecting to: mongodb://127.0.0.1:27017/admin\n2\n"

	require.True(t, Evaluate(m, String("stdout", output)).Passed())
	require.False(t, Evaluate(m, String("stdout", "count: 2\n")).Passed())
}

func TestRegexNotMatch(t *testing.T) {
	t.Parallel()

	m, err := NewRegexNotMatch(`not authorized`)
	require.NoError(t, err)

	require.True(t, Evaluate(m, String("stdout", "2\n")).Passed())

	verdict := Evaluate(m, String("stdout", "Error: not authorized on admin to execute command"))
	require.False(t, verdict.Passed())
	require.Contains(t, verdict.Diagnostic, `found "not authorized"`)
}

func TestInvalidPatternIsRejected(t *testing.T) {
	t.Parallel()

	_, err := NewRegexMatch(`(unclosed`)
	require.ErrorContains(t, err, "invalid pattern /(unclosed/")
	_, err = NewRegexNotMatch(`[z-a]`)
	require.Error(t, err)
}

func TestRegexMatchersBuiltAsLiterals(t *testing.T) {
	t.Parallel()

	match := &RegexMatch{Pattern: `3\.6`}
	require.True(t, Evaluate(match, String("stdout", "v3.6.1")).Passed())
	require.False(t, Evaluate(match, String("stdout", "v3.0.1")).Passed())

	notMatch := &RegexNotMatch{Pattern: `^\d+$`}
	require.True(t, Evaluate(notMatch, String("stdout", "none\n")).Passed())
	require.False(t, Evaluate(notMatch, String("stdout", "2\n")).Passed())

	broken := Evaluate(&RegexMatch{Pattern: `(unclosed`}, String("stdout", "x"))
	require.Equal(t, Fail, broken.Status)
	require.Contains(t, broken.Diagnostic, "invalid pattern /(unclosed/")
}

func TestEqualsIsByteForByte(t *testing.T) {
	t.Parallel()

	m := Equals{Expected: "always madvise [never]\n"}

	require.True(t, Evaluate(m, String("content", "always madvise [never]\n")).Passed())

	verdict := Evaluate(m, String("content", "always madvise [never]"))
	require.False(t, verdict.Passed())
	require.Equal(t, `expected content to equal "always madvise [never]\n", got: "always madvise [never]"`, verdict.Diagnostic)
	require.Contains(t, verdict.Detail, "--- expected")
	require.Contains(t, verdict.Detail, "+always madvise [never] (no newline at end)")
}

func TestEqualsAgainstMissingFileContent(t *testing.T) {
	t.Parallel()

	verdict := Evaluate(Equals{Expected: "always madvise [never]\n"}, String("content", ""))
	require.False(t, verdict.Passed())
}

func TestEqualsOnBooleanField(t *testing.T) {
	t.Parallel()

	require.True(t, Evaluate(Equals{Expected: "true"}, Bool("running", true)).Passed())
	require.False(t, Evaluate(Equals{Expected: "false"}, Bool("running", true)).Passed())

	verdict := Evaluate(Equals{Expected: "yes please"}, Bool("running", true))
	require.False(t, verdict.Passed())
	require.Contains(t, verdict.Diagnostic, "cannot inspect boolean field running")
}

func TestExitCodeMatchers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		matcher Matcher
		code    int
		want    Status
	}{
		{"equals zero passes", ExitCodeEquals{Expected: 0}, 0, Pass},
		{"equals zero fails on 127", ExitCodeEquals{Expected: 0}, 127, Fail},
		{"not equals zero passes on 1", ExitCodeNotEquals{Expected: 0}, 1, Pass},
		{"not equals zero fails on 0", ExitCodeNotEquals{Expected: 0}, 0, Fail},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			verdict := Evaluate(tt.matcher, Int("exit_code", tt.code))
			require.Equal(t, tt.want, verdict.Status, verdict.Diagnostic)
		})
	}

	verdict := Evaluate(ExitCodeEquals{Expected: 0}, Int("exit_code", 127))
	require.Equal(t, "expected exit_code to equal 0, got: 127", verdict.Diagnostic)
}

func TestBooleanEqualsServiceNotRunning(t *testing.T) {
	t.Parallel()

	verdict := Evaluate(BooleanEquals{Expected: true}, Bool("running", false))
	require.Equal(t, Fail, verdict.Status)
	require.Equal(t, "expected running to be true, got: false", verdict.Diagnostic)
}

func TestEvaluateRejectsKindMismatch(t *testing.T) {
	t.Parallel()

	verdict := Evaluate(ExitCodeEquals{Expected: 0}, String("stdout", "0"))
	require.False(t, verdict.Passed())
	require.Contains(t, verdict.Diagnostic, "cannot inspect string field stdout")

	verdict = Evaluate(nil, String("stdout", ""))
	require.False(t, verdict.Passed())
}

func TestMatcherDescriptions(t *testing.T) {
	t.Parallel()

	require.Equal(t, `match /\d+/`, mustRegex(t, `\d+`).String())
	require.Equal(t, `equal "a\n"`, Equals{Expected: "a\n"}.String())
	require.Equal(t, "not equal 0", ExitCodeNotEquals{}.String())
	require.Equal(t, "be true", BooleanEquals{Expected: true}.String())
}

func TestCompileReusesCachedPattern(t *testing.T) {
	t.Parallel()

	first, err := Compile(`cached\.\d+`)
	require.NoError(t, err)
	second, err := Compile(`cached\.\d+`)
	require.NoError(t, err)
	require.Same(t, first, second)
}
