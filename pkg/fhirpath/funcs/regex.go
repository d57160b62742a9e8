package funcs

import (
	"regexp"
	"strings"

	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/eval"
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/types"
)

func init() {
	Register(FuncDef{
		Name:     "matches",
		MinArgs:  1,
		MaxArgs:  1,
		Category: eval.CategoryString,
		Pure:     true,
		Fn:       fnMatches,
	})
	Register(FuncDef{
		Name:     "replaceMatches",
		MinArgs:  2,
		MaxArgs:  2,
		Category: eval.CategoryString,
		Pure:     true,
		Fn:       fnReplaceMatches,
	})
}

// compilePattern compiles a FHIRPath regex: single-line mode where
// dot matches newlines, unless the pattern carries its own flags.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if !strings.HasPrefix(pattern, "(?") {
		pattern = "(?s)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, eval.NewEvalError(eval.ErrInvalidArguments, "invalid regular expression: %s", err)
	}
	return re, nil
}

// fnMatches tests the input string against a regular expression.
func fnMatches(_ *eval.Context, input types.Collection, args []types.Collection) (types.Collection, error) {
	s, ok, err := stringInput("matches", input)
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	pattern, ok, err := stringArg("matches", args[0])
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	re, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}
	return types.BoolCollection(re.MatchString(s.Value())), nil
}

// fnReplaceMatches replaces every regex match. $<n> group references
// in the replacement follow Go's Expand syntax; the common $n form is
// accepted as-is.
func fnReplaceMatches(_ *eval.Context, input types.Collection, args []types.Collection) (types.Collection, error) {
	s, ok, err := stringInput("replaceMatches", input)
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	pattern, ok, err := stringArg("replaceMatches", args[0])
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	replacement, ok, err := stringArg("replaceMatches", args[1])
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	re, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}
	return types.Collection{types.NewString(re.ReplaceAllString(s.Value(), replacement))}, nil
}
