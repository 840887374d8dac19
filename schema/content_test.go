package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testResolver(members map[string][]string) symbolResolver {
	return func(token string) (func(string) bool, []string, error) {
		if ms, ok := members[token]; ok {
			set := make(map[string]bool, len(ms))
			for _, m := range ms {
				set[m] = true
			}
			return func(t string) bool { return set[t] }, ms, nil
		}
		return nil, nil, newCompileError("unknown token %q", token)
	}
}

func TestContentExprConcatAndAlt(t *testing.T) {
	resolve := testResolver(map[string][]string{
		"para":  {"para"},
		"image": {"image"},
	})
	cm, err := compileContentExpr("para image", resolve)
	require.NoError(t, err)
	require.True(t, cm.Matches([]string{"para", "image"}))
	require.False(t, cm.Matches([]string{"para"}))
	require.False(t, cm.Matches([]string{"image", "para"}))
	require.False(t, cm.AcceptsEmpty())

	cm2, err := compileContentExpr("para | image", resolve)
	require.NoError(t, err)
	require.True(t, cm2.Matches([]string{"para"}))
	require.True(t, cm2.Matches([]string{"image"}))
	require.False(t, cm2.Matches([]string{"para", "image"}))
}

func TestContentExprQuantifiers(t *testing.T) {
	resolve := testResolver(map[string][]string{"page": {"page"}})

	star, err := compileContentExpr("page*", resolve)
	require.NoError(t, err)
	require.True(t, star.AcceptsEmpty())
	require.True(t, star.Matches([]string{}))
	require.True(t, star.Matches([]string{"page", "page", "page"}))

	plus, err := compileContentExpr("page+", resolve)
	require.NoError(t, err)
	require.False(t, plus.AcceptsEmpty())
	require.True(t, plus.Matches([]string{"page"}))
	require.True(t, plus.Matches([]string{"page", "page"}))
	require.False(t, plus.Matches([]string{}))

	opt, err := compileContentExpr("page?", resolve)
	require.NoError(t, err)
	require.True(t, opt.Matches([]string{}))
	require.True(t, opt.Matches([]string{"page"}))
	require.False(t, opt.Matches([]string{"page", "page"}))

	rng, err := compileContentExpr("page{2,3}", resolve)
	require.NoError(t, err)
	require.False(t, rng.Matches([]string{"page"}))
	require.True(t, rng.Matches([]string{"page", "page"}))
	require.True(t, rng.Matches([]string{"page", "page", "page"}))
	require.False(t, rng.Matches([]string{"page", "page", "page", "page"}))

	open, err := compileContentExpr("page{2,}", resolve)
	require.NoError(t, err)
	require.False(t, open.Matches([]string{"page"}))
	require.True(t, open.Matches([]string{"page", "page"}))
	require.True(t, open.Matches([]string{"page", "page", "page", "page", "page"}))
}

func TestContentExprGroupsAndValidNext(t *testing.T) {
	resolve := testResolver(map[string][]string{
		"block": {"para", "image"},
		"para":  {"para"},
		"image": {"image"},
	})
	cm, err := compileContentExpr("block*", resolve)
	require.NoError(t, err)
	require.True(t, cm.Matches([]string{"para", "image", "para"}))

	start, ok := cm.ValidNextTypes(nil)
	require.True(t, ok)
	require.ElementsMatch(t, []string{"para", "image"}, start)
}

func TestContentExprEmpty(t *testing.T) {
	resolve := testResolver(nil)
	cm, err := compileContentExpr("", resolve)
	require.NoError(t, err)
	require.True(t, cm.AcceptsEmpty())
	require.False(t, cm.Matches([]string{"anything"}))
}

func TestContentExprMalformed(t *testing.T) {
	resolve := testResolver(map[string][]string{"para": {"para"}})
	_, err := compileContentExpr("(para", resolve)
	require.Error(t, err)
}

func TestContentExprUnknownType(t *testing.T) {
	resolve := testResolver(map[string][]string{"para": {"para"}})
	_, err := compileContentExpr("page+", resolve)
	require.Error(t, err)
}
