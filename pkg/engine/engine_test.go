package engine

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/segmentio/fasthash/fnv1a"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/nexpr/pkg/compiler/diag"
	"github.com/agenthands/nexpr/pkg/core/value"
)

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := New(cfg)
	require.NoError(t, err)
	return e
}

// positioned extracts the diagnostic behind err.
func positioned(t *testing.T, err error) *diag.Error {
	t.Helper()
	var de *diag.Error
	require.True(t, errors.As(err, &de), "expected *diag.Error, got %v", err)
	return de
}

// test the reference scenarios
func TestScenarios(t *testing.T) {
	v, err := CompileAndRun("4.5 + 10 * 3 + 5.5")
	require.NoError(t, err)
	assert.Equal(t, value.TypeFloat, v.Type)
	assert.InDelta(t, 40.0, v.Float(), 1e-5)

	v, err = CompileAndRun("(4.5 + 10) * 3 + 5.5")
	require.NoError(t, err)
	assert.InDelta(t, 49.0, v.Float(), 1e-5)

	v, err = CompileAndRun("1 < 2 and 2 < 1 or 1 < 2")
	require.NoError(t, err)
	assert.Equal(t, value.TypeBool, v.Type)
	assert.True(t, v.Bool())

	v, err = CompileAndRun("cos(PI)")
	require.NoError(t, err)
	assert.InDelta(t, -1.0, v.Float(), 1e-6)

	v, err = CompileAndRun("sin(1 < 5)")
	assert.True(t, v.IsNone())
	de := positioned(t, err)
	assert.Equal(t, diag.IncorrectTypeArguments, de.Code)
	assert.Equal(t, 4, de.Offset)
	assert.Equal(t, 5, de.Length)

	v, err = CompileAndRun("sin UKNOWN_CONST)")
	assert.True(t, v.IsNone())
	assert.True(t, errors.Is(err, diag.MissingLeftParenthesis))
}

// test float results against hand evaluation
func TestArithmetic(t *testing.T) {
	cases := map[string]float32{
		"1":                 1,
		"-1":                -1,
		"--2":               2,
		"10 - 2 - 3":        5,
		"8 / 2 / 2":         2,
		"2 * 3 + 4":         10,
		"2 + 3 * 4":         14,
		"(2 + 3) * 4":       20,
		"-2 * 3":            -6,
		"2 * -3":            -6,
		"-2 + 3":            1,
		"10 / 4":            2.5,
		"2 * sin(PI / 2)":   2,
		"sin(PI / 2) * 2":   2,
		"cos(0) + cos(0)":   2,
		"1 - -1":            2,
		"cos(sin(0) * 2)":   1,
		"-(1 + 2) * 2":      -6,
		"1e3 / 10":          100,
		"TAU / 2 - PI + 1":  1,
		"((((1 + 1))))*(2)": 4,
	}
	for src, want := range cases {
		v, err := CompileAndRun(src)
		if assert.NoError(t, err, src) {
			assert.Equal(t, value.TypeFloat, v.Type, src)
			assert.InDelta(t, want, v.Float(), 1e-5, src)
		}
	}
}

// test boolean results and the precedence ladder
func TestPrecedenceLaw(t *testing.T) {
	cases := map[string]bool{
		"1 < 2":                      true,
		"2 < 1":                      false,
		"1 + 1 > 1":                  true, // + binds tighter than >
		"3 < 2 * 3 - 4":              false,
		"-1 < 0":                     true,
		"1 < 2 and 3 > 4":            false,
		"1 < 2 or 3 > 4":             true,
		"2 < 1 and 2 < 1 or 1 < 2":   true,  // (F and F) or T
		"1 < 2 or 2 < 1 and 2 < 1":   true,  // T or (F and F)
		"(1 < 2 or 2 < 1) and 2 < 1": false, // parentheses override
		"cos(PI) < 0 and sin(0) < 1": true,
	}
	for src, want := range cases {
		v, err := CompileAndRun(src)
		if assert.NoError(t, err, src) {
			assert.Equal(t, value.TypeBool, v.Type, src)
			assert.Equal(t, want, v.Bool(), src)
		}
	}
}

// test IEEE-754 division
func TestDivisionByZero(t *testing.T) {
	v, err := CompileAndRun("1 / 0")
	require.NoError(t, err)
	assert.True(t, math.IsInf(float64(v.Float()), 1))

	v, err = CompileAndRun("0 / 0 + 1")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(float64(v.Float())))

	v, err = CompileAndRun("1 / 0 > 1000")
	require.NoError(t, err)
	assert.True(t, v.Bool())
}

// test that every operator rejects the wrong operand type
func TestTypeSafetyLaw(t *testing.T) {
	srcs := []string{
		"(1 < 2) + 1", "1 + (1 < 2)",
		"(1 < 2) - 1", "(1 < 2) * 1", "(1 < 2) / 1",
		"-(1 < 2)",
		"(1 < 2) < 1", "1 > (1 < 2)",
		"1 and 1 < 2", "1 < 2 or 1",
		"sin(1 > 2)", "cos(1 < 2 and 2 < 3)",
	}
	for _, src := range srcs {
		v, err := CompileAndRun(src)
		assert.True(t, v.IsNone(), src)
		assert.True(t, errors.Is(err, diag.IncorrectTypeArguments), "%s: %v", src, err)
	}
}

// test errors from every stage
func TestStageErrors(t *testing.T) {
	cases := []struct {
		src  string
		code diag.Code
	}{
		{"1 $ 2", diag.UnexpectedChar},
		{"* 2", diag.MissingBinaryOperand},
		{"(1 + 2", diag.MissingRightParenthesis},
		{"1 + 2)", diag.MissingLeftParenthesis},
		{"foo(1)", diag.UnknownIdentifier},
		{"pi", diag.UnknownIdentifier},
		{"1 +", diag.NotEnoughParameters},
		{"", diag.NotEnoughParameters},
		{"   ", diag.NotEnoughParameters},
		{"1 2", diag.MissingBinaryOperand},
		{"1 2 +", diag.MissingBinaryOperand},
		{"1 sin", diag.MissingBinaryOperand},
		{"2 sin()", diag.MissingBinaryOperand},
		{"1 + 2 cos", diag.MissingBinaryOperand},
	}
	for _, c := range cases {
		v, err := CompileAndRun(c.src)
		assert.True(t, v.IsNone(), c.src)
		assert.True(t, errors.Is(err, c.code), "%q: got %v, want %v", c.src, err, c.code)
	}

	_, err := CompileAndRun("1 $ 2")
	assert.EqualError(t, err, "tokenize: unexpected character at offset 2")
	_, err = CompileAndRun("(1")
	assert.EqualError(t, err, "postfix: missing right parenthesis at offset 0")
	_, err = CompileAndRun("x")
	assert.EqualError(t, err, "emit: unknown identifier at offset 0")
	_, err = CompileAndRun("1 2 +")
	assert.EqualError(t, err, "postfix: missing binary operand at offset 2")
}

// test the capacity boundary of every buffer
func TestCapacityBoundary(t *testing.T) {
	src := "(1 + 2) * 3" // 7 tokens, 5 in postfix, 18 code bytes, depth 2

	exact := Config{TokenCapacity: 7, CodeCapacity: 18, StackDepth: 2}
	v, err := newTestEngine(t, exact).CompileAndRun(src)
	require.NoError(t, err)
	assert.Equal(t, float32(9), v.Float())

	for name, cfg := range map[string]Config{
		"tokens": {TokenCapacity: 6, CodeCapacity: 18, StackDepth: 2},
		"code":   {TokenCapacity: 7, CodeCapacity: 17, StackDepth: 2},
		"stack":  {TokenCapacity: 7, CodeCapacity: 18, StackDepth: 1},
	} {
		e := newTestEngine(t, cfg)
		for i := 0; i < 3; i++ {
			v, err := e.CompileAndRun(src)
			assert.True(t, v.IsNone(), name)
			assert.True(t, errors.Is(err, diag.BufferCapacityExceeded), "%s: %v", name, err)
		}
	}
}

// test repeated runs give identical results
func TestDeterminism(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	first, err := e.CompileAndRun("sin(1) * cos(2) + 3 / 7")
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		v, err := e.CompileAndRun("sin(1) * cos(2) + 3 / 7")
		require.NoError(t, err)
		assert.Equal(t, first, v)
	}
}

// cached reports whether src currently has a cache entry.
func cached(e *Engine, src string) bool {
	return e.lookup(fnv1a.HashString64(src), src) != nil
}

// test the compile cache
func TestCache(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CacheSize = 2
	e := newTestEngine(t, cfg)

	a, err := e.Compile("1 + 1")
	require.NoError(t, err)
	assert.True(t, cached(e, "1 + 1"))
	b, err := e.Compile("1 + 1")
	require.NoError(t, err)
	assert.Equal(t, a, b, "cache hit must return the same program")
	assert.NotSame(t, a, b)

	_, err = e.Compile("2 + 2")
	require.NoError(t, err)
	_, err = e.Compile("3 + 3")
	require.NoError(t, err)
	assert.Equal(t, 2, e.CacheLen())
	assert.False(t, cached(e, "1 + 1"), "oldest entry must have been evicted")
	assert.True(t, cached(e, "2 + 2"))
	assert.True(t, cached(e, "3 + 3"))

	// failures are not cached
	_, err = e.Compile("1 +")
	assert.Error(t, err)
	assert.Equal(t, 2, e.CacheLen())
}

// test that callers cannot corrupt cached programs
func TestCacheIsolation(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	a, err := e.Compile("2 * 3")
	require.NoError(t, err)
	for i := range a.Code {
		a.Code[i] = 0xFF
	}

	b, err := e.Compile("2 * 3")
	require.NoError(t, err)
	assert.Equal(t, float32(6), e.Run(b).Float())

	b.Code[0] = 0xFF
	c, err := e.Compile("2 * 3")
	require.NoError(t, err)
	assert.Equal(t, float32(6), e.Run(c).Float())
}

// test disabled cache
func TestCacheDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CacheSize = 0
	e := newTestEngine(t, cfg)

	a, err := e.Compile("1 + 1")
	require.NoError(t, err)
	b, err := e.Compile("1 + 1")
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, 0, e.CacheLen())
}

// test one program evaluated many times
func TestCompileThenRun(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	p, err := e.Compile("2 * PI")
	require.NoError(t, err)
	assert.Equal(t, value.TypeFloat, p.Result)
	assert.Equal(t, 2, p.MaxDepth)

	for i := 0; i < 5; i++ {
		assert.InDelta(t, 2*math.Pi, e.Run(p).Float(), 1e-5)
	}
}

// test concurrent use of one engine
func TestConcurrentUse(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	srcs := []string{"1 + 2", "cos(PI)", "1 < 2 and 2 < 3", "(4.5 + 10) * 3 + 5.5"}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				src := srcs[i%len(srcs)]
				_, err := e.CompileAndRun(src)
				assert.NoError(t, err, src)
			}
		}()
	}
	wg.Wait()
}

// test configuration validation
func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.TokenCapacity = 0
	_, err := New(bad)
	assert.EqualError(t, err, "engine: token capacity must be positive, got 0")

	bad = DefaultConfig()
	bad.CacheSize = -1
	assert.Error(t, bad.Validate())

	assert.Equal(t, "Config{tokens:256, code:1024, stack:64, cache:128}", DefaultConfig().String())
}

// test log level switching
func TestSetLogLevel(t *testing.T) {
	old := GetLogLevel()
	defer func() { log.Level = old }()

	assert.NoError(t, SetLogLevel("debug"))
	assert.Equal(t, logrus.DebugLevel, GetLogLevel())
	assert.Error(t, SetLogLevel("loud"))
	assert.Equal(t, logrus.DebugLevel, GetLogLevel())
}
