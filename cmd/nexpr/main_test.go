package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func invoke(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := realMain(append([]string{"nexpr"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestEval(t *testing.T) {
	code, out, _ := invoke("eval", "(4.5 + 10) * 3 + 5.5")
	assert.Equal(t, 0, code)
	assert.Equal(t, "49.0\n", out)

	code, out, _ = invoke("eval", "1", "<", "2")
	assert.Equal(t, 0, code)
	assert.Equal(t, "true\n", out)
}

func TestEvalError(t *testing.T) {
	code, out, errOut := invoke("eval", "sin(1 < 5)")
	assert.Equal(t, 1, code)
	assert.Empty(t, out)
	assert.Equal(t, "error: emit: incorrect type arguments at offset 4\nsin(1 < 5)\n    ^~~~~\n", errOut)

	code, out, errOut = invoke("-d", "eval", "1 2 +")
	assert.Equal(t, 1, code)
	assert.Empty(t, out)
	assert.Equal(t, "error: postfix: missing binary operand at offset 2\n1 2 +\n  ^\n", errOut)
}

func TestDisassemble(t *testing.T) {
	code, out, _ := invoke("-d", "eval", "cos(PI)")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "PUSH_FLOAT")
	assert.Contains(t, out, "CALL 1 (cos)")
	assert.Contains(t, out, "RET_FLOAT")
	assert.Contains(t, out, "-1.0\n")
}

func TestOptions(t *testing.T) {
	code, _, errOut := invoke("-t", "2", "eval", "1 + 2")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "buffer capacity exceeded")

	code, _, errOut = invoke("-s", "0", "eval", "1")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "stack depth must be positive")

	code, _, errOut = invoke("-c", "many", "eval", "1")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, `invalid -c parameter "many"`)

	code, out, _ := invoke("-h")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "usage: nexpr")

	code, _, _ = invoke()
	assert.Equal(t, 2, code)

	code, _, errOut = invoke("frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, `unknown command "frobnicate"`)
}

func TestRunFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exprs.txt")
	src := "# sample\n4.5 + 10 * 3 + 5.5\n\n1 < 2 and 2 < 1 or 1 < 2\n1 +\ncos(PI)\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	code, out, errOut := invoke("run", path)
	assert.Equal(t, 1, code)
	assert.Equal(t, "40.0\ntrue\n-1.0\n", out)
	assert.Contains(t, errOut, "not enough parameters")
	assert.Contains(t, errOut, path+":5\n")

	code, _, _ = invoke("run", filepath.Join(t.TempDir(), "missing"))
	assert.Equal(t, 1, code)
}
