//go:build nexprdebug

package vm_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/agenthands/nexpr/pkg/vm"
)

// panicMessage runs code and returns the recovered panic text, or "" if
// evaluation returned normally.
func panicMessage(code []byte) (msg string) {
	defer func() {
		if r := recover(); r != nil {
			msg = fmt.Sprint(r)
		}
	}()
	vm.NewMachine(8).Evaluate(code)
	return ""
}

func TestAssertLeftoverValues(t *testing.T) {
	// PUSH 1, PUSH 2, RET_FLOAT leaves 1 below the result
	var code []byte
	code = vm.AppendFloat(code, 1)
	code = vm.AppendFloat(code, 2)
	code = append(code, vm.OP_RET_FLOAT)

	msg := panicMessage(code)
	if !strings.Contains(msg, "1 values left on stack") {
		t.Errorf("expected leftover-value panic, got %q", msg)
	}
}

func TestAssertOperandTag(t *testing.T) {
	// (1 < 2) + 1
	var code []byte
	code = vm.AppendFloat(code, 1)
	code = vm.AppendFloat(code, 2)
	code = append(code, vm.OP_LT)
	code = vm.AppendFloat(code, 1)
	code = append(code, vm.OP_ADD, vm.OP_RET_FLOAT)

	msg := panicMessage(code)
	if !strings.Contains(msg, "operand tag bool, want float") {
		t.Errorf("expected tag panic, got %q", msg)
	}
}

func TestAssertReturnTag(t *testing.T) {
	var code []byte
	code = vm.AppendFloat(code, 1)
	code = append(code, vm.OP_RET_BOOL)

	msg := panicMessage(code)
	if !strings.Contains(msg, "operand tag float, want bool") {
		t.Errorf("expected return tag panic, got %q", msg)
	}
}

func TestAssertWellFormed(t *testing.T) {
	// cos(1 + 2) < 0 and 1 < 2
	var code []byte
	code = vm.AppendFloat(code, 1)
	code = vm.AppendFloat(code, 2)
	code = append(code, vm.OP_ADD)
	code = vm.AppendCall(code, 1)
	code = vm.AppendFloat(code, 0)
	code = append(code, vm.OP_LT)
	code = vm.AppendFloat(code, 1)
	code = vm.AppendFloat(code, 2)
	code = append(code, vm.OP_LT, vm.OP_AND, vm.OP_RET_BOOL)

	if msg := panicMessage(code); msg != "" {
		t.Fatalf("unexpected panic: %s", msg)
	}
	if !vm.NewMachine(8).Evaluate(code).Bool() {
		t.Errorf("expected true")
	}
}
