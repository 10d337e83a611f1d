package engine

import (
	"fmt"

	"github.com/agenthands/nexpr/pkg/vm"
)

// Config holds the fixed capacities of the pipeline's scratch buffers.
type Config struct {
	TokenCapacity int // lexer and postfix token buffers
	CodeCapacity  int // bytecode bytes
	StackDepth    int // machine values
	CacheSize     int // compiled programs kept by source; 0 disables
}

// DefaultConfig returns the capacities used by CompileAndRun.
func DefaultConfig() Config {
	return Config{
		TokenCapacity: 256,
		CodeCapacity:  1024,
		StackDepth:    vm.StackDepth,
		CacheSize:     128,
	}
}

// Validate checks that every capacity is usable.
func (c Config) Validate() error {
	if c.TokenCapacity <= 0 {
		return fmt.Errorf("engine: token capacity must be positive, got %d", c.TokenCapacity)
	}
	if c.CodeCapacity <= 0 {
		return fmt.Errorf("engine: code capacity must be positive, got %d", c.CodeCapacity)
	}
	if c.StackDepth <= 0 {
		return fmt.Errorf("engine: stack depth must be positive, got %d", c.StackDepth)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("engine: cache size must not be negative, got %d", c.CacheSize)
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("Config{tokens:%d, code:%d, stack:%d, cache:%d}",
		c.TokenCapacity, c.CodeCapacity, c.StackDepth, c.CacheSize)
}
