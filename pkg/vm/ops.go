package vm

const (
	OP_PUSH_FLOAT uint8 = 0x02
	OP_ADD        uint8 = 0x10
	OP_SUB        uint8 = 0x11
	OP_MUL        uint8 = 0x12
	OP_DIV        uint8 = 0x13
	OP_NEG        uint8 = 0x14
	OP_LT         uint8 = 0x18
	OP_GT         uint8 = 0x19
	OP_AND        uint8 = 0x1A
	OP_OR         uint8 = 0x1B
	OP_CALL       uint8 = 0x22
	OP_RET_FLOAT  uint8 = 0x23
	OP_RET_BOOL   uint8 = 0x24
)

// Immediate widths in bytes.
const (
	FloatWidth = 4
	IndexWidth = 2
)
