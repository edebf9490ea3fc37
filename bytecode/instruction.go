package bytecode

// Op is the 6-bit instruction opcode.
type Op uint8

const (
	OpLoadReg  Op = iota // A = B  (copy register)
	OpLoadK              // A = const[BC]
	OpLoadUndef
	OpLoadNull
	OpLoadTrue
	OpLoadFalse
	OpAdd // A = B + C
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg
	OpNot
	OpEq
	OpStrictEq
	OpLt
	OpLe
	OpGetProp  // A = B[C]
	OpPutProp  // A[B] = C
	OpDelProp  // A = delete B[C]
	OpGetVar   // A = varname const[BC]
	OpPutVar   // varname const[B] = A
	OpDeclVar  // declare varname const[BC]
	OpNewObj   // A = {}
	OpNewArr   // A = []
	OpClosure  // A = closure(templates[BC])
	OpCall     // A = call(B, nargs=C)
	OpNewCall  // A = new B(nargs=C)
	OpTailCall // A = tailcall(B, nargs=C); reuses the current activation
	OpReturn   // return A
	OpJump     // pc += sABC (signed)
	OpJumpIfFalse
	OpJumpIfTrue
	OpTryPush        // push CatchTry catcher, catch-target = sBC
	OpTryPushFinally // push CatchFinally catcher, finally-target = sBC
	OpPushLabel      // push CatchLabel catcher, id = A, break-target = sBC
	OpSetContinueTarget // top-of-stack CatchLabel.ContinueTarget = sBC
	OpTryPop
	OpThrow
	OpLoadCaught // A = value bound by the CatchTry just landed in
	OpEndFin     // resume whatever completion was parked entering this finally
	OpBreak      // unwind to CatchLabel id=BC, jump its break-target
	OpContinue   // unwind to CatchLabel id=BC, jump its continue-target
	OpYield
	OpDelVar     // A = delete varname const[BC]
	OpCallSetupProp // A = B[C] (method); this for the next OpCall/OpNewCall at A is B
	OpCallSetupVar  // A = varname const[BC]; this resolved per identifier reference
	OpInitEnum   // A = enumerator over B's enumerable properties
	OpNextEnum   // A = has-next(B); if true, C = next key
	OpNop
)

// Instruction packs a 6-bit opcode with a 8/9/9-bit A/B/C register or
// immediate triple: bits [31:26]=op, [25:18]=A, [17:9]=B,
// [8:0]=C. Combined views: BC is the low 18 bits (B<<9|C), ABC is the
// low 26 bits. A B or C value >= 256 indexes the constant pool instead
// of a register (the "B/C >= 256 => constant" convention).
type Instruction uint32

const (
	constBias = 256
)

func Encode(op Op, a, b, c int) Instruction {
	return Instruction(uint32(op)<<26 | uint32(a&0xFF)<<18 | uint32(b&0x1FF)<<9 | uint32(c&0x1FF))
}

// EncodeBC packs a with a single 18-bit combined BC immediate/const
// index (used by OpLoadK, OpGetVar, OpDeclVar, OpClosure).
func EncodeBC(op Op, a, bc int) Instruction {
	return Instruction(uint32(op)<<26 | uint32(a&0xFF)<<18 | uint32(bc&0x3FFFF))
}

// EncodeABC packs a single 26-bit combined immediate (used by OpJump's
// signed branch offset).
func EncodeABC(op Op, abc int32) Instruction {
	return Instruction(uint32(op)<<26 | (uint32(abc) & 0x3FFFFFF))
}

func (i Instruction) Op() Op { return Op(i >> 26) }
func (i Instruction) A() int { return int((i >> 18) & 0xFF) }
func (i Instruction) B() int { return int((i >> 9) & 0x1FF) }
func (i Instruction) C() int { return int(i & 0x1FF) }

// BC returns the combined 18-bit B/C immediate field.
func (i Instruction) BC() int { return int(i & 0x3FFFF) }

// ABC returns the combined 26-bit immediate field as signed.
func (i Instruction) ABC() int32 {
	v := int32(i & 0x3FFFFFF)
	if v&(1<<25) != 0 {
		v -= 1 << 26
	}
	return v
}

// IsConst reports whether a decoded B or C operand indexes the constant
// pool rather than a register.
func IsConst(operand int) bool { return operand >= constBias }

// ConstIndex converts a >= constBias operand to a constant-pool index.
func ConstIndex(operand int) int { return operand - constBias }
