package decode

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/arch/x86/x86asm"
)

func TestDecodeStopsAtReturn(t *testing.T) {
	// nop; nop; ret; nop (trailing nop must not be decoded)
	code := []byte{0x90, 0x90, 0xC3, 0x90}
	insts, err := Decode(code, 0x140000000, 0)
	require.NoError(t, err)
	require.Len(t, insts, 3)
	require.Equal(t, uint64(0x140000000), insts[0].IP)
	require.Equal(t, uint64(0x140000001), insts[1].IP)
	require.Equal(t, uint64(0x140000002), insts[2].IP)
	require.True(t, insts[2].IsReturn())
	require.Equal(t, x86asm.RET, insts[2].Inst.Op)
}

func TestDecodeRespectsMaxBytes(t *testing.T) {
	code := []byte{0x90, 0x90, 0x90, 0x90}
	insts, err := Decode(code, 0x1000, 2)
	require.NoError(t, err)
	require.Len(t, insts, 2)
}

func TestDecodeMalformedIsFatal(t *testing.T) {
	// 0x0F alone with nothing following is an incomplete two-byte opcode.
	code := []byte{0x0F}
	_, err := Decode(code, 0x1000, 0)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrMalformedInput)
}

func TestInstructionEnd(t *testing.T) {
	insts, err := Decode([]byte{0x90, 0xC3}, 0x2000, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(0x2001), insts[0].End())
}
