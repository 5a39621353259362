package x64lift

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/x64lift/x64lift/internal/constprovider"
)

func TestLiftXorSelfZeroReturn(t *testing.T) {
	// xor rax, rax; ret
	code := []byte{0x48, 0x31, 0xC0, 0xC3}
	out, err := Lift(code, 0x140000000, "sub_140000000", Options{})
	require.NoError(t, err)
	require.Contains(t, out, "rax = 0;")
	require.Contains(t, out, "return ret;")
	require.Contains(t, out, "0x140000000:")
	require.Contains(t, out, "0x140000003:")
}

func TestLiftZeroStoreRunBecomesMemset(t *testing.T) {
	// xorps xmm0, xmm0; movups [rcx], xmm0; movups [rcx+16], xmm0; ret
	code := []byte{
		0x0F, 0x57, 0xC0,
		0x0F, 0x11, 0x01,
		0x0F, 0x11, 0x41, 0x10,
		0xC3,
	}
	out, err := Lift(code, 0x140000000, "sub_140000000", Options{})
	require.NoError(t, err)
	require.Contains(t, out, "memset((void*)(p1), 0, 32);")
	require.NotContains(t, out, "= 0;\n    *(")
}

func TestLiftRepMovsBecomesMemcpy(t *testing.T) {
	// rep movsb; ret
	code := []byte{0xF3, 0xA4, 0xC3}
	out, err := Lift(code, 0x140000000, "sub_140000000", Options{})
	require.NoError(t, err)
	require.Contains(t, out, "memcpy(rdi, rsi, rcx * 1);")
}

func TestLiftCmpJeProducesLabeledIfGoto(t *testing.T) {
	// cmp eax, 0; je +2; jmp +0; ret
	code := []byte{0x83, 0xF8, 0x00, 0x74, 0x02, 0xEB, 0x00, 0xC3}
	out, err := Lift(code, 0x140000000, "sub_140000000", Options{})
	require.NoError(t, err)
	require.Contains(t, out, "if (eax == 0) goto L1;")
	require.Contains(t, out, "L1:")
}

func TestLiftNamedReturnConstant(t *testing.T) {
	// mov eax, 0xC000000D; ret
	code := []byte{0xB8, 0x0D, 0x00, 0x00, 0xC0, 0xC3}
	provider := constprovider.NewStatic().AddEnum("NTSTATUS",
		constprovider.EnumMember{Name: "STATUS_INVALID_PARAMETER", Mask: 0xC000000D},
	)
	out, err := Lift(code, 0x140000000, "sub_140000000", Options{
		Constants:      provider,
		ReturnEnumType: "NTSTATUS",
	})
	require.NoError(t, err)
	require.Contains(t, out, "return STATUS_INVALID_PARAMETER;")
	require.NotContains(t, out, "return 0xC000000D")
}

func TestLiftPebAccess(t *testing.T) {
	// mov rax, gs:[0x60]; ret
	code := []byte{0x65, 0x48, 0x8B, 0x04, 0x25, 0x60, 0x00, 0x00, 0x00, 0xC3}
	out, err := Lift(code, 0x140000000, "sub_140000000", Options{})
	require.NoError(t, err)
	require.Contains(t, out, "peb = (uint8_t*)(__readgsqword(0x60));")
	require.Contains(t, out, "peb)")
	require.NotContains(t, out, "(gs:")
}

func TestLiftIsDeterministic(t *testing.T) {
	code := []byte{0x48, 0x31, 0xC0, 0xC3}
	out1, err1 := Lift(code, 0x140000000, "sub_140000000", Options{})
	out2, err2 := Lift(code, 0x140000000, "sub_140000000", Options{})
	require.NoError(t, err1)
	require.NoError(t, err2)
	require.Equal(t, out1, out2)
}

func TestLiftMalformedInputWrapsSentinel(t *testing.T) {
	code := []byte{0x0F}
	_, err := Lift(code, 0x1000, "sub_1000", Options{})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrMalformedInput)
}

func TestLiftParameterRewriteLeavesNoBareRegNames(t *testing.T) {
	// mov [rcx], rdx; ret -- p1/p2 must appear, not rcx/rdx
	code := []byte{0x48, 0x89, 0x11, 0xC3}
	out, err := Lift(code, 0x140000000, "sub_140000000", Options{})
	require.NoError(t, err)
	require.Contains(t, out, "p1")
	require.Contains(t, out, "p2")
	require.Contains(t, out, "*((uint64_t*)(p1)) = p2;")
}

func TestLiftPreambleComment(t *testing.T) {
	code := []byte{0xC3}
	out, err := Lift(code, 0x140000000, "sub_140000000", Options{PreambleComment: true})
	require.NoError(t, err)
	require.Contains(t, out, "/* "+defaultPreamble+" */")
}
