package elfrw

import (
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentify_NotELF(t *testing.T) {
	t.Parallel()

	for _, data := range [][]byte{nil, []byte("MZ\x90\x00"), []byte("\x7fEL"), []byte("\x7fELF")} {
		_, err := Identify(data)
		assert.ErrorIs(t, err, ErrNotELF)
	}
}

func TestIdentify_BadClass(t *testing.T) {
	t.Parallel()

	data := make([]byte, 64)
	copy(data, "\x7fELF")
	data[4] = 9
	_, err := Identify(data)
	assert.ErrorIs(t, err, ErrNotELF)
}

func TestIdentify_TestBinary(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("test binary is only ELF on linux")
	}

	exe, err := os.Executable()
	require.NoError(t, err)
	data, err := os.ReadFile(exe)
	require.NoError(t, err)

	info, err := Identify(data)
	require.NoError(t, err)
	assert.Contains(t, []int{32, 64}, info.Class)
	assert.Greater(t, info.Sections, 0)
	assert.Greater(t, info.Loadable, 0)
	assert.Contains(t, info.String(), "ELF ")
}

func TestInfoString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ELF 64-bit little-endian executable",
		(&Info{Class: 64, LittleEndian: true, Type: 2}).String())
	assert.Equal(t, "ELF 32-bit big-endian shared object",
		(&Info{Class: 32, Type: 3}).String())
	assert.Equal(t, "type 99", (&Info{Type: 99}).TypeName())
}
