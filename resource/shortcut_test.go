package resource

import (
	"encoding/binary"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/require"
)

func iconEnvironmentBlock(ansi, unicode string) []byte {
	block := make([]byte, iconEnvironmentSize)
	binary.LittleEndian.PutUint32(block[0:4], iconEnvironmentSize)
	binary.LittleEndian.PutUint32(block[4:8], iconEnvironmentSignature)
	copy(block[8:268], ansi)
	for i, value := range utf16.Encode([]rune(unicode)) {
		binary.LittleEndian.PutUint16(block[268+2*i:], value)
	}
	return block
}

func TestFromIconEnvironment(t *testing.T) {
	t.Setenv("ICONDIR_ROOT", "/windows")

	descriptor, err := FromIconEnvironment(iconEnvironmentBlock(`ignored.dll`, `%ICONDIR_ROOT%\shell32.dll`), -21)
	require.NoError(t, err)
	require.Equal(t, `/windows\shell32.dll`, descriptor.File)
	require.Equal(t, uint32(21), descriptor.ID)
	require.Equal(t, KindResourceID, descriptor.Kind())

	descriptor, err = FromIconEnvironment(iconEnvironmentBlock(`imageres.dll`, ""), 2)
	require.NoError(t, err)
	require.Equal(t, "imageres.dll", descriptor.File)
	require.Equal(t, KindIndex, descriptor.Kind())
}

func TestFromIconEnvironmentErrors(t *testing.T) {
	_, err := FromIconEnvironment(make([]byte, 10), 0)
	require.ErrorIs(t, err, ErrInvalidBlock)

	block := iconEnvironmentBlock("a.dll", "")
	binary.LittleEndian.PutUint32(block[4:8], 0xa0000001)
	_, err = FromIconEnvironment(block, 0)
	require.ErrorIs(t, err, ErrInvalidBlock)

	_, err = FromIconEnvironment(iconEnvironmentBlock("", ""), 0)
	require.ErrorIs(t, err, ErrInvalidBlock)
}
