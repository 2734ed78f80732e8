package writerseeker

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterSeeker(t *testing.T) {
	ws := &WriterSeeker{}

	n, err := ws.Write([]byte{1, 2, 3, 4})
	require.NoError(t, err)
	require.Equal(t, 4, n)

	// Overwrite in the middle.
	_, err = ws.Seek(1, io.SeekStart)
	require.NoError(t, err)
	_, err = ws.Write([]byte{9})
	require.NoError(t, err)

	// Append from the end.
	_, err = ws.Seek(0, io.SeekEnd)
	require.NoError(t, err)
	_, err = ws.Write([]byte{5})
	require.NoError(t, err)

	require.Equal(t, []byte{1, 9, 3, 4, 5}, ws.Bytes())
	require.Equal(t, 5, ws.Len())
}

func TestWriterSeekerSparse(t *testing.T) {
	ws := &WriterSeeker{}

	_, err := ws.Seek(2, io.SeekStart)
	require.NoError(t, err)
	_, err = ws.Write([]byte{7})
	require.NoError(t, err)

	require.Equal(t, []byte{0, 0, 7}, ws.Bytes())

	_, err = ws.Seek(-4, io.SeekStart)
	require.ErrorIs(t, err, ErrNegativeResultPos)
}
