package execdata

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

// Writer serializes execution data and session infos in the JaCoCo
// exec format. The header is written by NewWriter.
type Writer struct {
	out *dataOutput
}

func NewWriter(w io.Writer) *Writer {
	writer := &Writer{out: &dataOutput{w: bufio.NewWriter(w)}}
	writer.out.writeByte(BlockHeader)
	writer.out.writeChar(MagicNumber)
	writer.out.writeChar(FormatVersion)
	return writer
}

func (w *Writer) WriteSessionInfo(info SessionInfo) error {
	w.out.writeByte(BlockSessionInfo)
	w.out.writeUTF(info.ID)
	w.out.writeLong(uint64(info.Start.UnixMilli()))
	w.out.writeLong(uint64(info.Dump.UnixMilli()))
	return errors.WithStack(w.out.err)
}

func (w *Writer) WriteExecutionData(data *ExecutionData) error {
	w.out.writeByte(BlockExecutionData)
	w.out.writeLong(data.ID)
	w.out.writeUTF(data.Name)
	w.out.writeBooleanArray(data.Probes)
	return errors.WithStack(w.out.err)
}

// Flush writes buffered data to the underlying writer.
func (w *Writer) Flush() error {
	if w.out.err != nil {
		return errors.WithStack(w.out.err)
	}
	return errors.WithStack(w.out.w.Flush())
}
