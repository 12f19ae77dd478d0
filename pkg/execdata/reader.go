package execdata

import (
	"bufio"
	"io"
	"time"

	"github.com/pkg/errors"
)

// Reader deserializes execution data and session infos from a stream
// in the JaCoCo exec format and passes them to the callbacks.
type Reader struct {
	OnSessionInfo   func(info SessionInfo) error
	OnExecutionData func(data *ExecutionData) error

	in *dataInput
}

func NewReader(r io.Reader) *Reader {
	return &Reader{in: &dataInput{r: bufio.NewReader(r)}}
}

// Read reads all blocks until the end of the stream. The stream has to
// start with a header block; a stream may contain further header
// blocks when exec files were concatenated.
func (r *Reader) Read() error {
	first := true
	for {
		blockType, err := r.in.r.ReadByte()
		if errors.Is(err, io.EOF) {
			if first {
				return errors.Wrap(ErrInvalidFormat, "empty file")
			}
			return nil
		}
		if err != nil {
			return errors.WithStack(err)
		}
		if first && blockType != BlockHeader {
			return errors.WithStack(ErrInvalidFormat)
		}
		first = false

		err = r.readBlock(blockType)
		if err != nil {
			return err
		}
	}
}

func (r *Reader) readBlock(blockType byte) error {
	switch blockType {
	case BlockHeader:
		return r.readHeader()
	case BlockSessionInfo:
		return r.readSessionInfo()
	case BlockExecutionData:
		return r.readExecutionData()
	default:
		return errors.Wrapf(ErrInvalidFormat, "unknown block type %x", blockType)
	}
}

func (r *Reader) readHeader() error {
	magic, err := r.in.readChar()
	if err != nil {
		return err
	}
	if magic != MagicNumber {
		return errors.WithStack(ErrInvalidFormat)
	}
	version, err := r.in.readChar()
	if err != nil {
		return err
	}
	if version != FormatVersion {
		return errors.Errorf("incompatible execution data version %x, expected %x", version, FormatVersion)
	}
	return nil
}

func (r *Reader) readSessionInfo() error {
	id, err := r.in.readUTF()
	if err != nil {
		return err
	}
	start, err := r.in.readLong()
	if err != nil {
		return err
	}
	dump, err := r.in.readLong()
	if err != nil {
		return err
	}
	if r.OnSessionInfo == nil {
		return nil
	}
	return r.OnSessionInfo(SessionInfo{
		ID:    id,
		Start: time.UnixMilli(int64(start)),
		Dump:  time.UnixMilli(int64(dump)),
	})
}

func (r *Reader) readExecutionData() error {
	id, err := r.in.readLong()
	if err != nil {
		return err
	}
	name, err := r.in.readUTF()
	if err != nil {
		return err
	}
	probes, err := r.in.readBooleanArray()
	if err != nil {
		return err
	}
	if r.OnExecutionData == nil {
		return nil
	}
	return r.OnExecutionData(&ExecutionData{ID: id, Name: name, Probes: probes})
}
