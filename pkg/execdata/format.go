package execdata

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"unicode/utf16"

	"github.com/pkg/errors"
)

// Block types and constants of the JaCoCo execution data format.
const (
	BlockHeader        byte = 0x01
	BlockSessionInfo   byte = 0x10
	BlockExecutionData byte = 0x11

	MagicNumber   uint16 = 0xC0C0
	FormatVersion uint16 = 0x1007
)

var ErrInvalidFormat = errors.New("invalid execution data file")

// dataInput reads the primitive types of the exec format. Multi-byte
// values are big-endian, strings are length prefixed modified UTF-8.
type dataInput struct {
	r *bufio.Reader
}

func (in *dataInput) readByte() (byte, error) {
	b, err := in.r.ReadByte()
	if err != nil {
		return 0, unexpectedEOF(err)
	}
	return b, nil
}

func (in *dataInput) readChar() (uint16, error) {
	var buf [2]byte
	_, err := io.ReadFull(in.r, buf[:])
	if err != nil {
		return 0, unexpectedEOF(err)
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func (in *dataInput) readLong() (uint64, error) {
	var buf [8]byte
	_, err := io.ReadFull(in.r, buf[:])
	if err != nil {
		return 0, unexpectedEOF(err)
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

func (in *dataInput) readUTF() (string, error) {
	length, err := in.readChar()
	if err != nil {
		return "", err
	}
	buf := make([]byte, length)
	_, err = io.ReadFull(in.r, buf)
	if err != nil {
		return "", unexpectedEOF(err)
	}
	return decodeModifiedUTF8(buf)
}

// readVarInt reads a varint with the range of a Java int.
func (in *dataInput) readVarInt() (int, error) {
	var value int64
	for shift := 0; shift < 35; shift += 7 {
		b, err := in.readByte()
		if err != nil {
			return 0, err
		}
		value |= int64(b&0x7F) << shift
		if b&0x80 == 0 {
			if value > math.MaxInt32 {
				return 0, errors.Wrapf(ErrInvalidFormat, "varint %d out of range", value)
			}
			return int(value), nil
		}
	}
	return 0, errors.Wrap(ErrInvalidFormat, "varint too long")
}

// maxPreallocatedProbes caps the capacity allocated up front, the
// length stored in the file is only trusted as far as bytes follow.
const maxPreallocatedProbes = 1 << 16

func (in *dataInput) readBooleanArray() ([]bool, error) {
	length, err := in.readVarInt()
	if err != nil {
		return nil, err
	}
	probes := make([]bool, 0, min(length, maxPreallocatedProbes))
	var buffer byte
	for i := 0; i < length; i++ {
		if i%8 == 0 {
			buffer, err = in.readByte()
			if err != nil {
				return nil, err
			}
		}
		probes = append(probes, buffer&0x01 != 0)
		buffer >>= 1
	}
	return probes, nil
}

func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return errors.WithStack(err)
}

type dataOutput struct {
	w   *bufio.Writer
	err error
}

func (out *dataOutput) writeByte(b byte) {
	if out.err != nil {
		return
	}
	out.err = out.w.WriteByte(b)
}

func (out *dataOutput) writeChar(v uint16) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	out.write(buf[:])
}

func (out *dataOutput) writeLong(v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	out.write(buf[:])
}

func (out *dataOutput) writeUTF(s string) {
	encoded := encodeModifiedUTF8(s)
	if len(encoded) > 0xFFFF {
		if out.err == nil {
			out.err = errors.Errorf("string too long for exec format: %d bytes", len(encoded))
		}
		return
	}
	out.writeChar(uint16(len(encoded)))
	out.write(encoded)
}

func (out *dataOutput) writeVarInt(v int) {
	for v&^0x7F != 0 {
		out.writeByte(byte(0x80 | v&0x7F))
		v >>= 7
	}
	out.writeByte(byte(v))
}

func (out *dataOutput) writeBooleanArray(values []bool) {
	out.writeVarInt(len(values))
	var buffer byte
	size := 0
	for _, v := range values {
		if v {
			buffer |= 0x01 << size
		}
		size++
		if size == 8 {
			out.writeByte(buffer)
			buffer = 0
			size = 0
		}
	}
	if size > 0 {
		out.writeByte(buffer)
	}
}

func (out *dataOutput) write(p []byte) {
	if out.err != nil {
		return
	}
	_, out.err = out.w.Write(p)
}

// decodeModifiedUTF8 decodes the string encoding used by Java's
// DataInput.readUTF.
func decodeModifiedUTF8(b []byte) (string, error) {
	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < 0x80:
			units = append(units, uint16(c))
			i++
		case c&0xE0 == 0xC0:
			if i+1 >= len(b) || b[i+1]&0xC0 != 0x80 {
				return "", errors.Wrap(ErrInvalidFormat, "malformed string")
			}
			units = append(units, uint16(c&0x1F)<<6|uint16(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0:
			if i+2 >= len(b) || b[i+1]&0xC0 != 0x80 || b[i+2]&0xC0 != 0x80 {
				return "", errors.Wrap(ErrInvalidFormat, "malformed string")
			}
			units = append(units, uint16(c&0x0F)<<12|uint16(b[i+1]&0x3F)<<6|uint16(b[i+2]&0x3F))
			i += 3
		default:
			return "", errors.Wrap(ErrInvalidFormat, "malformed string")
		}
	}
	return string(utf16.Decode(units)), nil
}

func encodeModifiedUTF8(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, 0, len(units))
	for _, u := range units {
		switch {
		case u >= 0x01 && u <= 0x7F:
			out = append(out, byte(u))
		case u <= 0x7FF:
			out = append(out, byte(0xC0|u>>6&0x1F), byte(0x80|u&0x3F))
		default:
			out = append(out, byte(0xE0|u>>12&0x0F), byte(0x80|u>>6&0x3F), byte(0x80|u&0x3F))
		}
	}
	return out
}
