// Package classfile parses the parts of a JVM class file needed for
// line coverage: class name, source file and the line number tables of
// the methods.
package classfile

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

const Magic uint32 = 0xCAFEBABE

// Access flags
const (
	AccSynthetic uint16 = 0x1000
	AccBridge    uint16 = 0x0040
	AccInterface uint16 = 0x0200
	AccAbstract  uint16 = 0x0400
)

// Constant pool tags
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

var ErrNotClassFile = errors.New("not a class file")

type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16
	AccessFlags  uint16
	// Name is the internal name, e.g. com/example/App$Inner
	Name       string
	SuperName  string
	SourceFile string
	Methods    []*Method
}

// PackageName returns the internal name of the package, e.g. com/example.
func (c *ClassFile) PackageName() string {
	for i := len(c.Name) - 1; i >= 0; i-- {
		if c.Name[i] == '/' {
			return c.Name[:i]
		}
	}
	return ""
}

type Method struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	CodeLength  int
	// Lines holds the entries of all LineNumberTable attributes of
	// the method's Code attribute, sorted by start pc.
	Lines []LineNumber
}

func (m *Method) HasCode() bool {
	return m.CodeLength > 0
}

func (m *Method) IsSynthetic() bool {
	return m.AccessFlags&(AccSynthetic|AccBridge) != 0
}

type LineNumber struct {
	StartPC uint16
	Line    uint16
}

// IsClassFile returns true if b starts with the class file magic.
func IsClassFile(b []byte) bool {
	return len(b) >= 4 && binary.BigEndian.Uint32(b) == Magic
}

// Parse parses a class file.
func Parse(b []byte) (*ClassFile, error) {
	if !IsClassFile(b) {
		return nil, errors.WithStack(ErrNotClassFile)
	}
	p := &parser{buf: b, pos: 4}
	cf, err := p.parse()
	if err != nil {
		return nil, err
	}
	return cf, nil
}

type parser struct {
	buf  []byte
	pos  int
	err  error
	pool []cpEntry
}

type cpEntry struct {
	tag   byte
	utf8  string
	index uint16
}

func (p *parser) parse() (*ClassFile, error) {
	cf := &ClassFile{}
	cf.MinorVersion = p.u2()
	cf.MajorVersion = p.u2()

	p.readConstantPool()
	if p.err != nil {
		return nil, p.err
	}

	cf.AccessFlags = p.u2()
	cf.Name = p.className(p.u2())
	superIndex := p.u2()
	if superIndex != 0 {
		cf.SuperName = p.className(superIndex)
	}
	interfacesCount := int(p.u2())
	p.skip(2 * interfacesCount)

	// fields
	fieldsCount := int(p.u2())
	for i := 0; i < fieldsCount && p.err == nil; i++ {
		p.skip(6)
		p.skipAttributes()
	}

	methodsCount := int(p.u2())
	for i := 0; i < methodsCount && p.err == nil; i++ {
		cf.Methods = append(cf.Methods, p.readMethod())
	}

	attributesCount := int(p.u2())
	for i := 0; i < attributesCount && p.err == nil; i++ {
		name := p.utf8(p.u2())
		length := int(p.u4())
		if name == "SourceFile" && length == 2 {
			cf.SourceFile = p.utf8(p.u2())
		} else {
			p.skip(length)
		}
	}

	if p.err != nil {
		return nil, p.err
	}
	if cf.Name == "" {
		return nil, errors.New("class file without class name")
	}
	return cf, nil
}

func (p *parser) readConstantPool() {
	count := int(p.u2())
	p.pool = make([]cpEntry, count)
	for i := 1; i < count && p.err == nil; i++ {
		tag := p.u1()
		entry := cpEntry{tag: tag}
		switch tag {
		case tagUtf8:
			length := int(p.u2())
			entry.utf8 = string(p.bytes(length))
		case tagClass, tagString, tagMethodType, tagModule, tagPackage:
			entry.index = p.u2()
		case tagInteger, tagFloat, tagFieldref, tagMethodref, tagInterfaceMethodref,
			tagNameAndType, tagDynamic, tagInvokeDynamic:
			p.skip(4)
		case tagLong, tagDouble:
			p.skip(8)
		case tagMethodHandle:
			p.skip(3)
		default:
			p.fail(errors.Errorf("unknown constant pool tag %d at index %d", tag, i))
		}
		p.pool[i] = entry
		if tag == tagLong || tag == tagDouble {
			// 8-byte constants take up two entries
			i++
		}
	}
}

func (p *parser) readMethod() *Method {
	m := &Method{}
	m.AccessFlags = p.u2()
	m.Name = p.utf8(p.u2())
	m.Descriptor = p.utf8(p.u2())

	attributesCount := int(p.u2())
	for i := 0; i < attributesCount && p.err == nil; i++ {
		name := p.utf8(p.u2())
		length := int(p.u4())
		if name != "Code" {
			p.skip(length)
			continue
		}
		end := p.pos + length
		p.skip(4) // max_stack, max_locals
		m.CodeLength = int(p.u4())
		p.skip(m.CodeLength)
		exceptionTableLength := int(p.u2())
		p.skip(8 * exceptionTableLength)
		codeAttributesCount := int(p.u2())
		for j := 0; j < codeAttributesCount && p.err == nil; j++ {
			codeAttrName := p.utf8(p.u2())
			codeAttrLength := int(p.u4())
			if codeAttrName != "LineNumberTable" {
				p.skip(codeAttrLength)
				continue
			}
			tableLength := int(p.u2())
			for k := 0; k < tableLength && p.err == nil; k++ {
				m.Lines = append(m.Lines, LineNumber{StartPC: p.u2(), Line: p.u2()})
			}
		}
		if p.err == nil && p.pos != end {
			p.fail(errors.Errorf("malformed Code attribute of method %s", m.Name))
		}
	}
	sortLines(m.Lines)
	return m
}

func sortLines(lines []LineNumber) {
	// insertion sort, tables are short and almost always sorted already
	for i := 1; i < len(lines); i++ {
		for j := i; j > 0 && lines[j].StartPC < lines[j-1].StartPC; j-- {
			lines[j], lines[j-1] = lines[j-1], lines[j]
		}
	}
}

func (p *parser) skipAttributes() {
	count := int(p.u2())
	for i := 0; i < count && p.err == nil; i++ {
		p.skip(2)
		p.skip(int(p.u4()))
	}
}

func (p *parser) utf8(index uint16) string {
	if p.err != nil {
		return ""
	}
	if int(index) >= len(p.pool) || p.pool[index].tag != tagUtf8 {
		p.fail(errors.Errorf("invalid constant pool reference %d", index))
		return ""
	}
	return p.pool[index].utf8
}

func (p *parser) className(index uint16) string {
	if p.err != nil {
		return ""
	}
	if int(index) >= len(p.pool) || p.pool[index].tag != tagClass {
		p.fail(errors.Errorf("invalid class reference %d", index))
		return ""
	}
	return p.utf8(p.pool[index].index)
}

func (p *parser) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *parser) bytes(n int) []byte {
	if p.err != nil {
		return nil
	}
	if n < 0 || p.pos+n > len(p.buf) {
		p.fail(errors.Errorf("truncated class file at offset %d", p.pos))
		return nil
	}
	b := p.buf[p.pos : p.pos+n]
	p.pos += n
	return b
}

func (p *parser) skip(n int) {
	p.bytes(n)
}

func (p *parser) u1() byte {
	b := p.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (p *parser) u2() uint16 {
	b := p.bytes(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (p *parser) u4() uint32 {
	b := p.bytes(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}
