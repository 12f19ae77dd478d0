// Package testutil builds fixtures (class files, exec files, project
// layouts) for tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uriel-frankel/android-code-coverage/pkg/classfile"
	"github.com/uriel-frankel/android-code-coverage/pkg/execdata"
)

// Class describes a class file to assemble. Name is the internal name
// (com/example/App).
type Class struct {
	Name       string
	SourceFile string
	Methods    []Method
}

// Method describes a method of an assembled class. Every entry of Lines
// becomes one instruction with a line number table entry. A method
// without lines gets a body without line number table unless Abstract
// is set.
type Method struct {
	Name        string
	Descriptor  string
	AccessFlags uint16
	Lines       []uint16
	Abstract    bool
}

// ClassBytes assembles a minimal but valid class file.
func ClassBytes(c Class) []byte {
	pool := &constantPool{utf8: map[string]uint16{}, classes: map[string]uint16{}, next: 1}
	thisClass := pool.class(c.Name)
	superClass := pool.class("java/lang/Object")
	codeName := pool.str("Code")
	lineTableName := pool.str("LineNumberTable")
	var sourceFileName, sourceFile uint16
	if c.SourceFile != "" {
		sourceFileName = pool.str("SourceFile")
		sourceFile = pool.str(c.SourceFile)
	}

	methods := &bytes.Buffer{}
	for _, m := range c.Methods {
		desc := m.Descriptor
		if desc == "" {
			desc = "()V"
		}
		access := m.AccessFlags
		if m.Abstract {
			access |= classfile.AccAbstract
		}
		write(methods, access, pool.str(m.Name), pool.str(desc))
		if m.Abstract {
			write(methods, uint16(0))
			continue
		}

		// one nop per line and a final return
		code := make([]byte, len(m.Lines)+1)
		code[len(m.Lines)] = 0xB1

		lineTable := &bytes.Buffer{}
		if len(m.Lines) > 0 {
			write(lineTable, lineTableName, uint32(2+4*len(m.Lines)), uint16(len(m.Lines)))
			for pc, line := range m.Lines {
				write(lineTable, uint16(pc), line)
			}
		}

		codeAttr := &bytes.Buffer{}
		write(codeAttr, uint16(1), uint16(1), uint32(len(code)))
		codeAttr.Write(code)
		write(codeAttr, uint16(0)) // exception table
		if len(m.Lines) > 0 {
			write(codeAttr, uint16(1))
			codeAttr.Write(lineTable.Bytes())
		} else {
			write(codeAttr, uint16(0))
		}

		write(methods, uint16(1), codeName, uint32(codeAttr.Len()))
		methods.Write(codeAttr.Bytes())
	}

	out := &bytes.Buffer{}
	write(out, classfile.Magic, uint16(0), uint16(52))
	write(out, pool.next)
	out.Write(pool.buf.Bytes())
	write(out, uint16(0x21), thisClass, superClass)
	write(out, uint16(0)) // interfaces
	write(out, uint16(0)) // fields
	write(out, uint16(len(c.Methods)))
	out.Write(methods.Bytes())
	if c.SourceFile != "" {
		write(out, uint16(1), sourceFileName, uint32(2), sourceFile)
	} else {
		write(out, uint16(0))
	}
	return out.Bytes()
}

// WriteClassFile writes the assembled class below dir, at the path
// derived from its name, and returns the path and the class id.
func WriteClassFile(t *testing.T, dir string, c Class) (string, uint64) {
	t.Helper()
	b := ClassBytes(c)
	path := filepath.Join(dir, filepath.FromSlash(c.Name)+".class")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, b, 0o644))
	return path, classfile.ClassID(b)
}

// WriteExecFile writes an exec file with the given sessions and data.
func WriteExecFile(t *testing.T, path string, sessions []execdata.SessionInfo, data ...*execdata.ExecutionData) {
	t.Helper()
	store := execdata.NewStore()
	for _, d := range data {
		require.NoError(t, store.Put(d))
	}
	buf := &bytes.Buffer{}
	require.NoError(t, execdata.WriteTo(buf, sessions, store))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

type constantPool struct {
	buf     bytes.Buffer
	utf8    map[string]uint16
	classes map[string]uint16
	next    uint16
}

func (p *constantPool) str(s string) uint16 {
	if i, ok := p.utf8[s]; ok {
		return i
	}
	write(&p.buf, uint8(1), uint16(len(s)))
	p.buf.WriteString(s)
	p.utf8[s] = p.next
	p.next++
	return p.utf8[s]
}

func (p *constantPool) class(name string) uint16 {
	if i, ok := p.classes[name]; ok {
		return i
	}
	nameIndex := p.str(name)
	write(&p.buf, uint8(7), nameIndex)
	p.classes[name] = p.next
	p.next++
	return p.classes[name]
}

func write(buf *bytes.Buffer, values ...any) {
	for _, v := range values {
		// writing to a bytes.Buffer doesn't fail
		_ = binary.Write(buf, binary.BigEndian, v)
	}
}
