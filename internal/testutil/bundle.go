package testutil

import (
	"time"

	"github.com/uriel-frankel/android-code-coverage/pkg/coverage"
	"github.com/uriel-frankel/android-code-coverage/pkg/execdata"
)

// Bundle returns a small bundle with two packages:
//
//	com/example/App.java    App (lines 3 covered, 5 missed, 6 covered)
//	                        App$Inner (line 10 missed)
//	com/example/util/Gen    no source file, line 1 missed
//	default package Main.java with Main (line 2 covered)
func Bundle() *coverage.Bundle {
	b := coverage.NewBuilder()
	for _, c := range []*coverage.Class{
		class(1, "com/example/App", "App.java", method("<init>", 3, true), method("run", 5, false, 6, true)),
		class(2, "com/example/App$Inner", "App.java", method("call", 10, false)),
		class(3, "com/example/util/Gen", "", method("gen", 1, false)),
		class(4, "Main", "Main.java", method("main", 2, true)),
	} {
		if err := b.AddClass(c); err != nil {
			panic(err)
		}
	}
	return b.Bundle("demo")
}

// Snapshot returns execution data matching Bundle.
func Snapshot() *execdata.Snapshot {
	loader := execdata.NewLoader()
	loader.Sessions().Add(execdata.SessionInfo{ID: "device-1", Start: time.UnixMilli(1_600_000_000_000), Dump: time.UnixMilli(1_600_000_060_000)})
	for _, d := range []*execdata.ExecutionData{
		{ID: 1, Name: "com/example/App", Probes: []bool{true, false, true}},
		{ID: 4, Name: "Main", Probes: []bool{true}},
		{ID: 9, Name: "com/example/Removed", Probes: []bool{true}},
	} {
		if err := loader.Store().Put(d); err != nil {
			panic(err)
		}
	}
	return loader.Freeze()
}

func class(id uint64, name, source string, methods ...*coverage.Method) *coverage.Class {
	c := coverage.NewClass(id, name, source, false)
	for _, m := range methods {
		c.AddMethod(m)
	}
	return c
}

// method creates a method from pairs of line number and hit flag.
func method(name string, lines ...any) *coverage.Method {
	m := coverage.NewMethod(name, "()V")
	for i := 0; i < len(lines); i += 2 {
		counter := coverage.Counter{Missed: 1}
		if lines[i+1].(bool) {
			counter = coverage.Counter{Covered: 1}
		}
		m.Increment(counter, coverage.Counter{}, lines[i].(int))
	}
	return m
}
