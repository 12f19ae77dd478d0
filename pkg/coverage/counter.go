// Package coverage contains the coverage model produced by the analysis:
// a bundle of packages, classes, methods and source files, each with
// counters, and line level coverage.
package coverage

import "fmt"

// Counter counts missed and covered items of one entity.
type Counter struct {
	Missed  int
	Covered int
}

func (c Counter) Total() int {
	return c.Missed + c.Covered
}

// Ratio returns the covered ratio in [0, 1]. Empty counters have a
// ratio of 0; use Total to tell them apart from uncovered ones.
func (c Counter) Ratio() float64 {
	if c.Total() == 0 {
		return 0
	}
	return float64(c.Covered) / float64(c.Total())
}

func (c Counter) Add(o Counter) Counter {
	return Counter{Missed: c.Missed + o.Missed, Covered: c.Covered + o.Covered}
}

func (c Counter) Status() Status {
	switch {
	case c.Total() == 0:
		return Empty
	case c.Covered == 0:
		return NotCovered
	case c.Missed == 0:
		return FullyCovered
	default:
		return PartlyCovered
	}
}

func (c Counter) String() string {
	return fmt.Sprintf("%d/%d", c.Covered, c.Total())
}

// Status of a line or counter. The values are chosen so that combining
// two statuses is a bitwise OR.
type Status int

const (
	Empty         Status = 0x00
	NotCovered    Status = 0x01
	FullyCovered  Status = 0x02
	PartlyCovered Status = 0x03
)

func (s Status) String() string {
	switch s {
	case NotCovered:
		return "nc"
	case FullyCovered:
		return "fc"
	case PartlyCovered:
		return "pc"
	default:
		return ""
	}
}

// Entity is the kind of item a counter counts.
type Entity int

const (
	EntityInstruction Entity = iota
	EntityBranch
	EntityLine
	EntityMethod
	EntityClass
)

// Entities lists all entities in report order.
var Entities = []Entity{EntityInstruction, EntityBranch, EntityLine, EntityMethod, EntityClass}

func (e Entity) String() string {
	switch e {
	case EntityInstruction:
		return "INSTRUCTION"
	case EntityBranch:
		return "BRANCH"
	case EntityLine:
		return "LINE"
	case EntityMethod:
		return "METHOD"
	case EntityClass:
		return "CLASS"
	}
	return fmt.Sprintf("Entity(%d)", int(e))
}

// Counters holds one counter per entity.
type Counters struct {
	Instruction Counter
	Branch      Counter
	Line        Counter
	Method      Counter
	Class       Counter
}

func (c Counters) Get(e Entity) Counter {
	switch e {
	case EntityInstruction:
		return c.Instruction
	case EntityBranch:
		return c.Branch
	case EntityLine:
		return c.Line
	case EntityMethod:
		return c.Method
	case EntityClass:
		return c.Class
	}
	return Counter{}
}

func (c Counters) Add(o Counters) Counters {
	return Counters{
		Instruction: c.Instruction.Add(o.Instruction),
		Branch:      c.Branch.Add(o.Branch),
		Line:        c.Line.Add(o.Line),
		Method:      c.Method.Add(o.Method),
		Class:       c.Class.Add(o.Class),
	}
}
