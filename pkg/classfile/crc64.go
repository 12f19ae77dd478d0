package classfile

import "hash/crc64"

var crcTable = crc64.MakeTable(crc64.ISO)

const (
	majorVersionJava8 = 52
	majorVersionJava9 = 53
)

// ClassID computes the identifier the JaCoCo agent records for a class:
// a CRC64 (ISO polynomial, no pre- or post-inversion) over the class
// file bytes. Java 9 class files are hashed as if they had the Java 8
// version number, the agent did the same for early Java 9 support.
func ClassID(b []byte) uint64 {
	if len(b) > 7 && b[6] == 0x00 && b[7] == majorVersionJava9 {
		sum := update(0, b[:7])
		sum = update(sum, []byte{majorVersionJava8})
		return update(sum, b[8:])
	}
	return update(0, b)
}

func update(sum uint64, b []byte) uint64 {
	for _, v := range b {
		sum = (sum >> 8) ^ crcTable[byte(sum)^v]
	}
	return sum
}
