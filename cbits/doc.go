// Package cbits interprets measurement results over classical registers.
//
// A Layout lists the classical registers of a circuit in declaration order;
// their bits are concatenated into one combined memory vector where the
// first register occupies indices 0..w-1. Predicates written in a small
// notation select outcomes by bit value:
//
//	q[0]             bit 0 of register q is 1
//	q[0] == 0        bit 0 of register q is 0
//	[3] & !c[1]      absolute memory bit 3 set and c[1] clear
//	c == 5           register c holds the unsigned value 5 (c[0] is the LSB)
//	c != 0b101       same register, binary literal
//	(a[0] | b[0]) and not flag
//
// Connectives are & && and, | || or, ! ~ not; keywords are case-insensitive.
// AND binds tighter than OR.
//
// # Bit order
//
// Outcome strings are rendered by the result provider. The default
// LittleEndian order matches Qiskit-style count keys: memory bit 0 is the
// rightmost character and the first register is the rightmost group
// ("c1 c0"). Single spaces may separate the groups at register boundaries
// and are stripped before evaluation. Use Layout.WithOrder to
// switch to BigEndian when outcomes are written memory bit 0 first; the
// same Layout then drives parsing, formatting and evaluation.
package cbits
