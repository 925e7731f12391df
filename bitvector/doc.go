// Package bitvector implements the fixed-capacity bit sequence used as the
// key primitive for compact state encodings: word-backed storage, slice
// assignment of packed values, bitwise equality and a canonical byte form
// for hashing and persistence.
package bitvector
