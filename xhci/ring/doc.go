// Package ring implements the xHCI Transfer Request Block rings shared
// between the driver and the host controller.
//
// A ring is a fixed array of 16-byte TRBs plus a cursor and a cycle state.
// Ownership of each entry is carried by its cycle bit: an entry belongs to
// the consumer only while its cycle bit equals the consumer's cycle state.
// This is the only synchronization between software and the controller.
//
//   - [Ring] is a producer ring (Command Ring, Transfer Rings). [Ring.Push]
//     writes a TRB and, on reaching the trailing Link TRB, hands the link to
//     the controller and flips the producer cycle.
//   - [EventRing] is a consumer ring (Event Ring). [EventRing.HasFront] is a
//     pure query; [EventRing.Pop] consumes one TRB and flips the expected
//     cycle when it wraps.
package ring
