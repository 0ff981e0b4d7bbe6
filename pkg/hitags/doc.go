/*
Package hitags implements the reader-side and tag-side state machines of
a Hitag-S transponder engine: anticollision/select, mutual authentication
over a 48-bit stream cipher, and paged memory read/write, framed as raw
bit-level messages rather than byte-aligned ones.

This package models both peers of the exchange:

  - Reader: the active side. Drives Select, Authenticate, Read, Write and
    the challenge-sweep flow against a Transport.
  - Tag: the passive side. Dispatches an incoming frame purely by its bit
    length (there is no length prefix on the air) and replies according
    to its current state, memory contents and access-control bits.

# Byte order

Page 0 (the UID) is stored in TagImage exactly as it appears on the wire:
big-endian as transmitted. Internally the engine treats it as a raw
4-byte value and only byte-swaps at the one boundary that needs a
host-native integer — comparing a reader's Select UID against the tag's
stored UID. This mirrors the convention documented in the Hitag-S
reference implementation this engine is modeled on: on-storage
little-endian words, on-air big-endian bytes, reconciled by a single
BSWAP at the comparison site (see Tag.handleSelect).

# Frames

Transport exchanges whole frames of individual bits (see Frame in
codec.go), not bytes — command dispatch on the tag side keys off the
exact received bit count (5, 20, 40, 45 or 64), which is structural to
this protocol: there is no framing byte announcing which command was
sent. A Frame of any other length gets no reply.

# Cipher

The stream cipher (cipher.go) exposes only Init/NextByte. Its round
function is treated as an implementation detail behind that contract;
swap in a different core (any Hitag2-family keystream generator exposing
the same two operations) without touching reader.go or responder.go.

# Concurrency

Reader and Tag are both single-threaded, synchronous state machines with
no internal locking — exactly one top-level call (Select, Authenticate,
Read, Write, or the tag's HandleFrame) is ever in flight against a given
value at a time, matching the cooperative, non-preemptive loop this
protocol runs under on real hardware.
*/
package hitags
