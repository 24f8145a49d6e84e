/*
Package pvdata implements a self-describing structured data model: typed
field descriptors, value trees that follow them, and a compact binary codec.

We implement:

1. Introspection. A Field describes a scalar, a scalar array, a structure,
a union or an array of structures or unions. Fields are immutable and
interned by a Registry, so equal descriptors are the same pointer.

2. Data. A PVField holds the value for a Field. Every node of a tree gets a
depth-first offset, which bitsets use to name changed fields.

3. Shared arrays. Array values live in sharedvec buffers that are shared
between readers and copied on the first write.

4. Serialization. Fields and values have a binary encoding in either byte
order, with descriptor caching and a differential mode that only sends the
fields marked in a bitset.

5. Conversion. Scalars convert between all numeric types and strings, and
Copy moves values between compatible trees.

# Technical Details

**Offsets.**
A node's offset is its position in a depth-first walk of the whole tree. A
structure spans its own offset plus those of its descendants; every other
node spans one. Union values and array elements are separate roots numbered
from zero.

**Immutability.**
SetImmutable is sticky and, for containers, recursive. Writes to an
immutable node fail with ErrImmutable.

**Post handlers.**
Each node may carry one PostHandler, called after every successful write to
that node.

**Sizes.**
Lengths, selectors and counts are written as a compact size: one byte below
254, otherwise 254 followed by a 32-bit integer. 255 encodes the null size -1.
*/
package pvdata
