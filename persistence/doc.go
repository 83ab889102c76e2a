// Package persistence saves table arrays to a blob store and loads them back.
//
// A snapshot lives under a caller-chosen prefix:
//
//	<prefix>/CURRENT                 pointer to the live generation's manifest
//	<prefix>/<gen>/MANIFEST          codec-encoded Manifest
//	<prefix>/<gen>/<n>.arr           one blob per array
//
// Every array blob starts with a fixed header followed by a sequence of
// blocks, each framed as [raw u32][compressed u32][data]. A compressed length
// of zero marks a block stored raw. The CRC32C of every blob is recorded in the
// manifest and verified on load.
//
// Writing CURRENT is the commit point. Blobs of the generation it replaced are
// removed afterwards; a failed save removes its own generation.
package persistence
