// Package snapshot serializes a paused heap.Context into a Unix ar
// archive of named members, one per segment and map, each checksummed
// independently so a reader can tell a truncated or corrupted dump from
// a complete one before trusting it.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"
	"unsafe"

	"github.com/blakesmith/ar"
	"github.com/sigurn/crc16"

	"github.com/tinygo-org/heapgc/heap"
)

// crcTable is the CRC-16/CCITT-FALSE table; any member whose checksum
// doesn't match this table's CRC of the payload is flagged as corrupt.
var crcTable = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

// member names. Write emits memberHeader first, then the others in the
// order listed here.
const (
	memberGen1    = "gen1.bin"
	memberAgeMap  = "ageMap.bin"
	memberGen2    = "gen2.bin"
	memberHeapMap = "heapMap.bin"
	memberPageMap = "pageMap.bin"
	memberPtrMap  = "pointerMap.bin"
	memberHeader  = "header.bin"
)

// header is the fixed-size first member: word size, gen1's and gen2's
// capacity/position, and the tenure threshold the dump was taken under.
// Read decodes it into Heap.Header; member buffers are sized from each
// archive member's own length.
type header struct {
	BytesPerWord uint32
	Gen1Capacity uint64
	Gen1Position uint64
	Gen2Capacity uint64
	Gen2Position uint64
	TenureThresh uint64
}

// Heap is the in-memory result of reading a snapshot back: raw segment
// words plus the header they were captured under. It is read-only
// reference data — Read never reconstructs a live, collectible
// heap.Context, only the bytes a human or offline tool would want to
// inspect.
type Heap struct {
	Header  header
	Gen1    []uintptr
	AgeMap  []uintptr
	Gen2    []uintptr
	HeapMap []uintptr
	PageMap []uintptr
	PtrMap  []uintptr
}

// Write dumps ctx's current segments and card-table maps to w as an ar
// archive. ctx must not be collecting concurrently; this package assumes
// the stop-the-world caller has already paused the mutator.
func Write(w io.Writer, ctx *heap.Context) error {
	snap := ctx.Dump()

	aw := ar.NewWriter(w)
	if err := aw.WriteGlobalHeader(); err != nil {
		return fmt.Errorf("snapshot: writing archive header: %w", err)
	}

	hdr := header{
		BytesPerWord: uint32(heap.BytesPerWord),
		Gen1Capacity: uint64(snap.Gen1Capacity),
		Gen1Position: uint64(snap.Gen1Position),
		Gen2Capacity: uint64(snap.Gen2Capacity),
		Gen2Position: uint64(snap.Gen2Position),
		TenureThresh: uint64(snap.TenureThreshold),
	}

	headerBuf := &bytes.Buffer{}
	if err := binary.Write(headerBuf, binary.LittleEndian, hdr); err != nil {
		return fmt.Errorf("snapshot: encoding header: %w", err)
	}
	if err := writeMember(aw, memberHeader, headerBuf.Bytes()); err != nil {
		return err
	}

	for _, m := range []struct {
		name string
		data []uintptr
	}{
		{memberGen1, snap.Gen1},
		{memberAgeMap, snap.AgeMap},
		{memberGen2, snap.Gen2},
		{memberHeapMap, snap.HeapMap},
		{memberPageMap, snap.PageMap},
		{memberPtrMap, snap.PtrMap},
	} {
		if err := writeMember(aw, m.name, wordsToBytes(m.data)); err != nil {
			return err
		}
	}

	return nil
}

func writeMember(aw *ar.Writer, name string, payload []byte) error {
	checksum := crc16.Checksum(payload, crcTable)

	body := make([]byte, len(payload)+2)
	copy(body, payload)
	binary.LittleEndian.PutUint16(body[len(payload):], checksum)

	if err := aw.WriteHeader(&ar.Header{
		Name:    name,
		ModTime: time.Time{},
		Mode:    0644,
		Size:    int64(len(body)),
	}); err != nil {
		return fmt.Errorf("snapshot: writing %s header: %w", name, err)
	}
	if _, err := aw.Write(body); err != nil {
		return fmt.Errorf("snapshot: writing %s body: %w", name, err)
	}
	return nil
}

// Read parses an archive written by Write, verifying each member's
// checksum before decoding it.
func Read(r io.Reader) (*Heap, error) {
	reader := ar.NewReader(r)

	result := &Heap{}
	for {
		hdr, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("snapshot: reading archive: %w", err)
		}

		body := make([]byte, hdr.Size)
		if _, err := io.ReadFull(reader, body); err != nil {
			return nil, fmt.Errorf("snapshot: reading member %s: %w", hdr.Name, err)
		}
		if len(body) < 2 {
			return nil, fmt.Errorf("snapshot: member %s too short for checksum", hdr.Name)
		}

		payload, wantSum := body[:len(body)-2], binary.LittleEndian.Uint16(body[len(body)-2:])
		if got := crc16.Checksum(payload, crcTable); got != wantSum {
			return nil, fmt.Errorf("snapshot: member %s failed checksum (want %x, got %x)", hdr.Name, wantSum, got)
		}

		switch hdr.Name {
		case memberHeader:
			if err := binary.Read(bytes.NewReader(payload), binary.LittleEndian, &result.Header); err != nil {
				return nil, fmt.Errorf("snapshot: decoding header: %w", err)
			}
		case memberGen1:
			result.Gen1 = bytesToWords(payload)
		case memberAgeMap:
			result.AgeMap = bytesToWords(payload)
		case memberGen2:
			result.Gen2 = bytesToWords(payload)
		case memberHeapMap:
			result.HeapMap = bytesToWords(payload)
		case memberPageMap:
			result.PageMap = bytesToWords(payload)
		case memberPtrMap:
			result.PtrMap = bytesToWords(payload)
		default:
			return nil, fmt.Errorf("snapshot: unknown member %s", hdr.Name)
		}
	}

	return result, nil
}

func wordsToBytes(words []uintptr) []byte {
	buf := make([]byte, len(words)*int(heap.BytesPerWord))
	for i, w := range words {
		*(*uintptr)(unsafe.Pointer(&buf[i*int(heap.BytesPerWord)])) = w
	}
	return buf
}

func bytesToWords(b []byte) []uintptr {
	n := len(b) / int(heap.BytesPerWord)
	words := make([]uintptr, n)
	for i := 0; i < n; i++ {
		words[i] = *(*uintptr)(unsafe.Pointer(&b[i*int(heap.BytesPerWord)]))
	}
	return words
}
