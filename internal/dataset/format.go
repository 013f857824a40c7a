package dataset

import (
	"encoding/binary"
	"fmt"
	"math"
)

// On-disk table format: every file begins with a 4-byte magic, a
// uint32 version and a uint64 record count, and is followed by a
// type-specific record stream. Multi-byte integers are little-endian
// throughout. Loading decodes each table out of the mapped bytes into
// Go slices; accessors read those slices, not the mapping.
var (
	magicNodes    = [4]byte{'R', 'T', 'N', 'N'}
	magicEdges    = [4]byte{'R', 'T', 'N', 'E'}
	magicGeometry = [4]byte{'R', 'T', 'N', 'G'}
	magicNames    = [4]byte{'R', 'T', 'N', 'M'}
	magicRegion   = [4]byte{'R', 'T', 'N', 'R'}
	magicRTree    = [4]byte{'R', 'T', 'N', 'X'}
)

const formatVersion = 1

const headerSize = 4 + 4 + 8 // magic + version + count

func readHeader(data []byte, want [4]byte) (count uint64, err error) {
	if len(data) < headerSize {
		return 0, fmt.Errorf("truncated header: %d bytes", len(data))
	}
	var magic [4]byte
	copy(magic[:], data[0:4])
	if magic != want {
		return 0, fmt.Errorf("bad magic %q, want %q", magic, want)
	}
	version := binary.LittleEndian.Uint32(data[4:8])
	if version != formatVersion {
		return 0, fmt.Errorf("unsupported format version %d", version)
	}
	count = binary.LittleEndian.Uint64(data[8:16])
	return count, nil
}

func writeHeader(magic [4]byte, count uint64) []byte {
	buf := make([]byte, headerSize)
	copy(buf[0:4], magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], formatVersion)
	binary.LittleEndian.PutUint64(buf[8:16], count)
	return buf
}

func putFloat64(buf []byte, v float64) {
	binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
}

func getFloat64(buf []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(buf))
}

func decodeNodes(data []byte) ([]float64lonlat, error) {
	count, err := readHeader(data, magicNodes)
	if err != nil {
		return nil, fmt.Errorf("nodes table: %w", err)
	}
	const recSize = 16
	body := data[headerSize:]
	if uint64(len(body)) < count*recSize {
		return nil, fmt.Errorf("nodes table: truncated body")
	}
	out := make([]float64lonlat, count)
	for i := uint64(0); i < count; i++ {
		off := i * recSize
		out[i] = float64lonlat{lon: getFloat64(body[off : off+8]), lat: getFloat64(body[off+8 : off+16])}
	}
	return out, nil
}

type float64lonlat struct{ lon, lat float64 }

func decodeEdges(data []byte) ([]edgeRecord, error) {
	count, err := readHeader(data, magicEdges)
	if err != nil {
		return nil, fmt.Errorf("edges table: %w", err)
	}
	const recSize = 24
	body := data[headerSize:]
	if uint64(len(body)) < count*recSize {
		return nil, fmt.Errorf("edges table: truncated body")
	}
	out := make([]edgeRecord, count)
	for i := uint64(0); i < count; i++ {
		off := i * recSize
		out[i] = edgeRecord{
			Source:   NodeID(binary.LittleEndian.Uint32(body[off : off+4])),
			Target:   NodeID(binary.LittleEndian.Uint32(body[off+4 : off+8])),
			Weight:   binary.LittleEndian.Uint32(body[off+8 : off+12]),
			NameID:   binary.LittleEndian.Uint32(body[off+12 : off+16]),
			GeomFrom: binary.LittleEndian.Uint32(body[off+16 : off+20]),
			GeomTo:   binary.LittleEndian.Uint32(body[off+20 : off+24]),
		}
	}
	return out, nil
}

func decodeGeometry(data []byte) ([]float64lonlat, error) {
	count, err := readHeader(data, magicGeometry)
	if err != nil {
		return nil, fmt.Errorf("geometry table: %w", err)
	}
	const recSize = 16
	body := data[headerSize:]
	if uint64(len(body)) < count*recSize {
		return nil, fmt.Errorf("geometry table: truncated body")
	}
	out := make([]float64lonlat, count)
	for i := uint64(0); i < count; i++ {
		off := i * recSize
		out[i] = float64lonlat{lon: getFloat64(body[off : off+8]), lat: getFloat64(body[off+8 : off+16])}
	}
	return out, nil
}

func decodeNames(data []byte) ([]string, error) {
	count, err := readHeader(data, magicNames)
	if err != nil {
		return nil, fmt.Errorf("names table: %w", err)
	}
	body := data[headerSize:]
	out := make([]string, 0, count)
	pos := 0
	for i := uint64(0); i < count; i++ {
		if pos+4 > len(body) {
			return nil, fmt.Errorf("names table: truncated length prefix")
		}
		n := binary.LittleEndian.Uint32(body[pos : pos+4])
		pos += 4
		if pos+int(n) > len(body) {
			return nil, fmt.Errorf("names table: truncated string")
		}
		out = append(out, string(body[pos:pos+int(n)]))
		pos += int(n)
	}
	return out, nil
}

func encodeNodes(points []float64lonlat) []byte {
	buf := writeHeader(magicNodes, uint64(len(points)))
	for _, p := range points {
		rec := make([]byte, 16)
		putFloat64(rec[0:8], p.lon)
		putFloat64(rec[8:16], p.lat)
		buf = append(buf, rec...)
	}
	return buf
}

func encodeEdges(edges []edgeRecord) []byte {
	buf := writeHeader(magicEdges, uint64(len(edges)))
	for _, e := range edges {
		rec := make([]byte, 24)
		binary.LittleEndian.PutUint32(rec[0:4], uint32(e.Source))
		binary.LittleEndian.PutUint32(rec[4:8], uint32(e.Target))
		binary.LittleEndian.PutUint32(rec[8:12], e.Weight)
		binary.LittleEndian.PutUint32(rec[12:16], e.NameID)
		binary.LittleEndian.PutUint32(rec[16:20], e.GeomFrom)
		binary.LittleEndian.PutUint32(rec[20:24], e.GeomTo)
		buf = append(buf, rec...)
	}
	return buf
}

func encodeGeometry(points []float64lonlat) []byte {
	buf := writeHeader(magicGeometry, uint64(len(points)))
	for _, p := range points {
		rec := make([]byte, 16)
		putFloat64(rec[0:8], p.lon)
		putFloat64(rec[8:16], p.lat)
		buf = append(buf, rec...)
	}
	return buf
}

func encodeNames(names []string) []byte {
	buf := writeHeader(magicNames, uint64(len(names)))
	for _, s := range names {
		lenBuf := make([]byte, 4)
		binary.LittleEndian.PutUint32(lenBuf, uint32(len(s)))
		buf = append(buf, lenBuf...)
		buf = append(buf, []byte(s)...)
	}
	return buf
}

// encodeSpatialIndex serializes a built grid index (count = number of
// occupied cells) so it can be persisted alongside the other tables
// and reattached without rebuilding it from the edge/geometry tables
// on every load — the same role OSRM's own precomputed R-tree index
// files play.
func encodeSpatialIndex(idx *spatialIndex) []byte {
	buf := writeHeader(magicRTree, uint64(len(idx.cells)))
	sizeBuf := make([]byte, 8)
	putFloat64(sizeBuf, idx.cellSize)
	buf = append(buf, sizeBuf...)
	for k, ids := range idx.cells {
		rec := make([]byte, 12)
		binary.LittleEndian.PutUint32(rec[0:4], uint32(k.x))
		binary.LittleEndian.PutUint32(rec[4:8], uint32(k.y))
		binary.LittleEndian.PutUint32(rec[8:12], uint32(len(ids)))
		buf = append(buf, rec...)
		for _, id := range ids {
			idBuf := make([]byte, 4)
			binary.LittleEndian.PutUint32(idBuf, uint32(id))
			buf = append(buf, idBuf...)
		}
	}
	return buf
}

func decodeSpatialIndex(data []byte) (*spatialIndex, error) {
	count, err := readHeader(data, magicRTree)
	if err != nil {
		return nil, fmt.Errorf("spatial index: %w", err)
	}
	body := data[headerSize:]
	if len(body) < 8 {
		return nil, fmt.Errorf("spatial index: truncated cell size")
	}
	idx := &spatialIndex{cellSize: getFloat64(body[0:8]), cells: make(map[cellKey][]EdgeID, count)}
	pos := 8
	for i := uint64(0); i < count; i++ {
		if pos+12 > len(body) {
			return nil, fmt.Errorf("spatial index: truncated cell header")
		}
		x := int32(binary.LittleEndian.Uint32(body[pos : pos+4]))
		y := int32(binary.LittleEndian.Uint32(body[pos+4 : pos+8]))
		n := binary.LittleEndian.Uint32(body[pos+8 : pos+12])
		pos += 12

		ids := make([]EdgeID, n)
		for j := uint32(0); j < n; j++ {
			if pos+4 > len(body) {
				return nil, fmt.Errorf("spatial index: truncated edge id")
			}
			ids[j] = EdgeID(binary.LittleEndian.Uint32(body[pos : pos+4]))
			pos += 4
		}
		idx.cells[cellKey{x: x, y: y}] = ids
	}
	return idx, nil
}
