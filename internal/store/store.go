// Package store implements the on-disk archive store: one file holding a
// fixed set of circular, fixed-precision archives plus an aggregation
// policy (method and x-files-factor).
//
// File layout (binary, little-endian):
//   - magic (4 bytes) + format version (4 bytes)
//   - aggregation method (4 bytes)
//   - x-files-factor (8 bytes, float64)
//   - archive count (4 bytes)
//   - per archive: seconds per point (4 bytes) + point count (4 bytes)
//   - per archive: points*12 bytes of slots
//
// Each slot holds the datapoint's interval timestamp (4 bytes) and its
// value (8 bytes, float64). A zero timestamp marks an empty slot; the
// timestamp in slot 0 anchors the circular indexing for the archive.
package store

import (
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/xtxerr/rebin/internal/aggregate"
	"github.com/xtxerr/rebin/internal/errors"
	"github.com/xtxerr/rebin/internal/schema"
)

const (
	magic         = 0x5242494E // "RBIN"
	formatVersion = 1

	headerSize      = 24
	archiveInfoSize = 8
	pointSize       = 12
)

// Sample is one slot of a fetched series. Valid is false when the slot
// holds no datapoint.
type Sample struct {
	Value float64
	Valid bool
}

// Point is one datapoint to be written.
type Point struct {
	Timestamp int64
	Value     float64
}

// Series is the result of a fetch: (End-Start)/Step samples in time order,
// covering [Start, End) at Step-second resolution.
type Series struct {
	Start  int64
	End    int64
	Step   int64
	Values []Sample
}

// Points returns the present samples of the series as writable datapoints.
func (s *Series) Points() []Point {
	points := make([]Point, 0, len(s.Values))
	for i, v := range s.Values {
		if v.Valid {
			points = append(points, Point{Timestamp: s.Start + int64(i)*s.Step, Value: v.Value})
		}
	}
	return points
}

// Info describes a store's retention schema and aggregation policy.
type Info struct {
	Schema       schema.Schema
	XFilesFactor float64
	Method       aggregate.Method
}

// archive is one circular region within the store file.
type archive struct {
	retention schema.Retention
	offset    int64 // byte offset of the first slot
}

func (a archive) step() int64 { return int64(a.retention.SecondsPerPoint) }

func (a archive) size() int64 { return int64(a.retention.Points) * pointSize }

// Store is an open archive store file.
type Store struct {
	path     string
	file     *os.File
	method   aggregate.Method
	xff      float64
	archives []archive
}

// Create creates a new store file at path with the given schema and
// aggregation policy. It fails if the path already exists or the schema
// is invalid. Slots start empty; the file is sized up front.
func Create(path string, s schema.Schema, xff float64, method aggregate.Method) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if xff < 0 || xff > 1 {
		return errors.Wrapf(errors.ErrInvalidSchema, "x-files-factor %g outside [0,1]", xff)
	}
	if _, err := aggregate.ParseMethod(method.String()); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return errors.Wrap(errors.ErrAlreadyExists, path)
		}
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	header := make([]byte, 0, headerSize+len(s)*archiveInfoSize)
	header = binary.LittleEndian.AppendUint32(header, magic)
	header = binary.LittleEndian.AppendUint32(header, formatVersion)
	header = binary.LittleEndian.AppendUint32(header, uint32(method))
	header = binary.LittleEndian.AppendUint64(header, math.Float64bits(xff))
	header = binary.LittleEndian.AppendUint32(header, uint32(len(s)))
	for _, r := range s {
		header = binary.LittleEndian.AppendUint32(header, uint32(r.SecondsPerPoint))
		header = binary.LittleEndian.AppendUint32(header, uint32(r.Points))
	}
	if _, err := f.Write(header); err != nil {
		return errors.Wrapf(err, "write header %s", path)
	}

	total := int64(len(header))
	for _, r := range s {
		total += int64(r.Points) * pointSize
	}
	if err := f.Truncate(total); err != nil {
		return errors.Wrapf(err, "size %s", path)
	}
	return f.Sync()
}

// Open opens an existing store file for reading and writing.
func Open(path string) (*Store, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrNotFound, path)
		}
		return nil, errors.Wrapf(err, "open %s", path)
	}

	st, err := readHeader(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return st, nil
}

func readHeader(f *os.File, path string) (*Store, error) {
	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, errors.Wrap(errors.ErrCorruptStore, path)
	}
	if binary.LittleEndian.Uint32(buf[0:4]) != magic {
		return nil, errors.Wrapf(errors.ErrCorruptStore, "%s: bad magic", path)
	}
	if v := binary.LittleEndian.Uint32(buf[4:8]); v != formatVersion {
		return nil, errors.Wrapf(errors.ErrCorruptStore, "%s: unsupported version %d", path, v)
	}

	method := aggregate.Method(binary.LittleEndian.Uint32(buf[8:12]))
	xff := math.Float64frombits(binary.LittleEndian.Uint64(buf[12:20]))
	count := int(binary.LittleEndian.Uint32(buf[20:24]))
	if count <= 0 || count > 64 {
		return nil, errors.Wrapf(errors.ErrCorruptStore, "%s: archive count %d", path, count)
	}

	table := make([]byte, count*archiveInfoSize)
	if _, err := io.ReadFull(f, table); err != nil {
		return nil, errors.Wrap(errors.ErrCorruptStore, path)
	}

	st := &Store{
		path:     path,
		file:     f,
		method:   method,
		xff:      xff,
		archives: make([]archive, count),
	}
	offset := int64(headerSize + count*archiveInfoSize)
	for i := 0; i < count; i++ {
		r := schema.Retention{
			SecondsPerPoint: int(binary.LittleEndian.Uint32(table[i*archiveInfoSize:])),
			Points:          int(binary.LittleEndian.Uint32(table[i*archiveInfoSize+4:])),
		}
		st.archives[i] = archive{retention: r, offset: offset}
		offset += int64(r.Points) * pointSize
	}
	if err := st.Schema().Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCorruptStore, path)
	}
	return st, nil
}

// Close closes the underlying file.
func (st *Store) Close() error {
	return st.file.Close()
}

// Path returns the store's file path.
func (st *Store) Path() string { return st.path }

// Schema returns the store's retention schema, finest precision first.
func (st *Store) Schema() schema.Schema {
	s := make(schema.Schema, len(st.archives))
	for i, a := range st.archives {
		s[i] = a.retention
	}
	return s
}

// XFilesFactor returns the store's completeness threshold.
func (st *Store) XFilesFactor() float64 { return st.xff }

// Method returns the store's aggregation method.
func (st *Store) Method() aggregate.Method { return st.method }

// Info returns the store's schema and aggregation policy.
func (st *Store) Info() Info {
	return Info{Schema: st.Schema(), XFilesFactor: st.xff, Method: st.method}
}

// MaxRetention returns the span of the longest archive, in seconds.
func (st *Store) MaxRetention() int64 {
	return int64(st.Schema().MaxRetention())
}

// readSlots reads all of an archive's slots into memory.
func (st *Store) readSlots(a archive) ([]byte, error) {
	buf := make([]byte, a.size())
	if _, err := st.file.ReadAt(buf, a.offset); err != nil {
		return nil, errors.Wrapf(errors.ErrCorruptStore, "%s: short archive region", st.path)
	}
	return buf, nil
}

// baseInterval returns the timestamp anchoring the archive's circular
// indexing (slot 0's interval), or 0 when the archive is empty.
func (st *Store) baseInterval(a archive) (int64, error) {
	buf := make([]byte, 4)
	if _, err := st.file.ReadAt(buf, a.offset); err != nil {
		return 0, errors.Wrapf(errors.ErrCorruptStore, "%s: short archive region", st.path)
	}
	return int64(binary.LittleEndian.Uint32(buf)), nil
}

// slotIndex maps an interval timestamp to the archive slot holding it.
func (a archive) slotIndex(base, interval int64) int64 {
	idx := ((interval - base) / a.step()) % int64(a.retention.Points)
	if idx < 0 {
		idx += int64(a.retention.Points)
	}
	return idx
}

// decodeSlot decodes the slot at index idx from an in-memory archive region.
func decodeSlot(slots []byte, idx int64) (int64, float64) {
	off := idx * pointSize
	ts := int64(binary.LittleEndian.Uint32(slots[off:]))
	value := math.Float64frombits(binary.LittleEndian.Uint64(slots[off+4:]))
	return ts, value
}

// writeSlot writes one datapoint into an archive slot. An empty archive is
// anchored by writing its first datapoint into slot 0.
func (st *Store) writeSlot(a archive, interval int64, value float64) error {
	base, err := st.baseInterval(a)
	if err != nil {
		return err
	}
	var idx int64
	if base != 0 {
		idx = a.slotIndex(base, interval)
	}

	buf := make([]byte, 0, pointSize)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(interval))
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(value))
	if _, err := st.file.WriteAt(buf, a.offset+idx*pointSize); err != nil {
		return errors.Wrapf(err, "write %s", st.path)
	}
	return nil
}
