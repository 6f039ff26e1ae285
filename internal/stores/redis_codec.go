package stores

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

const (
	recordVersionV1 = 1

	flagRetired   = 1 << 0
	flagHasExpiry = 1 << 1

	// version(1) flags(1) revision(8)
	revisionOffset = 2
	revisionSize   = 8
)

func encodeRecord(rec *Record) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(96 + len(rec.ID) + len(rec.UserID) + len(rec.SecretHash) + len(rec.Metadata))

	var flags byte
	if rec.Retired {
		flags |= flagRetired
	}
	var expiresAt int64
	if rec.ExpiresAt != nil {
		flags |= flagHasExpiry
		expiresAt = rec.ExpiresAt.UnixNano()
	}

	buf.WriteByte(recordVersionV1)
	buf.WriteByte(flags)

	for _, v := range []int64{rec.Revision, rec.CreatedAt.UnixNano(), rec.UpdatedAt.UnixNano(), expiresAt} {
		if err := binary.Write(&buf, binary.BigEndian, v); err != nil {
			return nil, err
		}
	}

	for _, s := range []string{rec.ID, string(rec.Type), rec.UserID, rec.SecretHash} {
		if len(s) > 65535 {
			return nil, fmt.Errorf("%w: field too long", ErrCorruptRecord)
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(s))); err != nil {
			return nil, err
		}
		buf.WriteString(s)
	}

	if err := binary.Write(&buf, binary.BigEndian, uint32(len(rec.Metadata))); err != nil {
		return nil, err
	}
	buf.Write(rec.Metadata)

	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (*Record, error) {
	rec, err := decodeRecordV1(data)
	if err != nil {
		return nil, errors.Join(ErrCorruptRecord, err)
	}
	return rec, nil
}

func decodeRecordV1(data []byte) (*Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != recordVersionV1 {
		return nil, fmt.Errorf("unknown record version %d", version)
	}

	flags, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	var revision, createdAt, updatedAt, expiresAt int64
	for _, dst := range []*int64{&revision, &createdAt, &updatedAt, &expiresAt} {
		if err := binary.Read(reader, binary.BigEndian, dst); err != nil {
			return nil, err
		}
	}

	fields := make([]string, 4)
	for i := range fields {
		var n uint16
		if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
			return nil, err
		}
		raw := make([]byte, n)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return nil, err
		}
		fields[i] = string(raw)
	}

	var metaLen uint32
	if err := binary.Read(reader, binary.BigEndian, &metaLen); err != nil {
		return nil, err
	}
	if int64(metaLen) > int64(reader.Len()) {
		return nil, io.ErrUnexpectedEOF
	}
	metadata := make([]byte, metaLen)
	if _, err := io.ReadFull(reader, metadata); err != nil {
		return nil, err
	}

	rec := &Record{
		ID:         fields[0],
		Type:       Type(fields[1]),
		UserID:     fields[2],
		SecretHash: fields[3],
		CreatedAt:  time.Unix(0, createdAt).UTC(),
		UpdatedAt:  time.Unix(0, updatedAt).UTC(),
		Retired:    flags&flagRetired != 0,
		Metadata:   metadata,
		Revision:   revision,
	}
	if flags&flagHasExpiry != 0 {
		at := time.Unix(0, expiresAt).UTC()
		rec.ExpiresAt = &at
	}

	return rec, nil
}

func encodeRevision(revision int64) []byte {
	out := make([]byte, revisionSize)
	binary.BigEndian.PutUint64(out, uint64(revision))
	return out
}
