// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// Record layout versions. Bump when a layout changes.
const (
	documentLayout = 1
	chunkLayout    = 1
)

var (
	// DocumentMUS serializes a Document in MUS format.
	DocumentMUS = documentMUS{}

	// ChunkMUS serializes a Chunk in MUS format.
	ChunkMUS = chunkMUS{}

	// UUIDMUS serializes a uuid.UUID as a length-prefixed byte slice.
	UUIDMUS = uuidMUS{}

	// TimeMUS serializes a time.Time as Unix microseconds; the zero time is 0.
	TimeMUS = timeMUS{}

	// VectorMUS serializes a []float32 as a length followed by raw floats.
	VectorMUS = vectorMUS{}
)

var (
	_ mus.Serializer[Document]  = DocumentMUS
	_ mus.Serializer[Chunk]     = ChunkMUS
	_ mus.Serializer[uuid.UUID] = UUIDMUS
	_ mus.Serializer[time.Time] = TimeMUS
	_ mus.Serializer[[]float32] = VectorMUS
)

func checkLayout(bs []byte, want int) (n int, err error) {
	v, n, err := varint.PositiveInt.Unmarshal(bs)
	if err != nil {
		return n, err
	}
	if v != want {
		return n, fmt.Errorf("unknown record layout %d", v)
	}
	return n, nil
}

type uuidMUS struct{}

func (uuidMUS) Marshal(id uuid.UUID, bs []byte) (n int) {
	return ord.ByteSlice.Marshal(id[:], bs)
}

func (uuidMUS) Unmarshal(bs []byte) (id uuid.UUID, n int, err error) {
	b, n, err := ord.ByteSlice.Unmarshal(bs)
	if err != nil {
		return id, n, err
	}
	id, err = uuid.FromBytes(b)
	return id, n, err
}

func (uuidMUS) Size(id uuid.UUID) (size int) {
	return ord.ByteSlice.Size(id[:])
}

func (uuidMUS) Skip(bs []byte) (n int, err error) {
	return ord.ByteSlice.Skip(bs)
}

type timeMUS struct{}

func (timeMUS) micros(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func (s timeMUS) Marshal(t time.Time, bs []byte) (n int) {
	return varint.Int64.Marshal(s.micros(t), bs)
}

func (timeMUS) Unmarshal(bs []byte) (t time.Time, n int, err error) {
	v, n, err := varint.Int64.Unmarshal(bs)
	if err != nil || v == 0 {
		return t, n, err
	}
	return time.UnixMicro(v).UTC(), n, nil
}

func (s timeMUS) Size(t time.Time) (size int) {
	return varint.Int64.Size(s.micros(t))
}

func (timeMUS) Skip(bs []byte) (n int, err error) {
	return varint.Int64.Skip(bs)
}

type vectorMUS struct{}

func (vectorMUS) Marshal(v []float32, bs []byte) (n int) {
	n = varint.PositiveInt.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func (vectorMUS) Unmarshal(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.PositiveInt.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length > (len(bs)-n)/4 {
		return nil, n, fmt.Errorf("vector length %d exceeds remaining data", length)
	}
	v = make([]float32, length)
	var n1 int
	for i := range v {
		v[i], n1, err = raw.Float32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
	}
	return v, n, nil
}

func (vectorMUS) Size(v []float32) (size int) {
	size = varint.PositiveInt.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return size
}

func (s vectorMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

type documentMUS struct{}

func (documentMUS) Marshal(d Document, bs []byte) (n int) {
	n = varint.PositiveInt.Marshal(documentLayout, bs)
	n += UUIDMUS.Marshal(d.ID, bs[n:])
	n += UUIDMUS.Marshal(d.ProjectID, bs[n:])
	n += ord.String.Marshal(d.Name, bs[n:])
	n += ord.String.Marshal(string(d.SourceType), bs[n:])
	n += ord.String.Marshal(d.Content, bs[n:])
	n += ord.String.Marshal(string(d.Status), bs[n:])
	n += ord.String.Marshal(d.StatusReason, bs[n:])
	n += TimeMUS.Marshal(d.CreatedAt, bs[n:])
	n += TimeMUS.Marshal(d.UpdatedAt, bs[n:])
	return n
}

func (documentMUS) Unmarshal(bs []byte) (d Document, n int, err error) {
	n, err = checkLayout(bs, documentLayout)
	if err != nil {
		return
	}
	var (
		n1         int
		sourceType string
		status     string
	)
	d.ID, n1, err = UUIDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.ProjectID, n1, err = UUIDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.Name, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	sourceType, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.SourceType = SourceType(sourceType)
	d.Content, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	status, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if d.Status, err = ParseDocumentStatus(status); err != nil {
		return
	}
	d.StatusReason, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.CreatedAt, n1, err = TimeMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.UpdatedAt, n1, err = TimeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (documentMUS) Size(d Document) (size int) {
	size = varint.PositiveInt.Size(documentLayout)
	size += UUIDMUS.Size(d.ID)
	size += UUIDMUS.Size(d.ProjectID)
	size += ord.String.Size(d.Name)
	size += ord.String.Size(string(d.SourceType))
	size += ord.String.Size(d.Content)
	size += ord.String.Size(string(d.Status))
	size += ord.String.Size(d.StatusReason)
	size += TimeMUS.Size(d.CreatedAt)
	return size + TimeMUS.Size(d.UpdatedAt)
}

func (s documentMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

type chunkMUS struct{}

func (chunkMUS) Marshal(c Chunk, bs []byte) (n int) {
	n = varint.PositiveInt.Marshal(chunkLayout, bs)
	n += UUIDMUS.Marshal(c.ID, bs[n:])
	n += UUIDMUS.Marshal(c.DocumentID, bs[n:])
	n += varint.PositiveInt.Marshal(c.Index, bs[n:])
	n += ord.String.Marshal(c.Text, bs[n:])
	n += VectorMUS.Marshal(c.Vector, bs[n:])
	n += TimeMUS.Marshal(c.CreatedAt, bs[n:])
	return n
}

func (chunkMUS) Unmarshal(bs []byte) (c Chunk, n int, err error) {
	n, err = checkLayout(bs, chunkLayout)
	if err != nil {
		return
	}
	var n1 int
	c.ID, n1, err = UUIDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.DocumentID, n1, err = UUIDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.Index, n1, err = varint.PositiveInt.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.Vector, n1, err = VectorMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.CreatedAt, n1, err = TimeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (chunkMUS) Size(c Chunk) (size int) {
	size = varint.PositiveInt.Size(chunkLayout)
	size += UUIDMUS.Size(c.ID)
	size += UUIDMUS.Size(c.DocumentID)
	size += varint.PositiveInt.Size(c.Index)
	size += ord.String.Size(c.Text)
	size += VectorMUS.Size(c.Vector)
	return size + TimeMUS.Size(c.CreatedAt)
}

func (s chunkMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}
