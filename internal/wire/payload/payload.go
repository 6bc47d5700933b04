// Package payload implements the self-describing binary encoding used for
// the bytes inside a frame: Request and Response values, and the Person
// records they carry. The format is hand-rolled rather than reflection-based
// — every field is written and read in a fixed, explicit order, with
// present/absent markers for optional fields and length prefixes for
// strings and sequences — so both sides agree on the schema without relying
// on either side's type system.
package payload

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/serezk4/collectiond/internal/model"
)

// DecodeError reports that a payload failed the schema check. It is a
// per-message condition: the router converts it into a uniform response
// and the connection stays open.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error: %s", e.Reason)
}

const (
	requestMagic  uint16 = 0x5031
	responseMagic uint16 = 0x5032
)

// --- low-level writer -------------------------------------------------

type writer struct {
	buf bytes.Buffer
}

func (w *writer) u16(v uint16) { _ = binary.Write(&w.buf, binary.BigEndian, v) }
func (w *writer) u32(v uint32) { _ = binary.Write(&w.buf, binary.BigEndian, v) }
func (w *writer) i64(v int64)  { _ = binary.Write(&w.buf, binary.BigEndian, v) }
func (w *writer) f32(v float32) { _ = binary.Write(&w.buf, binary.BigEndian, v) }
func (w *writer) f64(v float64) { _ = binary.Write(&w.buf, binary.BigEndian, v) }
func (w *writer) boolean(v bool) {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

func (w *writer) str(s string) {
	w.u32(uint32(len(s)))
	w.buf.WriteString(s)
}

// --- low-level reader ---------------------------------------------------

type reader struct {
	r *bytes.Reader
}

func newReader(b []byte) *reader { return &reader{r: bytes.NewReader(b)} }

func (r *reader) u16() (uint16, error) {
	var v uint16
	if err := binary.Read(r.r, binary.BigEndian, &v); err != nil {
		return 0, err
	}
	return v, nil
}

func (r *reader) u32() (uint32, error) {
	var v uint32
	if err := binary.Read(r.r, binary.BigEndian, &v); err != nil {
		return 0, err
	}
	return v, nil
}

func (r *reader) i64() (int64, error) {
	var v int64
	if err := binary.Read(r.r, binary.BigEndian, &v); err != nil {
		return 0, err
	}
	return v, nil
}

func (r *reader) f32() (float32, error) {
	var v float32
	if err := binary.Read(r.r, binary.BigEndian, &v); err != nil {
		return 0, err
	}
	return v, nil
}

func (r *reader) f64() (float64, error) {
	var v float64
	if err := binary.Read(r.r, binary.BigEndian, &v); err != nil {
		return 0, err
	}
	return v, nil
}

func (r *reader) boolean() (bool, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

func (r *reader) str() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	if int64(n) > int64(r.r.Len()) {
		return "", errors.New("string length exceeds remaining buffer")
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// --- Person ---------------------------------------------------------------

func writePerson(w *writer, p model.Person) {
	w.i64(p.ID)
	w.i64(p.OwnerID)
	w.str(p.Name)
	w.i64(int64(p.Coordinates.X))
	w.i64(int64(p.Coordinates.Y))
	w.i64(p.CreationDate.UnixNano())
	w.i64(int64(p.Height))
	w.i64(int64(p.Weight))
	w.str(p.HairColor.String())
	w.str(p.Nationality.String())
	w.f32(p.Location.X)
	w.boolean(p.Location.HasY)
	w.f64(p.Location.Y)
	w.boolean(p.Location.HasName)
	w.str(p.Location.Name)
}

func readPerson(r *reader) (model.Person, error) {
	var p model.Person
	var err error

	if p.ID, err = r.i64(); err != nil {
		return p, err
	}
	if p.OwnerID, err = r.i64(); err != nil {
		return p, err
	}
	if p.Name, err = r.str(); err != nil {
		return p, err
	}
	x, err := r.i64()
	if err != nil {
		return p, err
	}
	y, err := r.i64()
	if err != nil {
		return p, err
	}
	p.Coordinates = model.Coordinates{X: int(x), Y: int(y)}

	nanos, err := r.i64()
	if err != nil {
		return p, err
	}
	p.CreationDate = time.Unix(0, nanos).UTC()

	h, err := r.i64()
	if err != nil {
		return p, err
	}
	p.Height = int(h)

	wt, err := r.i64()
	if err != nil {
		return p, err
	}
	p.Weight = int(wt)

	hairTag, err := r.str()
	if err != nil {
		return p, err
	}
	hc, ok := model.ParseHairColor(hairTag)
	if !ok {
		return p, fmt.Errorf("unknown hair color tag %q", hairTag)
	}
	p.HairColor = hc

	natTag, err := r.str()
	if err != nil {
		return p, err
	}
	nat, ok := model.ParseNationality(natTag)
	if !ok {
		return p, fmt.Errorf("unknown nationality tag %q", natTag)
	}
	p.Nationality = nat

	if p.Location.X, err = r.f32(); err != nil {
		return p, err
	}
	if p.Location.HasY, err = r.boolean(); err != nil {
		return p, err
	}
	if p.Location.Y, err = r.f64(); err != nil {
		return p, err
	}
	if p.Location.HasName, err = r.boolean(); err != nil {
		return p, err
	}
	if p.Location.Name, err = r.str(); err != nil {
		return p, err
	}

	return p, nil
}

func writePersonSeq(w *writer, persons []model.Person) {
	w.u32(uint32(len(persons)))
	for _, p := range persons {
		writePerson(w, p)
	}
}

// minPersonWireSize is the smallest a single encoded Person can be: every
// fixed-width field plus the 4-byte length prefix of each string field with
// zero-length content.
const minPersonWireSize = 86

func readPersonSeq(r *reader) ([]model.Person, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	if int64(n)*minPersonWireSize > int64(r.r.Len()) {
		return nil, errors.New("person sequence length exceeds remaining buffer")
	}
	out := make([]model.Person, 0, n)
	for i := uint32(0); i < n; i++ {
		p, err := readPerson(r)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func writeStringSeq(w *writer, ss []string) {
	w.u32(uint32(len(ss)))
	for _, s := range ss {
		w.str(s)
	}
}

// minStringWireSize is the 4-byte length prefix of an empty string, the
// smallest a single sequence element can be.
const minStringWireSize = 4

func readStringSeq(r *reader) ([]string, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	if int64(n)*minStringWireSize > int64(r.r.Len()) {
		return nil, errors.New("string sequence length exceeds remaining buffer")
	}
	out := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		s, err := r.str()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// --- Request ----------------------------------------------------------

// EncodeRequest serializes a Request to its wire form.
func EncodeRequest(req model.Request) []byte {
	w := &writer{}
	w.u16(requestMagic)
	w.str(req.Command)
	writeStringSeq(w, req.Args)
	writePersonSeq(w, req.Persons)
	w.str(req.Credentials.Username)
	w.str(req.Credentials.Password)
	return w.buf.Bytes()
}

// DecodeRequest parses the wire form of a Request. Any structural problem
// (bad magic, truncated data, unknown enum tag) is reported as a
// *DecodeError.
func DecodeRequest(b []byte) (model.Request, error) {
	var req model.Request
	r := newReader(b)

	magic, err := r.u16()
	if err != nil || magic != requestMagic {
		return req, &DecodeError{Reason: "bad request magic"}
	}

	if req.Command, err = r.str(); err != nil {
		return req, &DecodeError{Reason: err.Error()}
	}
	if req.Args, err = readStringSeq(r); err != nil {
		return req, &DecodeError{Reason: err.Error()}
	}
	if req.Persons, err = readPersonSeq(r); err != nil {
		return req, &DecodeError{Reason: err.Error()}
	}
	if req.Credentials.Username, err = r.str(); err != nil {
		return req, &DecodeError{Reason: err.Error()}
	}
	if req.Credentials.Password, err = r.str(); err != nil {
		return req, &DecodeError{Reason: err.Error()}
	}

	return req, nil
}

// --- Response -----------------------------------------------------------

// EncodeResponse serializes a Response to its wire form.
func EncodeResponse(resp model.Response) []byte {
	w := &writer{}
	w.u16(responseMagic)
	w.str(resp.Message)
	writePersonSeq(w, resp.Persons)
	w.str(resp.Script)
	return w.buf.Bytes()
}

// DecodeResponse parses the wire form of a Response.
func DecodeResponse(b []byte) (model.Response, error) {
	var resp model.Response
	r := newReader(b)

	magic, err := r.u16()
	if err != nil || magic != responseMagic {
		return resp, &DecodeError{Reason: "bad response magic"}
	}

	if resp.Message, err = r.str(); err != nil {
		return resp, &DecodeError{Reason: err.Error()}
	}
	if resp.Persons, err = readPersonSeq(r); err != nil {
		return resp, &DecodeError{Reason: err.Error()}
	}
	if resp.Script, err = r.str(); err != nil {
		return resp, &DecodeError{Reason: err.Error()}
	}

	return resp, nil
}
