// Package field implements the field descriptor: the named record of
// element type, size and halo geometry that the engine registers once
// per field name and checks for schema conflicts on every subsequent
// write.
package field

import (
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/gridfield/serialbox/internal/metainfo"
	"github.com/gridfield/serialbox/pkg/errors"
)

// ElementType is the scalar type token carried by a field, one of the
// three numeric kinds the transcoder understands.
type ElementType string

const (
	Int    ElementType = "int"
	Float  ElementType = "float"
	Double ElementType = "double"
)

// Sizes holds the per-dimension extents, including halo, in i/j/k/l
// order. A value of 1 means the dimension is absent.
type Sizes struct {
	I, J, K, L int
}

// Halos holds the per-dimension, per-side halo extents.
type Halos struct {
	IMinus, IPlus int
	JMinus, JPlus int
	KMinus, KPlus int
	LMinus, LPlus int
}

// Descriptor is the immutable (post-registration) shape of a field:
// name, element type, bytes per element, rank, sizes, halos and a
// field-scoped metainfo set. It mirrors DataFieldInfo in the reference
// serializer.
type Descriptor struct {
	Name             string
	Type             ElementType
	BytesPerElement  int
	Rank             int
	Sizes            Sizes
	Halos            Halos
	Metainfo         *metainfo.Set
}

// New builds a descriptor, computing rank as the count of dimensions
// whose size is not 1. Callers must validate sizes >= 1 before calling;
// New itself does not re-validate, since the engine already does this
// at the registration boundary (spec: "validates all sizes >= 1").
func New(name string, elemType ElementType, bytesPerElement int, sizes Sizes, halos Halos) *Descriptor {
	rank := 0
	for _, s := range []int{sizes.I, sizes.J, sizes.K, sizes.L} {
		if s != 1 {
			rank++
		}
	}
	return &Descriptor{
		Name:            name,
		Type:            elemType,
		BytesPerElement: bytesPerElement,
		Rank:            rank,
		Sizes:           sizes,
		Halos:           halos,
		Metainfo:        metainfo.NewSet(),
	}
}

// DataSize returns the number of bytes occupied by the field's data:
// bytesPerElement * I * J * K * L.
func (d *Descriptor) DataSize() int {
	return d.BytesPerElement * d.Sizes.I * d.Sizes.J * d.Sizes.K * d.Sizes.L
}

// SameShape reports whether two descriptors agree on every structural
// attribute except metainfo: type, bytesPerElement, sizes and halos.
// The engine uses this to decide whether a re-registration is an
// idempotent no-op or a SchemaConflict.
func (d *Descriptor) SameShape(other *Descriptor) bool {
	return d.Type == other.Type &&
		d.BytesPerElement == other.BytesPerElement &&
		d.Sizes == other.Sizes &&
		d.Halos == other.Halos
}

// Equal reports structural equality including the metainfo set, the
// order the reference operator== checks in (bytesPerElement, rank,
// sizes, halos, name, type, metainfo — cheapest fields first).
func (d *Descriptor) Equal(other *Descriptor) bool {
	if d.BytesPerElement != other.BytesPerElement || d.Rank != other.Rank {
		return false
	}
	if d.Sizes != other.Sizes || d.Halos != other.Halos {
		return false
	}
	if d.Name != other.Name || d.Type != other.Type {
		return false
	}
	return d.Metainfo.Equal(other.Metainfo)
}

// ToString renders "NAME (IxJxKxL) [meta...]", the debug form used in
// error messages.
func (d *Descriptor) ToString() string {
	return fmt.Sprintf("%s (%dx%dx%dx%d) %s", d.Name, d.Sizes.I, d.Sizes.J, d.Sizes.K, d.Sizes.L, d.Metainfo.ToString())
}

// wireView is the JSON shape of a descriptor: reserved __-prefixed
// structural keys plus the metainfo entries, flattened into one
// object. id is only emitted when >= 0.
type wireView struct {
	Name            string `json:"__name"`
	ID              *int   `json:"__id,omitempty"`
	ElementType     string `json:"__elementtype"`
	BytesPerElement int    `json:"__bytesperelement"`
	Rank            int    `json:"__rank"`
	ISize           int    `json:"__isize"`
	JSize           int    `json:"__jsize"`
	KSize           int    `json:"__ksize"`
	LSize           *int   `json:"__lsize,omitempty"`

	IMinusHaloSize int  `json:"__iminushalosize"`
	IPlusHaloSize  int  `json:"__iplushalosize"`
	JMinusHaloSize int  `json:"__jminushalosize"`
	JPlusHaloSize  int  `json:"__jplushalosize"`
	KMinusHaloSize int  `json:"__kminushalosize"`
	KPlusHaloSize  int  `json:"__kplushalosize"`
	LMinusHaloSize *int `json:"__lminushalosize,omitempty"`
	LPlusHaloSize  *int `json:"__lplushalosize,omitempty"`
}

// ToJSON renders the descriptor's wire form. If id >= 0, a __id field
// is included carrying the field's position in the registry.
func (d *Descriptor) ToJSON(id int) ([]byte, error) {
	view := wireView{
		Name:            d.Name,
		ElementType:     string(d.Type),
		BytesPerElement: d.BytesPerElement,
		Rank:            d.Rank,
		ISize:           d.Sizes.I,
		JSize:           d.Sizes.J,
		KSize:           d.Sizes.K,
		IMinusHaloSize:  d.Halos.IMinus,
		IPlusHaloSize:   d.Halos.IPlus,
		JMinusHaloSize:  d.Halos.JMinus,
		JPlusHaloSize:   d.Halos.JPlus,
		KMinusHaloSize:  d.Halos.KMinus,
		KPlusHaloSize:   d.Halos.KPlus,
	}
	if id >= 0 {
		view.ID = &id
	}
	if d.Sizes.L != 1 {
		l := d.Sizes.L
		view.LSize = &l
		lm, lp := d.Halos.LMinus, d.Halos.LPlus
		view.LMinusHaloSize = &lm
		view.LPlusHaloSize = &lp
	}

	structural, err := json.Marshal(view)
	if err != nil {
		return nil, err
	}

	meta, err := json.Marshal(d.Metainfo)
	if err != nil {
		return nil, err
	}

	return mergeNodeAndMetainfo(structural, meta)
}

// FromJSON parses a descriptor's wire form. Absent structural fields
// default to sizes=1, halos=0 per spec; any non __-prefixed key is
// folded into the metainfo set; __id is recognized and discarded (the
// registry, not the descriptor, owns field ids).
func FromJSON(raw []byte) (*Descriptor, error) {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, errors.Wrap(err, errors.ParseError, "malformed field descriptor JSON")
	}

	d := &Descriptor{
		Sizes:    Sizes{I: 1, J: 1, K: 1, L: 1},
		Metainfo: metainfo.NewSet(),
	}

	nameSeen := false
	for key, raw := range flat {
		switch key {
		case "__name":
			if err := json.Unmarshal(raw, &d.Name); err != nil {
				return nil, errors.Wrap(err, errors.ParseError, "field descriptor __name is not a string")
			}
			nameSeen = true
		case "__id":
			// position is owned by the registry; discarded here.
		case "__elementtype":
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, errors.Wrap(err, errors.ParseError, "field descriptor __elementtype is not a string")
			}
			d.Type = ElementType(s)
		case "__bytesperelement":
			if err := json.Unmarshal(raw, &d.BytesPerElement); err != nil {
				return nil, errors.Wrap(err, errors.ParseError, "field descriptor __bytesperelement is not a number")
			}
		case "__rank":
			if err := json.Unmarshal(raw, &d.Rank); err != nil {
				return nil, errors.Wrap(err, errors.ParseError, "field descriptor __rank is not a number")
			}
		case "__isize":
			json.Unmarshal(raw, &d.Sizes.I)
		case "__jsize":
			json.Unmarshal(raw, &d.Sizes.J)
		case "__ksize":
			json.Unmarshal(raw, &d.Sizes.K)
		case "__lsize":
			json.Unmarshal(raw, &d.Sizes.L)
		case "__iminushalosize":
			json.Unmarshal(raw, &d.Halos.IMinus)
		case "__iplushalosize":
			json.Unmarshal(raw, &d.Halos.IPlus)
		case "__jminushalosize":
			json.Unmarshal(raw, &d.Halos.JMinus)
		case "__jplushalosize":
			json.Unmarshal(raw, &d.Halos.JPlus)
		case "__kminushalosize":
			json.Unmarshal(raw, &d.Halos.KMinus)
		case "__kplushalosize":
			json.Unmarshal(raw, &d.Halos.KPlus)
		case "__lminushalosize":
			json.Unmarshal(raw, &d.Halos.LMinus)
		case "__lplushalosize":
			json.Unmarshal(raw, &d.Halos.LPlus)
		default:
			if err := d.Metainfo.AddNode(key, raw); err != nil {
				return nil, err
			}
		}
	}

	if !nameSeen {
		return nil, errors.New(errors.ParseError, "field descriptor JSON missing __name")
	}

	return d, nil
}

func mergeNodeAndMetainfo(structural, metaArray []byte) ([]byte, error) {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(structural, &flat); err != nil {
		return nil, err
	}

	var metaNodes []map[string]json.RawMessage
	if err := json.Unmarshal(metaArray, &metaNodes); err != nil {
		return nil, err
	}
	for _, node := range metaNodes {
		for k, v := range node {
			flat[k] = v
		}
	}

	return json.Marshal(flat)
}
