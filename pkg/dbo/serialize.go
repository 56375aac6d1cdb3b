package dbo

import (
	"context"
	"fmt"
	"reflect"

	"github.com/mesh-intelligence/dbo/pkg/types"
)

// Serialize returns the entity's flat column-keyed form, using its
// Serializer hook when it has one.
func (s *Store) Serialize(e Entity) (types.Data, error) {
	meta, err := s.Meta(e)
	if err != nil {
		return nil, err
	}

	rec := e.record()
	rec.serializing = true
	defer func() { rec.serializing = false }()

	var data types.Data
	if h, ok := e.(Serializer); ok {
		data, err = h.ToData(meta)
	} else {
		data, err = meta.ToData(e)
	}
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = types.Data{}
	}
	return data, nil
}

// Deserialize assigns data to the entity's fields, using its Deserializer
// hook when it has one. With autoPersist set the entity is then updated,
// or created when it has no id.
func (s *Store) Deserialize(ctx context.Context, e Entity, data any, autoPersist bool) error {
	d, err := toData(data)
	if err != nil {
		return err
	}
	meta, err := s.Meta(e)
	if err != nil {
		return err
	}
	return s.deserialize(ctx, meta, e, d, autoPersist)
}

func (s *Store) deserialize(ctx context.Context, meta *Meta, e Entity, data types.Data, autoPersist bool) error {
	rec := e.record()
	rec.deserializing = true
	var err error
	if h, ok := e.(Deserializer); ok {
		err = h.FromData(meta, data)
	} else {
		err = meta.FromData(e, data)
	}
	rec.deserializing = false
	if err != nil {
		return err
	}

	if !autoPersist {
		return nil
	}
	if rec.id != 0 {
		return s.Update(ctx, e)
	}
	return s.Create(ctx, e)
}

// ToData copies every non-manual field into a Data keyed by column name.
func (m *Meta) ToData(e Entity) (types.Data, error) {
	v, err := m.value(e)
	if err != nil {
		return nil, err
	}
	data := make(types.Data, len(m.columns))
	for _, c := range m.fieldColumns() {
		data[c.Name] = v.FieldByIndex(c.index).Interface()
	}
	return data, nil
}

// FromData assigns data to every non-manual field. Columns absent from data
// are reset to their zero value; keys that are not columns are ignored.
func (m *Meta) FromData(e Entity, data types.Data) error {
	v, err := m.value(e)
	if err != nil {
		return err
	}
	for _, c := range m.fieldColumns() {
		field := v.FieldByIndex(c.index)
		if err := assign(field, data[c.Name]); err != nil {
			return fmt.Errorf("%s.%s: %w", m.typ, c.Attr, err)
		}
	}
	return nil
}

// fieldValues returns the named bindings of every non-manual column.
func (m *Meta) fieldValues(e Entity) (types.Named, error) {
	v, err := m.value(e)
	if err != nil {
		return nil, err
	}
	cols := m.fieldColumns()
	values := make(types.Named, len(cols)+1)
	for _, c := range cols {
		values[bindToken(c.Name)] = bindValue(c, v.FieldByIndex(c.index))
	}
	return values, nil
}

// toData accepts any map keyed by strings.
func toData(data any) (types.Data, error) {
	switch d := data.(type) {
	case types.Data:
		return d, nil
	case types.Row:
		return types.Data(d), nil
	case map[string]any:
		return types.Data(d), nil
	case nil:
		return nil, fmt.Errorf("%w: nil data", types.ErrInvalidArgument)
	}

	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Map || v.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("%w: %T is not key-value data", types.ErrInvalidArgument, data)
	}
	out := make(types.Data, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, nil
}
