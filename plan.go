package structdef

import (
	"fmt"
	"reflect"
	"strings"
)

// TagName is the struct tag consulted when mapping struct fields to schema
// fields, e.g. `structdef:"displayName"` or `structdef:"-"`.
const TagName = "structdef"

type structPlan struct {
	fields []planField
}

type planField struct {
	idx   int
	field *Field
}

// getPlan maps the exported fields of t onto the schema once per type.
func (d *StructDef) getPlan(t reflect.Type) (*structPlan, error) {
	d.mu.RLock()
	if plan, ok := d.plans[t]; ok {
		d.mu.RUnlock()
		return plan, nil
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	// Double-check
	if plan, ok := d.plans[t]; ok {
		return plan, nil
	}

	plan := &structPlan{}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Name
		tag, tagged := sf.Tag.Lookup(TagName)
		if tagged {
			tag, _, _ = strings.Cut(tag, ",")
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		} else if sf.Anonymous {
			continue
		}
		f := d.resolve(name, tagged && name != sf.Name)
		if f == nil {
			if d.opts.Strict {
				return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, t.Name(), sf.Name)
			}
			continue
		}
		plan.fields = append(plan.fields, planField{idx: i, field: f})
	}
	d.plans[t] = plan
	return plan, nil
}

// resolve finds the schema field for a struct field name. Explicit tags must
// match exactly; plain field names also match case-insensitively.
func (d *StructDef) resolve(name string, exact bool) *Field {
	if f, ok := d.schema.byName[name]; ok {
		return f
	}
	if exact {
		return nil
	}
	for _, f := range d.schema.fields {
		if strings.EqualFold(f.Name, name) {
			return f
		}
	}
	return nil
}

// fieldsOf lists the raw input values of data keyed by schema field.
func (d *StructDef) fieldsOf(data any) (map[*Field]any, error) {
	switch m := data.(type) {
	case Record:
		return d.fieldsOfMap(m)
	case map[string]any:
		return d.fieldsOfMap(m)
	}

	v := reflect.ValueOf(data)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, fmt.Errorf("%w: nil %T", ErrUnsupported, data)
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Struct:
		plan, err := d.getPlan(v.Type())
		if err != nil {
			return nil, err
		}
		out := make(map[*Field]any, len(plan.fields))
		for _, pf := range plan.fields {
			out[pf.field] = v.Field(pf.idx).Interface()
		}
		return out, nil
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			break
		}
		m := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return d.fieldsOfMap(m)
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupported, data)
}

func (d *StructDef) fieldsOfMap(m map[string]any) (map[*Field]any, error) {
	out := make(map[*Field]any, len(m))
	for k, v := range m {
		f, ok := d.schema.byName[k]
		if !ok {
			if d.opts.Strict {
				return nil, fmt.Errorf("%w: %q", ErrUnknownField, k)
			}
			continue
		}
		out[f] = v
	}
	return out, nil
}
