package domain

// fieldReader pulls typed values out of a loosely typed document field map,
// remembering which keys were missing or had the wrong type.
type fieldReader struct {
	fields map[string]any
	bad    []string
}

// str returns fields[key] as a string, or "" when it is absent or not a string.
// Missing keys are only recorded when required is set.
func (r *fieldReader) str(key string, required bool) string {
	v, ok := r.fields[key]
	if !ok || v == nil {
		if required {
			r.bad = append(r.bad, key)
		}
		return ""
	}
	s, ok := v.(string)
	if !ok {
		r.bad = append(r.bad, key)
		return ""
	}
	return s
}

// boolean returns fields[key] as a bool, or false when absent or mistyped.
func (r *fieldReader) boolean(key string, required bool) bool {
	v, ok := r.fields[key]
	if !ok || v == nil {
		if required {
			r.bad = append(r.bad, key)
		}
		return false
	}
	b, ok := v.(bool)
	if !ok {
		r.bad = append(r.bad, key)
		return false
	}
	return b
}

// err returns a *DecodeError when any field was malformed, otherwise nil.
func (r *fieldReader) err(id string) error {
	if len(r.bad) == 0 {
		return nil
	}
	return &DecodeError{ID: id, Fields: r.bad}
}
