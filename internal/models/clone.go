package models

// Clone returns a copy of the message that shares no maps or slices with m
func (m Message) Clone() Message {
	out := m
	out.Message = CloneValue(m.Message)
	if m.Subscription != nil {
		s := *m.Subscription
		out.Subscription = &s
	}
	out.Actions = make(map[string]map[string][]ActionRef, len(m.Actions))
	for typ, values := range m.Actions {
		inner := make(map[string][]ActionRef, len(values))
		for value, refs := range values {
			inner[value] = append([]ActionRef(nil), refs...)
		}
		out.Actions[typ] = inner
	}
	return out
}

func (u User) Clone() User {
	u.Custom = cloneMap(u.Custom)
	return u
}

func (c Channel) Clone() Channel {
	c.Custom = cloneMap(c.Custom)
	return c
}

// CloneValue deep-copies decoded JSON/YAML values. Scalars and types it does
// not know are returned as-is.
func CloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return cloneMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = CloneValue(e)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, e := range t {
			out[k] = e
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, e := range m {
		out[k] = CloneValue(e)
	}
	return out
}

func CloneMessages(in []Message) []Message {
	out := make([]Message, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

func CloneUsers(in []User) []User {
	out := make([]User, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

func CloneChannels(in []Channel) []Channel {
	out := make([]Channel, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
