package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// References is the shared lookup table attached to list and entry responses.
// Deployments disagree on its shape: BKK sends objects keyed by id, the
// reference OneBusAway server sends arrays. Both decode into maps.
type References struct {
	Routes RouteTable `json:"routes"`
	Stops  StopTable  `json:"stops"`
}

// RouteTable maps route id to route.
type RouteTable map[string]*Route

// StopTable maps stop id to stop.
type StopTable map[string]*Stop

func (t *RouteTable) UnmarshalJSON(b []byte) error {
	m, err := decodeTable(b, func(r *Route) string { return r.ID })
	if err != nil {
		return fmt.Errorf("routes: %w", err)
	}
	*t = m
	return nil
}

func (t *StopTable) UnmarshalJSON(b []byte) error {
	m, err := decodeTable(b, func(s *Stop) string { return s.ID })
	if err != nil {
		return fmt.Errorf("stops: %w", err)
	}
	*t = m
	return nil
}

// decodeTable accepts null, an object keyed by id, or an array of objects.
// In the keyed form an element without its own id inherits the key.
func decodeTable[T any](b []byte, id func(*T) string) (map[string]*T, error) {
	trimmed := bytes.TrimSpace(b)
	table := make(map[string]*T)

	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		return table, nil

	case trimmed[0] == '{':
		var keyed map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &keyed); err != nil {
			return nil, err
		}
		for key, raw := range keyed {
			item, err := decodeElement[T](raw)
			if err != nil {
				return nil, fmt.Errorf("element %q: %w", key, err)
			}
			if item == nil {
				continue
			}
			if id(item) == "" {
				setID(item, key)
			}
			table[key] = item
		}
		return table, nil

	case trimmed[0] == '[':
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		for i, raw := range list {
			item, err := decodeElement[T](raw)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			if item == nil || id(item) == "" {
				continue
			}
			table[id(item)] = item
		}
		return table, nil

	default:
		return nil, fmt.Errorf("unexpected reference table shape %q", string(trimmed[:1]))
	}
}

func decodeElement[T any](raw json.RawMessage) (*T, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	item := new(T)
	if err := json.Unmarshal(raw, item); err != nil {
		return nil, err
	}
	return item, nil
}

func setID(item any, id string) {
	switch v := item.(type) {
	case *Route:
		v.ID = id
	case *Stop:
		v.ID = id
	}
}
