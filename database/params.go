package database

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Well-known connection parameter keys.
const (
	KeyType      = "type"
	KeyInterface = "interface"
	KeyHost      = "host"
	KeyPort      = "port"
	KeyUser      = "user"
	KeyPassword  = "password"
	KeyDBName    = "dbname"
	KeyCharset   = "charset"
	KeyBuffered  = "buffered"
)

// hashKeys is the subset of keys that identifies a connection configuration.
var hashKeys = []string{KeyType, KeyInterface, KeyHost, KeyPort, KeyUser, KeyPassword, KeyDBName, KeyCharset}

// Params is an ordered string mapping of connection parameters.
type Params struct {
	keys   []string
	values map[string]string
}

// NewParams builds Params from key/value pairs. A trailing key without value is ignored.
func NewParams(kv ...string) Params {
	var p Params
	for i := 0; i+1 < len(kv); i += 2 {
		p.Set(kv[i], kv[i+1])
	}
	return p
}

// ParamsFromMap builds Params from a map, keys in sorted order.
func ParamsFromMap(m map[string]string) Params {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var p Params
	for _, k := range keys {
		p.Set(k, m[k])
	}
	return p
}

// Set adds or replaces a key, keeping the position of an existing key.
func (p *Params) Set(key, value string) *Params {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
	return p
}

// Get returns the value of key and whether it is present.
func (p Params) Get(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Value returns the value of key or an empty string.
func (p Params) Value(key string) string {
	return p.values[key]
}

// ValueOr returns the value of key or def when key is missing or empty.
func (p Params) ValueOr(key, def string) string {
	if v := p.values[key]; v != "" {
		return v
	}
	return def
}

// Bool parses key as a boolean, missing or unparsable values are false.
func (p Params) Bool(key string) bool {
	b, err := strconv.ParseBool(p.values[key])
	return err == nil && b
}

// Int parses key as an integer, def is returned for missing values.
func (p Params) Int(key string, def int) (int, error) {
	v, ok := p.values[key]
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidConfig, "param %s: %q is not a number", key, v)
	}
	return n, nil
}

// Type returns the driver type.
func (p Params) Type() string {
	return p.values[KeyType]
}

func (p Params) Keys() []string {
	keys := make([]string, len(p.keys))
	copy(keys, p.keys)
	return keys
}

func (p Params) Len() int {
	return len(p.keys)
}

// Clone returns an independent copy.
func (p Params) Clone() Params {
	c := Params{
		keys:   make([]string, len(p.keys)),
		values: make(map[string]string, len(p.values)),
	}
	copy(c.keys, p.keys)
	for k, v := range p.values {
		c.values[k] = v
	}
	return c
}

// Map returns the parameters as a plain map.
func (p Params) Map() map[string]string {
	m := make(map[string]string, len(p.values))
	for k, v := range p.values {
		m[k] = v
	}
	return m
}

// Hash returns a stable digest of the identifying keys. Missing keys hash as empty values.
func (p Params) Hash() string {
	d := xxhash.New()
	for _, k := range hashKeys {
		_, _ = d.WriteString(k)
		_, _ = d.Write([]byte{0})
		_, _ = d.WriteString(p.values[k])
		_, _ = d.Write([]byte{0})
	}
	return strconv.FormatUint(d.Sum64(), 16)
}

// String renders the parameters in order with the password masked.
func (p Params) String() string {
	var b strings.Builder
	for i, k := range p.keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		v := p.values[k]
		if k == KeyPassword && v != "" {
			v = "xxxxx"
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
	}
	return b.String()
}

// UnmarshalYAML keeps the document order of a YAML mapping.
func (p *Params) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return errors.Wrapf(ErrInvalidConfig, "params: expected mapping at line %d", node.Line)
	}
	*p = Params{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		p.Set(node.Content[i].Value, node.Content[i+1].Value)
	}
	return nil
}

func (p Params) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range p.keys {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: k},
			&yaml.Node{Kind: yaml.ScalarNode, Value: p.values[k]},
		)
	}
	return node, nil
}
