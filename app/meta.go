package app

// MetaDeps is the build information passed by -ldflags.
type MetaDeps struct {
	Name        string
	Builded     string
	Hash        string
	Version     string
	Description string
}

type Meta struct {
	Name        string `json:"name"`
	Builded     string `json:"builded"`
	Hash        string `json:"hash"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func NewMeta(deps *MetaDeps) *Meta {
	return &Meta{
		Name:        orDefault(deps.Name, "unknown"),
		Builded:     deps.Builded,
		Hash:        deps.Hash,
		Version:     orDefault(deps.Version, "0.0.0"),
		Description: orDefault(deps.Description, "no description"),
	}
}

func (m *Meta) BuildInfo() string {
	return m.Version + ", builded: " + m.Builded + ", hash: " + m.Hash
}
