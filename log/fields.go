package log

// Field is an extra key attached by Logger.GetLogger.
type Field struct {
	Name  string
	Value interface{}
}

func F(name string, value interface{}) *Field {
	return &Field{Name: name, Value: value}
}
