package common

// TableNameProvider interface for models that provide table names
type TableNameProvider interface {
	TableName() string
}

// SchemaProvider interface for models that provide schema names
type SchemaProvider interface {
	SchemaName() string
}

// DefaultSchema is used when a model does not implement SchemaProvider
const DefaultSchema = "dbo"
