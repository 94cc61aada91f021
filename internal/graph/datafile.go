package graph

// DataFileType is the format of a data file.
type DataFileType string

const (
	DataFileJSON DataFileType = "json"
	DataFileYAML DataFileType = "yaml"
)

// ReferenceKind says where a function mentions a data file.
type ReferenceKind string

const (
	RefFileReference ReferenceKind = "file_reference"
	RefSourceCode    ReferenceKind = "source_code"
	RefStringLiteral ReferenceKind = "string_literal"
)

// DataFileReference links a function to a data file it mentions.
type DataFileReference struct {
	FunctionID   string        `json:"function_id"`
	FunctionName string        `json:"function_name"`
	FilePath     string        `json:"file_path"`
	Kind         ReferenceKind `json:"kind"`
	Line         int           `json:"line"`
	Content      string        `json:"content"`
}

// DataFile is a JSON or YAML file found next to the analyzed sources.
type DataFile struct {
	Path       string              `json:"path"`
	Type       DataFileType        `json:"type"`
	Content    string              `json:"content"`
	Valid      bool                `json:"valid"`
	References []DataFileReference `json:"references,omitempty"`
}
