// Package metadata handles the document metadata produced by the analysis
// service and the corrected metadata submitted with an encoded filename.
package metadata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"hukudok/internal/codec"
)

// MetadataErrorType represents the type of metadata error.
type MetadataErrorType string

const (
	FileNotFound MetadataErrorType = "FILE_NOT_FOUND"
	InvalidJSON  MetadataErrorType = "INVALID_JSON"
	WriteFailed  MetadataErrorType = "WRITE_FAILED"
)

// MetadataError represents an error reading or writing a metadata file.
type MetadataError struct {
	Type    MetadataErrorType
	Path    string
	Message string
}

func (e *MetadataError) Error() string {
	switch e.Type {
	case FileNotFound:
		return fmt.Sprintf("metadata file not found: %s", e.Path)
	case InvalidJSON:
		if e.Path != "" {
			return fmt.Sprintf("invalid JSON in metadata file %s: %s", e.Path, e.Message)
		}
		return fmt.Sprintf("invalid JSON in metadata: %s", e.Message)
	case WriteFailed:
		return fmt.Sprintf("failed to write metadata file %s: %s", e.Path, e.Message)
	default:
		return fmt.Sprintf("metadata error: %s", e.Message)
	}
}

// Names is a list of names that also decodes from a single JSON string.
// The analysis service emits the counterparty either way.
type Names []string

// UnmarshalJSON accepts a string, a list of strings or null.
func (n *Names) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = nil
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*n = nil
			return nil
		}
		*n = Names{s}
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*n = list
	return nil
}

// MarshalJSON writes a single name as a plain string.
func (n Names) MarshalJSON() ([]byte, error) {
	switch len(n) {
	case 0:
		return []byte(`""`), nil
	case 1:
		return json.Marshal(n[0])
	default:
		return json.Marshal([]string(n))
	}
}

// String joins the names with ", ".
func (n Names) String() string {
	return strings.Join(n, ", ")
}

// Document is the metadata of one legal document.
type Document struct {
	Date         string   `json:"tarih"`
	DocumentType string   `json:"belge_turu_kodu"`
	Client       string   `json:"muvekkil_adi"`
	Clients      []string `json:"muvekkiller"`
	Counterparty Names    `json:"karsi_taraf"`
	NamesInText  []string `json:"belgede_gecen_isimler"`
	CaseNumber   string   `json:"esas_no"`
	Lawyer       string   `json:"avukat_kodu"`
	Status       string   `json:"durum"`
	OfficeFile   string   `json:"ofis_dosya_no"`
	Reserved1    string   `json:"ek_alan_1"`
	Reserved2    string   `json:"ek_alan_2"`
	Summary      string   `json:"ozet"`
	Hash         string   `json:"hash"`
	EncodedName  string   `json:"kodlu_ad,omitempty"`
	OriginalName string   `json:"orijinal_ad,omitempty"`
	DocumentDate string   `json:"belge_tarihi,omitempty"`
	ArchivedDate string   `json:"arsiv_tarihi,omitempty"`
}

// Get returns the value of a filename field.
func (d *Document) Get(f codec.Field) string {
	if p := d.field(f); p != nil {
		return *p
	}
	return ""
}

// Set assigns the value of a filename field. Unknown fields are ignored.
func (d *Document) Set(f codec.Field, value string) {
	if p := d.field(f); p != nil {
		*p = value
	}
}

func (d *Document) field(f codec.Field) *string {
	switch f {
	case codec.FieldDate:
		return &d.Date
	case codec.FieldDocumentType:
		return &d.DocumentType
	case codec.FieldClient:
		return &d.Client
	case codec.FieldCaseNumber:
		return &d.CaseNumber
	case codec.FieldLawyer:
		return &d.Lawyer
	case codec.FieldStatus:
		return &d.Status
	case codec.FieldOfficeFile:
		return &d.OfficeFile
	case codec.FieldReserved1:
		return &d.Reserved1
	case codec.FieldReserved2:
		return &d.Reserved2
	case codec.FieldHash:
		return &d.Hash
	}
	return nil
}

// Values returns the filename fields of d.
func (d *Document) Values() codec.Values {
	values := make(codec.Values)
	for _, f := range codec.Fields() {
		values[f] = d.Get(f)
	}
	return values
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	c := *d
	c.Clients = append([]string(nil), d.Clients...)
	c.Counterparty = append(Names(nil), d.Counterparty...)
	c.NamesInText = append([]string(nil), d.NamesInText...)
	return &c
}

// Decode reads a Document from r.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, &MetadataError{Type: InvalidJSON, Message: err.Error()}
	}
	return &doc, nil
}

// Load reads and parses a metadata file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &MetadataError{Type: FileNotFound, Path: path}
		}
		return nil, &MetadataError{Type: FileNotFound, Path: path, Message: err.Error()}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &MetadataError{Type: InvalidJSON, Path: path, Message: err.Error()}
	}
	return &doc, nil
}

// Save writes doc as indented JSON.
func Save(doc *Document, path string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &MetadataError{Type: InvalidJSON, Path: path, Message: err.Error()}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &MetadataError{Type: WriteFailed, Path: path, Message: err.Error()}
	}
	return nil
}
