// Package defload reads table definitions from YAML or JSON files.
//
// A definition file holds a top-level "tables" list:
//
//	tables:
//	  - id: 1
//	    name: users
//	    fields:
//	      - {id: 1, name: email, kind: email, required: true, unique: true}
//
// A directory is read file by file in name order and the tables are
// concatenated. JSON files use the same shape.
package defload

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hlop3z/tablegate/internal/alerr"
	"github.com/hlop3z/tablegate/internal/ast"
)

// Extensions read from a directory.
var Extensions = []string{".yaml", ".yml", ".json"}

// Location points at a definition in a file.
type Location struct {
	File string
	Line int
}

// Set is a loaded definition set.
type Set struct {
	Tables []*ast.TableDef
	Files  []string

	tables map[string]Location
	fields map[string]Location
}

// Load reads path, which is a definition file or a directory of them.
func Load(path string) (*Set, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, alerr.Wrap(alerr.ErrConfigRead, err, "failed to read definitions").
			With("path", path)
	}
	if !info.IsDir() {
		return LoadFiles(path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, alerr.Wrap(alerr.ErrConfigRead, err, "failed to read definitions directory").
			With("path", path)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !hasExtension(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(path, entry.Name()))
	}
	sort.Strings(files)

	if len(files) == 0 {
		return nil, alerr.New(alerr.ErrConfigRead, "no definition files found").
			With("path", path).
			WithHelp("definition files end in .yaml, .yml or .json")
	}
	return LoadFiles(files...)
}

// LoadFiles reads the given files in order.
func LoadFiles(files ...string) (*Set, error) {
	set := &Set{
		tables: make(map[string]Location),
		fields: make(map[string]Location),
	}
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, alerr.Wrap(alerr.ErrConfigRead, err, "failed to read definition file").
				With("file", file)
		}
		if err := set.parse(file, data); err != nil {
			return nil, err
		}
		set.Files = append(set.Files, file)
	}
	return set, nil
}

// Parse reads definitions from data. name is used in error locations.
func Parse(name string, data []byte) (*Set, error) {
	set := &Set{
		tables: make(map[string]Location),
		fields: make(map[string]Location),
	}
	if err := set.parse(name, data); err != nil {
		return nil, err
	}
	set.Files = []string{name}
	return set, nil
}

func (s *Set) parse(file string, data []byte) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		if strings.EqualFold(filepath.Ext(file), ".json") {
			return s.parseJSON(file, data)
		}
		return syntaxErr(file, err)
	}
	if doc.Kind == 0 {
		return nil
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return invalid(file, root.Line, "definition file must be a mapping with a tables list")
	}

	list := mappingValue(root, "tables")
	if list == nil {
		return invalid(file, root.Line, `missing "tables" key`)
	}
	if list.Kind != yaml.SequenceNode {
		return invalid(file, list.Line, `"tables" must be a list`)
	}

	for _, item := range list.Content {
		var table ast.TableDef
		if err := item.Decode(&table); err != nil {
			return syntaxErr(file, err).With("line", item.Line)
		}
		if err := s.add(file, item, &table); err != nil {
			return err
		}
	}
	return nil
}

// parseJSON handles JSON that YAML rejects, such as tab indentation.
// Locations then point at the file only.
func (s *Set) parseJSON(file string, data []byte) error {
	var doc struct {
		Tables []*ast.TableDef `json:"tables"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return syntaxErr(file, err)
	}
	for _, table := range doc.Tables {
		if table == nil {
			return invalid(file, 0, "empty table entry")
		}
		if err := s.add(file, &yaml.Node{}, table); err != nil {
			return err
		}
	}
	return nil
}

func (s *Set) add(file string, item *yaml.Node, table *ast.TableDef) error {
	loc := Location{File: file, Line: item.Line}
	if table.ID <= 0 {
		return invalid(file, item.Line, "table id must be a positive integer").
			WithTable(table.Name)
	}
	if table.Name == "" {
		return invalid(file, item.Line, "table name is required").
			With("table_id", table.ID)
	}

	var fieldNodes []*yaml.Node
	if seq := mappingValue(item, "fields"); seq != nil && seq.Kind == yaml.SequenceNode {
		fieldNodes = seq.Content
	}
	for i, f := range table.Fields {
		line := item.Line
		if i < len(fieldNodes) {
			line = fieldNodes[i].Line
		}
		if f == nil {
			return invalid(file, line, "empty field entry").WithTable(table.Name)
		}
		if f.ID <= 0 {
			return invalid(file, line, "field id must be a positive integer").
				WithTable(table.Name).
				WithField(f.Name)
		}
		if f.Kind == "" {
			return invalid(file, line, "field kind is required").
				WithTable(table.Name).
				WithField(f.Name)
		}
		s.fields[table.Name+"."+f.Name] = Location{File: file, Line: line}
	}

	if _, dup := s.tables[table.Name]; !dup {
		s.tables[table.Name] = loc
	}
	s.Tables = append(s.Tables, table)
	return nil
}

// Locate returns where the named table, or one of its fields, was defined.
// An empty field looks up the table.
func (s *Set) Locate(table, field string) (Location, bool) {
	if field != "" {
		if loc, ok := s.fields[table+"."+field]; ok {
			return loc, true
		}
	}
	loc, ok := s.tables[table]
	return loc, ok
}

// Annotate adds the file and line of the table or field an error refers to.
// Errors that already carry a file, or that name no known table, are
// returned unchanged.
func (s *Set) Annotate(err error) error {
	var e *alerr.Error
	if s == nil || !errors.As(err, &e) {
		return err
	}
	ctx := e.GetContext()
	if _, ok := ctx["file"]; ok {
		return err
	}
	table, _ := ctx["table"].(string)
	field, _ := ctx["field"].(string)
	loc, ok := s.Locate(table, field)
	if !ok {
		return err
	}
	e.With("file", loc.File).With("line", loc.Line)
	return err
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	if m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func hasExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func invalid(file string, line int, msg string) *alerr.Error {
	return alerr.New(alerr.ErrDefinitionInvalid, msg).
		With("file", file).
		With("line", line)
}

func syntaxErr(file string, err error) *alerr.Error {
	e := alerr.Wrap(alerr.ErrDefinitionInvalid, err, "failed to parse definition file").
		With("file", file)
	var te *yaml.TypeError
	if errors.As(err, &te) && len(te.Errors) > 0 {
		e.WithNote(te.Errors[0])
	}
	return e
}
