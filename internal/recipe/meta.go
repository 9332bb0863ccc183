// Package recipe parses feedstock meta.yaml files and supports minimal-diff
// edits to them. A Meta holds two views of the same file: the rendered YAML
// structure for reading current values, and the original raw text for
// writing new ones. Every mutation is a literal substitution against the raw
// text followed by a full re-parse; the structured view is never serialized
// back, so comments, ordering and formatting survive untouched.
package recipe

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrRender is returned when the template directives cannot be rendered
	// or the rendered text is not valid YAML.
	ErrRender = errors.New("cannot render recipe")
	// ErrNoChecksum is returned when the source section declares neither a
	// sha256 nor an md5 digest.
	ErrNoChecksum = errors.New("recipe declares no sha256 or md5 checksum")
	// ErrArchiveName is returned when the source filename does not embed the
	// version, so package name and archive suffix cannot be derived.
	ErrArchiveName = errors.New("archive filename does not embed the version")
	// ErrAmbiguousBuildNumber is returned when the literal build-number text
	// occurs more than once, so no unique patch target exists.
	ErrAmbiguousBuildNumber = errors.New("build number occurs more than once; refusing to patch")
	// ErrNoBuildNumber is returned when a build-number edit is requested but
	// the recipe declares none.
	ErrNoBuildNumber = errors.New("recipe declares no build number")
)

// MissingKeyError reports a required key absent from the rendered structure.
type MissingKeyError struct {
	Section string
	Key     string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("missing meta.yaml key: [%s][%s]", e.Section, e.Key)
}

// Kind identifies the checksum algorithm declared by a recipe.
type Kind string

const (
	SHA256 Kind = "sha256"
	MD5    Kind = "md5"
)

// TemplateVar is one {% set %} binding found in the raw text. Statement is
// the verbatim defining statement, usable as a find-target for a patch.
type TemplateVar struct {
	Value     string
	Statement string
}

var (
	jinjaSetRegex     = regexp.MustCompile(`\{%\s*set\s+([A-Za-z_]\w*)\s*=\s*(.+?)\s*%\}`)
	yamlJinjaRefRegex = regexp.MustCompile(`(?m)^\s*([A-Za-z_]\w*):\s*['"]?\{\{\s*([A-Za-z_]\w*)\s*(?:\|[^}]*)?\}\}`)
)

// Meta models one recipe file. Construct with Parse; a Meta only changes by
// re-parsing new raw text after a substitution.
type Meta struct {
	raw           string
	doc           *yaml.Node
	checksumKind  Kind
	packageName   string
	archiveSuffix string
	deps          map[string]struct{}
	tmplVars      map[string]TemplateVar
	varRefs       map[string]string
}

// Parse constructs a Meta from raw meta.yaml text.
func Parse(raw string) (*Meta, error) {
	m := &Meta{raw: raw}
	if err := m.parse(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Meta) parse() error {
	rendered, err := renderTemplate(m.raw)
	if err != nil {
		var undef *UndefinedVariableError
		if errors.As(err, &undef) {
			rendered, err = renderTemplate(stripRecipeDirRefs(m.raw))
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRender, err)
		}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(rendered), &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrRender, err)
	}
	m.doc = &doc

	version := m.stringAt("package", "version")
	if version == "" {
		return &MissingKeyError{Section: "package", Key: "version"}
	}
	fn := m.stringAt("source", "fn")
	if fn == "" {
		return &MissingKeyError{Section: "source", Key: "fn"}
	}

	switch {
	case m.stringAt("source", "sha256") != "":
		m.checksumKind = SHA256
	case m.stringAt("source", "md5") != "":
		m.checksumKind = MD5
	default:
		return ErrNoChecksum
	}

	splitter := "-" + version + "."
	idx := strings.Index(fn, splitter)
	if idx <= 0 || idx+len(splitter) >= len(fn) {
		return fmt.Errorf("%w: %q does not contain %q", ErrArchiveName, fn, splitter)
	}
	m.packageName = fn[:idx]
	m.archiveSuffix = fn[idx+len(splitter):]

	m.collectDependencies()
	m.scanRawText()

	return nil
}

// collectDependencies gathers bare names from every declared requirements
// phase plus test/requires, dropping version constraints and the fixed
// exclusions (the interpreter and its build tool).
func (m *Meta) collectDependencies() {
	m.deps = make(map[string]struct{})

	if reqs := m.nodeAt("requirements"); reqs != nil && reqs.Kind == yaml.MappingNode {
		for i := 1; i < len(reqs.Content); i += 2 {
			m.addDeps(reqs.Content[i])
		}
	}
	m.addDeps(m.nodeAt("test", "requires"))
}

func (m *Meta) addDeps(seq *yaml.Node) {
	if seq == nil || seq.Kind != yaml.SequenceNode {
		return
	}
	for _, item := range seq.Content {
		if item.Kind != yaml.ScalarNode {
			continue
		}
		fields := strings.Fields(item.Value)
		if len(fields) == 0 {
			continue
		}
		name := fields[0]
		if name == "python" || name == "setuptools" {
			continue
		}
		m.deps[name] = struct{}{}
	}
}

// scanRawText runs the two independent pattern scans over the ORIGINAL
// unrendered text: template variable definitions and field-to-variable
// references. These are the find-targets for indirect patches.
func (m *Meta) scanRawText() {
	m.tmplVars = make(map[string]TemplateVar)
	for _, match := range jinjaSetRegex.FindAllStringSubmatch(m.raw, -1) {
		m.tmplVars[match[1]] = TemplateVar{Value: match[2], Statement: match[0]}
	}

	m.varRefs = make(map[string]string)
	for _, match := range yamlJinjaRefRegex.FindAllStringSubmatch(m.raw, -1) {
		m.varRefs[match[1]] = match[2]
	}
}

// nodeAt walks a mapping path through the rendered document.
func (m *Meta) nodeAt(path ...string) *yaml.Node {
	if m.doc == nil || len(m.doc.Content) == 0 {
		return nil
	}
	node := m.doc.Content[0]
	for _, key := range path {
		if node == nil || node.Kind != yaml.MappingNode {
			return nil
		}
		var next *yaml.Node
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == key {
				next = node.Content[i+1]
				break
			}
		}
		node = next
	}
	return node
}

// stringAt reads a scalar at a mapping path. Scalars keep their literal
// text, so a build number of 0 reads as "0" regardless of quoting.
func (m *Meta) stringAt(path ...string) string {
	n := m.nodeAt(path...)
	if n == nil || n.Kind != yaml.ScalarNode {
		return ""
	}
	return n.Value
}

// RawText returns the complete original file content.
func (m *Meta) RawText() string { return m.raw }

// Version returns the current declared version.
func (m *Meta) Version() string { return m.stringAt("package", "version") }

// Checksum returns the current declared checksum.
func (m *Meta) Checksum() string { return m.stringAt("source", string(m.checksumKind)) }

// ChecksumKind returns the checksum algorithm in use.
func (m *Meta) ChecksumKind() Kind { return m.checksumKind }

// BuildNumber returns the current build number, empty when undeclared.
func (m *Meta) BuildNumber() string { return m.stringAt("build", "number") }

// ArchiveName returns the declared source archive filename.
func (m *Meta) ArchiveName() string { return m.stringAt("source", "fn") }

// PackageName returns the canonical package name derived from the archive
// filename.
func (m *Meta) PackageName() string { return m.packageName }

// ArchiveSuffix returns the archive suffix after the version token, without
// a leading dot (for example "tar.gz").
func (m *Meta) ArchiveSuffix() string { return m.archiveSuffix }

// Dependencies returns the set of bare dependency names.
func (m *Meta) Dependencies() map[string]struct{} {
	out := make(map[string]struct{}, len(m.deps))
	for k := range m.deps {
		out[k] = struct{}{}
	}
	return out
}

// TemplateVars returns the template variable bindings found in the raw text.
func (m *Meta) TemplateVars() map[string]TemplateVar {
	out := make(map[string]TemplateVar, len(m.tmplVars))
	for k, v := range m.tmplVars {
		out[k] = v
	}
	return out
}

// VarRefs returns the field-to-variable reference map found in the raw text.
func (m *Meta) VarRefs() map[string]string {
	out := make(map[string]string, len(m.varRefs))
	for k, v := range m.varRefs {
		out[k] = v
	}
	return out
}

// FindReplaceUpdate applies literal find/replace pairs directly to the raw
// text in lexicographic key order, then re-parses. This is the single
// substitution primitive; higher-level edits reduce to it. The Meta is left
// unchanged when the re-parse fails.
func (m *Meta) FindReplaceUpdate(mapping map[string]string) error {
	keys := make([]string, 0, len(mapping))
	for k := range mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	text := m.raw
	for _, k := range keys {
		text = strings.ReplaceAll(text, k, mapping[k])
	}

	return m.reparse(text)
}

func (m *Meta) reparse(text string) error {
	next := &Meta{raw: text}
	if err := next.parse(); err != nil {
		return err
	}
	*m = *next
	return nil
}

// SetBuildNumber sets the build number to n. Equal values are a successful
// no-op. An indirect build number patches the defining statement of its
// template variable, assuming a single defining statement. A literal build
// number patches the `number: <old>` text, refusing when that pattern is not
// unique in the file.
func (m *Meta) SetBuildNumber(n int) error {
	current := m.BuildNumber()
	if current == "" {
		return ErrNoBuildNumber
	}
	if current == strconv.Itoa(n) {
		return nil
	}

	var mapping map[string]string
	if varName, ok := m.varRefs["number"]; ok {
		tv, ok := m.tmplVars[varName]
		if !ok {
			return fmt.Errorf("build number references undefined variable %q", varName)
		}
		mapping = map[string]string{
			tv.Statement: fmt.Sprintf("{%% set %s = %d %%}", varName, n),
		}
	} else {
		re := regexp.MustCompile("number: *" + regexp.QuoteMeta(current))
		matches := re.FindAllString(m.raw, -1)
		if len(matches) > 1 {
			return ErrAmbiguousBuildNumber
		}
		if len(matches) == 0 {
			return fmt.Errorf("build number %q not found in raw text", current)
		}
		mapping = map[string]string{
			matches[0]: fmt.Sprintf("number: %d", n),
		}
	}

	return m.FindReplaceUpdate(mapping)
}
