package confrec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// SaveJSON serializes the record's value tree and writes it to path as
// indented JSON, atomically (temp file + rename). Encode and IO failures
// wrap ErrSerialization.
func SaveJSON(rec any, path string) error {
	tree, err := ToTree(rec)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return writeFileAtomic(path, append(data, '\n'))
}

// LoadJSON reads path, decodes it as JSON and updates the record from the
// resulting tree with FromTree's partial-update semantics. A missing file,
// a decode error or an IO error wraps ErrSerialization.
func LoadJSON(rec any, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	tree, err := decodeJSONTree(data)
	if err != nil {
		return err
	}
	return FromTree(rec, tree)
}

// SaveTOML writes the record's value tree to path as TOML. TOML has no
// null, so unset (null) entries are omitted; loading the file back leaves
// the corresponding fields unmodified, which matches the partial-update
// semantics.
func SaveTOML(rec any, path string) error {
	tree, err := ToTree(rec)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(stripNulls(tree)); err != nil {
		return fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return writeFileAtomic(path, buf.Bytes())
}

// LoadTOML reads path, decodes it as TOML and updates the record from the
// resulting tree.
func LoadTOML(rec any, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	tree := make(map[string]any)
	if err := toml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	normalizeTOMLTree(tree)
	return FromTree(rec, tree)
}

// normalizeTOMLTree aligns TOML decoding artifacts with the tree shape:
// arrays of tables decode as []map[string]any where trees use []any.
func normalizeTOMLTree(tree map[string]any) {
	for k, v := range tree {
		switch t := v.(type) {
		case map[string]any:
			normalizeTOMLTree(t)
		case []map[string]any:
			items := make([]any, len(t))
			for i, e := range t {
				normalizeTOMLTree(e)
				items[i] = e
			}
			tree[k] = items
		case []any:
			for _, e := range t {
				if sub, ok := e.(map[string]any); ok {
					normalizeTOMLTree(sub)
				}
			}
		}
	}
}

func stripNulls(tree map[string]any) map[string]any {
	out := make(map[string]any, len(tree))
	for k, v := range tree {
		switch t := v.(type) {
		case nil:
			continue
		case map[string]any:
			out[k] = stripNulls(t)
		case []any:
			items := make([]any, 0, len(t))
			for _, e := range t {
				if sub, ok := e.(map[string]any); ok {
					items = append(items, stripNulls(sub))
					continue
				}
				if e != nil {
					items = append(items, e)
				}
			}
			out[k] = items
		default:
			out[k] = v
		}
	}
	return out
}

// writeFileAtomic writes data to path through a temp file in the same
// directory, fsyncs it and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: %w", ErrSerialization, err)
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	tempPath := tempFile.Name()
	defer os.Remove(tempPath) // no-op once the rename succeeds

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return nil
}
