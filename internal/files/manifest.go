package files

import (
	"os"
	"path/filepath"
	"time"

	"mangascout/internal/domain"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const ManifestName = "manifest.json"

// Manifest describes one downloaded chapter.
type Manifest struct {
	Source     string
	Title      string
	Chapter    string
	ChapterURL string
	Pages      []domain.SavedFile
	CreatedAt  time.Time
}

func (m Manifest) toStruct() (*structpb.Struct, error) {
	pages := make([]any, 0, len(m.Pages))
	saved := 0
	for _, p := range m.Pages {
		entry := map[string]any{
			"index":     p.Index,
			"sourceUrl": p.SourceURL,
		}
		if p.OK() {
			saved++
			entry["file"] = filepath.Base(p.LocalPath)
		} else if p.Err != nil {
			entry["error"] = p.Err.Error()
		}
		pages = append(pages, entry)
	}

	return structpb.NewStruct(map[string]any{
		"source":     m.Source,
		"title":      m.Title,
		"chapter":    m.Chapter,
		"chapterUrl": m.ChapterURL,
		"createdAt":  m.CreatedAt.UTC().Format(time.RFC3339),
		"saved":      saved,
		"failed":     len(m.Pages) - saved,
		"pages":      pages,
	})
}

// WriteManifest writes m as manifest.json into dir.
func WriteManifest(dir string, m Manifest) (string, error) {
	s, err := m.toStruct()
	if err != nil {
		return "", errors.Wrap(err, "could not build manifest")
	}

	data, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(s)
	if err != nil {
		return "", errors.Wrap(err, "could not encode manifest")
	}

	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", errors.Wrap(err, "could not create manifest directory")
	}

	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrap(err, "could not write manifest")
	}
	return path, nil
}

// ReadManifest loads a manifest written by WriteManifest as a generic struct.
func ReadManifest(path string) (*structpb.Struct, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not read manifest")
	}

	var s structpb.Struct
	if err := protojson.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "could not decode manifest")
	}
	return &s, nil
}

// Complete reports whether dir holds a manifest of a chapter that saved every
// page. A missing manifest is not an error.
func Complete(dir string) (bool, error) {
	m, err := ReadManifest(filepath.Join(dir, ManifestName))
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			return false, nil
		}
		return false, err
	}

	fields := m.GetFields()
	return fields["failed"].GetNumberValue() == 0 && fields["saved"].GetNumberValue() > 0, nil
}
