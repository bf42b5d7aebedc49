// Package seed loads initial collections from a YAML file into a medium.
//
// File format:
//
//	collections:
//	  users:
//	    - id: "1"
//	      name: Alice
//	  cards:
//	    - id: c1
//	      title: Write docs
//	      status: todo
package seed

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/stevemurr/mockdb/medium"
	"github.com/stevemurr/mockdb/recordstore"
)

// File is the decoded seed file.
type File struct {
	Collections map[string][]recordstore.Document `yaml:"collections"`
}

// Parse decodes a seed file and checks every record has a string id.
func Parse(r io.Reader) (*File, error) {
	var f File
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if err == io.EOF {
			return &File{}, nil
		}
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	for name, docs := range f.Collections {
		for i, d := range docs {
			if d.RecordID() == "" {
				return nil, fmt.Errorf("collection %q record %d: missing string id", name, i)
			}
		}
	}
	return &f, nil
}

// LoadFile parses the seed file at path.
func LoadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return Parse(fh)
}

// Apply creates every record of f in m, one goroutine per collection. It
// returns the number of records created per collection.
func Apply(ctx context.Context, m medium.Medium, f *File, log *zap.Logger, opts ...recordstore.Option) (map[string]int, error) {
	if log == nil {
		log = zap.NewNop()
	}
	names := make([]string, 0, len(f.Collections))
	for name := range f.Collections {
		names = append(names, name)
	}
	sort.Strings(names)

	storeOpts := append(append([]recordstore.Option{}, opts...), recordstore.WithLogger(log))
	counts := make([]int, len(names))
	g, ctx := errgroup.WithContext(ctx)
	for i, name := range names {
		docs := f.Collections[name]
		g.Go(func() error {
			s := recordstore.New[recordstore.Document](m, name, storeOpts...)
			for _, d := range docs {
				if err := ctx.Err(); err != nil {
					return err
				}
				if _, err := s.Create(normalize(d)); err != nil {
					return fmt.Errorf("seed %q: %w", name, err)
				}
				counts[i]++
			}
			log.Info("collection seeded", zap.String("collection", name), zap.Int("records", counts[i]))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make(map[string]int, len(names))
	for i, name := range names {
		result[name] = counts[i]
	}
	return result, nil
}

// normalize converts YAML-decoded nested maps into JSON-encodable ones.
func normalize(d recordstore.Document) recordstore.Document {
	out := make(recordstore.Document, len(d))
	for k, v := range d {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = normalizeValue(vv)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[fmt.Sprint(k)] = normalizeValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = normalizeValue(vv)
		}
		return out
	}
	return v
}
