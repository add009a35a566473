package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var ErrArtifactNotFound = errors.New("artifact not found")

// ArtifactStore keeps the raw BLAST XML report of each searched accession.
type ArtifactStore interface {
	SaveResult(ctx context.Context, jobID, accession string, payload []byte) error
	LoadResult(ctx context.Context, jobID, accession string) ([]byte, error)
	RemoveJob(ctx context.Context, jobID string) error
}

const (
	DefaultObjectPrefix = "results"
	xmlContentType      = "application/xml"
)

// ObjectArtifacts stores reports as results/<jobID>/<accession>.xml.
type ObjectArtifacts struct {
	Client *Client
	Prefix string
}

func NewObjectArtifacts(client *Client) *ObjectArtifacts {
	return &ObjectArtifacts{Client: client, Prefix: DefaultObjectPrefix}
}

func (a *ObjectArtifacts) SaveResult(ctx context.Context, jobID, accession string, payload []byte) error {
	return a.Client.WriteObject(ctx, a.key(jobID, accession), payload, xmlContentType)
}

func (a *ObjectArtifacts) LoadResult(ctx context.Context, jobID, accession string) ([]byte, error) {
	key := a.key(jobID, accession)
	ok, err := a.Client.ObjectExists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrArtifactNotFound
	}
	return a.Client.ReadObject(ctx, key)
}

func (a *ObjectArtifacts) RemoveJob(ctx context.Context, jobID string) error {
	return a.Client.RemovePrefix(ctx, path.Join(a.prefix(), sanitizePathToken(jobID))+"/")
}

func (a *ObjectArtifacts) key(jobID, accession string) string {
	return path.Join(a.prefix(), sanitizePathToken(jobID), sanitizePathToken(accession)+".xml")
}

func (a *ObjectArtifacts) prefix() string {
	if a.Prefix == "" {
		return DefaultObjectPrefix
	}
	return a.Prefix
}

// LocalArtifacts stores reports as <Dir>/<jobID>_<accession>.xml.
type LocalArtifacts struct {
	Dir string
}

func (a *LocalArtifacts) SaveResult(_ context.Context, jobID, accession string, payload []byte) error {
	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	if err := os.WriteFile(a.file(jobID, accession), payload, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

func (a *LocalArtifacts) LoadResult(_ context.Context, jobID, accession string) ([]byte, error) {
	data, err := os.ReadFile(a.file(jobID, accession))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrArtifactNotFound
		}
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return data, nil
}

func (a *LocalArtifacts) RemoveJob(_ context.Context, jobID string) error {
	matches, err := filepath.Glob(filepath.Join(a.Dir, sanitizePathToken(jobID)+"_*.xml"))
	if err != nil {
		return fmt.Errorf("list artifacts: %w", err)
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove artifact: %w", err)
		}
	}
	return nil
}

func (a *LocalArtifacts) file(jobID, accession string) string {
	return filepath.Join(a.Dir, sanitizePathToken(jobID)+"_"+sanitizePathToken(accession)+".xml")
}

// sanitizePathToken keeps accession-like characters and replaces the rest,
// so user input never escapes the artifact directory.
func sanitizePathToken(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "_"
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if strings.Trim(out, ".") == "" {
		return "_"
	}
	return out
}
