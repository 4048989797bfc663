package credfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/carlmn/rentsync/internal/ports"
)

// Source reads the admin password from a JSON file of the form
// {"password": "..."}. The file is re-read on every call so the
// bootstrapper's retry loop picks up a corrected credential without a
// restart.
type Source struct {
	path string
}

var _ ports.CredentialSource = (*Source)(nil)

func NewSource(path string) *Source {
	return &Source{path: filepath.Clean(path)}
}

type credentialSchema struct {
	Password string `json:"password"`
}

func (s *Source) AdminPassword(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("credential file %q not found: %w", s.path, err)
		}
		return "", fmt.Errorf("read credential file %q: %w", s.path, err)
	}

	var schema credentialSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		return "", fmt.Errorf("decode credential file %q: %w", s.path, err)
	}
	if strings.TrimSpace(schema.Password) == "" {
		return "", fmt.Errorf("credential file %q has an empty password", s.path)
	}

	return schema.Password, nil
}
