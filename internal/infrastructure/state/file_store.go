package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	sonic "github.com/bytedance/sonic"
	"github.com/valyala/bytebufferpool"

	"github.com/riskibarqy/fpl-sync/internal/domain/syncstate"
	"github.com/riskibarqy/fpl-sync/internal/platform/logging"
	"github.com/riskibarqy/fpl-sync/internal/usecase"
)

// FileStore persists the sync fingerprint as a JSON file next to the
// service. Writes go through a temp file plus rename so a crash mid-write
// can never leave a truncated state behind.
type FileStore struct {
	path   string
	logger *logging.Logger
}

var _ syncstate.Store = (*FileStore)(nil)

func NewFileStore(path string, logger *logging.Logger) *FileStore {
	if logger == nil {
		logger = logging.Default()
	}
	return &FileStore{path: path, logger: logger}
}

// Load reads the stored fingerprint. A missing or corrupt file degrades to
// an empty fingerprint so the next cycle performs a full refresh instead of
// wedging the service.
func (s *FileStore) Load(ctx context.Context) (syncstate.Fingerprint, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return syncstate.Fingerprint{}, nil
		}
		return syncstate.Fingerprint{}, fmt.Errorf("read state file %s: %w", s.path, err)
	}

	var fp syncstate.Fingerprint
	if err := sonic.Unmarshal(raw, &fp); err != nil {
		s.logger.WarnContext(ctx, "state file corrupt, forcing full refresh",
			"path", s.path, "error", fmt.Errorf("%w: %v", usecase.ErrStateCorrupt, err))
		return syncstate.Fingerprint{}, nil
	}
	return fp, nil
}

func (s *FileStore) Save(ctx context.Context, fp syncstate.Fingerprint) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	raw, err := sonic.Marshal(fp)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if _, err := buf.Write(raw); err != nil {
		return fmt.Errorf("buffer state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir %s: %w", dir, err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write temp state file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state file %s: %w", s.path, err)
	}
	return nil
}
