package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/user/moviebot/internal/logger"
	"github.com/user/moviebot/internal/repository"
)

const snapshotPrefix = "backup-"

// SnapshotService 定期把备份写入 <数据目录>/snapshots，只保留最新的若干份
type SnapshotService struct {
	store    *repository.Store
	dir      string
	interval time.Duration
	keep     int
	clock    Clock
	log      *zap.Logger
}

func NewSnapshotService(store *repository.Store, interval time.Duration, keep int, clock Clock) *SnapshotService {
	if keep < 1 {
		keep = 1
	}
	return &SnapshotService{
		store:    store,
		dir:      filepath.Join(store.Dir, "snapshots"),
		interval: interval,
		keep:     keep,
		clock:    clock,
		log:      logger.Named("snapshot"),
	}
}

// Start 立即做一次快照，之后每隔 interval 一次，直到 ctx 结束
// interval 非正数时不启用
func (s *SnapshotService) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Info("snapshots disabled")
		return
	}
	ticker := time.NewTicker(s.interval)

	go func() {
		defer ticker.Stop()
		s.runSnapshot()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runSnapshot()
			}
		}
	}()
}

func (s *SnapshotService) runSnapshot() {
	path, err := s.Snapshot()
	if err != nil {
		s.log.Error("snapshot failed", zap.Error(err))
		return
	}
	s.log.Info("snapshot written", zap.String("path", path))

	removed, err := s.Prune()
	if err != nil {
		s.log.Warn("prune snapshots failed", zap.Error(err))
	} else if removed > 0 {
		s.log.Info("old snapshots removed", zap.Int("count", removed))
	}
}

// Snapshot 写入一个备份文件并返回路径
func (s *SnapshotService) Snapshot() (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}
	data, err := json.MarshalIndent(s.store.Backup(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	name := snapshotPrefix + s.clock.Now().UTC().Format("20060102-150405.000") + ".json"
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("rename snapshot: %w", err)
	}
	return path, nil
}

// Prune 删除旧快照，只保留最新 keep 份
func (s *SnapshotService) Prune() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), snapshotPrefix) && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	if len(names) <= s.keep {
		return 0, nil
	}
	// 文件名带时间戳，按名称排序即按时间排序
	sort.Strings(names)
	var removed int
	for _, n := range names[:len(names)-s.keep] {
		if err := os.Remove(filepath.Join(s.dir, n)); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
