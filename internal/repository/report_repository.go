package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/haconeco/infra-tracker/internal/domain"
)

// FileReportRepository はファイルシステムベースのReportリポジトリ実装。
// 各ReportはJSON形式で個別ファイルに保存される。
type FileReportRepository struct {
	baseDir string
}

// NewFileReportRepository は新しいFileReportRepositoryを生成する。
func NewFileReportRepository(baseDir string) *FileReportRepository {
	return &FileReportRepository{baseDir: baseDir}
}

func (r *FileReportRepository) reportPath(id string) string {
	// reports/{id}.json
	return filepath.Join(r.baseDir, filepath.Base(id)+".json")
}

// Save は新しいReportをファイルとして保存する。保存済みのReportは上書きしない。
func (r *FileReportRepository) Save(ctx context.Context, report *Report) error {
	if strings.TrimSpace(report.ID) == "" {
		return domain.NewValidationError("id", "must not be empty")
	}
	path := r.reportPath(report.ID)

	if _, err := os.Stat(path); err == nil {
		return domain.ErrAlreadyExists
	}
	if err := os.MkdirAll(r.baseDir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return nil
}

// Get はIDでReportを取得する。
func (r *FileReportRepository) Get(ctx context.Context, id string) (*Report, error) {
	data, err := os.ReadFile(r.reportPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read report file: %w", err)
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

// List は保存済みReportを作成日時の新しい順で返す。
func (r *FileReportRepository) List(ctx context.Context) ([]*Report, error) {
	entries, err := os.ReadDir(r.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	var reports []*Report
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(r.baseDir, entry.Name()))
		if err != nil {
			continue // skip unreadable files
		}
		var report Report
		if err := json.Unmarshal(data, &report); err != nil {
			continue // skip invalid files
		}
		reports = append(reports, &report)
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
	return reports, nil
}
