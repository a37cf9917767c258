package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"geoquery/internal/category"
	"geoquery/internal/logger"
	"geoquery/internal/store"
)

// BatchSize：每批提交的要素数，降低单事务锁持有时间
const BatchSize = 1000

// Upserter：要素写入端（store.Store 实现）
type Upserter interface {
	UpsertFeatures(ctx context.Context, fs []store.Feature) (int, error)
}

// open：src 为 http(s) 地址时拉取，否则按本地路径打开
func open(ctx context.Context, src string) (io.ReadCloser, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetch %s: bad status %d", src, resp.StatusCode)
		}
		return resp.Body, nil
	}
	return os.Open(src)
}

// FetchAndImport：拉取 GeoJSON 并分批写入要素表
// 异常：网络错误/解析失败/数据库错误直接返回，不做重试（交由调度层处理）；已提交的批次保留
func FetchAndImport(ctx context.Context, up Upserter, src string, idx *category.Index) (int, error) {
	l := logger.L()
	l.Info("ingest_start", "src", src)
	rc, err := open(ctx, src)
	if err != nil {
		return 0, err
	}
	defer rc.Close()
	fs, skipped, err := Decode(rc, idx)
	if err != nil {
		return 0, err
	}
	total := 0
	for i := 0; i < len(fs); i += BatchSize {
		end := min(i+BatchSize, len(fs))
		n, err := up.UpsertFeatures(ctx, fs[i:end])
		if err != nil {
			return total, fmt.Errorf("batch at %d: %w", i, err)
		}
		total += n
		l.Info("ingest_progress", "count", total)
	}
	l.Info("ingest_done", "count", total, "skipped", skipped)
	return total, nil
}
