package ingest

import (
	"context"
	"time"

	"geoquery/internal/category"
	"geoquery/internal/logger"
)

// nextMondayAt：计算 now 之后最近一个周一指定小时的时间点
// 约束：基于 now 所在时区与整点 hour；仅前推至未来时间
func nextMondayAt(now time.Time, hour int) time.Time {
	for i := 0; i <= 7; i++ {
		d := now.AddDate(0, 0, i)
		if d.Weekday() == time.Monday {
			t := time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, now.Location())
			if t.After(now) {
				return t
			}
		}
	}
	d := now.AddDate(0, 0, 7)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, now.Location())
}

// StartWeekly：每周一 hour 点（UTC）刷新要素表，运行于后台协程
// 背景：OSM 导出按周更新；错误由日志记录，任务继续调度
// 约束：ctx 取消后退出；不支持分钟级
func StartWeekly(ctx context.Context, up Upserter, src string, idx *category.Index, hour int) {
	l := logger.L()
	next := nextMondayAt(time.Now().UTC(), hour)
	l.Info("ingest_scheduled", "next", next, "src", src)
	go func() {
		for {
			t := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
			if n, err := FetchAndImport(ctx, up, src, idx); err != nil {
				l.Error("ingest_error", "err", err, "imported", n)
			}
			next = next.AddDate(0, 0, 7)
		}
	}()
}
