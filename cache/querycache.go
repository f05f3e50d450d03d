package cache

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"dbchain/data/db"
)

// IQueryCache 查询结果缓存抽象。
// key 由执行器用 Fingerprint 计算，table 用于按表失效。
// 实现的任何内部故障只允许表现为未命中或跳过写入。
type IQueryCache interface {
	// GetRows 读取缓存的结果行。
	GetRows(ctx context.Context, table, key string) ([]db.Record, bool)
	// SetRows 写入结果行。
	SetRows(ctx context.Context, table, key string, rows []db.Record)
	// Invalidate 使该表的全部缓存条目失效。
	Invalidate(ctx context.Context, table string)
	// Close 释放缓存持有的资源。
	Close() error
}

// Fingerprint 计算语句与参数的指纹，同一查询得到稳定的键。
func Fingerprint(query string, args []any) string {
	h := xxhash.New()
	_, _ = io.WriteString(h, query)
	for _, arg := range args {
		_, _ = fmt.Fprintf(h, "|%v", arg)
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// cloneRows 深拷贝结果行，缓存内外的记录互不影响。
func cloneRows(rows []db.Record) []db.Record {
	if rows == nil {
		return nil
	}
	out := make([]db.Record, len(rows))
	for i, row := range rows {
		out[i] = row.Clone()
	}
	return out
}
