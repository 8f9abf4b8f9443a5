package search

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/logger"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/model"
)

// Page 单次分页请求
type Page struct {
	Index int // 从 0 开始的页序号
	Start int // 从 1 开始的结果偏移
	Num   int // 本页请求条数
}

// PlanPages 计算每个批次需要请求的分页，使全部批次合计覆盖 target 条结果
func PlanPages(target, batches, pageSize int) []Page {
	if target <= 0 || batches <= 0 || pageSize <= 0 {
		return nil
	}
	share := (target + batches - 1) / batches
	var pages []Page
	for offset := 0; offset < share; offset += pageSize {
		pages = append(pages, Page{
			Index: len(pages),
			Start: offset + 1,
			Num:   min(pageSize, share-offset),
		})
	}
	return pages
}

// FetchFunc 请求某个批次的某一页
type FetchFunc func(ctx context.Context, batch []string, page Page) ([]model.SearchCandidate, error)

// FanOut 并发请求所有批次的所有分页并按 (批次, 页) 顺序合并。
// 配额/权限类错误立即取消其余请求并原样返回；其它单页错误只记录日志。
func FanOut(ctx context.Context, batches [][]string, pages []Page, fetch FetchFunc) ([]model.SearchCandidate, error) {
	slots := make([][]model.SearchCandidate, len(batches)*len(pages))

	g, gctx := errgroup.WithContext(ctx)
	for bi, batch := range batches {
		for _, page := range pages {
			slot := bi*len(pages) + page.Index
			g.Go(func() error {
				items, err := fetch(gctx, batch, page)
				if err != nil {
					if StatusOf(err).Fatal() {
						return err
					}
					if gctx.Err() == nil {
						logger.Log.Warnf("发现请求失败 [batch=%d page=%d]: %v", bi, page.Index, err)
					}
					return nil
				}
				slots[slot] = items
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var merged []model.SearchCandidate
	for _, items := range slots {
		merged = append(merged, items...)
	}
	return merged, nil
}

// Finish 去重并截断到目标数量，生成最终响应
func Finish(candidates []model.SearchCandidate, target int, err error) (*Response, error) {
	if err != nil {
		return &Response{Status: StatusOf(err)}, err
	}
	unique := Dedup(candidates)
	if target > 0 && len(unique) > target {
		unique = unique[:target]
	}
	return &Response{Candidates: unique, Status: StatusOK}, nil
}
