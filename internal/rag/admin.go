package rag

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// previewLength bounds the content preview in chunk listings.
const previewLength = 150

// EnsureCollection creates the collection if it does not exist, with the
// pipeline's vector dimension and cosine distance. Idempotent; failures
// are logged and reported as false, never raised.
func (p *Pipeline) EnsureCollection(ctx context.Context) bool {
	names, err := p.store.ListCollections(ctx)
	if err != nil {
		p.logger.Error("list collections failed", zap.Error(err))
		return false
	}
	for _, name := range names {
		if name == p.collection {
			return true
		}
	}
	if err := p.store.CreateCollection(ctx, p.collection, p.dimensions); err != nil {
		p.logger.Error("create collection failed", zap.String("collection", p.collection), zap.Error(err))
		return false
	}
	p.logger.Info("collection created",
		zap.String("collection", p.collection),
		zap.Int("dimensions", p.dimensions))
	return true
}

// DocumentCount returns the store's reported point count, or 0 on any
// failure. Best-effort, never fatal.
func (p *Pipeline) DocumentCount(ctx context.Context) int64 {
	info, err := p.store.CollectionInfo(ctx, p.collection)
	if err != nil {
		p.logger.Warn("collection info failed", zap.Error(err))
		return 0
	}
	return info.PointsCount
}

// ClearCollection deletes and recreates the collection with identical
// configuration. The document registry is cleared alongside, best-effort.
func (p *Pipeline) ClearCollection(ctx context.Context) bool {
	if err := p.store.DeleteCollection(ctx, p.collection); err != nil {
		p.logger.Error("delete collection failed", zap.String("collection", p.collection), zap.Error(err))
		return false
	}
	if err := p.store.CreateCollection(ctx, p.collection, p.dimensions); err != nil {
		p.logger.Error("recreate collection failed", zap.String("collection", p.collection), zap.Error(err))
		return false
	}
	if p.registry != nil {
		if err := p.registry.Clear(ctx); err != nil {
			p.logger.Warn("registry clear failed", zap.Error(err))
		}
	}
	p.logger.Info("collection cleared", zap.String("collection", p.collection))
	return true
}

// ListChunks scroll-reads up to limit stored records and projects them
// with a truncated content preview. Failures yield an empty list.
func (p *Pipeline) ListChunks(ctx context.Context, limit int) []models.ChunkInfo {
	records, err := p.store.Scroll(ctx, p.collection, limit)
	if err != nil {
		p.logger.Warn("scroll failed", zap.Error(err))
		return nil
	}
	infos := make([]models.ChunkInfo, 0, len(records))
	for _, rec := range records {
		infos = append(infos, models.ChunkInfo{
			ID:             rec.ID,
			SourceDocument: payloadString(rec.Payload, payloadSourceDocument, unknownSource),
			ContentPreview: utils.Truncate(payloadString(rec.Payload, payloadContent, ""), previewLength),
			ChunkIndex:     payloadInt(rec.Payload, payloadChunkIndex),
		})
	}
	return infos
}

// DeleteChunks deletes records by id, best-effort. Ids that are not valid
// UUIDs are skipped; an empty or all-invalid input returns 0 without
// contacting the store. The return value is the count of ids submitted,
// not necessarily the count removed.
func (p *Pipeline) DeleteChunks(ctx context.Context, ids []string) int {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			p.logger.Warn("skipping invalid chunk id", zap.String("id", id))
			continue
		}
		valid = append(valid, id)
	}
	if len(valid) == 0 {
		return 0
	}
	if err := p.store.Delete(ctx, p.collection, valid); err != nil {
		p.logger.Error("delete chunks failed", zap.Error(err))
		return 0
	}
	return len(valid)
}
