package world

import (
	"context"
	"fmt"

	"voxelstore.ai/internal/sim/catalogs"
	"voxelstore.ai/internal/sim/world/terrain/coords"
)

type editReq struct {
	Edit
	Resp chan editResp
}

type editResp struct {
	Result EditResult
	OK     bool
}

type blockReq struct {
	Pos  coords.BlockPos
	Resp chan catalogs.Block
}

type chunkReq struct {
	Key  coords.ChunkKey
	Resp chan ChunkData
}

// SetBlock validates the target and the block reference (a catalog name or
// "type:meta"), queues the write and waits for the tick that applies it.
func (w *World) SetBlock(ctx context.Context, actor string, pos coords.BlockPos, block string) (EditResult, error) {
	if !coords.InWorldY(pos.Y) {
		return EditResult{}, fmt.Errorf("%w: y=%d", ErrOutOfWorld, pos.Y)
	}
	b, ok := w.blocks.Resolve(block)
	if !ok {
		return EditResult{}, fmt.Errorf("%w: %q", ErrUnknownBlock, block)
	}
	resp := make(chan editResp, 1)
	if err := send(ctx, w, w.inbox, editReq{Edit: Edit{Actor: actor, Pos: pos, Block: b}, Resp: resp}); err != nil {
		return EditResult{}, err
	}
	r, err := await(ctx, w, resp)
	if err != nil {
		return EditResult{}, err
	}
	if !r.OK {
		return r.Result, fmt.Errorf("%w: y=%d", ErrOutOfWorld, pos.Y)
	}
	return r.Result, nil
}

// GetBlock reads through the world loop. Positions above or below the column
// read as the default block.
func (w *World) GetBlock(ctx context.Context, pos coords.BlockPos) (catalogs.Block, error) {
	resp := make(chan catalogs.Block, 1)
	if err := send(ctx, w, w.blockReq, blockReq{Pos: pos, Resp: resp}); err != nil {
		return catalogs.Block{}, err
	}
	return await(ctx, w, resp)
}

func (w *World) ChunkData(ctx context.Context, key coords.ChunkKey) (ChunkData, error) {
	resp := make(chan ChunkData, 1)
	if err := send(ctx, w, w.chunkReq, chunkReq{Key: key, Resp: resp}); err != nil {
		return ChunkData{}, err
	}
	return await(ctx, w, resp)
}

func (w *World) handleBlockReq(req blockReq) {
	b := w.vol.GetBlock(req.Pos)
	select {
	case req.Resp <- b:
	default:
	}
}

func (w *World) handleChunkReq(req chunkReq) {
	mask, data := w.vol.GetChunkData(req.Key)
	w.chunkRequests++
	select {
	case req.Resp <- ChunkData{Key: req.Key, Mask: mask, Data: data}:
	default:
	}
}

func send[T any](ctx context.Context, w *World, ch chan T, v T) error {
	select {
	case ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-w.stop:
		return ErrStopped
	case <-w.done:
		return ErrStopped
	}
}

func await[T any](ctx context.Context, w *World, ch chan T) (T, error) {
	var zero T
	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-w.stop:
		return zero, ErrStopped
	case <-w.done:
		return zero, ErrStopped
	}
}
