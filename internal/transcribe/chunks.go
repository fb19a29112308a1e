package transcribe

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/mgpai22/clipper/internal/audio"
	"github.com/mgpai22/clipper/internal/subtitle"
)

const defaultChunkConcurrency = 3

type chunkFunc func(ctx context.Context, chunk audio.ChunkInfo) ([]subtitle.Segment, error)

// transcribeChunks runs fn over chunks with bounded concurrency and merges
// the segments in chunk order. The first failure cancels outstanding work.
func transcribeChunks(
	ctx context.Context,
	chunks []audio.ChunkInfo,
	concurrency int,
	fn chunkFunc,
) ([]subtitle.Segment, time.Duration, error) {
	if len(chunks) == 0 {
		return nil, 0, nil
	}
	if concurrency <= 0 {
		concurrency = defaultChunkConcurrency
	}

	results := make([][]subtitle.Segment, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			segments, err := fn(gctx, chunk)
			if err != nil {
				return fmt.Errorf("chunk %d failed: %w", chunk.Index, err)
			}
			results[i] = shiftSegments(segments, chunk.StartTime)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	// total duration is where the last chunk ends
	return lo.Flatten(results), chunks[len(chunks)-1].EndTime, nil
}

func shiftSegments(segments []subtitle.Segment, offset time.Duration) []subtitle.Segment {
	return lo.Map(segments, func(seg subtitle.Segment, _ int) subtitle.Segment {
		seg.StartTime += offset
		seg.EndTime += offset
		return seg
	})
}
