package weightenc

import (
	"crypto/sha256"
	"encoding/binary"
	"sync"

	"github.com/npucc/npucc/ir"
	"github.com/sirupsen/logrus"
)

// Request is the canonical key under which an encoding is cached (§4.H:
// "a canonical (weights_bytes_hash, bias_bytes_hash, stripe_depth,
// iteration_size, stride, pad, op, algo, quant) tuple").
type Request struct {
	WeightsHash  [32]byte
	BiasHash     [32]byte
	StripeDepth  int
	IterationSize int
	StrideX, StrideY int
	PadTop, PadLeft, PadBottom, PadRight int
	Op           ir.OpKind
	Algo         ir.Algorithm
	QuantZeroPoint int32

	OFMs            []OFM
	SRAMBudgetBytes int
}

// Key hashes the request's scalar fields (the weight/bias bytes are
// already reduced to hashes by HashBytes below) into the cache's map
// key.
func (r Request) key() [32]byte {
	h := sha256.New()
	h.Write(r.WeightsHash[:])
	h.Write(r.BiasHash[:])
	var scalars [9]int32
	scalars[0] = int32(r.StripeDepth)
	scalars[1] = int32(r.IterationSize)
	scalars[2] = int32(r.StrideX)
	scalars[3] = int32(r.StrideY)
	scalars[4] = int32(r.PadTop)<<16 | int32(r.PadLeft)
	scalars[5] = int32(r.PadBottom)<<16 | int32(r.PadRight)
	scalars[6] = int32(r.Op)
	scalars[7] = int32(r.Algo)
	scalars[8] = r.QuantZeroPoint
	buf := make([]byte, 4*len(scalars))
	for i, v := range scalars {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(v))
	}
	h.Write(buf)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// HashBytes is the helper callers use to populate WeightsHash/BiasHash
// from raw weight/bias byte slices.
func HashBytes(b []byte) [32]byte { return sha256.Sum256(b) }

// result is a cache entry: either in flight (done is open) or complete.
type result struct {
	done   chan struct{}
	stream EncodedStream
	err    error
}

// Cache deduplicates encoding requests across a worker pool, per §4.H's
// "Two-stage interface: encode_stage1_async(req) begins encoding on a
// worker pool; encode(req) (blocking) returns the shared result.
// Re-queuing the same request returns the cached handle." The worker
// pool is built directly on sync/channels, the idiomatic Go primitives
// for this shape of problem.
type Cache struct {
	mu      sync.Mutex
	entries map[[32]byte]*result

	jobs chan job
	wg   sync.WaitGroup
}

type job struct {
	req Request
	res *result
}

// NewCache starts a worker pool of the given size; workers <= 0 starts a
// single worker. Compile maps a ThreadCount of 0 to runtime.NumCPU()
// before calling it.
func NewCache(workers int) *Cache {
	if workers <= 0 {
		workers = 1
	}
	c := &Cache{
		entries: make(map[[32]byte]*result),
		jobs:    make(chan job, workers*4),
	}
	for i := 0; i < workers; i++ {
		c.wg.Add(1)
		go c.worker()
	}
	return c
}

func (c *Cache) worker() {
	defer c.wg.Done()
	for j := range c.jobs {
		stream, err := EncodeOFMs(j.req.OFMs, j.req.SRAMBudgetBytes)
		j.res.stream, j.res.err = stream, err
		close(j.res.done)
	}
}

// EncodeStage1Async begins encoding req on the worker pool and returns
// immediately; the same Request re-queued before or after completion
// returns the same in-flight/cached handle.
func (c *Cache) EncodeStage1Async(req Request) {
	key := req.key()
	c.mu.Lock()
	if _, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return
	}
	res := &result{done: make(chan struct{})}
	c.entries[key] = res
	c.mu.Unlock()

	c.jobs <- job{req: req, res: res}
}

// Encode blocks until req's encoding completes (submitting it first if
// no one has yet), and returns the shared result.
func (c *Cache) Encode(req Request) (EncodedStream, error) {
	key := req.key()
	c.mu.Lock()
	res, ok := c.entries[key]
	if !ok {
		res = &result{done: make(chan struct{})}
		c.entries[key] = res
		c.mu.Unlock()
		c.jobs <- job{req: req, res: res}
	} else {
		c.mu.Unlock()
	}
	<-res.done
	return res.stream, res.err
}

// Close stops accepting new work and waits for in-flight jobs to drain.
func (c *Cache) Close() {
	close(c.jobs)
	c.wg.Wait()
	logrus.Debug("weightenc: cache worker pool drained")
}
