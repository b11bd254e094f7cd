package compiler

import (
	"runtime"

	"github.com/npucc/npucc/buffermgr"
	"github.com/npucc/npucc/caps"
	"github.com/npucc/npucc/emitter"
	"github.com/npucc/npucc/ir"
	"github.com/npucc/npucc/optimizer"
	"github.com/npucc/npucc/options"
	"github.com/npucc/npucc/sramalloc"
	"github.com/npucc/npucc/weightenc"
	"github.com/sirupsen/logrus"
)

// Compile runs the full pipeline of §2's control-flow paragraph: repair
// the graph (ir.FixGraph), apply the optimiser's fixed-point rewrites
// (optimizer.Run), form Passes with stripe plans (planner), encode their
// weights (weightenc), assign DRAM offsets (buffermgr), and emit the
// final command stream (emitter). It raises NotSupported (or the
// AllocationFailed/WeightsTooLarge raised by planning or weight
// encoding) on failure, never a bare panic, per §7.
func Compile(g *ir.Graph, capsRec caps.Capabilities, opts options.CompilationOptions) (*CompiledBlob, error) {
	if err := ir.FixGraph(g); err != nil {
		return nil, err
	}
	if err := optimizer.Run(g); err != nil {
		return nil, err
	}

	order, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}

	alloc := sramalloc.New(capsRec.SRAMLaneBytes())
	passes, passIndex, err := buildPasses(g, order, capsRec, opts, alloc)
	if err != nil {
		return nil, err
	}
	logrus.WithField("passes", len(passes)).Info("compiler: planning complete")

	threadCount := opts.ThreadCount
	if threadCount <= 0 {
		threadCount = runtime.NumCPU()
	}
	cache := weightenc.NewCache(threadCount)
	defer cache.Close()

	streams, err := encodeWeightsForPasses(g, passes, cache, capsRec.SRAMLaneBytes())
	if err != nil {
		return nil, err
	}

	bm := buffermgr.New()
	bm.AddCommandStream(nil)
	bufID := registerBuffers(g, order, bm)
	weightBufID := make(map[ir.PassId]uint32, len(passes))
	for _, p := range passes {
		if stream, ok := streams[p.ID]; ok {
			weightBufID[p.ID] = bm.AddDramConstant(buffermgr.ConstantDma, stream.Bytes)
		}
	}

	if err := bm.Allocate(opts.Dump.DumpReports); err != nil {
		return nil, err
	}

	commands, err := emitter.Emit(g, order, passIndex, bufID, weightBufID, opts.Dump)
	if err != nil {
		return nil, err
	}
	commandStream := serializeCommands(commands)

	input, output, ccu, cdma, intermediate := bucketBufferInfos(bm)
	return &CompiledBlob{
		ConstantDmaData:                bm.ConstantDmaData(),
		ConstantControlUnitData:        bm.ConstantControlUnitData(),
		InputBufferInfos:               input,
		OutputBufferInfos:              output,
		ConstantControlUnitBufferInfos: ccu,
		ConstantDmaBufferInfos:         cdma,
		IntermediateBufferInfos:        intermediate,
		CommandStream:                  commandStream,
	}, nil
}
