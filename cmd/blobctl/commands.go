package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/born-ml/tensorblob/internal/blob"
	"github.com/born-ml/tensorblob/internal/config"
	"github.com/born-ml/tensorblob/internal/device"
	"github.com/born-ml/tensorblob/internal/kernel"
	"github.com/born-ml/tensorblob/internal/metrics"
	"github.com/born-ml/tensorblob/internal/pod"
	"github.com/born-ml/tensorblob/internal/regst"
	"github.com/born-ml/tensorblob/internal/tensor"
)

func setup(c *cli.Context) error {
	cfg := config.DefaultConfig()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if lvl := c.String("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	config.SetGlobal(cfg)
	return nil
}

func layoutFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "shape", Value: "4,8", Usage: "Static shape, comma separated"},
		&cli.StringFlag{Name: "dtype", Value: "float32", Usage: "Element type (float32, float64, int32, int64, int8, uint8, bool)"},
		&cli.BoolFlag{Name: "data-id", Value: false, Usage: "Lay out a data-id field"},
		&cli.BoolFlag{Name: "col-num", Value: false, Usage: "Lay out a col-num field"},
		&cli.StringFlag{Name: "dim0-inner", Value: "", Usage: "Lay out a dim0-valid-num field grouped by this inner shape, e.g. 2,2"},
		&cli.BoolFlag{Name: "dim1", Value: false, Usage: "Lay out a dim1-valid-num field"},
	}
}

func specFrom(c *cli.Context) layoutSpec {
	return layoutSpec{
		shape:     c.String("shape"),
		dtype:     c.String("dtype"),
		dataID:    c.Bool("data-id"),
		colNum:    c.Bool("col-num"),
		dim0Inner: c.String("dim0-inner"),
		dim1:      c.Bool("dim1"),
	}
}

func layoutAction(c *cli.Context) error {
	desc, err := specFrom(c).desc()
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintln(w, desc)
	fmt.Fprintf(w, "%-16s %8s %8s\n", "FIELD", "OFFSET", "BYTES")
	for _, f := range desc.HeaderPod().Fields() {
		fmt.Fprintf(w, "%-16s %8d %8d\n", f.Key, f.Offset, f.ByteSize)
	}
	fmt.Fprintf(w, "%-16s %8d %8d\n", "data_content", desc.ByteSizeOfBlobHeader(), desc.ByteSizeOfDataContentField())
	fmt.Fprintf(w, "total %d bytes\n", desc.TotalByteSize())
	return nil
}

func parseAllocator(name string) (regst.Allocator, error) {
	switch name {
	case "heap":
		return regst.HeapAllocator{}, nil
	case "mmap":
		return regst.MmapAllocator{}, nil
	default:
		return nil, fmt.Errorf("unknown allocator %q", name)
	}
}

func selftestAction(c *cli.Context) error {
	desc, err := specFrom(c).desc()
	if err != nil {
		return err
	}
	mc, err := parseMemCase(c.String("device"))
	if err != nil {
		return err
	}
	layout, err := regst.ParseLayout(c.String("layout"))
	if err != nil {
		return err
	}
	alloc, err := parseAllocator(c.String("allocator"))
	if err != nil {
		return err
	}

	metrics.Register()
	copier := device.NewDefaultDispatcher(config.Global())

	newRegst := func(name string, mc device.MemCase) (*regst.Regst, error) {
		return regst.New(&regst.RegstDesc{
			Name:    name,
			MemCase: mc,
			Layout:  layout,
			Blobs:   []regst.NamedBlobDesc{{Name: "in", Desc: desc}},
		}, alloc, copier)
	}
	src, err := newRegst("src", device.HostMemCase())
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := newRegst("dst", mc)
	if err != nil {
		return err
	}
	defer dst.Close()
	back, err := newRegst("back", device.HostMemCase())
	if err != nil {
		return err
	}
	defer back.Close()

	populate(src.Blob("in"))

	ctx := context.Background()
	if err := dst.CopyFrom(ctx, src); err != nil {
		return err
	}
	if err := back.CopyFrom(ctx, dst); err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "%-5s %-8s %016x\n", "src", device.HostMemCase(), src.Fingerprint())
	fmt.Fprintf(w, "%-5s %-8s %016x\n", "dst", mc, dst.Fingerprint())
	fmt.Fprintf(w, "%-5s %-8s %016x\n", "back", device.HostMemCase(), back.Fingerprint())
	if back.Fingerprint() != src.Fingerprint() {
		return fmt.Errorf("round trip through %s changed the register", mc)
	}

	in := back.Blob("in")
	fmt.Fprintf(w, "shape %v static %v\n", in.Shape(), in.StaticShape())

	if err := reduceCheck(w, in, copier); err != nil {
		return err
	}
	if c.Bool("metrics") {
		if err := printMetrics(w); err != nil {
			return err
		}
	}
	drainStaging(w, copier, c.Bool("metrics"))
	fmt.Fprintln(w, "ok")
	return nil
}

func populate(b *blob.Blob) {
	switch b.DataType() {
	case tensor.Float32:
		fillSeq(blob.Data[float32](b))
	case tensor.Float64:
		fillSeq(blob.Data[float64](b))
	case tensor.Int32:
		fillSeq(blob.Data[int32](b))
	case tensor.Int64:
		fillSeq(blob.Data[int64](b))
	default:
		for i := range b.Body() {
			b.Body()[i] = byte(i % 2)
		}
	}

	desc := b.Desc()
	static := b.StaticShape()
	for i := 0; i < static.At(0); i++ {
		if id := fmt.Sprintf("instance-%d", i); desc.HasField(pod.DataID) && len(id) <= desc.SizeOfOneDataID() {
			b.SetDataID(i, id)
		}
		if desc.HasField(pod.ColNum) {
			b.SetColNum(i, int32(i+1))
		}
		if desc.HasField(pod.Dim1ValidNum) {
			b.SetDim1ValidNum(i, int32(min(i, static.At(1))))
		}
	}
	if desc.HasField(pod.Dim0ValidNum) {
		inner := b.Dim0InnerShape()
		for g := 0; g < inner.At(0); g++ {
			b.SetDim0ValidNum(g, int32(inner.Count(1)))
		}
		// Truncate the last group so the dynamic shape differs from the static one.
		b.SetDim0ValidNum(inner.At(0)-1, int32(inner.Count(1)/2))
	}
}

func fillSeq[T int32 | int64 | float32 | float64](data []T) {
	for i := range data {
		data[i] = T((i*7919)%997 - 400)
	}
}

// reduceCheck runs ReduceMin over axis 0 of in and prints the minima.
func reduceCheck(w io.Writer, in *blob.Blob, copier device.Copier) error {
	switch in.DataType() {
	case tensor.Float32, tensor.Float64, tensor.Int32, tensor.Int64:
	default:
		fmt.Fprintf(w, "reduce_min skipped for %s\n", in.DataType())
		return nil
	}

	static := in.StaticShape()
	outDesc, err := pod.NewBlobDesc(tensor.ReducedShape(static, []int{0}), in.DataType())
	if err != nil {
		return err
	}
	tmpDesc, err := pod.NewBlobDesc(static, in.DataType())
	if err != nil {
		return err
	}
	r, err := regst.New(&regst.RegstDesc{
		Name:    "reduce_min",
		MemCase: device.HostMemCase(),
		Blobs: []regst.NamedBlobDesc{
			{Name: "out", Desc: outDesc},
			{Name: "fw_tmp", Desc: tmpDesc},
		},
	}, regst.HeapAllocator{}, copier)
	if err != nil {
		return err
	}
	defer r.Close()

	ctx := device.NewSyncCtx()
	kernel.ReduceMin(ctx, in, r.Blob("out"), r.Blob("fw_tmp"), []int{0})
	if err := ctx.Sync(); err != nil {
		return err
	}

	out := r.Blob("out")
	var values string
	switch out.DataType() {
	case tensor.Float32:
		values = fmt.Sprint(blob.Data[float32](out))
	case tensor.Float64:
		values = fmt.Sprint(blob.Data[float64](out))
	case tensor.Int32:
		values = fmt.Sprint(blob.Data[int32](out))
	case tensor.Int64:
		values = fmt.Sprint(blob.Data[int64](out))
	}
	fmt.Fprintf(w, "reduce_min axis 0 %v\n", values)
	return nil
}

// drainStaging drops the pooled buffers of every staging engine of d,
// printing the pool statistics first when report is set.
func drainStaging(w io.Writer, d *device.Dispatcher, report bool) {
	for _, e := range d.Engines() {
		se, ok := e.(*device.StagingEngine)
		if !ok {
			continue
		}
		pool := se.Pool()
		if report {
			allocated, released, hits, misses, pooled := pool.Stats()
			fmt.Fprintf(w, "staging allocated=%d released=%d hits=%d misses=%d pooled=%d\n",
				allocated, released, hits, misses, pooled)
		}
		pool.Clear()
	}
}

func printMetrics(w io.Writer) error {
	families, err := metrics.Register().Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			value := m.GetCounter().GetValue() + m.GetGauge().GetValue()
			fmt.Fprintf(w, "%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), value)
		}
	}
	return nil
}
