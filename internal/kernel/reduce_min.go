// Package kernel holds compute kernels that consume blobs.
package kernel

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/born-ml/tensorblob/internal/blob"
	"github.com/born-ml/tensorblob/internal/device"
	"github.com/born-ml/tensorblob/internal/parallel"
	"github.com/born-ml/tensorblob/internal/tensor"
)

var log = logrus.WithField("module", "kernel")

type number interface {
	float32 | float64 | int32 | int64
}

// ReduceMin writes the minima of in over axes into the body of out.
// An empty axes list reduces every axis. tmp is scratch space at least as
// large as in and receives the partially reduced intermediates.
//
// The reduction reads in's dynamic shape when it runs on ctx, so it observes
// valid counts written by operations enqueued before it. out and tmp must
// have in's data type and room for the reduction of the static shape.
//
// Example:
//
//	// in: (4,8) float32 with dim0 valid num 2  ->  out[:8] = column minima of rows 0..1
//	kernel.ReduceMin(ctx, in, out, tmp, []int{0})
func ReduceMin(ctx device.Ctx, in, out, tmp *blob.Blob, axes []int) {
	switch in.DataType() {
	case tensor.Float32:
		issueReduceMin[float32](ctx, in, out, tmp, axes)
	case tensor.Float64:
		issueReduceMin[float64](ctx, in, out, tmp, axes)
	case tensor.Int32:
		issueReduceMin[int32](ctx, in, out, tmp, axes)
	case tensor.Int64:
		issueReduceMin[int64](ctx, in, out, tmp, axes)
	default:
		panic(fmt.Sprintf("reduce_min: unsupported dtype %s (only float32/float64/int32/int64 supported)", in.DataType()))
	}
}

func issueReduceMin[T number](ctx device.Ctx, in, out, tmp *blob.Blob, axes []int) {
	inData, outData, work := blob.Data[T](in), blob.Data[T](out), blob.Data[T](tmp)

	static := reducedShape(in.StaticShape(), axes)
	if len(outData) < static.NumElements() {
		panic(fmt.Sprintf("reduce_min: out holds %d elements, reduction of %v needs %d",
			len(outData), in.StaticShape(), static.NumElements()))
	}
	if len(work) < len(inData) {
		panic(fmt.Sprintf("reduce_min: tmp holds %d elements, in has %d", len(work), len(inData)))
	}

	cfg := parallel.DefaultConfig()
	ctx.Enqueue(func() error {
		shape := in.Shape().Clone()
		reduced := reducedShape(shape, axes)
		log.WithFields(logrus.Fields{
			"in":      shape.String(),
			"reduced": reduced.String(),
		}).Debug("reduce min")
		reduceMin(inData[:shape.NumElements()], outData, work, shape, reduced, cfg)
		return nil
	})
}

func reducedShape(shape tensor.Shape, axes []int) tensor.Shape {
	if len(axes) == 0 {
		return tensor.Ones(shape.NumAxes())
	}
	return tensor.ReducedShape(shape, axes)
}

// reduceMin reduces one axis at a time. Each intermediate is written to work
// right after the previous one; every stage at least halves the data, so
// the intermediates fit in len(src) elements.
func reduceMin[T number](src, out, work []T, shape, reduced tensor.Shape, cfg parallel.Config) {
	count := reduced.NumElements()
	if len(src) == 0 {
		identity := maxOf[T]()
		for i := range out[:count] {
			out[i] = identity
		}
		return
	}

	var stages []int
	for axis := range shape {
		if reduced[axis] == 1 && shape[axis] > 1 {
			stages = append(stages, axis)
		}
	}
	if len(stages) == 0 {
		copy(out[:count], src)
		return
	}

	cur := shape.Clone()
	pos := 0
	for i, axis := range stages {
		outer := cur.Count(0) / cur.Count(axis)
		dim, inner := cur[axis], cur.Count(axis+1)
		m := outer * inner

		var dst []T
		if i == len(stages)-1 {
			dst = out[:m]
		} else {
			dst = work[pos : pos+m]
			pos += m
		}
		reduceAxis(src, dst, dim, inner, cfg)

		src = dst
		cur[axis] = 1
	}
}

// reduceAxis computes dst[o*inner+i] = min over k of src[(o*dim+k)*inner+i].
func reduceAxis[T number](src, dst []T, dim, inner int, cfg parallel.Config) {
	parallel.For(len(dst), func(lo, hi int) {
		for idx := lo; idx < hi; idx++ {
			o, i := idx/inner, idx%inner
			base := o*dim*inner + i
			m := src[base]
			for k := 1; k < dim; k++ {
				if v := src[base+k*inner]; v < m {
					m = v
				}
			}
			dst[idx] = m
		}
	}, cfg)
}

func maxOf[T number]() T {
	var v T
	switch p := any(&v).(type) {
	case *float32:
		*p = math.MaxFloat32
	case *float64:
		*p = math.MaxFloat64
	case *int32:
		*p = math.MaxInt32
	case *int64:
		*p = math.MaxInt64
	}
	return v
}
