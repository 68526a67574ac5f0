//go:build gpu && cgo

package gpu

/*
#cgo linux LDFLAGS: -lOpenCL
#cgo darwin LDFLAGS: -framework OpenCL
#cgo CFLAGS: -DCL_TARGET_OPENCL_VERSION=120 -DCL_USE_DEPRECATED_OPENCL_1_2_APIS

#include <stdlib.h>
#ifdef __APPLE__
#include <OpenCL/opencl.h>
#else
#include <CL/cl.h>
#endif

static cl_int set_mem_arg(cl_kernel k, cl_uint i, cl_mem m) {
	return clSetKernelArg(k, i, sizeof(cl_mem), &m);
}

static cl_int set_uint_arg(cl_kernel k, cl_uint i, cl_uint v) {
	return clSetKernelArg(k, i, sizeof(cl_uint), &v);
}
*/
import "C"

import (
	"fmt"
	"math"
	"sync"
	"unsafe"

	"github.com/bits-and-blooms/bitset"
)

const (
	flagSize = 1

	// scanBlock is the number of flags one scan_blocks work item covers.
	scanBlock = 256
)

type clBuffer struct {
	mem  C.cl_mem
	n    int
	once sync.Once
}

func (b *clBuffer) Len() int { return b.n }

type openclDriver struct {
	name    string
	ctx     C.cl_context
	queue   C.cl_command_queue
	program C.cl_program
	kernels map[string]C.cl_kernel
}

func clError(op string, code C.cl_int) error {
	if code == C.CL_SUCCESS {
		return nil
	}
	return fmt.Errorf("%s: OpenCL error %d", op, int(code))
}

func openCL(ordinal int) (Driver, error) {
	var nplat C.cl_uint
	if code := C.clGetPlatformIDs(0, nil, &nplat); code != C.CL_SUCCESS || nplat == 0 {
		return nil, fmt.Errorf("%w: no OpenCL platform", ErrUnavailable)
	}
	platforms := make([]C.cl_platform_id, nplat)
	if code := C.clGetPlatformIDs(nplat, &platforms[0], nil); code != C.CL_SUCCESS {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, clError("clGetPlatformIDs", code))
	}

	var devices []C.cl_device_id
	for _, p := range platforms {
		var n C.cl_uint
		if C.clGetDeviceIDs(p, C.CL_DEVICE_TYPE_GPU, 0, nil, &n) != C.CL_SUCCESS || n == 0 {
			continue
		}
		ids := make([]C.cl_device_id, n)
		if C.clGetDeviceIDs(p, C.CL_DEVICE_TYPE_GPU, n, &ids[0], nil) == C.CL_SUCCESS {
			devices = append(devices, ids...)
		}
	}
	if ordinal < 0 || ordinal >= len(devices) {
		return nil, fmt.Errorf("%w: OpenCL GPU %d not found (%d available)", ErrUnavailable, ordinal, len(devices))
	}
	dev := devices[ordinal]

	var nameBuf [256]C.char
	C.clGetDeviceInfo(dev, C.CL_DEVICE_NAME, C.size_t(len(nameBuf)), unsafe.Pointer(&nameBuf[0]), nil)

	var code C.cl_int
	ctx := C.clCreateContext(nil, 1, &dev, nil, nil, &code)
	if code != C.CL_SUCCESS {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, clError("clCreateContext", code))
	}
	queue := C.clCreateCommandQueue(ctx, dev, 0, &code)
	if code != C.CL_SUCCESS {
		C.clReleaseContext(ctx)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, clError("clCreateCommandQueue", code))
	}

	src := C.CString(kernelSource)
	defer C.free(unsafe.Pointer(src))
	program := C.clCreateProgramWithSource(ctx, 1, &src, nil, &code)
	if code == C.CL_SUCCESS {
		code = C.clBuildProgram(program, 1, &dev, nil, nil, nil)
	}
	d := &openclDriver{
		name:    C.GoString(&nameBuf[0]),
		ctx:     ctx,
		queue:   queue,
		program: program,
		kernels: make(map[string]C.cl_kernel),
	}
	if code != C.CL_SUCCESS {
		_ = d.Close()
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, clError("clBuildProgram", code))
	}

	for _, name := range []string{"mark", "scan_blocks", "scan_sums", "add_block_offsets", "scatter", "rank_merge", "any_match"} {
		cname := C.CString(name)
		k := C.clCreateKernel(program, cname, &code)
		C.free(unsafe.Pointer(cname))
		if code != C.CL_SUCCESS {
			_ = d.Close()
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, clError("clCreateKernel "+name, code))
		}
		d.kernels[name] = k
	}
	return d, nil
}

func (d *openclDriver) Name() string { return "opencl: " + d.name }

func (d *openclDriver) alloc(n, elem int, host unsafe.Pointer) (*clBuffer, error) {
	flags := C.cl_mem_flags(C.CL_MEM_READ_WRITE)
	if host != nil {
		flags |= C.CL_MEM_COPY_HOST_PTR
	}
	var code C.cl_int
	mem := C.clCreateBuffer(d.ctx, flags, C.size_t(max(n, 1)*elem), host, &code)
	if err := clError("clCreateBuffer", code); err != nil {
		return nil, err
	}
	return &clBuffer{mem: mem, n: n}, nil
}

func (d *openclDriver) buffer(v View) (*clBuffer, error) {
	b, ok := v.Buf.(*clBuffer)
	if !ok {
		return nil, errForeignBuffer
	}
	if v.Off < 0 || v.Off+v.Len > b.n || v.Off+v.Len > math.MaxUint32 {
		return nil, fmt.Errorf("view [%d, %d) out of range of buffer with %d keys", v.Off, v.Off+v.Len, b.n)
	}
	return b, nil
}

func (d *openclDriver) run(name string, global int, args ...any) error {
	k := d.kernels[name]
	for i, a := range args {
		var code C.cl_int
		switch v := a.(type) {
		case *clBuffer:
			code = C.set_mem_arg(k, C.cl_uint(i), v.mem)
		case int:
			code = C.set_uint_arg(k, C.cl_uint(i), C.cl_uint(v))
		default:
			return fmt.Errorf("%s: unsupported argument %T", name, a)
		}
		if err := clError("clSetKernelArg "+name, code); err != nil {
			return err
		}
	}
	size := C.size_t(global)
	if err := clError("clEnqueueNDRangeKernel "+name, C.clEnqueueNDRangeKernel(d.queue, k, 1, nil, &size, nil, 0, nil, nil)); err != nil {
		return err
	}
	return clError("clFinish", C.clFinish(d.queue))
}

func (d *openclDriver) read(b *clBuffer, off, n, elem int, dst unsafe.Pointer) error {
	return clError("clEnqueueReadBuffer", C.clEnqueueReadBuffer(d.queue, b.mem, C.CL_TRUE,
		C.size_t(off*elem), C.size_t(n*elem), dst, 0, nil, nil))
}

func (d *openclDriver) Upload(keys []uint64) (Buffer, error) {
	return d.alloc(len(keys), KeySize, unsafe.Pointer(&keys[0]))
}

func (d *openclDriver) Download(v View) ([]uint64, error) {
	b, err := d.buffer(v)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, v.Len)
	if err := d.read(b, v.Off, v.Len, KeySize, unsafe.Pointer(&out[0])); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *openclDriver) Mark(av, bv View, invert bool) (Buffer, error) {
	a, err := d.buffer(av)
	if err != nil {
		return nil, err
	}
	b, err := d.buffer(bv)
	if err != nil {
		return nil, err
	}
	flags, err := d.alloc(av.Len, flagSize, nil)
	if err != nil {
		return nil, err
	}
	inv := 0
	if invert {
		inv = 1
	}
	if err := d.run("mark", av.Len, a, av.Off, av.Len, b, bv.Off, bv.Len, inv, flags); err != nil {
		d.Release(flags)
		return nil, err
	}
	return flags, nil
}

func (d *openclDriver) Compact(av View, fb Buffer) (Buffer, error) {
	a, err := d.buffer(av)
	if err != nil {
		return nil, err
	}
	flags, ok := fb.(*clBuffer)
	if !ok || flags.n != av.Len {
		return nil, fmt.Errorf("flag buffer does not match view length %d", av.Len)
	}
	if av.Len == 0 {
		return d.alloc(0, KeySize, nil)
	}

	nblocks := (av.Len + scanBlock - 1) / scanBlock
	offs, err := d.alloc(av.Len, 4, nil)
	if err != nil {
		return nil, err
	}
	defer d.Release(offs)
	sums, err := d.alloc(nblocks, 4, nil)
	if err != nil {
		return nil, err
	}
	defer d.Release(sums)
	count, err := d.alloc(1, 4, nil)
	if err != nil {
		return nil, err
	}
	defer d.Release(count)

	if err := d.run("scan_blocks", nblocks, flags, av.Len, scanBlock, offs, sums); err != nil {
		return nil, err
	}
	if err := d.run("scan_sums", 1, sums, nblocks, count); err != nil {
		return nil, err
	}
	if err := d.run("add_block_offsets", av.Len, offs, av.Len, scanBlock, sums); err != nil {
		return nil, err
	}
	var total uint32
	if err := d.read(count, 0, 1, 4, unsafe.Pointer(&total)); err != nil {
		return nil, err
	}

	out, err := d.alloc(int(total), KeySize, nil)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return out, nil
	}
	if err := d.run("scatter", av.Len, a, av.Off, av.Len, flags, offs, out); err != nil {
		d.Release(out)
		return nil, err
	}
	return out, nil
}

func (d *openclDriver) Merge(av, bv View) (Buffer, error) {
	a, err := d.buffer(av)
	if err != nil {
		return nil, err
	}
	b, err := d.buffer(bv)
	if err != nil {
		return nil, err
	}
	out, err := d.alloc(av.Len+bv.Len, KeySize, nil)
	if err != nil {
		return nil, err
	}
	if err := d.run("rank_merge", av.Len+bv.Len, a, av.Off, av.Len, b, bv.Off, bv.Len, out); err != nil {
		d.Release(out)
		return nil, err
	}
	return out, nil
}

func (d *openclDriver) AnyMatch(segments []View, pv View) (*bitset.BitSet, error) {
	probe, err := d.buffer(pv)
	if err != nil {
		return nil, err
	}
	hits := bitset.New(uint(len(segments)))
	if len(segments) == 0 {
		return hits, nil
	}

	// Pack the segments into one buffer so a single launch covers them all.
	offsets := make([]uint32, len(segments))
	lens := make([]uint32, len(segments))
	total := 0
	for i, v := range segments {
		offsets[i], lens[i] = uint32(total), uint32(v.Len)
		total += v.Len
	}
	packed, err := d.alloc(total, KeySize, nil)
	if err != nil {
		return nil, err
	}
	defer d.Release(packed)
	for i, v := range segments {
		if v.Len == 0 {
			continue
		}
		src, err := d.buffer(v)
		if err != nil {
			return nil, err
		}
		code := C.clEnqueueCopyBuffer(d.queue, src.mem, packed.mem,
			C.size_t(v.Off*KeySize), C.size_t(int(offsets[i])*KeySize), C.size_t(v.Len*KeySize), 0, nil, nil)
		if err := clError("clEnqueueCopyBuffer", code); err != nil {
			return nil, err
		}
	}

	offs, err := d.alloc(len(segments), 4, unsafe.Pointer(&offsets[0]))
	if err != nil {
		return nil, err
	}
	defer d.Release(offs)
	lb, err := d.alloc(len(segments), 4, unsafe.Pointer(&lens[0]))
	if err != nil {
		return nil, err
	}
	defer d.Release(lb)
	out, err := d.alloc(len(segments), flagSize, nil)
	if err != nil {
		return nil, err
	}
	defer d.Release(out)

	if err := d.run("any_match", len(segments), packed, offs, lb, len(segments), probe, pv.Off, pv.Len, out); err != nil {
		return nil, err
	}
	host := make([]uint8, len(segments))
	if err := d.read(out, 0, len(segments), flagSize, unsafe.Pointer(&host[0])); err != nil {
		return nil, err
	}
	for i, h := range host {
		if h != 0 {
			hits.Set(uint(i))
		}
	}
	return hits, nil
}

func (d *openclDriver) Release(b Buffer) {
	if cb, ok := b.(*clBuffer); ok {
		cb.once.Do(func() { C.clReleaseMemObject(cb.mem) })
	}
}

func (d *openclDriver) Close() error {
	for _, k := range d.kernels {
		C.clReleaseKernel(k)
	}
	if d.program != nil {
		C.clReleaseProgram(d.program)
	}
	C.clReleaseCommandQueue(d.queue)
	C.clReleaseContext(d.ctx)
	return nil
}
