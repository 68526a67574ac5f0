//go:build gpu && cgo

package gpu

// kernelSource is the OpenCL C program used by the OpenCL driver. Offsets
// and lengths address sub-buffers of one allocation per uploaded set.
const kernelSource = `
inline uint lower_bound(__global const ulong* s, uint n, ulong v) {
	uint lo = 0, hi = n;
	while (lo < hi) {
		uint mid = lo + (hi - lo) / 2;
		if (s[mid] < v) lo = mid + 1; else hi = mid;
	}
	return lo;
}

__kernel void mark(__global const ulong* a, uint aoff, uint alen,
                   __global const ulong* b, uint boff, uint blen,
                   uint invert, __global uchar* flags) {
	uint i = get_global_id(0);
	if (i >= alen) return;
	ulong v = a[aoff + i];
	uint j = lower_bound(b + boff, blen, v);
	uint found = (j < blen && b[boff + j] == v) ? 1 : 0;
	flags[i] = (uchar)(found ^ invert);
}

// Exclusive scan of flags in three passes: each work item scans one block,
// one work item scans the block sums, then block bases are added back.
__kernel void scan_blocks(__global const uchar* flags, uint n, uint block,
                          __global uint* offsets, __global uint* sums) {
	uint b = get_global_id(0);
	uint lo = b * block;
	if (lo >= n) return;
	uint hi = min(lo + block, n);
	uint acc = 0;
	for (uint i = lo; i < hi; i++) {
		offsets[i] = acc;
		acc += flags[i];
	}
	sums[b] = acc;
}

__kernel void scan_sums(__global uint* sums, uint nblocks, __global uint* total) {
	if (get_global_id(0) != 0) return;
	uint acc = 0;
	for (uint i = 0; i < nblocks; i++) {
		uint s = sums[i];
		sums[i] = acc;
		acc += s;
	}
	total[0] = acc;
}

__kernel void add_block_offsets(__global uint* offsets, uint n, uint block,
                                __global const uint* sums) {
	uint i = get_global_id(0);
	if (i >= n) return;
	offsets[i] += sums[i / block];
}

__kernel void scatter(__global const ulong* a, uint aoff, uint alen,
                      __global const uchar* flags, __global const uint* offsets,
                      __global ulong* out) {
	uint i = get_global_id(0);
	if (i >= alen || !flags[i]) return;
	out[offsets[i]] = a[aoff + i];
}

__kernel void rank_merge(__global const ulong* a, uint aoff, uint alen,
                         __global const ulong* b, uint boff, uint blen,
                         __global ulong* out) {
	uint i = get_global_id(0);
	if (i < alen) {
		ulong v = a[aoff + i];
		out[i + lower_bound(b + boff, blen, v)] = v;
	} else if (i < alen + blen) {
		uint j = i - alen;
		ulong v = b[boff + j];
		out[j + lower_bound(a + aoff, alen, v)] = v;
	}
}

__kernel void any_match(__global const ulong* keys, __global const uint* offs,
                        __global const uint* lens, uint nseg,
                        __global const ulong* probe, uint poff, uint plen,
                        __global uchar* out) {
	uint s = get_global_id(0);
	if (s >= nseg) return;
	uchar hit = 0;
	for (uint i = 0; i < lens[s] && !hit; i++) {
		ulong v = keys[offs[s] + i];
		uint j = lower_bound(probe + poff, plen, v);
		hit = (j < plen && probe[poff + j] == v);
	}
	out[s] = hit;
}
`
