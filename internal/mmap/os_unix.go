//go:build unix || linux || darwin || freebsd || openbsd || netbsd

package mmap

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

func osMap(f *os.File, size int) ([]byte, func([]byte) error, error) {
	prot := unix.PROT_READ
	flags := unix.MAP_SHARED

	data, err := unix.Mmap(int(f.Fd()), 0, size, prot, flags)
	if err != nil {
		return nil, nil, err
	}

	return data, unix.Munmap, nil
}

func osAdvise(data []byte, pattern AccessPattern) error {
	if len(data) == 0 {
		return nil
	}

	var advice int
	switch pattern {
	case AccessSequential:
		advice = unix.MADV_SEQUENTIAL
	case AccessRandom:
		advice = unix.MADV_RANDOM
	case AccessWillNeed:
		advice = unix.MADV_WILLNEED
	case AccessDontNeed:
		advice = unix.MADV_DONTNEED
	default:
		advice = unix.MADV_NORMAL
	}

	// Regions of a set file are rarely page aligned; madvise then reports
	// EINVAL and the hint is dropped.
	err := unix.Madvise(alignToPage(data), advice)
	if err == unix.EINVAL {
		return nil
	}
	return err
}

// alignToPage widens data to start on a page boundary within the same mapping.
func alignToPage(data []byte) []byte {
	page := uintptr(unix.Getpagesize())
	start := uintptr(unsafe.Pointer(unsafe.SliceData(data)))
	pad := start % page
	if pad == 0 {
		return data
	}
	return unsafe.Slice((*byte)(unsafe.Add(unsafe.Pointer(unsafe.SliceData(data)), -int(pad))), uintptr(len(data))+pad)
}

func pageSize() int { return unix.Getpagesize() }
