// Package partition divides a row count into windows that start at a base size and double until
// they reach a cap. Window i covers [Offset(i), Offset(i)+Size(i)).
package partition

import "github.com/squareup/lazyrows/errors"

const DefaultMaxBlockSize = 1024

type Partition struct {
	Base int
	Max  int
}

func New(base int, max int) (Partition, error) {
	if base <= 0 {
		return Partition{}, errors.NewInvalidBlockSizeError(base)
	}
	if max < base {
		return Partition{}, errors.NewInvalidConfigurationError("max block size must be >= block size")
	}
	return Partition{Base: base, Max: max}, nil
}

// Size returns min(Base * 2^i, Max).
func (p Partition) Size(i int) int {
	size := p.first()
	for j := 0; j < i && size < p.Max; j++ {
		size = p.next(size)
	}
	return size
}

// Count returns the number of windows needed to cover total rows.
func (p Partition) Count(total int) (int, error) {
	if p.Base <= 0 {
		return 0, errors.NewInvalidBlockSizeError(p.Base)
	}
	count, covered, size := 0, 0, p.first()
	for covered < total {
		if size == p.Max {
			return count + (total-covered+p.Max-1)/p.Max, nil
		}
		covered += size
		count++
		size = p.next(size)
	}
	return count, nil
}

// Offset returns the sum of the sizes of windows 0..k-1.
func (p Partition) Offset(k int) int {
	offset, size := 0, p.first()
	for i := 0; i < k; i++ {
		if size == p.Max {
			return offset + (k-i)*p.Max
		}
		offset += size
		size = p.next(size)
	}
	return offset
}

// Locate returns the index of the window covering pos, or -1 if pos is negative.
func (p Partition) Locate(pos int) int {
	if pos < 0 || p.Base <= 0 {
		return -1
	}
	offset, size := 0, p.first()
	for i := 0; ; i++ {
		if size == p.Max {
			return i + (pos-offset)/p.Max
		}
		if pos < offset+size {
			return i
		}
		offset += size
		size = p.next(size)
	}
}

func (p Partition) first() int {
	if p.Base > p.Max {
		return p.Max
	}
	return p.Base
}

func (p Partition) next(size int) int {
	if size >= p.Max-size {
		return p.Max
	}
	return size * 2
}

// BlockSize is Size using DefaultMaxBlockSize.
func BlockSize(base int, i int) int {
	return Partition{Base: base, Max: DefaultMaxBlockSize}.Size(i)
}

// BlockCount is Count using DefaultMaxBlockSize. A non-positive base is rejected with an
// InvalidBlockSize error rather than reporting zero windows.
func BlockCount(total int, base int) (int, error) {
	return Partition{Base: base, Max: DefaultMaxBlockSize}.Count(total)
}

// BlockOffset is Offset using DefaultMaxBlockSize.
func BlockOffset(base int, k int) int {
	return Partition{Base: base, Max: DefaultMaxBlockSize}.Offset(k)
}
