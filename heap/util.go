package heap

import "unsafe"

func wordOf(i uintptr) uintptr        { return i / BitsPerWord }
func bitOf(i uintptr) uintptr         { return i % BitsPerWord }
func indexOf(word, bit uintptr) uintptr { return word*BitsPerWord + bit }

func ceilDiv(n, d uintptr) uintptr { return (n + d - 1) / d }

func avg(a, b uintptr) uintptr { return (a + b) / 2 }

func maxWords(a, b uintptr) uintptr {
	if a > b {
		return a
	}
	return b
}

func powerOfTwo(n uintptr) bool { return n != 0 && n&(n-1) == 0 }

// ceilLog2 returns the smallest b such that 1<<b >= n, for n >= 1.
// ageMap sizes itself off ceilLog2(TenureThreshold+1) so it can represent
// every age in [0, TenureThreshold] rather than just TenureThreshold
// itself, which the value-only ceiling of a plain log2 would undercount.
func ceilLog2(n uintptr) uintptr {
	b := uintptr(0)
	v := uintptr(1)
	for v < n {
		v <<= 1
		b++
	}
	return b
}

// noEscape returns p unchanged. It has the signature of
// internal/abi.NoEscape but, unlike that function, does not hide p from
// the escape analyzer. Nothing in this package calls it.
func noEscape(p unsafe.Pointer) unsafe.Pointer {
	return p
}

func zeroWords(p unsafe.Pointer, n uintptr) {
	for i := uintptr(0); i < n; i++ {
		*(*uintptr)(unsafe.Pointer(uintptr(p) + i*BytesPerWord)) = 0
	}
}

func copyWords(dst, src unsafe.Pointer, n uintptr) {
	for i := uintptr(0); i < n; i++ {
		*(*uintptr)(unsafe.Pointer(uintptr(dst) + i*BytesPerWord)) = *(*uintptr)(unsafe.Pointer(uintptr(src) + i*BytesPerWord))
	}
}
