package cxops

type unrolled struct{}

func (unrolled) Name() string { return "unrolled" }

func (unrolled) Scale(x []complex64, s float32) {
	n := len(x) &^ 3
	for i := 0; i < n; i += 4 {
		v := x[i : i+4 : i+4]
		v[0] = complex(real(v[0])*s, imag(v[0])*s)
		v[1] = complex(real(v[1])*s, imag(v[1])*s)
		v[2] = complex(real(v[2])*s, imag(v[2])*s)
		v[3] = complex(real(v[3])*s, imag(v[3])*s)
	}
	for i := n; i < len(x); i++ {
		x[i] = complex(real(x[i])*s, imag(x[i])*s)
	}
}

func (unrolled) Mul(dst, a, b []complex64) {
	n := len(dst) &^ 3
	a = a[:len(dst)]
	b = b[:len(dst)]
	for i := 0; i < n; i += 4 {
		d := dst[i : i+4 : i+4]
		av := a[i : i+4 : i+4]
		bv := b[i : i+4 : i+4]
		d[0] = av[0] * bv[0]
		d[1] = av[1] * bv[1]
		d[2] = av[2] * bv[2]
		d[3] = av[3] * bv[3]
	}
	for i := n; i < len(dst); i++ {
		dst[i] = a[i] * b[i]
	}
}

func (unrolled) SumSquares(x []complex64) float64 {
	var s0, s1, s2, s3 float64
	n := len(x) &^ 3
	for i := 0; i < n; i += 4 {
		v := x[i : i+4 : i+4]
		s0 += float64(real(v[0]))*float64(real(v[0])) + float64(imag(v[0]))*float64(imag(v[0]))
		s1 += float64(real(v[1]))*float64(real(v[1])) + float64(imag(v[1]))*float64(imag(v[1]))
		s2 += float64(real(v[2]))*float64(real(v[2])) + float64(imag(v[2]))*float64(imag(v[2]))
		s3 += float64(real(v[3]))*float64(real(v[3])) + float64(imag(v[3]))*float64(imag(v[3]))
	}
	for i := n; i < len(x); i++ {
		s0 += float64(real(x[i]))*float64(real(x[i])) + float64(imag(x[i]))*float64(imag(x[i]))
	}
	return (s0 + s1) + (s2 + s3)
}

func (unrolled) Peaks(x []complex64) (float64, float64) {
	var r0, r1, i0, i1 float32
	n := len(x) &^ 1
	for i := 0; i < n; i += 2 {
		r0 = max(r0, abs32(real(x[i])))
		r1 = max(r1, abs32(real(x[i+1])))
		i0 = max(i0, abs32(imag(x[i])))
		i1 = max(i1, abs32(imag(x[i+1])))
	}
	if n < len(x) {
		r0 = max(r0, abs32(real(x[n])))
		i0 = max(i0, abs32(imag(x[n])))
	}
	return float64(max(r0, r1)), float64(max(i0, i1))
}

func (unrolled) SumAbsReal(x []complex64) float64 {
	var s0, s1, s2, s3 float64
	n := len(x) &^ 3
	for i := 0; i < n; i += 4 {
		s0 += float64(abs32(real(x[i])))
		s1 += float64(abs32(real(x[i+1])))
		s2 += float64(abs32(real(x[i+2])))
		s3 += float64(abs32(real(x[i+3])))
	}
	for i := n; i < len(x); i++ {
		s0 += float64(abs32(real(x[i])))
	}
	return (s0 + s1) + (s2 + s3)
}
