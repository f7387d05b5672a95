package predict

// RestoreFixed reconstructs data[order:] from residual using the fixed
// polynomial predictor of the given order. data[:order] holds the warm-up
// samples. All arithmetic is 32-bit.
func RestoreFixed(residual []int32, order int, data []int32) {
	n := len(data) - order
	switch order {
	case 0:
		copy(data, residual[:n])
	case 1:
		for i := 1; i < len(data); i++ {
			data[i] = residual[i-1] + data[i-1]
		}
	case 2:
		for i := 2; i < len(data); i++ {
			data[i] = residual[i-2] + 2*data[i-1] - data[i-2]
		}
	case 3:
		for i := 3; i < len(data); i++ {
			data[i] = residual[i-3] + 3*data[i-1] - 3*data[i-2] + data[i-3]
		}
	case 4:
		for i := 4; i < len(data); i++ {
			data[i] = residual[i-4] + 4*data[i-1] - 6*data[i-2] + 4*data[i-3] - data[i-4]
		}
	}
}

// RestoreFixedWide is RestoreFixed with a 64-bit accumulator, for
// bits per sample + order > 32.
func RestoreFixedWide(residual []int32, order int, data []int32) {
	switch order {
	case 0:
		copy(data, residual[:len(data)])
	case 1:
		for i := 1; i < len(data); i++ {
			data[i] = int32(int64(residual[i-1]) + int64(data[i-1]))
		}
	case 2:
		for i := 2; i < len(data); i++ {
			data[i] = int32(int64(residual[i-2]) + 2*int64(data[i-1]) - int64(data[i-2]))
		}
	case 3:
		for i := 3; i < len(data); i++ {
			data[i] = int32(int64(residual[i-3]) + 3*int64(data[i-1]) - 3*int64(data[i-2]) + int64(data[i-3]))
		}
	case 4:
		for i := 4; i < len(data); i++ {
			data[i] = int32(int64(residual[i-4]) + 4*int64(data[i-1]) - 6*int64(data[i-2]) + 4*int64(data[i-3]) - int64(data[i-4]))
		}
	}
}

// RestoreFixed33 is RestoreFixed over 64-bit storage, for 33-bit side
// channels.
func RestoreFixed33(residual []int32, order int, data []int64) {
	switch order {
	case 0:
		for i := range data {
			data[i] = int64(residual[i])
		}
	case 1:
		for i := 1; i < len(data); i++ {
			data[i] = int64(residual[i-1]) + data[i-1]
		}
	case 2:
		for i := 2; i < len(data); i++ {
			data[i] = int64(residual[i-2]) + 2*data[i-1] - data[i-2]
		}
	case 3:
		for i := 3; i < len(data); i++ {
			data[i] = int64(residual[i-3]) + 3*data[i-1] - 3*data[i-2] + data[i-3]
		}
	case 4:
		for i := 4; i < len(data); i++ {
			data[i] = int64(residual[i-4]) + 4*data[i-1] - 6*data[i-2] + 4*data[i-3] - data[i-4]
		}
	}
}

// FixedResidual computes the fixed predictor residual of data for
// i >= order into residual[i-order].
func FixedResidual(data []int64, order int, residual []int64) {
	for i := order; i < len(data); i++ {
		var p int64
		switch order {
		case 1:
			p = data[i-1]
		case 2:
			p = 2*data[i-1] - data[i-2]
		case 3:
			p = 3*data[i-1] - 3*data[i-2] + data[i-3]
		case 4:
			p = 4*data[i-1] - 6*data[i-2] + 4*data[i-3] - data[i-4]
		}
		residual[i-order] = data[i] - p
	}
}
