// internal/syntax/residual.go
package syntax

import (
	"github.com/llehouerou/go-flac/internal/bits"
)

// EntropyType is the residual coding method.
type EntropyType uint8

// Residual coding methods.
const (
	EntropyRice  EntropyType = 0 // 4-bit parameters, escape 0xF
	EntropyRice2 EntropyType = 1 // 5-bit parameters, escape 0x1F
)

// ParameterLen returns the width of a partition's Rice parameter.
func (t EntropyType) ParameterLen() uint {
	if t == EntropyRice2 {
		return Rice2ParameterLen
	}
	return RiceParameterLen
}

// EscapeParameter returns the parameter value announcing raw samples.
func (t EntropyType) EscapeParameter() uint32 {
	if t == EntropyRice2 {
		return Rice2EscapeParameter
	}
	return RiceEscapeParameter
}

// PartitionedRiceContents holds per-partition Rice parameters. RawBits is
// non-zero only for escaped partitions.
type PartitionedRiceContents struct {
	Parameters []uint32
	RawBits    []uint32
	capOrder   uint
}

// EnsureSize grows the store to hold 2^order partitions. Smaller orders
// reuse the existing storage.
func (c *PartitionedRiceContents) EnsureSize(order uint) {
	if c.Parameters != nil && order <= c.capOrder {
		return
	}
	n := 1 << order
	c.Parameters = make([]uint32, n)
	c.RawBits = make([]uint32, n)
	c.capOrder = order
}

// EntropyCodingMethod describes how a subframe's residual is coded.
type EntropyCodingMethod struct {
	Type           EntropyType
	PartitionOrder uint
	Contents       *PartitionedRiceContents
}

// readEntropyMethod reads the method type and partition order and checks
// the partitioning against the block and predictor.
func readEntropyMethod(r *bits.Reader, m *EntropyCodingMethod, blocksize, order int, contents *PartitionedRiceContents) error {
	t, err := r.ReadBits(EntropyMethodTypeLen)
	if err != nil {
		return err
	}
	if t > uint32(EntropyRice2) {
		return ErrUnparseable
	}
	p, err := r.ReadBits(RicePartitionOrderLen)
	if err != nil {
		return err
	}
	if blocksize>>p < order || blocksize%(1<<p) != 0 {
		return ErrLostSync
	}
	m.Type = EntropyType(t)
	m.PartitionOrder = uint(p)
	m.Contents = contents
	return nil
}

// ReadResidual decodes the partitioned Rice residual of a subframe with
// the given predictor order into out (len blocksize-order). The first
// partition is shortened by order.
func ReadResidual(r *bits.Reader, m *EntropyCodingMethod, blocksize, order int, out []int32) error {
	partitions := 1 << m.PartitionOrder
	partitionSamples := blocksize >> m.PartitionOrder
	plen := m.Type.ParameterLen()
	escape := m.Type.EscapeParameter()

	if m.Contents == nil {
		m.Contents = &PartitionedRiceContents{}
	}
	m.Contents.EnsureSize(max(6, m.PartitionOrder))

	sample := 0
	for p := 0; p < partitions; p++ {
		n := partitionSamples
		if p == 0 {
			n -= order
		}
		param, err := r.ReadBits(plen)
		if err != nil {
			return err
		}
		m.Contents.Parameters[p] = param

		if param < escape {
			m.Contents.RawBits[p] = 0
			if err := r.ReadRiceSignedBlock(out[sample:sample+n], uint(param)); err != nil {
				return err
			}
			sample += n
			continue
		}

		width, err := r.ReadBits(RiceRawLen)
		if err != nil {
			return err
		}
		m.Contents.RawBits[p] = width
		part := out[sample : sample+n]
		if width == 0 {
			clear(part)
		} else {
			for i := range part {
				v, err := r.ReadSignedBits(uint(width))
				if err != nil {
					return err
				}
				part[i] = v
			}
		}
		sample += n
	}
	return nil
}
