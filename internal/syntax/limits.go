package syntax

// Format limits.
const (
	MaxChannels           = 8     // Channels per frame
	MaxBlockSize          = 65535 // Samples per channel per frame
	MaxFixedOrder         = 4     // Highest fixed predictor order
	MaxLPCOrder           = 32    // Highest LPC order
	MaxQLPCoeffPrecision  = 15    // Bits per quantized coefficient
	MaxRicePartitionOrder = 15    // 4-bit partition order field
	MaxBitsPerSample      = 32    // Highest PCM depth; side channels carry one more
)

// Field widths in bits.
const (
	SyncCodeLen             = 14
	SubframeLPCPrecisionLen = 4
	SubframeLPCShiftLen     = 5
	EntropyMethodTypeLen    = 2
	RicePartitionOrderLen   = 4
	RiceParameterLen        = 4
	Rice2ParameterLen       = 5
	RiceRawLen              = 5
	RiceEscapeParameter     = 1<<RiceParameterLen - 1
	Rice2EscapeParameter    = 1<<Rice2ParameterLen - 1
	FrameFooterCRCLen       = 16
	SeekPointPlaceholder    = ^uint64(0)
)
