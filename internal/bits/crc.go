package bits

import (
	"github.com/sigurn/crc16"
	"github.com/sigurn/crc8"
)

var (
	crc8Table  = crc8.MakeTable(crc8.CRC8)
	crc16Table = crc16.MakeTable(crc16.CRC16_BUYPASS)
)

// CRC8 folds p into a frame header CRC (polynomial 0x07, initial value 0).
func CRC8(crc uint8, p []byte) uint8 {
	return crc8.Update(crc, p, crc8Table)
}

// CRC16 folds p into a frame CRC (polynomial 0x8005, initial value 0,
// unreflected).
func CRC16(crc uint16, p []byte) uint16 {
	return crc16.Update(crc, p, crc16Table)
}
