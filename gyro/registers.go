package gyro

// I3G4250D register map (datasheet section 7).
const (
	regWhoAmI    byte = 0x0F
	regCtrl1     byte = 0x20
	regCtrl2     byte = 0x21
	regCtrl3     byte = 0x22
	regCtrl4     byte = 0x23
	regCtrl5     byte = 0x24
	regReference byte = 0x25
	regOutTemp   byte = 0x26
	regStatus    byte = 0x27
	regOutXL     byte = 0x28
	regOutXH     byte = 0x29
	regOutYL     byte = 0x2A
	regOutYH     byte = 0x2B
	regOutZL     byte = 0x2C
	regOutZH     byte = 0x2D
)

// SPI address byte framing: bit 7 selects read, bit 6 auto-increments the
// address on multi-byte transfers.
const (
	flagRead          byte = 0x80
	flagAutoIncrement byte = 0x40
)

// STATUS register: ZYXDA on bit 3, per-axis new data on bits 2:0.
const statusNewData byte = 0x07

// CTRL_REG4 fixed bits: BLE=0 (little-endian output), ST=00 (self-test off),
// SIM=0 (4-wire SPI).
const ctrl4Fixed byte = 0x00

const identity byte = 0xD3
