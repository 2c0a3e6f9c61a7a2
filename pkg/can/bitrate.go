package can

// BitRate is the index of an entry in the bit rate table
type BitRate uint8

const (
	BitRate1M BitRate = iota
	BitRate800K
	BitRate500K
	BitRate250K
	BitRate125K
	BitRate100K
	BitRate95K
	BitRate83K
	BitRate50K
	BitRate47K
	BitRate33K
	BitRate20K
	BitRate10K
	BitRate5K
)

const (
	DefaultBitRate = BitRate250K
	MaxBitRate     = BitRate5K
	NbBitRates     = int(MaxBitRate) + 1
)

type bitRateEntry struct {
	bitsPerSecond uint32
	btr0btr1      uint16 // SJA1000 bus timing registers @ 8 MHz, as used by PCAN
	description   string
}

var bitRateTable = [NbBitRates]bitRateEntry{
	BitRate1M:   {1_000_000, 0x0014, "1 MBit/s"},
	BitRate800K: {800_000, 0x0016, "800 kBit/s"},
	BitRate500K: {500_000, 0x001C, "500 kBit/s"},
	BitRate250K: {250_000, 0x011C, "250 kBit/s"},
	BitRate125K: {125_000, 0x031C, "125 kBit/s"},
	BitRate100K: {100_000, 0x432F, "100 kBit/s"},
	BitRate95K:  {95_238, 0xC34E, "95,238 kBit/s"},
	BitRate83K:  {83_333, 0x852B, "83,333 kBit/s"},
	BitRate50K:  {50_000, 0x472F, "50 kBit/s"},
	BitRate47K:  {47_619, 0x1414, "47,619 kBit/s"},
	BitRate33K:  {33_333, 0x8B2F, "33,333 kBit/s"},
	BitRate20K:  {20_000, 0x532F, "20 kBit/s"},
	BitRate10K:  {10_000, 0x672F, "10 kBit/s"},
	BitRate5K:   {5_000, 0x7F7F, "5 kBit/s"},
}

// BitRateFromIndex converts a configuration command into a bit rate.
// Values above the table are clamped to the lowest bit rate, in that case
// ok is false.
func BitRateFromIndex(index uint) (rate BitRate, ok bool) {
	if index > uint(MaxBitRate) {
		return MaxBitRate, false
	}
	return BitRate(index), true
}

func (rate BitRate) entry() bitRateEntry {
	if rate > MaxBitRate {
		rate = MaxBitRate
	}
	return bitRateTable[rate]
}

// Index in the table, clamped
func (rate BitRate) Index() uint8 {
	if rate > MaxBitRate {
		return uint8(MaxBitRate)
	}
	return uint8(rate)
}

func (rate BitRate) BitsPerSecond() uint32 {
	return rate.entry().bitsPerSecond
}

// BTR0/BTR1 register value for SJA1000 compatible controllers
func (rate BitRate) Code() uint16 {
	return rate.entry().btr0btr1
}

func (rate BitRate) String() string {
	return rate.entry().description
}

// All bit rates in table order
func BitRates() []BitRate {
	rates := make([]BitRate, NbBitRates)
	for i := range rates {
		rates[i] = BitRate(i)
	}
	return rates
}
