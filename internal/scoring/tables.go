package scoring

// Chain power by chain index, 1-based. Index 0 is unused.
var chainPowerTable = [...]int{
	0,
	0, 8, 16, 32, 64, 96, 128, 160, 192, 224, 256, 288,
	320, 352, 384, 416, 448, 480, 512, 544, 576, 608, 640, 672,
}

// Colour bonus by number of distinct colours in a clear, 1-based.
var colourBonusTable = [...]int{0, 0, 3, 6, 12, 24, 48}

// Group bonus for group sizes MinGroupSize..MaxGroupSize.
var groupBonusTable = [...]int{0, 2, 3, 4, 5, 6, 7, 10, 10, 10, 10}

const (
	MaxChain     = len(chainPowerTable) - 1
	MaxColours   = len(colourBonusTable) - 1
	MinGroupSize = 4
	MaxGroupSize = MinGroupSize + len(groupBonusTable) - 1
)

// ChainPower returns the chain power for a chain index. Indices past
// MaxChain clamp to the last entry; indices below 1 return 0.
func ChainPower(chain int) int {
	if chain < 1 {
		return 0
	}
	if chain > MaxChain {
		chain = MaxChain
	}
	return chainPowerTable[chain]
}

// ColourBonus returns the bonus for the number of distinct colours cleared.
func ColourBonus(distinct int) int {
	if distinct < 1 {
		return 0
	}
	if distinct > MaxColours {
		distinct = MaxColours
	}
	return colourBonusTable[distinct]
}

// GroupBonus returns the bonus for a same-colour group of the given size.
// Sizes below MinGroupSize earn nothing; sizes above MaxGroupSize clamp.
func GroupBonus(size int) int {
	if size < MinGroupSize {
		return 0
	}
	if size > MaxGroupSize {
		size = MaxGroupSize
	}
	return groupBonusTable[size-MinGroupSize]
}
