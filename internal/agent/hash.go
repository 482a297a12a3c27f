package agent

// Domain separation salts. Each decision an agent makes draws from its own
// hash stream so that, for example, the success draw and the mode draw for
// the same (agent, task, seed) are independent.
const (
	saltOutcome       uint64 = 0x6f7574636f6d6521
	saltMode          uint64 = 0x6d6f64652d706b21
	saltExpected      uint64 = 0x6578706563746564
	saltHallucination uint64 = 0x68616c6c7563696e
	saltCorruption    uint64 = 0x636f727275707421
	saltSeed          uint64 = 0x736565642d646572
)

const golden = 0x9e3779b97f4a7c15

// mix64 is the splitmix64 finalizer. Adjacent inputs produce uncorrelated outputs.
func mix64(x uint64) uint64 {
	x += golden
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// Hash folds words into a single well-distributed 64-bit value.
// It is a pure function of its arguments and their order.
func Hash(words ...uint64) uint64 {
	h := uint64(len(words)) * golden
	for _, w := range words {
		h = mix64(h ^ w)
	}
	return h
}

// Unit maps a hash onto [0,1) using its top 53 bits.
func Unit(h uint64) float64 {
	return float64(h>>11) * 0x1p-53
}

// DeriveSeed returns the seed for trial t, task k under base seed base.
func DeriveSeed(base, trial, task uint64) uint64 {
	return Hash(saltSeed, base, trial, task)
}
