package allocation

import "math/rand/v2"

// Sampler draws count distinct ids from candidates.
type Sampler interface {
	Draw(candidates []string, count int) []string
}

// UniformSampler picks uniformly at random without replacement.
type UniformSampler struct{}

// Draw runs a partial Fisher-Yates shuffle over a copy of candidates.
// The result order carries no meaning.
func (UniformSampler) Draw(candidates []string, count int) []string {
	if count <= 0 {
		return nil
	}
	pool := append([]string(nil), candidates...)
	if count > len(pool) {
		count = len(pool)
	}
	for i := 0; i < count; i++ {
		j := i + rand.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:count]
}
